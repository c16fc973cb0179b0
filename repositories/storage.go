package repositories

import (
	"context"
	"errors"
)

// Slot names used by the storefront session state.
const (
	CartSlot       = "cart"
	CredentialSlot = "access_token"
)

// maxUpdateAttempts bounds the retries of an UpdateItem that keeps losing
// to concurrent writers.
const maxUpdateAttempts = 8

var (
	// ErrNoChange may be returned by an UpdateFunc to leave the slot as it is.
	// UpdateItem then returns nil.
	ErrNoChange = errors.New("slot unchanged")
	// ErrConflict is returned when an update lost every retry to concurrent
	// writers.
	ErrConflict = errors.New("slot changed concurrently")
)

// UpdateFunc computes a slot's next value from its current one. It may be
// called more than once when a concurrent write forces a retry.
type UpdateFunc func(current string, found bool) (string, error)

// Storage is one session's durable key/value slots.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	// UpdateItem is a read-modify-write of one slot. A write made by anyone
	// else between the read and the write makes it re-read and retry.
	UpdateItem(ctx context.Context, key string, fn UpdateFunc) error
}

// StorageFactory hands out the slot view of a single session.
type StorageFactory interface {
	ForSession(sessionID string) Storage
}
