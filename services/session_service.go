package services

import (
	"context"
	"errors"
	"fmt"
	"storefront/metrics"
	"storefront/repositories"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrEmptyCredential = errors.New("credential is empty")

// CredentialStore keeps the opaque access token issued by the store API.
type CredentialStore struct {
	storage repositories.Storage
}

func NewCredentialStore(storage repositories.Storage) *CredentialStore {
	return &CredentialStore{storage: storage}
}

func (c *CredentialStore) Login(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyCredential
	}
	if err := c.storage.SetItem(ctx, repositories.CredentialSlot, token); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (c *CredentialStore) Logout(ctx context.Context) error {
	if err := c.storage.RemoveItem(ctx, repositories.CredentialSlot); err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// Token returns the stored token, or "" when the session is logged out.
func (c *CredentialStore) Token(ctx context.Context) (string, error) {
	token, _, err := c.storage.GetItem(ctx, repositories.CredentialSlot)
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return token, nil
}

func (c *CredentialStore) IsLoggedIn(ctx context.Context) bool {
	token, err := c.Token(ctx)
	return err == nil && token != ""
}

// Session is the state container of one storefront client session.
type Session struct {
	ID         string
	Cart       *CartStore
	Address    *AddressAutofill
	Credential *CredentialStore

	lastSeen time.Time
}

// SessionRegistry creates each session once and hands the same instance to
// every request carrying its id.
type SessionRegistry struct {
	storage  repositories.StorageFactory
	resolver AddressLookup
	idleTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionRegistry(storage repositories.StorageFactory, resolver AddressLookup, idleTTL time.Duration, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		storage:  storage,
		resolver: resolver,
		idleTTL:  idleTTL,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating it on first use. A session that
// is already live reloads its cart, since other processes sharing the
// storage may have changed it.
func (r *SessionRegistry) Get(ctx context.Context, id string) *Session {
	sess, created := r.getOrCreate(ctx, id)
	if !created {
		sess.Cart.Refresh(ctx)
	}
	return sess
}

func (r *SessionRegistry) getOrCreate(ctx context.Context, id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		sess.lastSeen = r.now()
		return sess, false
	}

	logger := r.logger.With(zap.String("session_id", id))
	storage := r.storage.ForSession(id)
	sess := &Session{
		ID:         id,
		Cart:       NewCartStore(ctx, storage, logger),
		Address:    NewAddressAutofill(r.resolver, logger),
		Credential: NewCredentialStore(storage),
		lastSeen:   r.now(),
	}
	r.sessions[id] = sess
	metrics.SetActiveSessions(len(r.sessions))
	return sess, true
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// Evict drops a session from memory. Its slots stay in storage.
func (r *SessionRegistry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	metrics.SetActiveSessions(len(r.sessions))
}

// EvictIdle drops sessions not seen for the idle TTL and returns how many.
func (r *SessionRegistry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for id, sess := range r.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	metrics.SetActiveSessions(len(r.sessions))
	return evicted
}

// Run evicts idle sessions every interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.logger.Debug("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}
