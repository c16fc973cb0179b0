package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool used by PostgresStore.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db  Querier
	now func() time.Time
}

func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (p *PostgresStore) ForSession(sessionID string) Storage {
	return &postgresStorage{store: p, sessionID: sessionID}
}

// PurgeBefore deletes slots not written since cutoff.
func (p *PostgresStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM client_storage WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge client storage: %w", err)
	}
	return tag.RowsAffected(), nil
}

type postgresStorage struct {
	store     *PostgresStore
	sessionID string
}

func (s *postgresStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM client_storage WHERE session_id = $1 AND slot = $2`

	var value string
	err := s.store.db.QueryRow(ctx, query, s.sessionID, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select slot %s: %w", key, err)
	}
	return value, true, nil
}

func (s *postgresStorage) SetItem(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO client_storage (session_id, slot, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, slot)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at,
			version = client_storage.version + 1
	`
	if _, err := s.store.db.Exec(ctx, query, s.sessionID, key, value, s.store.now()); err != nil {
		return fmt.Errorf("upsert slot %s: %w", key, err)
	}
	return nil
}

func (s *postgresStorage) RemoveItem(ctx context.Context, key string) error {
	query := `DELETE FROM client_storage WHERE session_id = $1 AND slot = $2`
	if _, err := s.store.db.Exec(ctx, query, s.sessionID, key); err != nil {
		return fmt.Errorf("delete slot %s: %w", key, err)
	}
	return nil
}

// UpdateItem is optimistic: the write only lands if the row still has the
// version that was read, otherwise the slot is read again.
func (s *postgresStorage) UpdateItem(ctx context.Context, key string, fn UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var (
			current string
			version int64
			found   = true
		)
		err := s.store.db.QueryRow(ctx,
			`SELECT value, version FROM client_storage WHERE session_id = $1 AND slot = $2`,
			s.sessionID, key,
		).Scan(&current, &version)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
		} else if err != nil {
			return fmt.Errorf("select slot %s: %w", key, err)
		}

		next, err := fn(current, found)
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		if err != nil {
			return err
		}

		var tag pgconn.CommandTag
		if found {
			tag, err = s.store.db.Exec(ctx, `
				UPDATE client_storage SET value = $3, updated_at = $4, version = version + 1
				WHERE session_id = $1 AND slot = $2 AND version = $5
			`, s.sessionID, key, next, s.store.now(), version)
		} else {
			tag, err = s.store.db.Exec(ctx, `
				INSERT INTO client_storage (session_id, slot, value, updated_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (session_id, slot) DO NOTHING
			`, s.sessionID, key, next, s.store.now())
		}
		if err != nil {
			return fmt.Errorf("update slot %s: %w", key, err)
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
	}
	return fmt.Errorf("update slot %s: %w", key, ErrConflict)
}
