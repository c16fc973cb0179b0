package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := store.ForSession("a")
	b := store.ForSession("b")

	require.NoError(t, a.SetItem(ctx, CartSlot, `[{"id":1}]`))

	value, ok, err := a.GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, value)

	_, ok, err = b.GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_RemoveItem(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := store.ForSession("a")

	require.NoError(t, s.SetItem(ctx, CredentialSlot, "token"))
	require.NoError(t, s.RemoveItem(ctx, CredentialSlot))
	require.NoError(t, s.RemoveItem(ctx, CredentialSlot))

	_, ok, err := s.GetItem(ctx, CredentialSlot)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.slots)
}

func appendMark(mark string) UpdateFunc {
	return func(current string, found bool) (string, error) {
		if !found {
			return mark, nil
		}
		return current + "," + mark, nil
	}
}

func TestMemoryStore_UpdateItem(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	x := store.ForSession("a")
	y := store.ForSession("a")

	require.NoError(t, x.UpdateItem(ctx, CartSlot, appendMark("x")))
	require.NoError(t, y.UpdateItem(ctx, CartSlot, appendMark("y")))
	require.NoError(t, x.UpdateItem(ctx, CartSlot, func(string, bool) (string, error) {
		return "", ErrNoChange
	}))

	value, _, err := x.GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.Equal(t, "x,y", value)

	boom := errors.New("boom")
	assert.ErrorIs(t, x.UpdateItem(ctx, CartSlot, func(string, bool) (string, error) {
		return "", boom
	}), boom)
}

func TestMemoryStore_SurvivesNewView(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.ForSession("a").SetItem(ctx, CartSlot, "[]"))

	value, ok, err := store.ForSession("a").GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", value)
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *string:
			*d = r.values[i].(string)
		case *int64:
			*d = r.values[i].(int64)
		}
	}
	return nil
}

type fakeSlot struct {
	value   string
	version int64
	written time.Time
}

type fakeQuerier struct {
	rows    map[string]*fakeSlot
	execErr error
	// beforeUpdate runs ahead of every versioned UPDATE.
	beforeUpdate func()
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{rows: map[string]*fakeSlot{}}
}

func rowKey(sessionID, slot any) string {
	return fmt.Sprintf("%v/%v", sessionID, slot)
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	row, ok := q.rows[rowKey(args[0], args[1])]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	if strings.Contains(sql, "version") {
		return fakeRow{values: []any{row.value, row.version}}
	}
	return fakeRow{values: []any{row.value}}
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if q.execErr != nil {
		return pgconn.CommandTag{}, q.execErr
	}
	statement := strings.TrimSpace(sql)
	switch {
	case strings.HasPrefix(statement, "INSERT") && strings.Contains(statement, "DO NOTHING"):
		key := rowKey(args[0], args[1])
		if _, exists := q.rows[key]; exists {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		q.rows[key] = &fakeSlot{value: args[2].(string), written: args[3].(time.Time)}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(statement, "INSERT"):
		key := rowKey(args[0], args[1])
		row, exists := q.rows[key]
		if !exists {
			row = &fakeSlot{}
			q.rows[key] = row
		} else {
			row.version++
		}
		row.value = args[2].(string)
		row.written = args[3].(time.Time)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(statement, "UPDATE"):
		if q.beforeUpdate != nil {
			q.beforeUpdate()
		}
		row, exists := q.rows[rowKey(args[0], args[1])]
		if !exists || row.version != args[4].(int64) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		row.value = args[2].(string)
		row.written = args[3].(time.Time)
		row.version++
		return pgconn.NewCommandTag("UPDATE 1"), nil
	case strings.Contains(statement, "updated_at <"):
		cutoff := args[0].(time.Time)
		var n int
		for key, row := range q.rows {
			if row.written.Before(cutoff) {
				delete(q.rows, key)
				n++
			}
		}
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", n)), nil
	default:
		delete(q.rows, rowKey(args[0], args[1]))
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newFakeQuerier()
	s := NewPostgresStore(db).ForSession("sess-1")

	_, ok, err := s.GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem(ctx, CartSlot, "[]"))
	require.NoError(t, s.SetItem(ctx, CartSlot, `[{"id":2}]`))

	value, ok, err := s.GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":2}]`, value)

	require.NoError(t, s.RemoveItem(ctx, CartSlot))
	_, ok, err = s.GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresStore_WrapsErrors(t *testing.T) {
	db := newFakeQuerier()
	db.execErr = errors.New("connection reset")
	s := NewPostgresStore(db).ForSession("sess-1")

	err := s.SetItem(context.Background(), CartSlot, "[]")
	require.Error(t, err)
	assert.ErrorIs(t, err, db.execErr)
	assert.Contains(t, err.Error(), "upsert slot cart")
}

func TestPostgresStore_PurgeBefore(t *testing.T) {
	ctx := context.Background()
	db := newFakeQuerier()
	store := NewPostgresStore(db)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	require.NoError(t, store.ForSession("old").SetItem(ctx, CartSlot, "[]"))

	store.now = func() time.Time { return base.Add(48 * time.Hour) }
	require.NoError(t, store.ForSession("new").SetItem(ctx, CartSlot, "[]"))

	n, err := store.PurgeBefore(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := store.ForSession("new").GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgresStore_UpdateItem(t *testing.T) {
	ctx := context.Background()
	db := newFakeQuerier()
	s := NewPostgresStore(db).ForSession("sess-1")

	require.NoError(t, s.UpdateItem(ctx, CartSlot, appendMark("a")))
	require.NoError(t, s.UpdateItem(ctx, CartSlot, appendMark("b")))

	value, ok, err := s.GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a,b", value)
	assert.Equal(t, int64(1), db.rows[rowKey("sess-1", CartSlot)].version)
}

func TestPostgresStore_UpdateItemRetriesOnConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	db := newFakeQuerier()
	store := NewPostgresStore(db)
	s := store.ForSession("sess-1")
	require.NoError(t, s.SetItem(ctx, CartSlot, "a"))

	interfered := false
	db.beforeUpdate = func() {
		if !interfered {
			interfered = true
			require.NoError(t, store.ForSession("sess-1").SetItem(ctx, CartSlot, "a,other"))
		}
	}

	calls := 0
	require.NoError(t, s.UpdateItem(ctx, CartSlot, func(current string, found bool) (string, error) {
		calls++
		return appendMark("mine")(current, found)
	}))

	value, _, err := s.GetItem(ctx, CartSlot)
	require.NoError(t, err)
	assert.Equal(t, "a,other,mine", value)
	assert.Equal(t, 2, calls)
}

func TestPostgresStore_UpdateItemGivesUp(t *testing.T) {
	ctx := context.Background()
	db := newFakeQuerier()
	store := NewPostgresStore(db)
	s := store.ForSession("sess-1")
	require.NoError(t, s.SetItem(ctx, CartSlot, "a"))

	db.beforeUpdate = func() {
		db.rows[rowKey("sess-1", CartSlot)].version++
	}

	err := s.UpdateItem(ctx, CartSlot, appendMark("mine"))
	assert.ErrorIs(t, err, ErrConflict)
}
