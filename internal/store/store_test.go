package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/model"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// setupPebbleStore creates a temporary Pebble store for testing.
func setupPebbleStore(t *testing.T) *PebbleStore {
	t.Helper()

	store, err := NewPebbleStore(filepath.Join(t.TempDir(), "pebble"))
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// implementations runs fn against every Store implementation.
func implementations(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, setupTestStore(t)) })
	t.Run("pebble", func(t *testing.T) { fn(t, setupPebbleStore(t)) })
	t.Run("mock", func(t *testing.T) { fn(t, NewMockStore()) })
}

var base = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func seedUsers(t *testing.T, s Store, users ...*User) {
	t.Helper()
	for _, u := range users {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = base
		}
		require.NoError(t, s.CreateUser(context.Background(), u))
	}
}

func TestStore_CreateAndGetUser(t *testing.T) {
	implementations(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUsers(t, s, &User{ID: "u1", FullName: "Ada Lovelace", Email: "ada@example.com", ProfilePic: "https://x/ada.png"})

		got, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", got.FullName)
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Equal(t, "https://x/ada.png", got.ProfilePic)
		assert.True(t, got.CreatedAt.Equal(base))

		p := got.Partner()
		assert.Equal(t, "u1", p.ID)
		assert.False(t, p.HasNewMessage)
		assert.Equal(t, model.User{ID: "u1", FullName: "Ada Lovelace", ProfilePic: "https://x/ada.png"}, got.Identity())
	})
}

func TestStore_CreateUser_Duplicate(t *testing.T) {
	implementations(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUsers(t, s, &User{ID: "u1", FullName: "A", Email: "a@example.com"})

		err := s.CreateUser(ctx, &User{ID: "u1", FullName: "Again", CreatedAt: base})
		assert.ErrorIs(t, err, ErrDuplicateUser)

		err = s.CreateUser(ctx, &User{ID: "u2", FullName: "Same mail", Email: "a@example.com", CreatedAt: base})
		assert.ErrorIs(t, err, ErrDuplicateUser)

		// Users without email do not collide
		seedUsers(t, s, &User{ID: "u3", FullName: "C"}, &User{ID: "u4", FullName: "D"})
	})
}

func TestStore_GetUser_NotFound(t *testing.T) {
	implementations(t, func(t *testing.T, s Store) {
		_, err := s.GetUser(context.Background(), "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_ListUsers_ExcludesCaller(t *testing.T) {
	implementations(t, func(t *testing.T, s Store) {
		seedUsers(t, s,
			&User{ID: "u1", FullName: "Carol"},
			&User{ID: "u2", FullName: "Alice"},
			&User{ID: "u3", FullName: "Bob"},
		)

		users, err := s.ListUsers(context.Background(), "u2")
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "Bob", users[0].FullName)
		assert.Equal(t, "Carol", users[1].FullName)

		none, err := s.ListUsers(context.Background(), "u1")
		require.NoError(t, err)
		assert.Len(t, none, 2)
	})
}

func TestStore_Conversation(t *testing.T) {
	implementations(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUsers(t, s, &User{ID: "a", FullName: "A"}, &User{ID: "b", FullName: "B"}, &User{ID: "c", FullName: "C"})

		msgs := []*model.Message{
			{ID: "m1", SenderID: "a", ReceiverID: "b", Text: "hi", CreatedAt: base},
			{ID: "m2", SenderID: "b", ReceiverID: "a", Text: "hey", CreatedAt: base.Add(time.Millisecond)},
			{ID: "m3", SenderID: "a", ReceiverID: "c", Text: "other", CreatedAt: base.Add(2 * time.Millisecond)},
			{ID: "m4", SenderID: "a", ReceiverID: "b", Image: "data:image/png;base64,AAAA", CreatedAt: base.Add(3 * time.Millisecond)},
		}
		for _, m := range msgs {
			require.NoError(t, s.SaveMessage(ctx, m))
		}

		got, err := s.Conversation(ctx, "b", "a")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "m1", got[0].ID)
		assert.Equal(t, "m2", got[1].ID)
		assert.Equal(t, "m4", got[2].ID)
		assert.Equal(t, "data:image/png;base64,AAAA", got[2].Image)
		assert.True(t, got[1].CreatedAt.Equal(base.Add(time.Millisecond)))

		empty, err := s.Conversation(ctx, "b", "c")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})
}

func TestStore_SaveMessage_UnknownUser(t *testing.T) {
	implementations(t, func(t *testing.T, s Store) {
		seedUsers(t, s, &User{ID: "a", FullName: "A"})

		err := s.SaveMessage(context.Background(), &model.Message{ID: "m1", SenderID: "a", ReceiverID: "ghost", CreatedAt: base})
		assert.Error(t, err)
	})
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("sqlite", filepath.Join(dir, "chat.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open("pebble", filepath.Join(dir, "pebble"))
	require.NoError(t, err)
	assert.IsType(t, &PebbleStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open("postgres", "")
	assert.Error(t, err)
}
