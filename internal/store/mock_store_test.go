// ABOUTME: Unit tests for MockStore to ensure behavior matches SQLiteStore
// ABOUTME: Focuses on copy semantics specific to the in-memory implementation

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_ReturnsCopies(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	user := &User{ID: "u1", FullName: "Original"}
	require.NoError(t, store.CreateUser(ctx, user))
	user.FullName = "Mutated by caller"

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Original", got.FullName)

	got.FullName = "Mutated result"
	again, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Original", again.FullName)
}
