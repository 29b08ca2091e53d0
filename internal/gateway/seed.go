// ABOUTME: Demo users for a fresh development database
// ABOUTME: Seeding is idempotent; existing users are left untouched

package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2389/coven-chat/internal/store"
)

// DemoUsers are created by Seed.
var DemoUsers = []store.User{
	{ID: "alice", FullName: "Alice Liddell", Email: "alice@example.com"},
	{ID: "bob", FullName: "Bob Marley", Email: "bob@example.com"},
	{ID: "carol", FullName: "Carol Danvers", Email: "carol@example.com"},
}

// Seed creates DemoUsers in s, skipping any that already exist. It returns
// the number of users created.
func Seed(ctx context.Context, s store.Store) (int, error) {
	created := 0
	for _, u := range DemoUsers {
		u.CreatedAt = time.Now().UTC()
		err := s.CreateUser(ctx, &u)
		if errors.Is(err, store.ErrDuplicateUser) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seeding %s: %w", u.ID, err)
		}
		created++
	}
	return created, nil
}
