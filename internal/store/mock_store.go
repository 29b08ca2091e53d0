// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/2389/coven-chat/internal/model"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	users    map[string]*User  // keyed by user ID
	emails   map[string]string // email -> user ID
	messages []*model.Message  // insertion order
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:  make(map[string]*User),
		emails: make(map[string]string),
	}
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return ErrDuplicateUser
	}
	if user.Email != "" {
		if _, ok := m.emails[user.Email]; ok {
			return ErrDuplicateUser
		}
		m.emails[user.Email] = user.ID
	}

	// Make a copy to avoid external modification
	u := *user
	m.users[u.ID] = &u
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// ListUsers returns every user except exceptID, ordered by name.
func (m *MockStore) ListUsers(ctx context.Context, exceptID string) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := []*User{}
	for id, u := range m.users {
		if id == exceptID {
			continue
		}
		c := *u
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].FullName != users[j].FullName {
			return users[i].FullName < users[j].FullName
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// SaveMessage stores a message. Both users must exist.
func (m *MockStore) SaveMessage(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[msg.SenderID]; !ok {
		return fmt.Errorf("inserting message: unknown sender %q", msg.SenderID)
	}
	if _, ok := m.users[msg.ReceiverID]; !ok {
		return fmt.Errorf("inserting message: unknown receiver %q", msg.ReceiverID)
	}

	c := *msg
	m.messages = append(m.messages, &c)
	return nil
}

// Conversation returns the messages between a and b, oldest first.
func (m *MockStore) Conversation(ctx context.Context, a, b string) ([]*model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*model.Message{}
	for _, msg := range m.messages {
		if (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a) {
			c := *msg
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op.
func (m *MockStore) Close() error { return nil }
