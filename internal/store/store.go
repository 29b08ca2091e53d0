// ABOUTME: Store interface and data types for coven-chat persistence
// ABOUTME: Defines User records and the Store interface for users and direct messages

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2389/coven-chat/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when trying to create a user whose ID or email is taken
var ErrDuplicateUser = errors.New("user already exists")

// User is a registered chat user
type User struct {
	ID         string
	FullName   string
	Email      string
	ProfilePic string
	CreatedAt  time.Time
}

// Partner converts the record to its wire form.
func (u *User) Partner() model.Partner {
	return model.Partner{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
	}
}

// Identity converts the record to a session identity.
func (u *User) Identity() model.User {
	return model.User{ID: u.ID, FullName: u.FullName, ProfilePic: u.ProfilePic}
}

// Store defines the persistence operations for the chat server
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context, exceptID string) ([]*User, error)

	// Messages
	SaveMessage(ctx context.Context, msg *model.Message) error
	Conversation(ctx context.Context, a, b string) ([]*model.Message, error)

	Close() error
}

// Open opens the named backend ("sqlite" or "pebble") at path. For pebble
// the path is a directory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "sqlite":
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "pebble":
		s, err := NewPebbleStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
