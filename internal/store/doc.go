// Package store provides persistent storage for the chat server using SQLite.
//
// # Architecture
//
// Store is the single interface the server depends on. SQLiteStore is the
// production implementation, backed by modernc.org/sqlite (pure Go, no cgo).
// MockStore is an in-memory implementation with the same semantics for
// tests.
//
// # Data Models
//
//   - User: a registered participant, converted to model.Partner for the
//     partner list and to model.User for session identity
//   - model.Message: a direct message between two users
//
// # Schema
//
//	users(id, full_name, email UNIQUE, profile_pic, created_at)
//	messages(id, sender_id, receiver_id, text, image, created_at)
//
// Timestamps are stored as RFC 3339 strings with nanoseconds so that a
// conversation reads back in the order it was written.
//
// # Errors
//
//   - ErrNotFound: GetUser on an unknown ID
//   - ErrDuplicateUser: CreateUser with a taken ID or email
package store
