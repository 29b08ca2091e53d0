// ABOUTME: Pebble key-value implementation of the Store interface
// ABOUTME: Users and messages are JSON values under ordered, prefixed keys

package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble/v2"

	"github.com/2389/coven-chat/internal/model"
)

// Key layout:
//
//	u/<id>                                  user record
//	e/<email>                               user ID owning email
//	m/<lo>\x00<hi>\x00<createdAt><seq>      message between lo and hi (lo < hi)
//	s/seq                                   last message sequence number
const (
	userPrefix  = "u/"
	emailPrefix = "e/"
	msgPrefix   = "m/"
	seqKey      = "s/seq"
)

// PebbleStore implements the Store interface on a Pebble database directory.
type PebbleStore struct {
	db     *pebble.DB
	logger *slog.Logger

	// mu serialises the read-check-write sequences in CreateUser and
	// SaveMessage; Pebble itself has no transactions.
	mu  sync.Mutex
	seq uint64
}

// NewPebbleStore opens (or creates) a Pebble database in dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}

	s := &PebbleStore{db: db, logger: slog.Default().With("component", "store")}

	raw, closer, err := db.Get([]byte(seqKey))
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("reading sequence: %w", err)
	default:
		if len(raw) == 8 {
			s.seq = binary.BigEndian.Uint64(raw)
		}
		closer.Close()
	}

	return s, nil
}

// Close closes the database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// CreateUser stores a user. Returns ErrDuplicateUser if the ID or email is taken.
func (s *PebbleStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := []string{userPrefix + user.ID}
	if user.Email != "" {
		taken = append(taken, emailPrefix+user.Email)
	}
	for _, key := range taken {
		ok, err := s.exists(key)
		if err != nil {
			return err
		}
		if ok {
			return ErrDuplicateUser
		}
	}

	u := *user
	u.CreatedAt = u.CreatedAt.UTC()
	val, err := json.Marshal(&u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set([]byte(userPrefix+u.ID), val, nil); err != nil {
		return err
	}
	if u.Email != "" {
		if err := b.Set([]byte(emailPrefix+u.Email), []byte(u.ID), nil); err != nil {
			return err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", u.ID)
	return nil
}

// GetUser retrieves a user by ID.
func (s *PebbleStore) GetUser(ctx context.Context, id string) (*User, error) {
	raw, closer, err := s.db.Get([]byte(userPrefix + id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	defer closer.Close()

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	return &u, nil
}

// ListUsers returns every user except exceptID, ordered by name.
func (s *PebbleStore) ListUsers(ctx context.Context, exceptID string) ([]*User, error) {
	users := []*User{}
	err := s.scan(userPrefix, func(_, value []byte) error {
		var u User
		if err := json.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("decoding user: %w", err)
		}
		if u.ID != exceptID {
			users = append(users, &u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].FullName != users[j].FullName {
			return users[i].FullName < users[j].FullName
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// SaveMessage stores a direct message. Both users must exist.
func (s *PebbleStore) SaveMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []string{msg.SenderID, msg.ReceiverID} {
		ok, err := s.exists(userPrefix + id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("inserting message: unknown user %q", id)
		}
	}

	m := *msg
	m.CreatedAt = m.CreatedAt.UTC()
	val, err := json.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	seq := s.seq + 1
	key := conversationPrefix(m.SenderID, m.ReceiverID)
	key = binary.BigEndian.AppendUint64(key, uint64(m.CreatedAt.UnixNano()))
	key = binary.BigEndian.AppendUint64(key, seq)

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(key, val, nil); err != nil {
		return err
	}
	if err := b.Set([]byte(seqKey), binary.BigEndian.AppendUint64(nil, seq), nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	s.seq = seq

	s.logger.Debug("saved message", "id", m.ID, "sender_id", m.SenderID, "receiver_id", m.ReceiverID)
	return nil
}

// Conversation returns the messages exchanged between a and b, oldest first.
func (s *PebbleStore) Conversation(ctx context.Context, a, b string) ([]*model.Message, error) {
	messages := []*model.Message{}
	err := s.scan(string(conversationPrefix(a, b)), func(_, value []byte) error {
		var m model.Message
		if err := json.Unmarshal(value, &m); err != nil {
			return fmt.Errorf("decoding message: %w", err)
		}
		messages = append(messages, &m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *PebbleStore) exists(key string) (bool, error) {
	_, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	closer.Close()
	return true, nil
}

// scan calls fn for every key starting with prefix, in key order. Key and
// value are only valid during the call.
func (s *PebbleStore) scan(prefix string, fn func(key, value []byte) error) error {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixEnd([]byte(prefix)),
	})
	if err != nil {
		return fmt.Errorf("opening iterator: %w", err)
	}
	defer func() { _ = it.Close() }()

	for it.First(); it.Valid(); it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

// conversationPrefix is the same for (a, b) and (b, a).
func conversationPrefix(a, b string) []byte {
	if b < a {
		a, b = b, a
	}
	key := make([]byte, 0, len(msgPrefix)+len(a)+len(b)+2)
	key = append(key, msgPrefix...)
	key = append(key, a...)
	key = append(key, 0)
	key = append(key, b...)
	key = append(key, 0)
	return key
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
