// ABOUTME: Conversation service is the central layer for direct message persistence
// ABOUTME: Records every message before pushing it to the receiver's live sockets

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-chat/internal/model"
	"github.com/2389/coven-chat/internal/store"
)

// Service errors
var (
	ErrEmptyMessage     = errors.New("message has no text or image")
	ErrUnknownRecipient = errors.New("recipient not found")
	ErrSelfMessage      = errors.New("cannot message yourself")
)

// ConversationStore defines what the service needs from storage
type ConversationStore interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
	ListUsers(ctx context.Context, exceptID string) ([]*store.User, error)
	SaveMessage(ctx context.Context, msg *model.Message) error
	Conversation(ctx context.Context, a, b string) ([]*model.Message, error)
}

// Service ensures every message is persisted before it is delivered.
type Service struct {
	store       ConversationStore
	broadcaster *Broadcaster
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a new conversation Service. broadcaster may be nil, in which
// case messages are only stored.
func New(store ConversationStore, broadcaster *Broadcaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger.With("component", "conversation"),
		now:         time.Now,
	}
}

// Partners lists everyone userID can message.
func (s *Service) Partners(ctx context.Context, userID string) ([]model.Partner, error) {
	users, err := s.store.ListUsers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	partners := make([]model.Partner, len(users))
	for i, u := range users {
		partners[i] = u.Partner()
	}
	return partners, nil
}

// History returns the conversation between userID and otherID, oldest first.
func (s *Service) History(ctx context.Context, userID, otherID string) ([]model.Message, error) {
	msgs, err := s.store.Conversation(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = *m
	}
	return out, nil
}

// Send records a message from senderID to receiverID and pushes it to the
// receiver's sockets.
//
// Record first, then deliver: a message that fails to persist is never
// pushed.
func (s *Service) Send(ctx context.Context, senderID, receiverID string, req model.SendRequest) (*model.Message, error) {
	if req.Empty() {
		return nil, ErrEmptyMessage
	}
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}

	sender, err := s.store.GetUser(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("loading sender: %w", err)
	}
	if _, err := s.store.GetUser(ctx, receiverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownRecipient
		}
		return nil, fmt.Errorf("loading recipient: %w", err)
	}

	msg := &model.Message{
		ID:              uuid.New().String(),
		SenderID:        senderID,
		ReceiverID:      receiverID,
		Text:            req.Text,
		Image:           req.Image,
		CreatedAt:       s.now().UTC(),
		SenderFirstName: sender.Partner().FirstName(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to record message: %w", err)
	}

	s.logger.Debug("message recorded",
		"message_id", msg.ID,
		"sender_id", senderID,
		"receiver_id", receiverID)

	if s.broadcaster != nil {
		s.broadcaster.Publish(receiverID, *msg, "")
	}
	return msg, nil
}
