// ABOUTME: In-memory fan-out of delivered messages to a user's live sockets
// ABOUTME: Publishes persisted messages to every subscriber registered for the receiving user

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/coven-chat/internal/model"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Broadcaster provides in-memory pub/sub for persisted messages.
// Each open socket subscribes under its user ID; a user signed in from two
// places has two subscriptions.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan model.Message // userID -> subID -> ch
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan model.Message),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for messages addressed to userID.
// Returns a channel that receives messages and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx is
// cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, userID string) (<-chan model.Message, string) {
	subID := uuid.New().String()
	ch := make(chan model.Message, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[userID]; !ok {
		b.subscribers[userID] = make(map[string]chan model.Message)
	}
	b.subscribers[userID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "user_id", userID, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(userID, subID)
	}()

	return ch, subID
}

// Publish sends msg to all subscribers of userID.
// If excludeSubID is non-empty, that subscriber is skipped.
// Non-blocking: messages are dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(userID string, msg model.Message, excludeSubID string) {
	b.mu.RLock()
	subs, ok := b.subscribers[userID]
	if !ok || len(subs) == 0 {
		b.mu.RUnlock()
		return
	}

	targets := make([]chan model.Message, 0, len(subs))
	for id, ch := range subs {
		if excludeSubID != "" && id == excludeSubID {
			continue
		}
		targets = append(targets, ch)
	}

	// Sends happen under the read lock so Unsubscribe cannot close a
	// channel mid-send; they never block.
	for _, ch := range targets {
		select {
		case ch <- msg:
		default:
			b.logger.Debug("dropped message for slow subscriber", "user_id", userID, "message_id", msg.ID)
		}
	}
	b.mu.RUnlock()
}

// Subscribers returns how many subscriptions userID has.
func (b *Broadcaster) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[userID])
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(userID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[userID]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, userID)
	}

	b.logger.Debug("subscriber removed", "user_id", userID, "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for userID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, userID)
	}

	b.logger.Debug("broadcaster closed")
}
