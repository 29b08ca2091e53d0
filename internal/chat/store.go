// ABOUTME: Conversation store merging REST-fetched state with realtime events
// ABOUTME: Keeps partners ordered by recency, flags unread partners, owns one event handler

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/coven-chat/internal/api"
	"github.com/2389/coven-chat/internal/dedupe"
	"github.com/2389/coven-chat/internal/model"
	"github.com/2389/coven-chat/internal/notify"
	"github.com/2389/coven-chat/internal/realtime"
)

// Store errors
var (
	ErrNoActivePartner = errors.New("no conversation selected")
	ErrEmptyMessage    = errors.New("message has no text or image")
)

// API is the subset of the REST client the store needs.
type API interface {
	ListPartners(ctx context.Context) ([]model.Partner, error)
	GetMessages(ctx context.Context, userID string) ([]model.Message, error)
	SendMessage(ctx context.Context, userID string, req model.SendRequest) (*model.Message, error)
}

// Events registers realtime handlers.
type Events interface {
	On(event string, h realtime.Handler) string
	Remove(id string) bool
}

// State is a snapshot of the store. Snapshots never alias store memory.
type State struct {
	Partners        []model.Partner
	Selected        *model.Partner
	Messages        []model.Message
	PartnersLoading bool
	MessagesLoading bool
	Sending         bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now for last-activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithDedupe sets the window used to drop duplicate message deliveries.
func WithDedupe(c *dedupe.Cache) Option {
	return func(s *Store) { s.seen = c }
}

// Store holds conversation state for one signed-in user.
type Store struct {
	api      API
	events   Events
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
	seen     *dedupe.Cache

	mu         sync.Mutex
	state      State
	historySeq uint64
	observers  map[int]func(State)
	nextObs    int

	subMu sync.Mutex
	subID string
}

// New creates a store. notifier may be nil, in which case failures are only logged.
func New(apiClient API, events Events, notifier notify.Notifier, opts ...Option) *Store {
	s := &Store{
		api:       apiClient,
		events:    events,
		notifier:  notifier,
		logger:    slog.Default(),
		now:       time.Now,
		observers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewLog(s.logger)
	}
	if s.seen == nil {
		s.seen = dedupe.New(dedupe.DefaultTTL, dedupe.DefaultMaxSize)
	}
	s.logger = s.logger.With("component", "chat")
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Observe registers fn to receive the state after every mutation. The
// returned function deregisters it and is safe to call more than once.
func (s *Store) Observe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// LoadPartners replaces the partner list with a fresh fetch. The list is
// cleared when the fetch starts and stays empty if it fails.
func (s *Store) LoadPartners(ctx context.Context) error {
	s.update(func(st *State) {
		st.PartnersLoading = true
		st.Partners = nil
	})
	defer s.update(func(st *State) { st.PartnersLoading = false })

	partners, err := s.api.ListPartners(ctx)
	if err != nil {
		s.fail("load partners", err)
		return err
	}

	annotated := make([]model.Partner, len(partners))
	for i, p := range partners {
		p.HasNewMessage = false
		p.LastMessageTime = nil
		annotated[i] = p
	}

	s.update(func(st *State) {
		st.Partners = annotated
		if st.Selected != nil {
			if i := indexOf(st.Partners, st.Selected.ID); i >= 0 {
				st.Partners[i].HasNewMessage = false
			}
		}
	})
	s.logger.Debug("partners loaded", "count", len(annotated))
	return nil
}

// LoadMessages replaces the history with the conversation with partnerID.
// When several loads overlap only the most recent one is applied, and a
// result for a partner that is no longer selected is dropped. Messages that
// arrived while the load was in flight are kept after the fetched history.
func (s *Store) LoadMessages(ctx context.Context, partnerID string) error {
	var seq uint64
	s.update(func(st *State) {
		s.historySeq++
		seq = s.historySeq
		st.MessagesLoading = true
		st.Messages = nil
	})

	messages, err := s.api.GetMessages(ctx, partnerID)

	if err != nil {
		s.update(func(st *State) {
			if seq == s.historySeq {
				st.MessagesLoading = false
			}
		})
		s.fail("load messages", err)
		return err
	}

	for _, m := range messages {
		s.seen.Seen(m.ID)
	}

	s.update(func(st *State) {
		if seq != s.historySeq {
			s.logger.Debug("dropping superseded history", "partner_id", partnerID)
			return
		}
		st.MessagesLoading = false
		if st.Selected != nil && st.Selected.ID != partnerID {
			s.logger.Debug("dropping history for unselected partner", "partner_id", partnerID)
			return
		}
		merged := append([]model.Message(nil), messages...)
		for _, m := range st.Messages {
			if m.SenderID != partnerID && m.ReceiverID != partnerID {
				continue
			}
			if m.ID == "" || !containsMessage(messages, m.ID) {
				merged = append(merged, m)
			}
		}
		st.Messages = merged
	})
	return nil
}

// SendMessage posts req to the selected partner. On success the returned
// message is appended and the partner moves to the top of the list.
func (s *Store) SendMessage(ctx context.Context, req model.SendRequest) (*model.Message, error) {
	s.mu.Lock()
	var target string
	if s.state.Selected != nil {
		target = s.state.Selected.ID
	}
	s.mu.Unlock()

	if target == "" {
		s.notifier.Error("Select a conversation first")
		return nil, ErrNoActivePartner
	}
	if req.Empty() {
		s.notifier.Error("Message cannot be empty")
		return nil, ErrEmptyMessage
	}

	s.update(func(st *State) { st.Sending = true })
	defer s.update(func(st *State) { st.Sending = false })

	msg, err := s.api.SendMessage(ctx, target, req)
	if err != nil {
		s.fail("send message", err)
		return nil, err
	}

	s.seen.Seen(msg.ID)
	s.update(func(st *State) {
		if st.Selected != nil && st.Selected.ID == target && (msg.ID == "" || !containsMessage(st.Messages, msg.ID)) {
			st.Messages = append(st.Messages, *msg)
		}
		if i := indexOf(st.Partners, target); i >= 0 {
			now := s.now()
			st.Partners[i].LastMessageTime = &now
			st.Partners[i].HasNewMessage = false
		}
		model.SortPartners(st.Partners)
	})
	return msg, nil
}

// SubscribeToMessages registers the store's newMessage handler. Calling it
// again without unsubscribing replaces the previous handler, so at most one
// is ever registered.
func (s *Store) SubscribeToMessages() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.subID != "" {
		s.logger.Warn("replacing existing message subscription")
		s.events.Remove(s.subID)
	}
	s.subID = s.events.On(realtime.EventNewMessage, s.handleNewMessage)
}

// UnsubscribeFromMessages removes the handler. Idempotent.
func (s *Store) UnsubscribeFromMessages() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.subID == "" {
		return
	}
	s.events.Remove(s.subID)
	s.subID = ""
}

// Subscribed reports whether the newMessage handler is registered.
func (s *Store) Subscribed() bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.subID != ""
}

// SelectPartner makes p the active conversation and clears its unread flag.
// Switching to a different partner empties the history; the caller loads
// the new history with LoadMessages.
func (s *Store) SelectPartner(p model.Partner) {
	s.update(func(st *State) {
		if st.Selected == nil || st.Selected.ID != p.ID {
			st.Messages = nil
		}
		sel := model.ClonePartner(p)
		sel.HasNewMessage = false
		if i := indexOf(st.Partners, p.ID); i >= 0 {
			st.Partners[i].HasNewMessage = false
			sel.LastMessageTime = cloneTime(st.Partners[i].LastMessageTime)
		}
		st.Selected = &sel
	})
}

// SelectPartnerByID selects the listed partner with id. Returns false when
// no such partner is loaded.
func (s *Store) SelectPartnerByID(id string) bool {
	s.mu.Lock()
	i := indexOf(s.state.Partners, id)
	var p model.Partner
	if i >= 0 {
		p = s.state.Partners[i]
	}
	s.mu.Unlock()

	if i < 0 {
		return false
	}
	s.SelectPartner(p)
	return true
}

// ClearSelection leaves the active conversation.
func (s *Store) ClearSelection() {
	s.update(func(st *State) {
		st.Selected = nil
		st.Messages = nil
	})
}

func (s *Store) handleNewMessage(data json.RawMessage) {
	var msg model.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("discarding malformed message event", "error", err)
		return
	}
	if s.seen.Seen(msg.ID) {
		s.logger.Debug("discarding duplicate message event", "message_id", msg.ID)
		return
	}

	s.update(func(st *State) {
		isCurrent := st.Selected != nil && st.Selected.ID == msg.SenderID
		if isCurrent {
			st.Messages = append(st.Messages, msg)
		}

		i := indexOf(st.Partners, msg.SenderID)
		if i < 0 {
			s.logger.Debug("message from unlisted sender", "sender_id", msg.SenderID)
		} else {
			now := s.now()
			st.Partners[i].LastMessageTime = &now
			st.Partners[i].HasNewMessage = !isCurrent
		}
		model.SortPartners(st.Partners)
	})
}

// update applies fn under the lock and then notifies observers.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshotLocked()
	observers := make([]func(State), 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

func (s *Store) fail(op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	s.notifier.Error(api.UserMessage(err))
}

func (s *Store) snapshotLocked() State {
	st := State{
		PartnersLoading: s.state.PartnersLoading,
		MessagesLoading: s.state.MessagesLoading,
		Sending:         s.state.Sending,
	}
	if s.state.Partners != nil {
		st.Partners = make([]model.Partner, len(s.state.Partners))
		for i, p := range s.state.Partners {
			st.Partners[i] = model.ClonePartner(p)
		}
	}
	if s.state.Messages != nil {
		st.Messages = append([]model.Message(nil), s.state.Messages...)
	}
	if s.state.Selected != nil {
		sel := model.ClonePartner(*s.state.Selected)
		st.Selected = &sel
	}
	return st
}

func indexOf(partners []model.Partner, id string) int {
	for i, p := range partners {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func containsMessage(messages []model.Message, id string) bool {
	for _, m := range messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
