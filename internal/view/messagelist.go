// ABOUTME: Message list view bound to one partner at a time
// ABOUTME: Activate/release scope the store subscription; store changes drive re-render and auto-scroll

package view

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/model"
)

// Store is the part of the conversation store the list drives.
type Store interface {
	Snapshot() chat.State
	Observe(fn func(chat.State)) (cancel func())
	SelectPartner(p model.Partner)
	LoadMessages(ctx context.Context, partnerID string) error
	SubscribeToMessages()
	UnsubscribeFromMessages()
}

// Identity supplies the signed-in user.
type Identity interface {
	User() model.User
}

// Option configures a MessageList.
type Option func(*MessageList)

// WithScrollTarget sets the function that brings the newest message into view.
func WithScrollTarget(fn func()) Option {
	return func(v *MessageList) { v.scrollTarget = fn }
}

// WithOnChange sets a callback invoked with a fresh Frame after every store change.
func WithOnChange(fn func(Frame)) Option {
	return func(v *MessageList) { v.onChange = fn }
}

// WithImageLoader sets the loader used for message attachments.
func WithImageLoader(l ImageLoader) Option {
	return func(v *MessageList) { v.loader = l }
}

// WithLocation sets the zone bubble times are shown in.
func WithLocation(loc *time.Location) Option {
	return func(v *MessageList) { v.loc = loc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *MessageList) { v.logger = logger }
}

// MessageList shows the conversation with the active partner.
type MessageList struct {
	store        Store
	me           Identity
	scrollTarget func()
	onChange     func(Frame)
	loader       ImageLoader
	loc          *time.Location
	logger       *slog.Logger

	mu        sync.Mutex
	cycle     uint64
	release   func()
	scroll    *ScrollRef
	ctx       context.Context
	images    map[string]*Image
	lastCount int
	lastID    string
}

// NewMessageList creates a list over store for the user identified by me.
func NewMessageList(store Store, me Identity, opts ...Option) *MessageList {
	v := &MessageList{
		store:  store,
		me:     me,
		loc:    time.Local,
		logger: slog.Default(),
		images: make(map[string]*Image),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("component", "view")
	return v
}

// Activate shows the conversation with p. It releases any previous
// activation, selects p, subscribes to new messages and loads the history.
// The returned release func may be called any number of times; only the
// first call has an effect. If loading panics the activation is released
// before the panic continues.
func (v *MessageList) Activate(ctx context.Context, p model.Partner) (release func()) {
	v.Release()

	scroll := NewScrollRef(v.scrollTarget)

	v.mu.Lock()
	v.cycle++
	cycle := v.cycle
	v.scroll = scroll
	v.ctx = ctx
	v.images = make(map[string]*Image)
	v.lastCount = 0
	v.lastID = ""
	v.mu.Unlock()

	v.store.SelectPartner(p)
	v.store.SubscribeToMessages()
	stopObserving := v.store.Observe(v.onState)

	var once sync.Once
	release = func() {
		once.Do(func() {
			stopObserving()
			v.store.UnsubscribeFromMessages()
			scroll.Detach()

			v.mu.Lock()
			if v.cycle == cycle {
				v.release = nil
			}
			v.mu.Unlock()
			v.logger.Debug("message list released", "partner_id", p.ID)
		})
	}

	v.mu.Lock()
	v.release = release
	v.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			release()
			panic(r)
		}
	}()

	if err := v.store.LoadMessages(ctx, p.ID); err != nil {
		v.logger.Debug("history unavailable", "partner_id", p.ID, "error", err)
	}
	return release
}

// Release ends the current activation, if any.
func (v *MessageList) Release() {
	v.mu.Lock()
	release := v.release
	v.mu.Unlock()

	if release != nil {
		release()
	}
}

// Active reports whether the list is bound to a partner.
func (v *MessageList) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.release != nil
}

// Frame builds the current render model.
func (v *MessageList) Frame() Frame {
	return v.frame(v.store.Snapshot())
}

func (v *MessageList) frame(st chat.State) Frame {
	return BuildFrame(st, v.me.User(), v.loc, v.imageLoading)
}

func (v *MessageList) imageLoading(key string) bool {
	v.mu.Lock()
	img := v.images[key]
	v.mu.Unlock()
	return img != nil && img.Loading()
}

// onState runs after every store mutation.
func (v *MessageList) onState(st chat.State) {
	v.mu.Lock()
	scroll := v.scroll
	ctx := v.ctx
	var pending []*Image
	for i, m := range st.Messages {
		if m.Image == "" {
			continue
		}
		key := imageKey(i, m)
		if _, ok := v.images[key]; ok {
			continue
		}
		img := NewImage(m.Image, "Attachment", scroll, v.loader)
		v.images[key] = img
		pending = append(pending, img)
	}

	var lastID string
	if n := len(st.Messages); n > 0 {
		lastID = st.Messages[n-1].ID
	}
	changed := len(st.Messages) != v.lastCount || lastID != v.lastID
	v.lastCount = len(st.Messages)
	v.lastID = lastID
	v.mu.Unlock()

	for _, img := range pending {
		go func(img *Image) {
			if err := img.Load(ctx); err != nil {
				v.logger.Debug("image failed to load", "error", err)
			}
		}(img)
	}

	if v.onChange != nil {
		v.onChange(v.frame(st))
	}
	if changed && len(st.Messages) > 0 {
		scroll.ScrollIntoView()
	}
}
