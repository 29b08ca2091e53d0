package view

import (
	"context"
	"encoding/json"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/model"
	"github.com/2389/coven-chat/internal/notify"
	"github.com/2389/coven-chat/internal/realtime"
)

type staticIdentity model.User

func (s staticIdentity) User() model.User { return model.User(s) }

// recordingStore counts lifecycle calls.
type recordingStore struct {
	mu         sync.Mutex
	subscribed int
	subscribes int
	observers  int
	selected   []string
	loadPanics bool
	loads      []string
}

func (r *recordingStore) Snapshot() chat.State { return chat.State{} }

func (r *recordingStore) Observe(fn func(chat.State)) func() {
	r.mu.Lock()
	r.observers++
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.observers--
		r.mu.Unlock()
	}
}

func (r *recordingStore) SelectPartner(p model.Partner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = append(r.selected, p.ID)
}

func (r *recordingStore) LoadMessages(ctx context.Context, id string) error {
	r.mu.Lock()
	r.loads = append(r.loads, id)
	panics := r.loadPanics
	r.mu.Unlock()
	if panics {
		panic("history exploded")
	}
	return nil
}

func (r *recordingStore) SubscribeToMessages() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed = 1
	r.subscribes++
}

func (r *recordingStore) UnsubscribeFromMessages() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed = 0
}

func TestActivate_ReleaseIsIdempotent(t *testing.T) {
	store := &recordingStore{}
	v := NewMessageList(store, staticIdentity(alice))

	release := v.Activate(context.Background(), bob)
	assert.True(t, v.Active())
	assert.Equal(t, 1, store.subscribed)
	assert.Equal(t, 1, store.observers)
	assert.Equal(t, []string{bob.ID}, store.selected)
	assert.Equal(t, []string{bob.ID}, store.loads)

	release()
	release()
	assert.False(t, v.Active())
	assert.Equal(t, 0, store.subscribed)
	assert.Equal(t, 0, store.observers)
}

func TestActivate_ReleasesPreviousCycle(t *testing.T) {
	store := &recordingStore{}
	v := NewMessageList(store, staticIdentity(alice))

	first := v.Activate(context.Background(), bob)
	second := v.Activate(context.Background(), model.Partner{ID: "u-carol", FullName: "Carol"})

	assert.Equal(t, 1, store.observers, "first observer removed")
	assert.Equal(t, 2, store.subscribes)

	first()
	assert.True(t, v.Active(), "stale release leaves the new cycle alone")
	assert.Equal(t, 1, store.observers)

	second()
	assert.False(t, v.Active())
	assert.Equal(t, 0, store.observers)
}

func TestActivate_PanicStillReleases(t *testing.T) {
	store := &recordingStore{loadPanics: true}
	v := NewMessageList(store, staticIdentity(alice))

	assert.PanicsWithValue(t, "history exploded", func() {
		v.Activate(context.Background(), bob)
	})
	assert.Equal(t, 0, store.subscribed)
	assert.Equal(t, 0, store.observers)
	assert.False(t, v.Active())
}

// historyAPI serves fixed history and never fails.
type historyAPI struct {
	history map[string][]model.Message
}

func (h historyAPI) ListPartners(ctx context.Context) ([]model.Partner, error) {
	return []model.Partner{bob, {ID: "u-carol", FullName: "Carol"}}, nil
}

func (h historyAPI) GetMessages(ctx context.Context, id string) ([]model.Message, error) {
	return h.history[id], nil
}

func (h historyAPI) SendMessage(ctx context.Context, id string, req model.SendRequest) (*model.Message, error) {
	return &model.Message{ID: "sent", SenderID: alice.ID, ReceiverID: id, Text: req.Text, CreatedAt: at}, nil
}

func TestMessageList_WithStore(t *testing.T) {
	bus := realtime.NewBus(nil)
	api := historyAPI{history: map[string][]model.Message{
		bob.ID: {{ID: "m1", SenderID: bob.ID, ReceiverID: alice.ID, Text: "hello", CreatedAt: at}},
	}}
	store := chat.New(api, bus, &notify.Recorder{})
	require.NoError(t, store.LoadPartners(context.Background()))

	var scrolls atomic.Int32
	var frames []Frame
	var framesMu sync.Mutex
	v := NewMessageList(store, staticIdentity(alice),
		WithLocation(time.UTC),
		WithScrollTarget(func() { scrolls.Add(1) }),
		WithOnChange(func(f Frame) {
			framesMu.Lock()
			frames = append(frames, f)
			framesMu.Unlock()
		}),
	)

	release := v.Activate(context.Background(), bob)
	defer release()

	f := v.Frame()
	require.Len(t, f.Bubbles, 1)
	assert.Equal(t, "hello", f.Bubbles[0].Text)
	assert.EqualValues(t, 1, scrolls.Load(), "scrolled when history arrived")
	assert.Equal(t, 1, bus.Count(realtime.EventNewMessage))

	framesMu.Lock()
	require.NotEmpty(t, frames)
	sawLoading := false
	for _, fr := range frames {
		if fr.Loading {
			sawLoading = true
		}
	}
	framesMu.Unlock()
	assert.True(t, sawLoading)

	data, err := json.Marshal(model.Message{ID: "m2", SenderID: bob.ID, ReceiverID: alice.ID, Text: "again", CreatedAt: at})
	require.NoError(t, err)
	bus.Dispatch(realtime.Frame{Event: realtime.EventNewMessage, Data: data})

	assert.Len(t, v.Frame().Bubbles, 2)
	assert.EqualValues(t, 2, scrolls.Load())

	release()
	assert.Zero(t, bus.Count(realtime.EventNewMessage))

	bus.Dispatch(realtime.Frame{Event: realtime.EventNewMessage, Data: data})
	assert.EqualValues(t, 2, scrolls.Load(), "no scroll after release")
}

func TestMessageList_ImagesLoadInBackground(t *testing.T) {
	bus := realtime.NewBus(nil)
	api := historyAPI{history: map[string][]model.Message{
		bob.ID: {{ID: "m1", SenderID: bob.ID, Image: "https://cdn.example/a.png", CreatedAt: at}},
	}}
	store := chat.New(api, bus, &notify.Recorder{})

	gate := make(chan struct{})
	loader := ImageLoaderFunc(func(ctx context.Context, src string) (image.Config, string, error) {
		<-gate
		return image.Config{Width: 1, Height: 1}, "png", nil
	})

	var scrolls atomic.Int32
	v := NewMessageList(store, staticIdentity(alice),
		WithImageLoader(loader),
		WithScrollTarget(func() { scrolls.Add(1) }),
	)
	release := v.Activate(context.Background(), bob)
	defer release()

	require.Len(t, v.Frame().Bubbles, 1)
	assert.True(t, v.Frame().Bubbles[0].ImageLoading)

	close(gate)
	require.Eventually(t, func() bool {
		return !v.Frame().Bubbles[0].ImageLoading
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return scrolls.Load() == 2 }, time.Second, 5*time.Millisecond,
		"history arrival and image load each scroll once")
}

func TestMessageList_ImagesWithoutIDsTrackedSeparately(t *testing.T) {
	bus := realtime.NewBus(nil)
	api := historyAPI{history: map[string][]model.Message{
		bob.ID: {
			{SenderID: bob.ID, Image: "https://cdn.example/fast.png", CreatedAt: at},
			{SenderID: bob.ID, Image: "https://cdn.example/slow.png", CreatedAt: at},
		},
	}}
	store := chat.New(api, bus, &notify.Recorder{})

	slow := make(chan struct{})
	defer close(slow)
	loader := ImageLoaderFunc(func(ctx context.Context, src string) (image.Config, string, error) {
		if src == "https://cdn.example/slow.png" {
			<-slow
		}
		return image.Config{Width: 1, Height: 1}, "png", nil
	})

	v := NewMessageList(store, staticIdentity(alice), WithImageLoader(loader))
	release := v.Activate(context.Background(), bob)
	defer release()

	require.Len(t, v.Frame().Bubbles, 2)
	require.Eventually(t, func() bool {
		return !v.Frame().Bubbles[0].ImageLoading
	}, time.Second, 5*time.Millisecond)
	assert.True(t, v.Frame().Bubbles[1].ImageLoading, "second attachment has its own loader")
}
