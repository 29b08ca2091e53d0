// ABOUTME: Tests for the interactive chat loop against an in-process gateway
// ABOUTME: Drives slash commands and checks rendered output and stored messages

package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	fcolor "github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/gateway"
	"github.com/2389/coven-chat/internal/store"
)

var testSecret = []byte("test-secret-that-is-at-least-32-bytes!")

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type env struct {
	server   *httptest.Server
	store    *store.MockStore
	verifier *auth.JWTVerifier
}

func newEnv(t *testing.T) *env {
	t.Helper()

	noColor := fcolor.NoColor
	fcolor.NoColor = true
	t.Cleanup(func() { fcolor.NoColor = noColor })

	s := store.NewMockStore()
	_, err := gateway.Seed(context.Background(), s)
	require.NoError(t, err)

	verifier := auth.NewJWTVerifier(testSecret)
	gw := gateway.NewWithStore(s, verifier, gateway.Options{Logger: discardLogger()})
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	return &env{server: srv, store: s, verifier: verifier}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (e *env) token(t *testing.T, userID string) string {
	t.Helper()
	u, err := e.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	tok, err := e.verifier.Generate(u.Identity(), time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *env) config() *config.Config {
	cfg := config.Default()
	cfg.Server.BaseURL = e.server.URL + "/api"
	return cfg
}

func (e *env) app(t *testing.T, userID string, cfg *config.Config) (*app, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	a, err := newApp(cfg, e.token(t, userID), out, discardLogger())
	require.NoError(t, err)
	t.Cleanup(a.list.Release)
	return a, out
}

func TestHandleLine_OpenAndSend(t *testing.T) {
	e := newEnv(t)
	a, out := e.app(t, "alice", e.config())
	ctx := context.Background()

	require.NoError(t, a.handleLine(ctx, "/users"))
	assert.Contains(t, out.String(), "Bob Marley")
	assert.Contains(t, out.String(), "Carol Danvers")

	require.NoError(t, a.handleLine(ctx, "/open bob"))
	require.True(t, a.list.Active())
	require.NotNil(t, a.store.Snapshot().Selected)
	assert.Equal(t, "bob", a.store.Snapshot().Selected.ID)

	require.NoError(t, a.handleLine(ctx, "hello **bob**"))
	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "You: hello **bob**") },
		2*time.Second, 10*time.Millisecond)

	msgs, err := e.store.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello **bob**", msgs[0].Text)
}

func TestHandleLine_OpenByFirstName(t *testing.T) {
	e := newEnv(t)
	a, _ := e.app(t, "alice", e.config())

	require.NoError(t, a.handleLine(context.Background(), "/open CAROL"))
	require.NotNil(t, a.store.Snapshot().Selected)
	assert.Equal(t, "carol", a.store.Snapshot().Selected.ID)
}

func TestHandleLine_Errors(t *testing.T) {
	e := newEnv(t)
	a, _ := e.app(t, "alice", e.config())
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"/open", "usage: /open"},
		{"/open zed", `no user matching "zed"`},
		{"/img", "usage: /img"},
		{"/img /does/not/exist.png", "reading image"},
		{"/html", "usage: /html"},
		{"/bogus", "unknown command /bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := a.handleLine(ctx, tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.ErrorIs(t, a.handleLine(ctx, "/quit"), errQuit)
	assert.NoError(t, a.handleLine(ctx, "   "))
}

func TestHandleLine_SendWithoutConversationNotifies(t *testing.T) {
	e := newEnv(t)
	a, out := e.app(t, "alice", e.config())

	require.NoError(t, a.handleLine(context.Background(), "anyone there?"))
	assert.Contains(t, out.String(), "Select a conversation first")
}

func TestHandleLine_ImageAndHTML(t *testing.T) {
	e := newEnv(t)
	a, out := e.app(t, "alice", e.config())
	ctx := context.Background()
	dir := t.TempDir()

	imgPath := filepath.Join(dir, "dot.png")
	require.NoError(t, os.WriteFile(imgPath, pngBytes(t), 0644))

	require.NoError(t, a.handleLine(ctx, "/open bob"))
	require.NoError(t, a.handleLine(ctx, "/img "+imgPath+" look at this"))

	msgs, err := e.store.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Image, "data:image/png;base64,"))
	assert.Equal(t, "look at this", msgs[0].Text)

	htmlPath := filepath.Join(dir, "chat.html")
	require.NoError(t, a.handleLine(ctx, "/html "+htmlPath))
	assert.Contains(t, out.String(), "✔ Wrote "+htmlPath)
	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "look at this")
	assert.Contains(t, string(page), `src="data:image/png;base64,`)
}

func TestRender_WritesHTMLSnapshot(t *testing.T) {
	e := newEnv(t)
	cfg := e.config()
	cfg.UI.HTMLOut = filepath.Join(t.TempDir(), "live.html")
	a, _ := e.app(t, "alice", cfg)
	ctx := context.Background()

	require.NoError(t, a.handleLine(ctx, "/open bob"))
	require.NoError(t, a.handleLine(ctx, "snapshot me"))

	assert.Eventually(t, func() bool {
		page, err := os.ReadFile(cfg.UI.HTMLOut)
		return err == nil && strings.Contains(string(page), "snapshot me")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRun_ReceivesRealtimeMessages(t *testing.T) {
	e := newEnv(t)
	a, out := e.app(t, "alice", e.config())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- a.run(ctx, pr) }()

	_, err := io.WriteString(pw, "/open bob\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return a.list.Active() && a.session.Connected() },
		2*time.Second, 10*time.Millisecond)

	bob, bobOut := e.app(t, "bob", e.config())
	require.NoError(t, bob.handleLine(context.Background(), "/open alice"))
	require.NoError(t, bob.handleLine(context.Background(), "hi from bob"))
	assert.Contains(t, bobOut.String(), "You: hi from bob")

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "Bob: hi from bob") },
		2*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(pw, "/quit\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after /quit")
	}
	assert.False(t, a.list.Active())
}

func TestImageSource(t *testing.T) {
	src, err := imageSource("https://example.com/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cat.png", src)

	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("just text"), 0644))
	_, err = imageSource(txt)
	assert.ErrorContains(t, err, "is not an image")
}

func TestLockedWriter(t *testing.T) {
	var buf syncBuffer
	w := &lockedWriter{w: &buf}

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() { _, _ = w.Write([]byte("x")) })
	}
	wg.Wait()
	assert.Equal(t, strings.Repeat("x", 10), buf.String())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

