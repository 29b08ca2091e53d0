// ABOUTME: Tests for the realtime session lifecycle
// ABOUTME: Covers identity decoding, connect query/header, idempotent connect, and reconnects

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/realtime"
)

type socketServer struct {
	*httptest.Server
	accepted atomic.Int32
	conns    chan *websocket.Conn
}

func newSocketServer(t *testing.T, token string) *socketServer {
	t.Helper()
	s := &socketServer{conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token || r.URL.Query().Get("userId") != testUser.ID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.accepted.Add(1)
		s.conns <- conn
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *socketServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/socket"
}

func testToken(t *testing.T) string {
	t.Helper()
	token, err := NewJWTVerifier([]byte("s")).Generate(testUser, time.Hour)
	require.NoError(t, err)
	return token
}

func TestNewSession_DecodesIdentity(t *testing.T) {
	token := testToken(t)
	sess, err := NewSession(token, "ws://unused", SessionOptions{})
	require.NoError(t, err)
	assert.Equal(t, testUser, sess.User())
	assert.Equal(t, token, sess.Token())
	assert.False(t, sess.Connected())
	assert.NoError(t, sess.Disconnect())
}

func TestNewSession_BadToken(t *testing.T) {
	_, err := NewSession("garbage", "ws://unused", SessionOptions{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSession_ConnectDispatchesToBus(t *testing.T) {
	token := testToken(t)
	srv := newSocketServer(t, token)

	sess, err := NewSession(token, srv.wsURL(), SessionOptions{})
	require.NoError(t, err)

	got := make(chan json.RawMessage, 1)
	sess.Events().On(realtime.EventNewMessage, func(data json.RawMessage) { got <- data })

	require.NoError(t, sess.Connect(context.Background()))
	require.NoError(t, sess.Connect(context.Background()), "second connect is a no-op")
	assert.True(t, sess.Connected())
	assert.Equal(t, int32(1), srv.accepted.Load())

	conn := <-srv.conns
	require.NoError(t, conn.WriteJSON(realtime.Frame{Event: realtime.EventNewMessage, Data: json.RawMessage(`{"_id":"m1"}`)}))

	select {
	case data := <-got:
		assert.JSONEq(t, `{"_id":"m1"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	require.NoError(t, sess.Disconnect())
	assert.False(t, sess.Connected())
	assert.Equal(t, 1, sess.Events().Count(realtime.EventNewMessage), "handlers survive disconnect")
}

func TestSession_KeepAliveReconnects(t *testing.T) {
	token := testToken(t)
	srv := newSocketServer(t, token)

	sess, err := NewSession(token, srv.wsURL(), SessionOptions{ReconnectDelay: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sess.KeepAlive(ctx)
		close(done)
	}()

	first := <-srv.conns
	first.Close()

	select {
	case <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not reconnect")
	}
	assert.GreaterOrEqual(t, srv.accepted.Load(), int32(2))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("KeepAlive did not return")
	}
	assert.False(t, sess.Connected())
}
