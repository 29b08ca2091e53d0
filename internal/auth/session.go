// ABOUTME: Authenticated session owning the identity and realtime connection
// ABOUTME: Connect/Disconnect/KeepAlive manage the websocket; the event bus survives reconnects

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/2389/coven-chat/internal/model"
	"github.com/2389/coven-chat/internal/realtime"
)

// DefaultReconnectDelay is the pause between reconnect attempts.
const DefaultReconnectDelay = 3 * time.Second

// SessionOptions configures a Session.
type SessionOptions struct {
	HandshakeTimeout time.Duration
	ReconnectDelay   time.Duration
	Logger           *slog.Logger
}

// Session is the logged-in user plus their realtime connection.
type Session struct {
	user      model.User
	token     string
	socketURL string
	bus       *realtime.Bus
	opts      SessionOptions
	logger    *slog.Logger

	mu     sync.Mutex
	socket *realtime.Socket
}

// NewSession decodes the identity from token. The connection is not opened
// until Connect.
func NewSession(token, socketURL string, opts SessionOptions) (*Session, error) {
	user, err := ParseIdentity(token)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	return &Session{
		user:      user,
		token:     token,
		socketURL: socketURL,
		bus:       realtime.NewBus(opts.Logger),
		opts:      opts,
		logger:    opts.Logger.With("component", "session", "user_id", user.ID),
	}, nil
}

// User returns the authenticated user.
func (s *Session) User() model.User { return s.user }

// Token returns the bearer token.
func (s *Session) Token() string { return s.token }

// Events returns the bus that realtime events are dispatched into.
func (s *Session) Events() *realtime.Bus { return s.bus }

// Connected reports whether a live socket exists.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked()
}

func (s *Session) liveLocked() bool {
	if s.socket == nil {
		return false
	}
	select {
	case <-s.socket.Done():
		return false
	default:
		return true
	}
}

// Connect opens the realtime connection. It is a no-op when already connected.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveLocked() {
		return nil
	}

	u, err := url.Parse(s.socketURL)
	if err != nil {
		return fmt.Errorf("parsing socket url: %w", err)
	}
	q := u.Query()
	q.Set("userId", s.user.ID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)

	sock, err := realtime.Dial(ctx, u.String(), s.bus, realtime.DialOptions{
		Header:           header,
		HandshakeTimeout: s.opts.HandshakeTimeout,
		Logger:           s.opts.Logger,
	})
	if err != nil {
		return err
	}
	s.socket = sock
	return nil
}

// Disconnect closes the realtime connection. Registered handlers stay on
// the bus. Safe to call when not connected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	sock := s.socket
	s.socket = nil
	s.mu.Unlock()

	if sock == nil {
		return nil
	}
	return sock.Close()
}

// KeepAlive connects and reconnects after drops until ctx is done, then
// disconnects. It blocks.
func (s *Session) KeepAlive(ctx context.Context) {
	defer func() {
		_ = s.Disconnect()
	}()

	for {
		if err := s.Connect(ctx); err != nil {
			s.logger.Warn("realtime connect failed", "error", err)
		}

		s.mu.Lock()
		sock := s.socket
		s.mu.Unlock()

		if sock != nil {
			select {
			case <-ctx.Done():
				return
			case <-sock.Done():
				if err := sock.Err(); err != nil {
					s.logger.Warn("realtime connection lost", "error", err)
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.ReconnectDelay):
		}
	}
}
