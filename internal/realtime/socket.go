// ABOUTME: Client websocket connection that feeds server push events into a Bus
// ABOUTME: Single read loop preserves delivery order; pings keep the link alive

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ErrClosed is returned when writing to a closed socket.
var ErrClosed = errors.New("socket closed")

// DialOptions configures Dial.
type DialOptions struct {
	Header           http.Header
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

// Socket is a live websocket connection.
type Socket struct {
	conn   *websocket.Conn
	bus    *Bus
	logger *slog.Logger

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	closing   atomic.Bool

	errMu sync.Mutex
	err   error
}

// Dial connects to url and starts dispatching frames into bus.
func Dial(ctx context.Context, url string, bus *Bus, opts DialOptions) (*Socket, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	conn, resp, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing socket: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dialing socket: %w", err)
	}

	s := &Socket{
		conn:   conn,
		bus:    bus,
		logger: logger.With("component", "socket"),
		done:   make(chan struct{}),
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.readLoop()
	go s.pingLoop()

	s.logger.Info("socket connected", "url", url)
	return s, nil
}

// Done is closed when the connection ends for any reason.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// Err returns why the connection ended, or nil after a clean Close.
func (s *Socket) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Emit sends an event to the server.
func (s *Socket) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", event, err)
	}

	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(Frame{Event: event, Data: raw}); err != nil {
		return fmt.Errorf("writing %s: %w", event, err)
	}
	return nil
}

// Close sends a close frame and tears the connection down. Safe to call
// more than once.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		s.writeMu.Unlock()
		err = s.conn.Close()
		close(s.done)
		s.logger.Info("socket closed")
	})
	return err
}

func (s *Socket) readLoop() {
	defer func() {
		_ = s.Close()
	}()

	for {
		var f Frame
		if err := s.conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !s.closed() {
				s.setErr(err)
				s.logger.Warn("socket read failed", "error", err)
			}
			return
		}
		if f.Event == "" {
			s.logger.Debug("dropping frame without event name")
			continue
		}
		s.bus.Dispatch(f)
	}
}

func (s *Socket) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				s.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

func (s *Socket) closed() bool {
	return s.closing.Load()
}

func (s *Socket) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
