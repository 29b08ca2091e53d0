// ABOUTME: Interactive chat loop wiring session, store and message list view
// ABOUTME: Parses slash commands and re-renders the open conversation on change

package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/api"
	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/dedupe"
	"github.com/2389/coven-chat/internal/model"
	"github.com/2389/coven-chat/internal/notify"
	"github.com/2389/coven-chat/internal/view"
)

// errQuit ends the loop without an error.
var errQuit = errors.New("quit")

// lockedWriter serialises writes from the input loop and realtime events.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type app struct {
	cfg      *config.Config
	session  *auth.Session
	store    *chat.Store
	notifier notify.Notifier
	list     *view.MessageList
	out      io.Writer
	logger   *slog.Logger
}

func newApp(cfg *config.Config, token string, out io.Writer, logger *slog.Logger) (*app, error) {
	session, err := auth.NewSession(token, cfg.SocketURL(), auth.SessionOptions{
		HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
		ReconnectDelay:   cfg.Realtime.ReconnectDelay,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}

	w := &lockedWriter{w: out}
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}
	client := api.New(cfg.Server.BaseURL,
		api.WithHTTPClient(httpClient),
		api.WithToken(token),
		api.WithLogger(logger),
	)

	notifier := notify.Multi{notify.NewTerminal(w), notify.NewLog(logger)}
	store := chat.New(client, session.Events(), notifier,
		chat.WithLogger(logger),
		chat.WithDedupe(dedupe.New(cfg.Realtime.DedupeTTL, cfg.Realtime.DedupeSize)),
	)

	a := &app{
		cfg:      cfg,
		session:  session,
		store:    store,
		notifier: notifier,
		out:      w,
		logger:   logger,
	}
	a.list = view.NewMessageList(store, session,
		view.WithOnChange(a.render),
		view.WithImageLoader(&view.HTTPImageLoader{Client: httpClient, Token: token}),
		view.WithLogger(logger),
	)
	return a, nil
}

// run keeps the realtime connection alive and processes input lines until
// ctx is done, input ends, or the user quits.
func (a *app) run(ctx context.Context, in io.Reader) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Go(func() { a.session.KeepAlive(ctx) })
	defer a.list.Release()

	if err := a.store.LoadPartners(ctx); err == nil {
		a.printPartners()
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		a.prompt()

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		if err := a.handleLine(ctx, input); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(a.out, "[error] %v\n", err)
		}
	}
}

func (a *app) prompt() {
	if p := a.store.Snapshot().Selected; p != nil {
		fmt.Fprintf(a.out, "[%s]> ", p.FirstName())
		return
	}
	fmt.Fprint(a.out, "> ")
}

// handleLine runs one command or sends the line as a message. Failures of
// store operations are reported through the notifier, so only usage errors
// are returned.
func (a *app) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		_, _ = a.store.SendMessage(ctx, model.SendRequest{Text: line})
		return nil
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/exit", "/q":
		return errQuit
	case "/help":
		printHelp(a.out)
	case "/users":
		if err := a.store.LoadPartners(ctx); err == nil {
			a.printPartners()
		}
	case "/open":
		if rest == "" {
			return errors.New("usage: /open <id|name>")
		}
		p, ok := a.findPartner(ctx, rest)
		if !ok {
			return fmt.Errorf("no user matching %q (try /users)", rest)
		}
		a.list.Activate(ctx, p)
	case "/close":
		a.list.Release()
		a.store.ClearSelection()
	case "/img":
		if rest == "" {
			return errors.New("usage: /img <file|url> [text]")
		}
		src, text, _ := strings.Cut(rest, " ")
		image, err := imageSource(src)
		if err != nil {
			return err
		}
		_, _ = a.store.SendMessage(ctx, model.SendRequest{Text: strings.TrimSpace(text), Image: image})
	case "/html":
		if rest == "" {
			return errors.New("usage: /html <file>")
		}
		if err := writeHTML(rest, a.list.Frame()); err != nil {
			return err
		}
		a.notifier.Success("Wrote " + rest)
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return nil
}

// findPartner matches by ID, then by full or first name, ignoring case.
func (a *app) findPartner(ctx context.Context, query string) (model.Partner, bool) {
	if len(a.store.Snapshot().Partners) == 0 {
		_ = a.store.LoadPartners(ctx)
	}
	partners := a.store.Snapshot().Partners
	for _, p := range partners {
		if p.ID == query {
			return p, true
		}
	}
	for _, p := range partners {
		if strings.EqualFold(p.FullName, query) || strings.EqualFold(p.FirstName(), query) {
			return p, true
		}
	}
	return model.Partner{}, false
}

func (a *app) printPartners() {
	st := a.store.Snapshot()
	var selected string
	if st.Selected != nil {
		selected = st.Selected.ID
	}
	if err := view.RenderPartners(a.out, st.Partners, selected); err != nil {
		a.logger.Debug("render partners failed", "error", err)
	}
}

// render is the message list's change callback.
func (a *app) render(f view.Frame) {
	fmt.Fprintln(a.out)
	if err := view.RenderTerminal(a.out, f); err != nil {
		a.logger.Debug("render failed", "error", err)
	}
	if a.cfg.UI.HTMLOut != "" {
		if err := writeHTML(a.cfg.UI.HTMLOut, f); err != nil {
			a.logger.Warn("writing html snapshot failed", "path", a.cfg.UI.HTMLOut, "error", err)
		}
	}
}

func writeHTML(path string, f view.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := view.RenderHTML(file, f); err != nil {
		file.Close()
		return fmt.Errorf("rendering html: %w", err)
	}
	return file.Close()
}

// imageSource returns src unchanged when it is a URL, otherwise reads the
// file and inlines it as a data URL.
func imageSource(src string) (string, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "data:") {
		return src, nil
	}

	raw, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if len(raw) > view.MaxImageBytes {
		return "", fmt.Errorf("image %s is larger than %d bytes", src, view.MaxImageBytes)
	}
	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", src, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func printHelp(w io.Writer) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  /users              List people you can message (* = unread)")
	fmt.Fprintln(w, "  /open <id|name>     Open a conversation")
	fmt.Fprintln(w, "  /close              Close the current conversation")
	fmt.Fprintln(w, "  /img <file|url> [text]  Send an image with optional text")
	fmt.Fprintln(w, "  /html <file>        Write the conversation as HTML")
	fmt.Fprintln(w, "  /help               Show this help")
	fmt.Fprintln(w, "  /quit               Exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Anything else is sent to the open conversation.")
}
