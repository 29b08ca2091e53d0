// ABOUTME: Deferred-load image attached to a chat message
// ABOUTME: Tracks loading state and scrolls the list once the image settles

package view

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"strings"
	"sync"
)

// MaxImageBytes caps how much of a remote image is read while decoding.
const MaxImageBytes = 10 << 20

// ImageLoader fetches an image and reports its dimensions and format.
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Config, string, error)
}

// ImageLoaderFunc adapts a function to ImageLoader.
type ImageLoaderFunc func(ctx context.Context, src string) (image.Config, string, error)

func (f ImageLoaderFunc) Load(ctx context.Context, src string) (image.Config, string, error) {
	return f(ctx, src)
}

// Image is a message attachment that loads in the background.
type Image struct {
	Src string
	Alt string

	scroll *ScrollRef
	loader ImageLoader

	mu      sync.Mutex
	loading bool
	config  image.Config
	format  string
	err     error
	once    sync.Once
}

// NewImage creates an image in the loading state. scroll may be nil.
func NewImage(src, alt string, scroll *ScrollRef, loader ImageLoader) *Image {
	if loader == nil {
		loader = &HTTPImageLoader{}
	}
	return &Image{
		Src:     src,
		Alt:     alt,
		scroll:  scroll,
		loader:  loader,
		loading: true,
	}
}

// Load fetches and decodes the image header. Only the first call does any
// work; later calls return the first result. Whether or not the load
// succeeds, Loading becomes false and the scroll ref is called.
func (i *Image) Load(ctx context.Context) error {
	i.once.Do(func() {
		cfg, format, err := i.loader.Load(ctx, i.Src)

		i.mu.Lock()
		i.loading = false
		i.config = cfg
		i.format = format
		i.err = err
		i.mu.Unlock()

		i.scroll.ScrollIntoView()
	})
	return i.Err()
}

// Loading reports whether the placeholder should still be shown.
func (i *Image) Loading() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loading
}

// Err returns the load error, if any.
func (i *Image) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

// Size returns the decoded dimensions, or zeros before a successful load.
func (i *Image) Size() (width, height int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.config.Width, i.config.Height
}

// Format returns the decoded format name such as "png".
func (i *Image) Format() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.format
}

// HTTPImageLoader loads images over HTTP. Inline data URLs, which is how
// images are sent, are decoded without a request.
type HTTPImageLoader struct {
	Client *http.Client
	Token  string
}

// Load implements ImageLoader.
func (l *HTTPImageLoader) Load(ctx context.Context, src string) (image.Config, string, error) {
	if strings.HasPrefix(src, "data:") {
		raw, err := decodeDataURL(src)
		if err != nil {
			return image.Config{}, "", err
		}
		return decodeConfig(bytes.NewReader(raw))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("building image request: %w", err)
	}
	if l.Token != "" {
		req.Header.Set("Authorization", "Bearer "+l.Token)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return image.Config{}, "", fmt.Errorf("fetching image: status %d", resp.StatusCode)
	}
	return decodeConfig(io.LimitReader(resp.Body, MaxImageBytes))
}

func decodeConfig(r io.Reader) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("decoding image: %w", err)
	}
	return cfg, format, nil
}

var errBadDataURL = errors.New("invalid data url")

// decodeDataURL returns the payload of a base64 data URL.
func decodeDataURL(dataURL string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !ok {
		return nil, errBadDataURL
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: unsupported encoding", errBadDataURL)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}
