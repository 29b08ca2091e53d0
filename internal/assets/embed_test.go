package assets

import (
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMimeFromExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".css", "text/css; charset=utf-8"},
		{".png", "image/png"},
		{".svg", "image/svg+xml"},
		{".webp", "image/webp"},
		{".qqqqqq", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := mimeFromExt(tt.ext); got != tt.want {
			t.Errorf("mimeFromExt(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestChatCSS(t *testing.T) {
	css := ChatCSS()
	for _, class := range []string{".chat-bubble", ".message-skeleton", ".image-loader"} {
		if !strings.Contains(css, class) {
			t.Errorf("ChatCSS() missing %s", class)
		}
	}
}

func TestFileServer(t *testing.T) {
	srv := FileServer()

	req := httptest.NewRequest(http.MethodGet, "/chat.css", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/css; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc == "" {
		t.Error("Cache-Control not set")
	}

	req = httptest.NewRequest(http.MethodGet, "/missing.js", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", rec.Code)
	}
}

func TestAvatarHandler_ServesPNG(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/avatar.png", nil)
	rec := httptest.NewRecorder()
	AvatarHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cfg, err := png.DecodeConfig(rec.Body)
	if err != nil {
		t.Fatalf("decoding avatar: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 64 {
		t.Errorf("avatar size = %dx%d, want 64x64", cfg.Width, cfg.Height)
	}
}
