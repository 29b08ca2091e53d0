// Package assets embeds the static files shared by the gateway and the HTML
// renderer: the default avatar and the chat stylesheet.
package assets

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed static
var staticFS embed.FS

// AvatarFile is the default avatar's name inside the static directory.
const AvatarFile = "avatar.png"

func init() {
	// Minimal images lack a .webp entry in the system MIME tables.
	_ = mime.AddExtensionType(".webp", "image/webp")
}

// mimeFromExt maps an extension to a content type, trying the system table
// before giving up with application/octet-stream.
func mimeFromExt(ext string) string {
	switch ext {
	case ".css":
		return "text/css; charset=utf-8"
	case ".png":
		return "image/png"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ChatCSS returns the stylesheet for rendered conversations.
func ChatCSS() string {
	data, err := fs.ReadFile(staticFS, "static/chat.css")
	if err != nil {
		panic("assets: chat.css missing from embed: " + err.Error())
	}
	return string(data)
}

// FileServer returns an http.Handler that serves the embedded static files.
// The handler expects paths relative to the static root (strip /static/
// before calling).
func FileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("assets: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set content type explicitly for known extensions
		ext := strings.ToLower(path.Ext(r.URL.Path))
		if ext != "" {
			w.Header().Set("Content-Type", mimeFromExt(ext))
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")

		fileServer.ServeHTTP(w, r)
	})
}

// AvatarHandler serves the default avatar regardless of the request path.
func AvatarHandler() http.Handler {
	fileServer := FileServer()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/" + AvatarFile
		fileServer.ServeHTTP(w, r2)
	})
}
