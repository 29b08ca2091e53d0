// ABOUTME: HTML renderer for frames
// ABOUTME: Message text is markdown converted with goldmark, raw HTML in messages is not rendered

package view

import (
	"bytes"
	"html/template"
	"io"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/coven-chat/internal/assets"
)

var pageTemplate = template.Must(template.New("chat").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Partner}}{{.Partner.Name}}{{else}}Chat{{end}}</title>
<style>{{.CSS}}</style>
</head>
<body>
<div class="chat-container">
{{- if .Partner}}
  <header class="chat-header">
    <img class="avatar" src="{{.Partner.Avatar}}" alt="{{.Partner.Name}}">
    <h3>{{.Partner.Name}}</h3>
  </header>
  <div class="messages">
  {{- if .Loading}}
    <div class="message-skeleton"></div>
    <div class="message-skeleton"></div>
    <div class="message-skeleton"></div>
  {{- else}}
  {{- range .Bubbles}}
    <div class="chat {{if .Outgoing}}chat-end{{else}}chat-start{{end}}" id="msg-{{.ID}}">
      <div class="chat-image"><img class="avatar" src="{{.Avatar}}" alt="profile pic"></div>
      <div class="chat-header">{{.Label}} <time>{{.Time}}</time></div>
      <div class="chat-bubble">
        {{- if .Image}}
        {{- if .ImageLoading}}<div class="image-loader"></div>{{end}}
        <img class="attachment" src="{{.Image}}" alt="Attachment">
        {{- end}}
        {{- if .Text}}{{.Text}}{{end}}
      </div>
    </div>
  {{- end}}
  {{- end}}
    <div id="message-end"></div>
  </div>
{{- else}}
  <p class="no-chat">Select a conversation to start messaging.</p>
{{- end}}
</div>
</body>
</html>
`))

type htmlBubble struct {
	Bubble
	Text  template.HTML
	Image template.URL
}

type htmlFrame struct {
	Frame
	Bubbles []htmlBubble
	CSS     template.CSS
}

// RenderHTML writes f as a standalone page.
func RenderHTML(w io.Writer, f Frame) error {
	page := htmlFrame{
		Frame:   f,
		Bubbles: make([]htmlBubble, len(f.Bubbles)),
		CSS:     template.CSS(assets.ChatCSS()),
	}
	for i, b := range f.Bubbles {
		page.Bubbles[i] = htmlBubble{Bubble: b, Text: renderMarkdown(b.Text), Image: imageURL(b.Image)}
	}
	return pageTemplate.Execute(w, page)
}

// renderMarkdown converts message text to HTML. goldmark omits raw HTML
// unless configured otherwise, so the result is safe to embed.
func renderMarkdown(text string) template.HTML {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

// imageURL passes inline images and http(s) sources through the template's
// URL filter, which would otherwise reject data URLs. Anything else is dropped.
func imageURL(src string) template.URL {
	switch {
	case strings.HasPrefix(src, "data:image/"),
		strings.HasPrefix(src, "https://"),
		strings.HasPrefix(src, "http://"),
		strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//"):
		return template.URL(src)
	}
	return ""
}
