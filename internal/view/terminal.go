// ABOUTME: Terminal renderer for frames and the partner list
// ABOUTME: Uses fatih/color for outgoing/incoming bubbles and unread markers

package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/model"
)

// RenderTerminal writes f as a plain transcript.
func RenderTerminal(w io.Writer, f Frame) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen, color.Bold)
	faint := color.New(color.Faint)

	if f.Partner == nil {
		_, err := faint.Fprintln(w, "No conversation selected. Use /open <name> to start.")
		return err
	}

	bar := strings.Repeat("-", len(f.Partner.Name)+4)
	cyan.Fprintln(w, bar)
	cyan.Fprintf(w, "  %s\n", f.Partner.Name)
	cyan.Fprintln(w, bar)

	if f.Loading {
		_, err := faint.Fprintln(w, "  Loading messages...")
		return err
	}
	if len(f.Bubbles) == 0 {
		faint.Fprintln(w, "  No messages yet.")
	}

	for _, b := range f.Bubbles {
		label := green
		if b.Outgoing {
			label = cyan
		}
		indent := "  "
		if b.Outgoing {
			indent = "      "
		}

		fmt.Fprint(w, indent)
		faint.Fprintf(w, "[%s] ", b.Time)
		label.Fprintf(w, "%s:", b.Label)

		switch {
		case b.Image != "" && b.ImageLoading:
			faint.Fprint(w, " [loading image]")
		case b.Image != "":
			fmt.Fprintf(w, " [image %s]", shortSource(b.Image))
		}
		if b.Text != "" {
			fmt.Fprintf(w, " %s", b.Text)
		}
		fmt.Fprintln(w)
	}

	if f.Sending {
		faint.Fprintln(w, "  sending...")
	}
	return nil
}

// RenderPartners writes the partner list with unread markers.
func RenderPartners(w io.Writer, partners []model.Partner, selectedID string) error {
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)

	if len(partners) == 0 {
		_, err := fmt.Fprintln(w, "  (no contacts)")
		return err
	}
	for _, p := range partners {
		marker := " "
		if p.HasNewMessage {
			marker = yellow.Sprint("*")
		}
		name := p.FullName
		if p.ID == selectedID {
			name = cyan.Sprint(name)
		}
		if _, err := fmt.Fprintf(w, " %s %s  (%s)\n", marker, name, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// shortSource keeps data URLs from flooding the terminal.
func shortSource(src string) string {
	if strings.HasPrefix(src, "data:") {
		if mime, _, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ";"); ok {
			return "inline " + mime
		}
		return "inline"
	}
	return src
}
