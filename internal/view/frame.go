// ABOUTME: Render model built from a store snapshot
// ABOUTME: Header, loading flag and one bubble per message with avatar, label and time

package view

import (
	"strconv"
	"time"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/model"
)

// TimeLayout formats bubble timestamps.
const TimeLayout = "15:04"

// OwnLabel labels bubbles sent by the signed-in user.
const OwnLabel = "You"

// Frame is everything needed to draw the conversation pane.
type Frame struct {
	Partner *Header
	Loading bool
	Sending bool
	Bubbles []Bubble
}

// Header describes the conversation partner.
type Header struct {
	ID     string
	Name   string
	Avatar string
}

// Bubble is one rendered message.
type Bubble struct {
	ID           string
	Outgoing     bool
	Avatar       string
	Label        string
	Time         string
	Text         string
	Image        string
	ImageLoading bool
}

// BuildFrame turns a snapshot into a Frame from me's point of view.
// imageLoading reports whether the attachment under an imageKey is still
// loading; it may be nil. Times are shown in loc, or local time if nil.
func BuildFrame(st chat.State, me model.User, loc *time.Location, imageLoading func(key string) bool) Frame {
	if loc == nil {
		loc = time.Local
	}

	f := Frame{
		Loading: st.MessagesLoading,
		Sending: st.Sending,
	}
	if st.Selected == nil {
		return f
	}

	p := *st.Selected
	f.Partner = &Header{ID: p.ID, Name: p.FullName, Avatar: p.Avatar()}
	if f.Loading {
		return f
	}

	f.Bubbles = make([]Bubble, 0, len(st.Messages))
	for i, m := range st.Messages {
		b := Bubble{
			ID:       m.ID,
			Outgoing: m.SenderID == me.ID,
			Time:     formatTime(m.CreatedAt, loc),
			Text:     m.Text,
			Image:    m.Image,
		}
		if b.Outgoing {
			b.Avatar = me.Avatar()
			b.Label = OwnLabel
		} else {
			b.Avatar = p.Avatar()
			b.Label = m.SenderFirstName
			if b.Label == "" {
				b.Label = p.FirstName()
			}
		}
		if b.Image != "" && imageLoading != nil {
			b.ImageLoading = imageLoading(imageKey(i, m))
		}
		f.Bubbles = append(f.Bubbles, b)
	}
	return f
}

// imageKey identifies the attachment of the i-th message. Messages without
// an ID fall back to their position so they never share a slot.
func imageKey(i int, m model.Message) string {
	if m.ID != "" {
		return m.ID
	}
	return "#" + strconv.Itoa(i)
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(TimeLayout)
}
