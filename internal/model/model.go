// ABOUTME: Wire and state types shared by the API client, store, and views
// ABOUTME: Partner, Message, SendRequest, User plus recency ordering helpers

package model

import (
	"sort"
	"strings"
	"time"
)

// DefaultAvatar is shown when a user has no profile picture.
const DefaultAvatar = "/avatar.png"

// Partner is the other participant in a one-to-one conversation.
// HasNewMessage and LastMessageTime are client-side annotations and are
// never sent by the server.
type Partner struct {
	ID              string     `json:"_id"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email,omitempty"`
	ProfilePic      string     `json:"profilePic,omitempty"`
	HasNewMessage   bool       `json:"-"`
	LastMessageTime *time.Time `json:"-"`
}

// FirstName returns the first word of the partner's full name.
func (p Partner) FirstName() string {
	fields := strings.Fields(p.FullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Avatar returns the profile picture or the default avatar.
func (p Partner) Avatar() string {
	if p.ProfilePic == "" {
		return DefaultAvatar
	}
	return p.ProfilePic
}

// Message is a single chat message. Messages are immutable once created.
type Message struct {
	ID              string    `json:"_id"`
	SenderID        string    `json:"senderId"`
	ReceiverID      string    `json:"receiverId"`
	Text            string    `json:"text,omitempty"`
	Image           string    `json:"image,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	SenderFirstName string    `json:"senderFirstName,omitempty"`
}

// SendRequest is the JSON body of POST /messages/send/{userId}.
type SendRequest struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Empty reports whether the request carries neither text nor an image.
func (r SendRequest) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && r.Image == ""
}

// User is the authenticated local user.
type User struct {
	ID         string `json:"_id"`
	FullName   string `json:"fullName"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// Avatar returns the profile picture or the default avatar.
func (u User) Avatar() string {
	if u.ProfilePic == "" {
		return DefaultAvatar
	}
	return u.ProfilePic
}

// SortPartners orders partners by last activity, most recent first.
// Partners without activity sort after all active ones.
func SortPartners(partners []Partner) {
	sort.SliceStable(partners, func(i, j int) bool {
		a, b := partners[i].LastMessageTime, partners[j].LastMessageTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

// PartnersSorted reports whether partners are in SortPartners order.
func PartnersSorted(partners []Partner) bool {
	for i := 1; i < len(partners); i++ {
		prev, cur := partners[i-1].LastMessageTime, partners[i].LastMessageTime
		if prev == nil && cur != nil {
			return false
		}
		if prev != nil && cur != nil && cur.After(*prev) {
			return false
		}
	}
	return true
}

// ClonePartner returns a copy that does not share the timestamp pointer.
func ClonePartner(p Partner) Partner {
	if p.LastMessageTime != nil {
		t := *p.LastMessageTime
		p.LastMessageTime = &t
	}
	return p
}
