package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(min int) *time.Time {
	t := time.Date(2026, 1, 1, 12, min, 0, 0, time.UTC)
	return &t
}

func TestSortPartners_RecentFirstNilLast(t *testing.T) {
	partners := []Partner{
		{ID: "idle-1"},
		{ID: "old", LastMessageTime: ts(1)},
		{ID: "idle-2"},
		{ID: "new", LastMessageTime: ts(5)},
		{ID: "mid", LastMessageTime: ts(3)},
	}

	SortPartners(partners)

	ids := make([]string, len(partners))
	for i, p := range partners {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"new", "mid", "old", "idle-1", "idle-2"}, ids)
	assert.True(t, PartnersSorted(partners))
}

func TestPartnersSorted_DetectsDisorder(t *testing.T) {
	assert.False(t, PartnersSorted([]Partner{{ID: "a"}, {ID: "b", LastMessageTime: ts(1)}}))
	assert.False(t, PartnersSorted([]Partner{{LastMessageTime: ts(1)}, {LastMessageTime: ts(2)}}))
	assert.True(t, PartnersSorted(nil))
}

func TestPartner_FirstNameAndAvatar(t *testing.T) {
	p := Partner{FullName: "  Ada   Lovelace "}
	assert.Equal(t, "Ada", p.FirstName())
	assert.Equal(t, DefaultAvatar, p.Avatar())

	p.ProfilePic = "https://cdn.example/ada.png"
	assert.Equal(t, "https://cdn.example/ada.png", p.Avatar())
	assert.Equal(t, "", Partner{}.FirstName())
}

func TestPartner_JSONIgnoresClientFlags(t *testing.T) {
	var p Partner
	err := json.Unmarshal([]byte(`{"_id":"u1","fullName":"Ada L","profilePic":"x.png"}`), &p)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.False(t, p.HasNewMessage)
	assert.Nil(t, p.LastMessageTime)
}

func TestSendRequest_Empty(t *testing.T) {
	assert.True(t, SendRequest{}.Empty())
	assert.True(t, SendRequest{Text: "   "}.Empty())
	assert.False(t, SendRequest{Text: "hi"}.Empty())
	assert.False(t, SendRequest{Image: "data:image/png;base64,AAAA"}.Empty())
}

func TestClonePartner_DetachesTimestamp(t *testing.T) {
	orig := Partner{ID: "a", LastMessageTime: ts(1)}
	clone := ClonePartner(orig)
	*clone.LastMessageTime = *ts(9)
	assert.Equal(t, *ts(1), *orig.LastMessageTime)
}
