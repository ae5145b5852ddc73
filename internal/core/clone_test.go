package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/vaultmerge/internal/vault"
)

func TestCloneEntryFields(t *testing.T) {
	now := time.Unix(2000, 0)
	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	src := vault.NewEntry("Mail", time.Unix(1000, 0))
	src.Username = "a@x.com"
	src.Password = "p1"
	src.URL = "https://mail.example.com"
	src.Notes = "line one\nline two"
	src.Expires = true
	src.ExpiryTime = expiry
	src.Tags = []string{"work", "mail"}
	src.Icon = 19
	src.CustomFields = map[string]string{"pin": "1234"}
	src.Attachments = []vault.Attachment{{Name: "a.txt", Data: []byte("x")}}

	got := CloneEntry(src, now)

	assert.Equal(t, "Mail", got.Title)
	assert.Equal(t, "a@x.com", got.Username)
	assert.Equal(t, "p1", got.Password)
	assert.Equal(t, "https://mail.example.com", got.URL)
	assert.Equal(t, "line one\nline two", got.Notes)
	assert.True(t, got.Expires)
	assert.True(t, expiry.Equal(got.ExpiryTime))
	assert.Equal(t, []string{"work", "mail"}, got.Tags)
	assert.Equal(t, 19, got.Icon)

	assert.NotEqual(t, src.UUID, got.UUID)
	assert.True(t, now.Equal(got.Created))
	assert.True(t, now.Equal(got.Modified))
	assert.Empty(t, got.CustomFields)
	assert.Empty(t, got.Attachments)
}

func TestCloneEntryAbsentFields(t *testing.T) {
	src := &vault.Entry{Title: "Bank"}

	got := CloneEntry(src, time.Unix(2000, 0))

	assert.Equal(t, "Bank", got.Title)
	assert.Empty(t, got.Username)
	assert.Empty(t, got.Password)
	assert.Empty(t, got.URL)
	assert.Empty(t, got.Notes)
	assert.False(t, got.Expires)
	assert.True(t, got.ExpiryTime.IsZero())
	require.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
	assert.Zero(t, got.Icon)
}

func TestCloneEntryIndependent(t *testing.T) {
	src := vault.NewEntry("Mail", time.Unix(1000, 0))
	src.Tags = []string{"a", "b"}

	got := CloneEntry(src, time.Unix(2000, 0))
	got.Tags[0] = "changed"
	got.Title = "Other"

	assert.Equal(t, []string{"a", "b"}, src.Tags)
	assert.Equal(t, "Mail", src.Title)
}
