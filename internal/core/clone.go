package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/illarion/vaultmerge/internal/vault"
)

// CloneEntry returns a new, independently owned copy of the visible fields
// of src: title, username, password, URL, notes, expiry, tags and icon.
// Absent values stay empty; nothing is inherited from the destination.
// Custom fields, attachments and history are not carried over.
func CloneEntry(src *vault.Entry, now time.Time) *vault.Entry {
	tags := make([]string, len(src.Tags))
	copy(tags, src.Tags)

	return &vault.Entry{
		UUID:       uuid.New(),
		Title:      src.Title,
		Username:   src.Username,
		Password:   src.Password,
		URL:        src.URL,
		Notes:      src.Notes,
		Expires:    src.Expires,
		ExpiryTime: src.ExpiryTime,
		Tags:       tags,
		Icon:       src.Icon,
		Created:    now,
		Modified:   now,
	}
}

// cloneGroup copies the attributes of src into a new, empty group
func cloneGroup(src *vault.Group) *vault.Group {
	g := vault.NewGroup(src.Name)
	g.Icon = src.Icon
	g.Notes = src.Notes
	return g
}
