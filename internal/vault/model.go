package vault

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a single credential record
type Entry struct {
	UUID       uuid.UUID `json:"uuid"`
	Title      string    `json:"title"`
	Username   string    `json:"username"`
	Password   string    `json:"password"`
	URL        string    `json:"url"`
	Notes      string    `json:"notes"`
	Expires    bool      `json:"expires"`
	ExpiryTime time.Time `json:"expiryTime,omitzero"`
	Tags       []string  `json:"tags"`
	Icon       int       `json:"icon"`
	Created    time.Time `json:"created"`
	Modified   time.Time `json:"modified"`

	// Carried by the store format but never copied between stores.
	CustomFields map[string]string `json:"customFields,omitempty"`
	Attachments  []Attachment      `json:"attachments,omitempty"`
}

// Attachment is a named binary blob belonging to an entry
type Attachment struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Group is a named container of subgroups and entries
type Group struct {
	UUID    uuid.UUID `json:"uuid"`
	Name    string    `json:"name"`
	Icon    int       `json:"icon"`
	Notes   string    `json:"notes"`
	Groups  []*Group  `json:"groups"`
	Entries []*Entry  `json:"entries"`
}

// NewGroup creates an empty group with a fresh UUID
func NewGroup(name string) *Group {
	return &Group{
		UUID:    uuid.New(),
		Name:    name,
		Groups:  make([]*Group, 0),
		Entries: make([]*Entry, 0),
	}
}

// NewEntry creates an entry with a fresh UUID and timestamps set to now
func NewEntry(title string, now time.Time) *Entry {
	return &Entry{
		UUID:     uuid.New(),
		Title:    title,
		Tags:     make([]string, 0),
		Created:  now,
		Modified: now,
	}
}

// AddGroup appends child to g and returns it
func (g *Group) AddGroup(child *Group) *Group {
	g.Groups = append(g.Groups, child)
	return child
}

// AddEntry appends e to g and returns it
func (g *Group) AddEntry(e *Entry) *Entry {
	g.Entries = append(g.Entries, e)
	return e
}

// Subgroup returns the first direct child named name, or nil
func (g *Group) Subgroup(name string) *Group {
	for _, child := range g.Groups {
		if child.Name == name {
			return child
		}
	}
	return nil
}
