// Package models defines server-side data models persisted in the database.
package models

import "time"

// ItemType says whether an item was lost or found.
type ItemType string

const (
	ItemTypeLost  ItemType = "lost"
	ItemTypeFound ItemType = "found"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	return t == ItemTypeLost || t == ItemTypeFound
}

// ItemStatus tracks whether an item is still looking for its owner.
type ItemStatus string

const (
	ItemStatusOpen     ItemStatus = "open"
	ItemStatusResolved ItemStatus = "resolved"
)

// Item is a persisted lost or found submission.
type Item struct {
	ID            string     `json:"_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Type          ItemType   `json:"type"`
	Location      string     `json:"location"`
	ImageURL      string     `json:"imageUrl"`
	ContactEmail  string     `json:"contactEmail"`
	ContactPhone  string     `json:"contactPhone,omitempty"`
	HostelAddress string     `json:"hostelAddress,omitempty"`
	Status        ItemStatus `json:"status"`
	// SubmittedBy is the submitter's email; a weak reference into users.
	SubmittedBy string    `json:"submittedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	// StorageKey is the object-storage key of the image behind ImageURL.
	StorageKey string `json:"-"`
}

// ItemDraft holds the client-supplied fields of a submission, before the
// image is ingested and the record is persisted.
type ItemDraft struct {
	Title         string
	Description   string
	Type          ItemType
	Location      string
	ContactEmail  string
	ContactPhone  string
	HostelAddress string
}

// Upload is an in-memory binary payload taken from a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
