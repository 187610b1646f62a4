package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// EmbeddedItem is one element of a nested collection.
type EmbeddedItem struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// DocumentRecord is the persisted form of a revisable document.
type DocumentRecord struct {
	ID                 string                    `json:"id"`
	Type               string                    `json:"type"`
	Fields             map[string]any            `json:"fields"`
	Embeds             map[string][]EmbeddedItem `json:"embeds,omitempty"`
	LastRevisionNumber *int                      `json:"last_revision_number"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// DocumentCommit is the unit of work handed to a persistence backend.
// ExpectedRevision is the last revision number the writer loaded; backends
// reject the commit with ErrRevisionConflict if the stored value differs.
type DocumentCommit struct {
	Document         DocumentRecord
	Insert           bool
	ExpectedRevision *int
	NewRevisions     []Revision
}

// CreateDocumentRequest is the payload for creating a new document.
type CreateDocumentRequest struct {
	ID     string                    `json:"id"`
	Type   string                    `json:"type"`
	Fields map[string]any            `json:"fields,omitempty"`
	Embeds map[string][]EmbeddedItem `json:"embeds,omitempty"`
}

// Validate checks required fields on CreateDocumentRequest.
// If ID is empty, a UUID is auto-generated.
func (r *CreateDocumentRequest) Validate() error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	if err := ValidateID("id", r.ID); err != nil {
		return err
	}

	if r.Type == "" {
		return ErrMissingType
	}

	if len(r.Type) > 100 {
		return ErrFieldTooLong("type", 100)
	}

	if err := validateItems(r.Embeds); err != nil {
		return err
	}

	if r.Fields == nil {
		r.Fields = map[string]any{}
	}

	return nil
}

// ReviseDocumentRequest applies field sets and embedded item upserts to a
// document and then records a revision.
type ReviseDocumentRequest struct {
	Fields    map[string]any            `json:"fields,omitempty"`
	Embeds    map[string][]EmbeddedItem `json:"embeds,omitempty"`
	Message   string                    `json:"message,omitempty"`
	Tag       string                    `json:"tag,omitempty"`
	Type      string                    `json:"type,omitempty"`
	Author    string                    `json:"author,omitempty"`
	CreatedAt *time.Time                `json:"created_at,omitempty"`
	Soft      bool                      `json:"soft,omitempty"`
}

// Validate checks the revision type and item ids on ReviseDocumentRequest.
func (r *ReviseDocumentRequest) Validate() error {
	if _, err := ParseRevisionType(r.Type); err != nil {
		return err
	}

	if len(r.Message) > 10000 {
		return ErrFieldTooLong("message", 10000)
	}

	if len(r.Tag) > 255 {
		return ErrFieldTooLong("tag", 255)
	}

	return validateItems(r.Embeds)
}

func validateItems(embeds map[string][]EmbeddedItem) error {
	for _, items := range embeds {
		for _, item := range items {
			if item.ID == "" {
				return ErrMissingID
			}

			if err := ValidateID("item id", item.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateID checks the length of a non-empty document or item id and
// rejects control characters, which storage keys and postgres text cannot hold.
func ValidateID(field, id string) error {
	if len(id) > 255 {
		return ErrFieldTooLong(field, 255)
	}

	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidID, field)
	}

	return nil
}

// ReviseResult reports the outcome of a revise call.
type ReviseResult struct {
	Revision  *Revision       `json:"revision"`
	Committed bool            `json:"committed"`
	Document  *DocumentRecord `json:"document"`
}

// FieldHistoryEntry is the serialized form of one historical field value.
type FieldHistoryEntry struct {
	Number    int          `json:"number"`
	Type      RevisionType `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
	Author    *string      `json:"author,omitempty"`
	Message   *string      `json:"message,omitempty"`
	Tag       *string      `json:"tag,omitempty"`
	Field     string       `json:"field"`
	Relation  string       `json:"relation,omitempty"`
	ItemID    string       `json:"item_id,omitempty"`
	Value     any          `json:"value"`
}

// DocumentState is a document's tracked values as of one revision.
type DocumentState struct {
	Number int            `json:"number"`
	Fields map[string]any `json:"fields"`
	Embeds RevisedEmbeds  `json:"embeds"`
}
