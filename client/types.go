package client

import "time"

// Revision types accepted by Revise.
const (
	RevisionChange   = "change"
	RevisionSnapshot = "snapshot"
	RevisionEvent    = "event"
)

// EmbeddedItem is one element of a nested collection.
type EmbeddedItem struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Document is a revisable document as returned by the API.
type Document struct {
	ID                 string                    `json:"id"`
	Type               string                    `json:"type"`
	Fields             map[string]any            `json:"fields"`
	Embeds             map[string][]EmbeddedItem `json:"embeds,omitempty"`
	LastRevisionNumber *int                      `json:"last_revision_number"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// Revision is one entry of a document's revision log. RevisedEmbeds is
// keyed by relation, then item id, then field.
type Revision struct {
	Number            int                                  `json:"number"`
	Type              string                               `json:"type"`
	CreatedAt         time.Time                            `json:"created_at"`
	Message           *string                              `json:"message,omitempty"`
	Tag               *string                              `json:"tag,omitempty"`
	Author            *string                              `json:"author,omitempty"`
	RevisedAttributes map[string]any                       `json:"revised_attributes"`
	RevisedEmbeds     map[string]map[string]map[string]any `json:"revised_embeds"`
	Compressed        bool                                 `json:"compressed"`
}

// FieldHistoryEntry is one historical value of a field.
type FieldHistoryEntry struct {
	Number    int       `json:"number"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Author    *string   `json:"author,omitempty"`
	Message   *string   `json:"message,omitempty"`
	Tag       *string   `json:"tag,omitempty"`
	Field     string    `json:"field"`
	Relation  string    `json:"relation,omitempty"`
	ItemID    string    `json:"item_id,omitempty"`
	Value     any       `json:"value"`
}

// DocumentState is a document's tracked values as of one revision.
type DocumentState struct {
	Number int                                  `json:"number"`
	Fields map[string]any                       `json:"fields"`
	Embeds map[string]map[string]map[string]any `json:"embeds"`
}

// CreateDocumentRequest is the payload for creating a document. The server
// generates an id when ID is empty.
type CreateDocumentRequest struct {
	ID     string                    `json:"id,omitempty"`
	Type   string                    `json:"type"`
	Fields map[string]any            `json:"fields,omitempty"`
	Embeds map[string][]EmbeddedItem `json:"embeds,omitempty"`
}

// ReviseRequest applies changes to a document and records a revision.
// Soft requests report a failed commit in ReviseResult instead of failing.
type ReviseRequest struct {
	Fields    map[string]any            `json:"fields,omitempty"`
	Embeds    map[string][]EmbeddedItem `json:"embeds,omitempty"`
	Message   string                    `json:"message,omitempty"`
	Tag       string                    `json:"tag,omitempty"`
	Type      string                    `json:"type,omitempty"`
	Author    string                    `json:"author,omitempty"`
	CreatedAt *time.Time                `json:"created_at,omitempty"`
	Soft      bool                      `json:"soft,omitempty"`
}

// ReviseResult reports the outcome of a revise call. Revision is nil when
// nothing tracked changed and no forced revision was requested.
type ReviseResult struct {
	Revision  *Revision `json:"revision"`
	Committed bool      `json:"committed"`
	Document  *Document `json:"document"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Backend       string  `json:"backend"`
	Storage       string  `json:"storage"`
	SchemaVersion int     `json:"schema_version,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ListOptions holds parameters for listing documents.
type ListOptions struct {
	Type   string
	Limit  int
	Offset int
}
