package models

import (
	"errors"
	"fmt"
)

// Sentinel errors raised by the revision engine.
var (
	// ErrInvalidRevisionType is returned when a revise call names an unknown type.
	ErrInvalidRevisionType = errors.New("invalid revision type")

	// ErrBaseRevisionExists signals an attempt to build a second base revision.
	ErrBaseRevisionExists = errors.New("base revision already exists")

	// ErrCommitFailed wraps a failure of the persistence call that follows a revise.
	ErrCommitFailed = errors.New("commit failed")

	// ErrRevisionConflict is returned by persistence when another writer already
	// stored a revision with the same number or advanced the document.
	ErrRevisionConflict = errors.New("revision conflict")
)

// Sentinel errors for schema declarations.
var (
	ErrUnknownSchema   = errors.New("unknown schema")
	ErrSchemaSealed    = errors.New("schema is sealed")
	ErrDuplicateSchema = errors.New("schema already registered")
	ErrUnknownRelation = errors.New("unknown embedded relation")
)

// Sentinel errors for lookups.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrRevisionNotFound = errors.New("revision not found")
)

// Sentinel errors for request validation.
var (
	ErrMissingType = errors.New("type is required")
	ErrMissingID   = errors.New("id is required")
	ErrInvalidID   = errors.New("id contains control characters")
)

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}
