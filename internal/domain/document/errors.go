package document

import "errors"

var (
	// ErrDocumentNotFound indicates the document doesn't exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrReadOnly indicates the document is awaiting or past approval.
	ErrReadOnly = errors.New("document is read-only")
	// ErrNotEndorsable indicates the document kind carries no endorsements.
	ErrNotEndorsable = errors.New("document has no endorsement slots")
	// ErrNotEndorser indicates the actor does not hold the slot's endorsing role.
	ErrNotEndorser = errors.New("actor may not endorse this slot")
	// ErrNotPermitted indicates the actor may not edit the document.
	ErrNotPermitted = errors.New("not permitted to edit document")
	// ErrInvalidInput indicates invalid document input.
	ErrInvalidInput = errors.New("invalid document input")
)
