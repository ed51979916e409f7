package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrInvalid     = errors.New("invalid input")
	ErrLocked      = errors.New("session locked")
	ErrNotEditable = errors.New("session not editable")
	ErrNoSelection = errors.New("no selection")
	ErrNoProposal  = errors.New("no pending proposal")
	ErrNoHighlight = errors.New("no pending highlight")
)
