// Package domain holds the error taxonomy shared across the pipeline core.
package domain

import "errors"

var (
	// ErrBadDocumentType signals an item that cannot be parsed as a structured document.
	ErrBadDocumentType = errors.New("bad document type")
	// ErrContentAlreadySet signals a second content variant assignment on a document.
	ErrContentAlreadySet = errors.New("document content already set")
	// ErrInvalidComponentSpec signals a route binding to a non-existent component or operation.
	ErrInvalidComponentSpec = errors.New("invalid component spec")
	// ErrUnresolvedRoute signals an operation name with multiple providers awaiting a manual route.
	ErrUnresolvedRoute = errors.New("unresolved route")
	// ErrNoRoute signals an operation name absent from the route table.
	ErrNoRoute = errors.New("no route")
	// ErrComponentNotFound signals a lookup by name with no matching component.
	ErrComponentNotFound = errors.New("component not found")
	// ErrIndexOutOfRange signals a positional component lookup outside the list bounds.
	ErrIndexOutOfRange = errors.New("component index out of range")
	// ErrPersistenceFailure signals a failed component or router save.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrDescriptorMismatch signals a reload descriptor that does not match the supplied components.
	ErrDescriptorMismatch = errors.New("descriptor does not match components")
	// ErrEncoderError signals an embedding provider failure.
	ErrEncoderError = errors.New("encoder provider error")
)
