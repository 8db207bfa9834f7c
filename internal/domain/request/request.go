// Package request defines the batch envelope produced by the assembler: an
// ordered document sequence, positionally aligned ground truths, query
// directives and a mode tag.
package request

import "github.com/helix-search/helix/internal/domain/document"

// Request is filled synchronously within one batching step and handed off;
// it is never mutated afterward.
type Request struct {
	mode         Mode
	docs         []*document.Document
	groundTruths []*document.Document
	directives   []Directive
	flush        bool
}

// New creates an empty request with the given mode.
func New(mode Mode) *Request {
	return &Request{mode: mode}
}

// NewFlush creates the synthetic terminal request that signals training
// completion downstream. It carries no documents and uses the Control mode.
func NewFlush() *Request {
	return &Request{mode: Control, flush: true}
}

// Mode returns the request mode tag.
func (r *Request) Mode() Mode { return r.mode }

// Docs returns the ordered document sequence.
func (r *Request) Docs() []*document.Document { return r.docs }

// GroundTruths returns the ground-truth sequence, positionally aligned with
// Docs. It may be shorter or empty.
func (r *Request) GroundTruths() []*document.Document { return r.groundTruths }

// Directives returns the attached query directives in append order.
func (r *Request) Directives() []Directive { return r.directives }

// Flush reports whether this is the terminal training flush marker.
func (r *Request) Flush() bool { return r.flush }

// AppendDoc appends a document to the main sequence.
func (r *Request) AppendDoc(d *document.Document) { r.docs = append(r.docs, d) }

// AppendGroundTruth appends a document to the ground-truth sequence.
func (r *Request) AppendGroundTruth(d *document.Document) {
	r.groundTruths = append(r.groundTruths, d)
}

// AppendDirectives appends directives in order.
func (r *Request) AppendDirectives(ds ...Directive) {
	r.directives = append(r.directives, ds...)
}
