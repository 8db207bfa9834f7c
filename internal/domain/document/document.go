// Package document defines the content-bearing unit of work moving through
// the pipeline: a tagged union of text, blob (tensor) or buffer (raw bytes)
// content with identity, metadata tags, a mime hint and a weight.
package document

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/helix-search/helix/internal/domain"
)

// DefaultWeight is the weight assigned when the caller supplies none.
const DefaultWeight = 1.0

// Kind names the content variant held by a document.
type Kind string

// Content variants.
const (
	KindEmpty  Kind = ""
	KindText   Kind = "text"
	KindBlob   Kind = "blob"
	KindBuffer Kind = "buffer"
)

// Options are opaque construction options applied to freshly built documents.
type Options struct {
	MimeType   string
	Weight     float64
	LengthHint int
}

// Document holds exactly one content variant. The variant, once set,
// determines the document's kind for downstream processing.
type Document struct {
	id       string
	kind     Kind
	text     string
	blob     []float32
	buffer   []byte
	tags     map[string]string
	mimeType string
	weight   float64

	// embedding is computed downstream and is not a content variant.
	embedding []float32
}

// New creates an empty document with a fresh id and the given options applied.
func New(opts Options) *Document {
	w := opts.Weight
	if w == 0 {
		w = DefaultWeight
	}
	return &Document{
		id:       uuid.NewString(),
		mimeType: opts.MimeType,
		weight:   w,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Kind returns the content variant tag.
func (d *Document) Kind() Kind { return d.kind }

// Text returns the text content (empty unless Kind is text).
func (d *Document) Text() string { return d.text }

// Blob returns the tensor content (nil unless Kind is blob).
func (d *Document) Blob() []float32 { return d.blob }

// Buffer returns the raw byte content (nil unless Kind is buffer).
func (d *Document) Buffer() []byte { return d.buffer }

// Tags returns the metadata tags.
func (d *Document) Tags() map[string]string { return d.tags }

// MimeType returns the mime-type hint.
func (d *Document) MimeType() string { return d.mimeType }

// Weight returns the document weight.
func (d *Document) Weight() float64 { return d.weight }

// Embedding returns the embedding vector, if one has been computed.
func (d *Document) Embedding() []float32 { return d.embedding }

// SetEmbedding sets the embedding vector in place.
func (d *Document) SetEmbedding(v []float32) { d.embedding = v }

// RegenerateID replaces the document id with a fresh one.
func (d *Document) RegenerateID() { d.id = uuid.NewString() }

// SetTag stores a metadata tag.
func (d *Document) SetTag(k, v string) {
	if d.tags == nil {
		d.tags = make(map[string]string)
	}
	d.tags[k] = v
}

// SetText sets the text variant. Fails if another variant is already set.
func (d *Document) SetText(t string) error {
	if d.kind != KindEmpty {
		return fmt.Errorf("set text on %s document: %w", d.kind, domain.ErrContentAlreadySet)
	}
	d.kind = KindText
	d.text = t
	return nil
}

// SetBlob sets the tensor variant. Fails if another variant is already set.
func (d *Document) SetBlob(b []float32) error {
	if d.kind != KindEmpty && d.kind != KindBlob {
		return fmt.Errorf("set blob on %s document: %w", d.kind, domain.ErrContentAlreadySet)
	}
	d.kind = KindBlob
	d.blob = b
	return nil
}

// SetBuffer sets the raw-bytes variant. Fails if another variant is already set.
func (d *Document) SetBuffer(b []byte) error {
	if d.kind != KindEmpty {
		return fmt.Errorf("set buffer on %s document: %w", d.kind, domain.ErrContentAlreadySet)
	}
	d.kind = KindBuffer
	d.buffer = b
	return nil
}

// SetContent assigns v to the matching content variant.
// Supported: string (text), []float32 (blob), []byte (buffer).
func (d *Document) SetContent(v any) error {
	switch c := v.(type) {
	case string:
		return d.SetText(c)
	case []float32:
		return d.SetBlob(c)
	case []byte:
		return d.SetBuffer(c)
	default:
		return fmt.Errorf("unsupported content %T: %w", v, domain.ErrBadDocumentType)
	}
}

// Reconstruct creates a document without validation (storage hydration).
func Reconstruct(
	id string, kind Kind, text string, blob []float32, buffer []byte,
	tags map[string]string, mimeType string, weight float64,
) *Document {
	return &Document{
		id: id, kind: kind, text: text, blob: blob, buffer: buffer,
		tags: tags, mimeType: mimeType, weight: weight,
	}
}
