package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/helix-search/helix/internal/domain"
)

// descriptor is the structured form a pre-built document may arrive in.
type descriptor struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Blob     []float32         `json:"blob"`
	Buffer   []byte            `json:"buffer"`
	Tags     map[string]string `json:"tags"`
	MimeType string            `json:"mime_type"`
	Weight   float64           `json:"weight"`
}

// Parse attempts a strict parse of v as a pre-structured document.
// Accepted forms: *Document / Document (returned as-is), a map descriptor
// with at least one content key, or a JSON object encoding such a descriptor.
// Anything else fails with domain.ErrBadDocumentType. Parse makes exactly
// one attempt; it never falls back to wrapping v as raw content.
func Parse(v any) (*Document, error) {
	switch item := v.(type) {
	case *Document:
		return item, nil
	case Document:
		return &item, nil
	case map[string]any:
		return fromMap(item)
	case string:
		return fromJSON([]byte(item))
	case []byte:
		return fromJSON(item)
	default:
		return nil, fmt.Errorf("cannot parse %T as document: %w", v, domain.ErrBadDocumentType)
	}
}

func fromJSON(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("not a document descriptor: %w", domain.ErrBadDocumentType)
	}
	var desc descriptor
	if err := json.Unmarshal(trimmed, &desc); err != nil {
		return nil, fmt.Errorf("decode document descriptor: %w", domain.ErrBadDocumentType)
	}
	return fromDescriptor(desc)
}

func fromMap(m map[string]any) (*Document, error) {
	// Round-trip through JSON keeps one set of field rules for both forms.
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode descriptor map: %w", domain.ErrBadDocumentType)
	}
	return fromJSON(data)
}

func fromDescriptor(desc descriptor) (*Document, error) {
	d := &Document{
		id:       desc.ID,
		tags:     desc.Tags,
		mimeType: desc.MimeType,
		weight:   desc.Weight,
	}
	if d.id == "" {
		d.id = uuid.NewString()
	}
	if d.weight == 0 {
		d.weight = DefaultWeight
	}

	set := 0
	if desc.Text != "" {
		set++
		d.kind = KindText
		d.text = desc.Text
	}
	if len(desc.Blob) > 0 {
		set++
		d.kind = KindBlob
		d.blob = desc.Blob
	}
	if len(desc.Buffer) > 0 {
		set++
		d.kind = KindBuffer
		d.buffer = desc.Buffer
	}
	switch {
	case set == 0:
		return nil, fmt.Errorf("descriptor has no content variant: %w", domain.ErrBadDocumentType)
	case set > 1:
		return nil, fmt.Errorf("descriptor has multiple content variants: %w", domain.ErrBadDocumentType)
	}
	return d, nil
}

// String renders a short human-readable form for logs.
func (d *Document) String() string {
	var b strings.Builder
	b.WriteString("document(")
	b.WriteString(d.id)
	b.WriteString(", ")
	b.WriteString(string(d.kind))
	b.WriteString(")")
	return b.String()
}
