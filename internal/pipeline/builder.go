// Package pipeline turns a stream of heterogeneous caller items into batched,
// typed request envelopes: document construction with type inference and
// fallback, order-preserving batching, ground-truth pairing and query
// directive injection.
package pipeline

import (
	"fmt"

	"github.com/helix-search/helix/internal/domain"
	"github.com/helix-search/helix/internal/domain/document"
)

// InputType tells the builder how to interpret a caller item.
type InputType string

// Input type constants.
const (
	// TypeAuto tries a strict document parse and falls back to content wrapping.
	TypeAuto InputType = "auto"
	// TypeDocument requires a strict document parse; failure is an error.
	TypeDocument InputType = "document"
	// TypeContent always wraps the item as content, skipping the parse attempt.
	TypeContent InputType = "content"
)

// Pair couples a primary input item with its ground truth.
type Pair struct {
	Primary     any
	GroundTruth any
}

// BuildDocument resolves one raw item into a document plus the content type it
// resolved to. At most one parse attempt is made per call; there are no
// retries. On the content fallback path no id regeneration happens, since the
// freshly constructed document never had a caller-supplied id.
func BuildDocument(
	item any, t InputType, regenerateID bool, opts document.Options,
) (*document.Document, InputType, error) {
	wrap := func() (*document.Document, InputType, error) {
		d := document.New(opts)
		if err := d.SetContent(item); err != nil {
			return nil, TypeContent, fmt.Errorf("wrap item as content: %w", err)
		}
		return d, TypeContent, nil
	}

	switch t {
	case TypeAuto, TypeDocument:
		// An incoming document value passes through untouched.
		switch pre := item.(type) {
		case *document.Document:
			return pre, TypeDocument, nil
		case document.Document:
			return &pre, TypeDocument, nil
		}
		d, err := document.Parse(item)
		if err == nil {
			if regenerateID {
				d.RegenerateID()
			}
			return d, TypeDocument, nil
		}
		if t == TypeAuto {
			// AUTO has a fallback: reconsider the item as content.
			return wrap()
		}
		return nil, TypeDocument, fmt.Errorf("build document: %w", err)
	case TypeContent:
		return wrap()
	default:
		return nil, t, fmt.Errorf("unknown input type %q: %w", t, domain.ErrBadDocumentType)
	}
}
