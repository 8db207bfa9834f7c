// Package docstore is the payload component: it persists document records in
// the key-value store and cleans up orphaned keys.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/helix-search/helix/internal/composite"
	"github.com/helix-search/helix/internal/domain"
	"github.com/helix-search/helix/internal/domain/document"
	"github.com/helix-search/helix/internal/domain/request"
)

// kvStore is the consumer interface for payload persistence (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// record is the stored document form.
type record struct {
	ID       string            `json:"id"`
	Kind     document.Kind     `json:"kind"`
	Text     string            `json:"text,omitempty"`
	Blob     []float32         `json:"blob,omitempty"`
	Buffer   []byte            `json:"buffer,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	MimeType string            `json:"mime_type,omitempty"`
	Weight   float64           `json:"weight"`
}

// Component stores document payloads keyed by id.
type Component struct {
	*composite.Base
	store     kvStore
	keyPrefix string
	log       *zap.Logger

	known map[string]struct{} // ids written by this component
}

var _ composite.Component = (*Component)(nil)

// New creates a document store component. Stored payloads need no training.
func New(name, keyPrefix string, store kvStore, log *zap.Logger) *Component {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Component{
		Base:      composite.NewBase(name),
		store:     store,
		keyPrefix: keyPrefix,
		log:       log.With(zap.String("component", name)),
		known:     make(map[string]struct{}),
	}
	c.SetTrained(true)
	c.RegisterOp(composite.OpAdd, c.add)
	c.RegisterOp(composite.OpDump, c.dump)
	c.RegisterOp(composite.OpFlush, c.flush)
	c.RegisterOp(composite.OpPrune, c.prune)
	return c
}

func (c *Component) docKey(id string) string {
	return c.keyPrefix + "doc:" + c.Name() + ":" + id
}

func (c *Component) catalogKey() string {
	return c.keyPrefix + "catalog:" + c.Name()
}

// add stores every document in the request.
func (c *Component) add(ctx context.Context, args ...any) (any, error) {
	req, err := requestArg(args)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, d := range req.Docs() {
		data, err := json.Marshal(record{
			ID:       d.ID(),
			Kind:     d.Kind(),
			Text:     d.Text(),
			Blob:     d.Blob(),
			Buffer:   d.Buffer(),
			Tags:     d.Tags(),
			MimeType: d.MimeType(),
			Weight:   d.Weight(),
		})
		if err != nil {
			return nil, fmt.Errorf("encode document %s: %w", d.ID(), err)
		}
		if err := c.store.Set(ctx, c.docKey(d.ID()), data); err != nil {
			return nil, fmt.Errorf("store document %s: %w", d.ID(), err)
		}
		c.known[d.ID()] = struct{}{}
		n++
	}
	if n > 0 {
		c.SetUpdated(true)
	}
	return n, nil
}

// Fetch loads one stored document.
func (c *Component) Fetch(ctx context.Context, id string) (*document.Document, error) {
	data, err := c.store.Get(ctx, c.docKey(id))
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", id, err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return document.Reconstruct(
		rec.ID, rec.Kind, rec.Text, rec.Blob, rec.Buffer,
		rec.Tags, rec.MimeType, rec.Weight,
	), nil
}

// dump writes the id catalog next to the payloads.
func (c *Component) dump(ctx context.Context, _ ...any) (any, error) {
	if err := c.writeCatalog(ctx); err != nil {
		return nil, err
	}
	return len(c.known), nil
}

// flush writes the catalog and clears the updated flag.
func (c *Component) flush(ctx context.Context, _ ...any) (any, error) {
	if err := c.writeCatalog(ctx); err != nil {
		return nil, err
	}
	c.SetUpdated(false)
	return len(c.known), nil
}

// prune deletes stored payload keys this component no longer knows about.
func (c *Component) prune(ctx context.Context, _ ...any) (any, error) {
	keys, err := c.store.Scan(ctx, c.docKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan documents %s: %w", c.Name(), err)
	}
	prefix := c.docKey("")
	removed := 0
	for _, key := range keys {
		id := strings.TrimPrefix(key, prefix)
		if _, ok := c.known[id]; ok {
			continue
		}
		if err := c.store.Del(ctx, key); err != nil {
			return nil, fmt.Errorf("prune document %s: %w", id, err)
		}
		removed++
	}
	return removed, nil
}

func (c *Component) writeCatalog(ctx context.Context) error {
	ids := make([]string, 0, len(c.known))
	for id := range c.known {
		ids = append(ids, id)
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode catalog %s: %w", c.Name(), err)
	}
	if err := c.store.Set(ctx, c.catalogKey(), data); err != nil {
		return fmt.Errorf("store catalog %s: %w", c.Name(), err)
	}
	return nil
}

// Save persists the catalog record.
func (c *Component) Save(ctx context.Context) error {
	if err := c.writeCatalog(ctx); err != nil {
		return err
	}
	c.SetUpdated(false)
	return nil
}

// Load hydrates the known-id set from the persisted catalog.
func (c *Component) Load(ctx context.Context) error {
	data, err := c.store.Get(ctx, c.catalogKey())
	if err != nil {
		return fmt.Errorf("load catalog %s: %w", c.Name(), err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("decode catalog %s: %w", c.Name(), err)
	}
	c.known = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		c.known[id] = struct{}{}
	}
	return nil
}

// Close drops the in-memory id set.
func (c *Component) Close(_ context.Context) error {
	c.known = nil
	return nil
}

// Size returns the number of known documents.
func (c *Component) Size() int { return len(c.known) }

func requestArg(args []any) (*request.Request, error) {
	for _, a := range args {
		if req, ok := a.(*request.Request); ok {
			return req, nil
		}
	}
	return nil, fmt.Errorf("operation needs a request argument: %w", domain.ErrBadDocumentType)
}
