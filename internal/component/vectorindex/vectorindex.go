// Package vectorindex is the vector indexing component: it keeps document
// embeddings queryable in memory and persists them to the key-value store.
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/helix-search/helix/internal/composite"
	"github.com/helix-search/helix/internal/domain"
	"github.com/helix-search/helix/internal/domain/document"
	"github.com/helix-search/helix/internal/domain/request"
)

// DefaultTopK bounds query results when no directive limits them.
const DefaultTopK = 10

// hashStore is the consumer interface for vector persistence (ISP).
type hashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Match is one scored hit for a query document.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// QueryResult holds the matches for one query document.
type QueryResult struct {
	QueryID string  `json:"query_id"`
	Matches []Match `json:"matches"`
}

// Component indexes embeddings and answers nearest-neighbour queries.
type Component struct {
	*composite.Base
	store     hashStore
	keyPrefix string
	log       *zap.Logger

	vectors map[string][]float32
	ids     []string // insertion order, kept for deterministic dumps
}

var _ composite.Component = (*Component)(nil)

// New creates a vector index component.
func New(name, keyPrefix string, store hashStore, log *zap.Logger) *Component {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Component{
		Base:      composite.NewBase(name),
		store:     store,
		keyPrefix: keyPrefix,
		log:       log.With(zap.String("component", name)),
		vectors:   make(map[string][]float32),
	}
	c.RegisterOp(composite.OpAdd, c.add)
	c.RegisterOp(composite.OpQuery, c.query)
	c.RegisterOp(composite.OpTrain, c.train)
	c.RegisterOp(composite.OpDump, c.dump)
	c.RegisterOp(composite.OpFlush, c.flush)
	return c
}

func (c *Component) key() string { return c.keyPrefix + "vectors:" + c.Name() }

// add indexes the vector of every document in the request. Documents carry
// either a computed embedding or a blob content variant.
func (c *Component) add(_ context.Context, args ...any) (any, error) {
	req, err := requestArg(args)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, d := range req.Docs() {
		vec := docVector(d)
		if vec == nil {
			return nil, fmt.Errorf("document %s has no vector: %w", d.ID(), domain.ErrBadDocumentType)
		}
		if _, seen := c.vectors[d.ID()]; !seen {
			c.ids = append(c.ids, d.ID())
		}
		c.vectors[d.ID()] = vec
		n++
	}
	if n > 0 {
		c.SetUpdated(true)
	}
	return n, nil
}

// query answers a nearest-neighbour scan for every document in the request.
// The result limit comes from the request's top-k directive when present.
func (c *Component) query(_ context.Context, args ...any) (any, error) {
	req, err := requestArg(args)
	if err != nil {
		return nil, err
	}
	topK := topKFrom(req.Directives())

	results := make([]QueryResult, 0, len(req.Docs()))
	for _, d := range req.Docs() {
		vec := docVector(d)
		if vec == nil {
			return nil, fmt.Errorf("query document %s has no vector: %w", d.ID(), domain.ErrBadDocumentType)
		}
		results = append(results, QueryResult{QueryID: d.ID(), Matches: c.scan(vec, topK)})
	}
	return results, nil
}

// scan brute-forces cosine similarity over the indexed vectors.
func (c *Component) scan(q []float32, topK int) []Match {
	matches := make([]Match, 0, len(c.ids))
	for _, id := range c.ids {
		matches = append(matches, Match{ID: id, Score: cosine(q, c.vectors[id])})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// train marks the index ready for querying.
func (c *Component) train(ctx context.Context, args ...any) (any, error) {
	if req, err := requestArg(args); err == nil && !req.Flush() {
		if _, err := c.add(ctx, req); err != nil {
			return nil, err
		}
	}
	c.SetTrained(true)
	return len(c.vectors), nil
}

// dump persists the indexed vectors.
func (c *Component) dump(ctx context.Context, _ ...any) (any, error) {
	if err := c.persist(ctx); err != nil {
		return nil, err
	}
	return len(c.vectors), nil
}

// flush persists outstanding writes and clears the updated flag.
func (c *Component) flush(ctx context.Context, _ ...any) (any, error) {
	if err := c.persist(ctx); err != nil {
		return nil, err
	}
	c.SetUpdated(false)
	return len(c.vectors), nil
}

func (c *Component) persist(ctx context.Context) error {
	if len(c.vectors) == 0 {
		return nil
	}
	fields := make(map[string]string, len(c.vectors))
	for _, id := range c.ids {
		data, err := json.Marshal(c.vectors[id])
		if err != nil {
			return fmt.Errorf("encode vector %s: %w", id, err)
		}
		fields[id] = string(data)
	}
	if err := c.store.HSet(ctx, c.key(), fields); err != nil {
		return fmt.Errorf("persist vectors %s: %w", c.Name(), err)
	}
	return nil
}

// Save persists the vectors and the index metadata record.
func (c *Component) Save(ctx context.Context) error {
	if err := c.persist(ctx); err != nil {
		return err
	}
	meta := map[string]string{
		"name":    c.Name(),
		"count":   strconv.Itoa(len(c.vectors)),
		"trained": strconv.FormatBool(c.Trained()),
	}
	if err := c.store.HSet(ctx, c.key()+":meta", meta); err != nil {
		return fmt.Errorf("save vector index %s: %w", c.Name(), err)
	}
	c.SetUpdated(false)
	return nil
}

// Load hydrates the index from the store.
func (c *Component) Load(ctx context.Context) error {
	fields, err := c.store.HGetAll(ctx, c.key())
	if err != nil {
		return fmt.Errorf("load vector index %s: %w", c.Name(), err)
	}
	ids := make([]string, 0, len(fields))
	for id := range fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	c.vectors = make(map[string][]float32, len(fields))
	c.ids = c.ids[:0]
	for _, id := range ids {
		var vec []float32
		if err := json.Unmarshal([]byte(fields[id]), &vec); err != nil {
			return fmt.Errorf("decode vector %s: %w", id, err)
		}
		c.vectors[id] = vec
		c.ids = append(c.ids, id)
	}

	meta, err := c.store.HGetAll(ctx, c.key()+":meta")
	if err != nil {
		return fmt.Errorf("load vector index meta %s: %w", c.Name(), err)
	}
	c.SetTrained(meta["trained"] == "true")
	return nil
}

// Close drops the in-memory index.
func (c *Component) Close(_ context.Context) error {
	c.vectors = nil
	c.ids = nil
	return nil
}

// Size returns the number of indexed vectors.
func (c *Component) Size() int { return len(c.vectors) }

func docVector(d *document.Document) []float32 {
	if v := d.Embedding(); v != nil {
		return v
	}
	if d.Kind() == document.KindBlob {
		return d.Blob()
	}
	return nil
}

func topKFrom(directives []request.Directive) int {
	for _, d := range directives {
		if k, ok := d.Params()["top_k"]; ok {
			switch v := k.(type) {
			case int:
				if v > 0 {
					return v
				}
			case float64:
				if v > 0 {
					return int(v)
				}
			}
		}
	}
	return DefaultTopK
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func requestArg(args []any) (*request.Request, error) {
	for _, a := range args {
		if req, ok := a.(*request.Request); ok {
			return req, nil
		}
	}
	return nil, fmt.Errorf("operation needs a request argument: %w", domain.ErrBadDocumentType)
}
