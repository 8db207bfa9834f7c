package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/helix-search/helix/internal/composite"
	"github.com/helix-search/helix/internal/domain"
	"github.com/helix-search/helix/internal/domain/document"
	"github.com/helix-search/helix/internal/domain/request"
)

type mockHash struct {
	hsetFn func(ctx context.Context, key string, fields map[string]string) error
	hashes map[string]map[string]string
}

func (m *mockHash) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	if m.hashes == nil {
		m.hashes = make(map[string]map[string]string)
	}
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	for f, v := range fields {
		m.hashes[key][f] = v
	}
	return nil
}

func (m *mockHash) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func embeddedDoc(t *testing.T, id string, vec []float32) *document.Document {
	t.Helper()
	d := document.Reconstruct(id, document.KindText, "text", nil, nil, nil, "", 1)
	d.SetEmbedding(vec)
	return d
}

func addRequest(docs ...*document.Document) *request.Request {
	req := request.New(request.Index)
	for _, d := range docs {
		req.AppendDoc(d)
	}
	return req
}

func TestAdd_IndexesEmbeddings(t *testing.T) {
	c := New("idx", "", &mockHash{}, nil)

	req := addRequest(
		embeddedDoc(t, "a", []float32{1, 0}),
		embeddedDoc(t, "b", []float32{0, 1}),
	)
	out, err := c.Ops()[composite.OpAdd](context.Background(), req)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if out != 2 || c.Size() != 2 {
		t.Errorf("indexed: got %v (size %d), want 2", out, c.Size())
	}
	if !c.Updated() {
		t.Error("add did not set the updated flag")
	}
}

func TestAdd_AcceptsBlobContent(t *testing.T) {
	c := New("idx", "", &mockHash{}, nil)

	d := document.New(document.Options{})
	if err := d.SetBlob([]float32{0.3, 0.4}); err != nil {
		t.Fatalf("set blob: %v", err)
	}
	if _, err := c.Ops()[composite.OpAdd](context.Background(), addRequest(d)); err != nil {
		t.Fatalf("add blob doc: %v", err)
	}
	if c.Size() != 1 {
		t.Errorf("size: got %d, want 1", c.Size())
	}
}

func TestAdd_RejectsVectorlessDoc(t *testing.T) {
	c := New("idx", "", &mockHash{}, nil)

	d := document.New(document.Options{})
	if err := d.SetText("no vector"); err != nil {
		t.Fatalf("set text: %v", err)
	}
	_, err := c.Ops()[composite.OpAdd](context.Background(), addRequest(d))
	if !errors.Is(err, domain.ErrBadDocumentType) {
		t.Errorf("got %v, want ErrBadDocumentType", err)
	}
}

func TestQuery_RanksByCosine(t *testing.T) {
	c := New("idx", "", &mockHash{}, nil)

	seed := addRequest(
		embeddedDoc(t, "east", []float32{1, 0}),
		embeddedDoc(t, "north", []float32{0, 1}),
		embeddedDoc(t, "northeast", []float32{1, 1}),
	)
	if _, err := c.Ops()[composite.OpAdd](context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	q := request.New(request.Search)
	q.AppendDoc(embeddedDoc(t, "q1", []float32{1, 0.1}))

	out, err := c.Ops()[composite.OpQuery](context.Background(), q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	results, ok := out.([]QueryResult)
	if !ok || len(results) != 1 {
		t.Fatalf("results: got %T %v", out, out)
	}
	matches := results[0].Matches
	if len(matches) != 3 {
		t.Fatalf("matches: got %d, want 3", len(matches))
	}
	if matches[0].ID != "east" {
		t.Errorf("best match: got %q, want east", matches[0].ID)
	}
	if matches[2].ID != "north" {
		t.Errorf("worst match: got %q, want north", matches[2].ID)
	}
}

func TestQuery_HonorsTopKDirective(t *testing.T) {
	c := New("idx", "", &mockHash{}, nil)

	docs := make([]*document.Document, 5)
	for i := range docs {
		docs[i] = embeddedDoc(t, string(rune('a'+i)), []float32{float32(i + 1), 1})
	}
	if _, err := c.Ops()[composite.OpAdd](context.Background(), addRequest(docs...)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	q := request.New(request.Search)
	q.AppendDoc(embeddedDoc(t, "q1", []float32{1, 0}))
	q.AppendDirectives(request.TopK(2))

	out, err := c.Ops()[composite.OpQuery](context.Background(), q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	results := out.([]QueryResult)
	if len(results[0].Matches) != 2 {
		t.Errorf("matches: got %d, want 2", len(results[0].Matches))
	}
}

func TestQuery_FloatTopKParam(t *testing.T) {
	// Directives decoded from JSON carry numbers as float64.
	got := topKFrom([]request.Directive{
		request.NewDirective("vector-search", 1, map[string]any{"top_k": float64(3)}),
	})
	if got != 3 {
		t.Errorf("top-k: got %d, want 3", got)
	}
	if got := topKFrom(nil); got != DefaultTopK {
		t.Errorf("default top-k: got %d, want %d", got, DefaultTopK)
	}
}

func TestTrain_IndexesAndMarksTrained(t *testing.T) {
	c := New("idx", "", &mockHash{}, nil)
	if c.Trained() {
		t.Fatal("fresh index reports trained")
	}

	req := request.New(request.Train)
	req.AppendDoc(embeddedDoc(t, "a", []float32{1}))

	out, err := c.Ops()[composite.OpTrain](context.Background(), req)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if out != 1 || !c.Trained() {
		t.Errorf("train: got %v, trained=%v", out, c.Trained())
	}
}

func TestFlush_PersistsAndClearsUpdated(t *testing.T) {
	store := &mockHash{}
	c := New("idx", "pfx:", store, nil)

	req := addRequest(embeddedDoc(t, "a", []float32{1, 2}))
	if _, err := c.Ops()[composite.OpAdd](context.Background(), req); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := c.Ops()[composite.OpFlush](context.Background(), request.NewFlush()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if c.Updated() {
		t.Error("updated flag not cleared by flush")
	}
	if _, ok := store.hashes["pfx:vectors:idx"]["a"]; !ok {
		t.Errorf("vector not persisted, hashes: %v", store.hashes)
	}
}

func TestDump_KeepsUpdatedFlag(t *testing.T) {
	store := &mockHash{}
	c := New("idx", "", store, nil)

	if _, err := c.Ops()[composite.OpAdd](context.Background(),
		addRequest(embeddedDoc(t, "a", []float32{1}))); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := c.Ops()[composite.OpDump](context.Background()); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !c.Updated() {
		t.Error("dump cleared the updated flag")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &mockHash{}

	c := New("idx", "", store, nil)
	seed := addRequest(
		embeddedDoc(t, "a", []float32{1, 0}),
		embeddedDoc(t, "b", []float32{0, 1}),
	)
	if _, err := c.Ops()[composite.OpAdd](ctx, seed); err != nil {
		t.Fatalf("add: %v", err)
	}
	c.SetTrained(true)
	if err := c.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := New("idx", "", store, nil)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Size() != 2 {
		t.Errorf("size after load: got %d, want 2", reloaded.Size())
	}
	if !reloaded.Trained() {
		t.Error("trained flag lost on reload")
	}

	q := request.New(request.Search)
	q.AppendDoc(embeddedDoc(t, "q", []float32{1, 0}))
	out, err := reloaded.Ops()[composite.OpQuery](ctx, q)
	if err != nil {
		t.Fatalf("query after load: %v", err)
	}
	if results := out.([]QueryResult); results[0].Matches[0].ID != "a" {
		t.Errorf("best match after reload: got %q, want a", results[0].Matches[0].ID)
	}
}

func TestPersistFailure(t *testing.T) {
	boom := errors.New("store down")
	store := &mockHash{
		hsetFn: func(context.Context, string, map[string]string) error { return boom },
	}
	c := New("idx", "", store, nil)
	if _, err := c.Ops()[composite.OpAdd](context.Background(),
		addRequest(embeddedDoc(t, "a", []float32{1}))); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := c.Ops()[composite.OpFlush](context.Background()); !errors.Is(err, boom) {
		t.Errorf("flush: got %v, want store error", err)
	}
	if !c.Updated() {
		t.Error("updated flag cleared despite persist failure")
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("identical vectors: got %v, want 1", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: got %v, want 0", got)
	}
	if got := cosine([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector: got %v, want 0", got)
	}
}
