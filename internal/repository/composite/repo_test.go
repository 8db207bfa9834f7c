package composite

import (
	"context"
	"errors"
	"testing"

	"github.com/helix-search/helix/internal/composite"
	"github.com/helix-search/helix/internal/db"
	"github.com/helix-search/helix/internal/domain"
)

type mockStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
	keys  map[string][]byte
}

func newMockStore() *mockStore {
	return &mockStore{keys: make(map[string][]byte)}
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	data, ok := m.keys[key]
	if !ok {
		return nil, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
	}
	return data, nil
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	m.keys[key] = value
	return nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.keys[key]
	return ok, nil
}

func descriptor() composite.Descriptor {
	return composite.Descriptor{
		Name:       "ingest",
		Components: []string{"encoder", "vecidx"},
		Routes:     []composite.StoredRoute{{Name: "lookup", Component: "vecidx", Op: composite.OpQuery}},
		Policy:     composite.AutoAggregate,
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	repo := New(store, "helix:")

	if err := repo.SaveDescriptor(ctx, descriptor()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := store.keys["helix:router:ingest"]; !ok {
		t.Fatalf("descriptor key missing, keys: %v", store.keys)
	}

	got, err := repo.LoadDescriptor(ctx, "ingest")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := descriptor()
	if got.Name != want.Name || got.Policy != want.Policy {
		t.Errorf("identity: got %q/%q", got.Name, got.Policy)
	}
	if len(got.Components) != 2 || got.Components[0] != "encoder" {
		t.Errorf("components: got %v", got.Components)
	}
	if len(got.Routes) != 1 || got.Routes[0].Op != composite.OpQuery {
		t.Errorf("routes: got %v", got.Routes)
	}
}

func TestSaveDescriptor_RequiresName(t *testing.T) {
	repo := New(newMockStore(), "")
	err := repo.SaveDescriptor(context.Background(), composite.Descriptor{})
	if !errors.Is(err, domain.ErrPersistenceFailure) {
		t.Errorf("got %v, want ErrPersistenceFailure", err)
	}
}

func TestLoadDescriptor_NotFound(t *testing.T) {
	repo := New(newMockStore(), "")
	_, err := repo.LoadDescriptor(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrComponentNotFound) {
		t.Errorf("got %v, want ErrComponentNotFound", err)
	}
}

func TestLoadDescriptor_StoreFailure(t *testing.T) {
	boom := errors.New("connection reset")
	store := newMockStore()
	store.getFn = func(context.Context, string) ([]byte, error) { return nil, boom }
	repo := New(store, "")

	_, err := repo.LoadDescriptor(context.Background(), "ingest")
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want the store error", err)
	}
}

func TestHasAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := New(newMockStore(), "")

	ok, err := repo.HasDescriptor(ctx, "ingest")
	if err != nil || ok {
		t.Fatalf("has before save: %v, %v", ok, err)
	}

	if err := repo.SaveDescriptor(ctx, descriptor()); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err = repo.HasDescriptor(ctx, "ingest")
	if err != nil || !ok {
		t.Fatalf("has after save: %v, %v", ok, err)
	}

	if err := repo.DeleteDescriptor(ctx, "ingest"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = repo.HasDescriptor(ctx, "ingest")
	if err != nil || ok {
		t.Fatalf("has after delete: %v, %v", ok, err)
	}
}
