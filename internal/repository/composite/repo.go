// Package composite persists router descriptors in the key-value store.
package composite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/helix-search/helix/internal/composite"
	"github.com/helix-search/helix/internal/db"
	"github.com/helix-search/helix/internal/domain"
)

// store is the consumer interface for descriptor persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo implements composite.DescriptorStore over a key-value store.
type Repo struct {
	store     store
	keyPrefix string
}

// Compile-time check: Repo implements composite.DescriptorStore.
var _ composite.DescriptorStore = (*Repo)(nil)

// New creates a descriptor repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

func (r *Repo) key(name string) string {
	return r.keyPrefix + "router:" + name
}

// SaveDescriptor writes the router descriptor as one JSON record.
func (r *Repo) SaveDescriptor(ctx context.Context, d composite.Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("descriptor name is required: %w", domain.ErrPersistenceFailure)
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode descriptor %s: %w", d.Name, err)
	}
	if err := r.store.Set(ctx, r.key(d.Name), data); err != nil {
		return fmt.Errorf("store descriptor %s: %w", d.Name, err)
	}
	return nil
}

// LoadDescriptor reads a router descriptor by name.
func (r *Repo) LoadDescriptor(ctx context.Context, name string) (composite.Descriptor, error) {
	data, err := r.store.Get(ctx, r.key(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return composite.Descriptor{}, fmt.Errorf("descriptor %s: %w", name, domain.ErrComponentNotFound)
		}
		return composite.Descriptor{}, fmt.Errorf("load descriptor %s: %w", name, err)
	}
	var d composite.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return composite.Descriptor{}, fmt.Errorf("decode descriptor %s: %w", name, err)
	}
	return d, nil
}

// DeleteDescriptor removes a persisted descriptor.
func (r *Repo) DeleteDescriptor(ctx context.Context, name string) error {
	if err := r.store.Del(ctx, r.key(name)); err != nil {
		return fmt.Errorf("delete descriptor %s: %w", name, err)
	}
	return nil
}

// HasDescriptor checks whether a descriptor is persisted.
func (r *Repo) HasDescriptor(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.Exists(ctx, r.key(name))
	if err != nil {
		return false, fmt.Errorf("check descriptor %s: %w", name, err)
	}
	return ok, nil
}
