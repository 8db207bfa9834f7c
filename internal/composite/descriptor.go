package composite

import "context"

// StoredRoute is one explicit alias retained across save/reload cycles.
type StoredRoute struct {
	Name      string `json:"name"`
	Component string `json:"component"`
	Op        Op     `json:"op"`
}

// Descriptor is the persisted identity of a router: the ordered component
// list, the stored-routes record and the conflict policy. Component state
// itself is persisted by each component, not here.
type Descriptor struct {
	Name       string         `json:"name"`
	Components []string       `json:"components"`
	Routes     []StoredRoute  `json:"routes,omitempty"`
	Policy     ConflictPolicy `json:"policy"`
}

// DescriptorStore persists router descriptors. The byte-level format belongs
// to the implementation.
type DescriptorStore interface {
	SaveDescriptor(ctx context.Context, d Descriptor) error
	LoadDescriptor(ctx context.Context, name string) (Descriptor, error)
}
