package composite

import "context"

// OpFunc is a routable operation: it takes optional arguments and either
// produces a result or fails.
type OpFunc func(ctx context.Context, args ...any) (any, error)

// Capabilities maps operation names to their callables. It is populated at
// component construction; the router never introspects components at runtime.
type Capabilities map[Op]OpFunc

// Component is the unit contract the router composes: a name unique within a
// composition, trained/updated flags, a capability descriptor over the
// recognized vocabulary, and self-owned persistence and teardown.
type Component interface {
	Name() string
	Trained() bool
	SetTrained(bool)
	Updated() bool
	SetUpdated(bool)
	Ops() Capabilities
	Save(ctx context.Context) error
	Close(ctx context.Context) error
}

// Base carries the name, flags and capability registration shared by
// concrete components. Embed it and register ops in the constructor.
type Base struct {
	name    string
	trained bool
	updated bool
	ops     Capabilities
}

// NewBase creates the shared component state.
func NewBase(name string) *Base {
	return &Base{name: name, ops: make(Capabilities)}
}

// Name returns the component name.
func (b *Base) Name() string { return b.name }

// Trained reports the trained flag.
func (b *Base) Trained() bool { return b.trained }

// SetTrained sets the trained flag.
func (b *Base) SetTrained(v bool) { b.trained = v }

// Updated reports the updated flag.
func (b *Base) Updated() bool { return b.updated }

// SetUpdated sets the updated flag.
func (b *Base) SetUpdated(v bool) { b.updated = v }

// Ops returns the capability descriptor.
func (b *Base) Ops() Capabilities { return b.ops }

// RegisterOp records a callable for a recognized operation. Unrecognized ops
// are ignored: they can never be routed.
func (b *Base) RegisterOp(op Op, fn OpFunc) {
	if !op.IsValid() || fn == nil {
		return
	}
	b.ops[op] = fn
}
