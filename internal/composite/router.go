package composite

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/helix-search/helix/internal/domain"
	"github.com/helix-search/helix/internal/metrics"
)

// Router owns an ordered set of components by exclusive reference and merges
// their operations behind a conflict-resolved route table. The table is built
// once at construction and rebuilt only when components are reassigned;
// stored routes are re-applied after the automatic build and take precedence
// over auto-generated entries of the same name.
type Router struct {
	name        string
	log         *zap.Logger
	policy      ConflictPolicy
	combinators map[Op]Combinator
	store       DescriptorStore

	components []Component
	table      map[string]*routeEntry
	stored     []StoredRoute
	unresolved []string
	updated    bool
}

// Option configures a router at construction.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Router) { r.log = log }
}

// WithPolicy sets the conflict policy (default AutoAggregate).
func WithPolicy(p ConflictPolicy) Option {
	return func(r *Router) { r.policy = p }
}

// WithCombinator overrides the combinator used for one op's auto aggregate
// (default CombineCollect).
func WithCombinator(op Op, c Combinator) Option {
	return func(r *Router) { r.combinators[op] = c }
}

// WithStoredRoutes seeds the stored-routes record, typically from a reloaded
// descriptor. The routes are applied after the automatic table build.
func WithStoredRoutes(routes []StoredRoute) Option {
	return func(r *Router) { r.stored = append(r.stored, routes...) }
}

// WithDescriptorStore sets the persistence collaborator used by Save.
func WithDescriptorStore(s DescriptorStore) Option {
	return func(r *Router) { r.store = s }
}

// New creates a router over the given ordered component list and builds its
// route table. Seeded stored routes referencing unknown components or
// operations fail construction with ErrInvalidComponentSpec.
func New(name string, components []Component, opts ...Option) (*Router, error) {
	r := &Router{
		name:        name,
		log:         zap.NewNop(),
		policy:      AutoAggregate,
		combinators: make(map[Op]Combinator),
		components:  components,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.String("router", name))
	r.buildTable()
	for _, sr := range r.stored {
		if err := r.bindRoute(sr.Name, sr.Component, sr.Op); err != nil {
			return nil, fmt.Errorf("apply stored route %q: %w", sr.Name, err)
		}
	}
	return r, nil
}

// Restore reloads a router from its persisted descriptor: the supplied
// components are reordered to match the descriptor, the table is rebuilt
// deterministically and the stored routes are re-applied without any AddRoute
// call being repeated.
func Restore(
	ctx context.Context, store DescriptorStore, name string,
	components []Component, opts ...Option,
) (*Router, error) {
	desc, err := store.LoadDescriptor(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load descriptor %q: %w", name, err)
	}
	if len(components) != len(desc.Components) {
		return nil, fmt.Errorf("descriptor lists %d components, got %d: %w",
			len(desc.Components), len(components), domain.ErrDescriptorMismatch)
	}
	byName := make(map[string]Component, len(components))
	for _, c := range components {
		if _, dup := byName[c.Name()]; !dup {
			byName[c.Name()] = c
		}
	}
	ordered := make([]Component, 0, len(desc.Components))
	for _, n := range desc.Components {
		c, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("descriptor component %q not supplied: %w", n, domain.ErrDescriptorMismatch)
		}
		ordered = append(ordered, c)
	}
	opts = append(opts,
		WithPolicy(desc.Policy),
		WithStoredRoutes(desc.Routes),
		WithDescriptorStore(store),
	)
	return New(name, ordered, opts...)
}

// buildTable computes the route table from the current component list.
func (r *Router) buildTable() {
	r.table = make(map[string]*routeEntry)
	r.unresolved = nil

	for _, op := range Recognized() {
		var providers []binding
		for _, c := range r.components {
			if fn, ok := c.Ops()[op]; ok && fn != nil {
				providers = append(providers, binding{component: c, op: op})
			}
		}
		switch {
		case len(providers) == 0:
			// name absent from the table
		case len(providers) == 1:
			r.table[string(op)] = &routeEntry{kind: kindDirect, bindings: providers}
		default:
			if r.policy == AutoAggregate {
				name := string(op) + AggregateSuffix
				comb, ok := r.combinators[op]
				if !ok {
					comb = CombineCollect
				}
				r.table[name] = &routeEntry{kind: kindAggregate, bindings: providers, combinator: comb}
				r.log.Debug("aggregate route added",
					zap.String("op", string(op)),
					zap.String("route", name),
					zap.Int("providers", len(providers)),
				)
			} else {
				r.table[string(op)] = &routeEntry{kind: kindUnresolved, bindings: providers}
				r.unresolved = append(r.unresolved, string(op))
				r.log.Warn("operation has multiple providers, resolve it manually before use",
					zap.String("op", string(op)),
					zap.Int("providers", len(providers)),
				)
			}
		}
	}
	sort.Strings(r.unresolved)
	r.observeTable()
}

func (r *Router) observeTable() {
	counts := map[entryKind]int{}
	for _, e := range r.table {
		counts[e.kind]++
	}
	for _, k := range []entryKind{kindDirect, kindAggregate, kindUnresolved} {
		metrics.RouteTableEntries.WithLabelValues(string(k)).Set(float64(counts[k]))
	}
}

// bindRoute binds name to the component's operation, overriding any existing
// entry of the same name. It leaves the table untouched on failure.
func (r *Router) bindRoute(name, componentName string, op Op) error {
	for _, c := range r.components {
		if c.Name() != componentName {
			continue
		}
		fn, ok := c.Ops()[op]
		if !ok || fn == nil {
			break
		}
		r.table[name] = &routeEntry{kind: kindDirect, bindings: []binding{{component: c, op: op}}}
		r.dropUnresolved(name)
		r.observeTable()
		return nil
	}
	return fmt.Errorf("no component %q with operation %q: %w",
		componentName, op, domain.ErrInvalidComponentSpec)
}

func (r *Router) dropUnresolved(name string) {
	for i, u := range r.unresolved {
		if u == name {
			r.unresolved = append(r.unresolved[:i], r.unresolved[i+1:]...)
			return
		}
	}
}

// AddRoute binds newName as a direct alias to the named component's named
// operation. When persist is set, the binding joins the stored-routes record
// (surviving save/reload) and the router's own updated flag is set.
func (r *Router) AddRoute(newName, componentName string, op Op, persist bool) error {
	if err := r.bindRoute(newName, componentName, op); err != nil {
		return err
	}
	if persist {
		r.rememberRoute(StoredRoute{Name: newName, Component: componentName, Op: op})
		r.updated = true
	}
	r.log.Debug("route added",
		zap.String("route", newName),
		zap.String("component", componentName),
		zap.String("op", string(op)),
		zap.Bool("persist", persist),
	)
	return nil
}

// rememberRoute records a stored route, replacing a previous record with the
// same alias name.
func (r *Router) rememberRoute(sr StoredRoute) {
	for i, old := range r.stored {
		if old.Name == sr.Name {
			r.stored[i] = sr
			return
		}
	}
	r.stored = append(r.stored, sr)
}

// Invoke dispatches a merged operation by name.
func (r *Router) Invoke(ctx context.Context, name string, args ...any) (any, error) {
	entry, ok := r.table[name]
	if !ok {
		metrics.RouterInvocationsTotal.WithLabelValues(name, "missing").Inc()
		return nil, fmt.Errorf("operation %q: %w", name, domain.ErrNoRoute)
	}
	out, err := entry.invoke(ctx, name, args...)
	if err != nil {
		metrics.RouterInvocationsTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}
	metrics.RouterInvocationsTotal.WithLabelValues(name, "ok").Inc()
	return out, nil
}

// Routes returns the callable route names in sorted order.
func (r *Router) Routes() []string {
	names := make([]string, 0, len(r.table))
	for name, e := range r.table {
		if e.kind != kindUnresolved {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Unresolved returns operation names awaiting a manual route.
func (r *Router) Unresolved() []string { return r.unresolved }

// StoredRoutes returns the persisted-alias record.
func (r *Router) StoredRoutes() []StoredRoute { return r.stored }

// Trained reports true iff the component list is non-empty and every
// component is trained.
func (r *Router) Trained() bool {
	if len(r.components) == 0 {
		return false
	}
	for _, c := range r.components {
		if !c.Trained() {
			return false
		}
	}
	return true
}

// SetTrained propagates v to every component's trained flag.
func (r *Router) SetTrained(v bool) {
	for _, c := range r.components {
		c.SetTrained(v)
	}
}

// Updated reports true if any component is updated or the router's own
// independent flag is set.
func (r *Router) Updated() bool {
	for _, c := range r.components {
		if c.Updated() {
			return true
		}
	}
	return r.updated
}

// SetUpdated sets only the router's own flag, never the components'.
func (r *Router) SetUpdated(v bool) { r.updated = v }

// Save persists every component (each owns its own persistence), then the
// router's own descriptor. Any component failure aborts the save and the
// descriptor is not written.
func (r *Router) Save(ctx context.Context) error {
	if r.store == nil {
		return fmt.Errorf("router %q has no descriptor store: %w", r.name, domain.ErrPersistenceFailure)
	}
	for _, c := range r.components {
		if err := c.Save(ctx); err != nil {
			return fmt.Errorf("save component %q: %w", c.Name(), errors.Join(domain.ErrPersistenceFailure, err))
		}
	}
	if err := r.store.SaveDescriptor(ctx, r.Descriptor()); err != nil {
		return fmt.Errorf("save descriptor %q: %w", r.name, errors.Join(domain.ErrPersistenceFailure, err))
	}
	return nil
}

// Descriptor snapshots the router's persistable identity.
func (r *Router) Descriptor() Descriptor {
	names := make([]string, len(r.components))
	for i, c := range r.components {
		names[i] = c.Name()
	}
	routes := make([]StoredRoute, len(r.stored))
	copy(routes, r.stored)
	return Descriptor{Name: r.name, Components: names, Routes: routes, Policy: r.policy}
}

// Close closes every component in list order, continuing past failures and
// returning them joined. It is a no-op for an empty component list.
func (r *Router) Close(ctx context.Context) error {
	var errs []error
	for _, c := range r.components {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close component %q: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Name returns the router name.
func (r *Router) Name() string { return r.name }

// Len returns the number of components.
func (r *Router) Len() int { return len(r.components) }

// At returns the component at the given position.
func (r *Router) At(i int) (Component, error) {
	if i < 0 || i >= len(r.components) {
		return nil, fmt.Errorf("index %d of %d components: %w", i, len(r.components), domain.ErrIndexOutOfRange)
	}
	return r.components[i], nil
}

// Get returns the first component whose name matches exactly.
func (r *Router) Get(name string) (Component, error) {
	for _, c := range r.components {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("component %q: %w", name, domain.ErrComponentNotFound)
}

// Contains reports whether a component with the given name exists.
func (r *Router) Contains(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Components returns the component list in order.
func (r *Router) Components() []Component { return r.components }
