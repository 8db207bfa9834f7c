package request

// TopKPriority is the fixed priority of the auto-injected result-limit directive.
const TopKPriority = 1

// Directive is an out-of-band instruction attached to a request that steers
// downstream processing, e.g. result-count limiting for a ranking stage.
type Directive struct {
	name     string
	priority int
	params   map[string]any
}

// NewDirective creates a query directive.
func NewDirective(name string, priority int, params map[string]any) Directive {
	return Directive{name: name, priority: priority, params: params}
}

// TopK creates the directive instructing a downstream search stage to limit
// results to k entries.
func TopK(k int) Directive {
	return NewDirective("vector-search", TopKPriority, map[string]any{"top_k": k})
}

// Name returns the directive name.
func (d Directive) Name() string { return d.name }

// Priority returns the directive priority.
func (d Directive) Priority() int { return d.priority }

// Params returns the directive parameters.
func (d Directive) Params() map[string]any { return d.params }
