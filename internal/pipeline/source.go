package pipeline

// Source yields caller items one at a time, in order. A source is consumed
// exactly once; enumerating an assembled sequence twice re-consumes it.
type Source interface {
	Next() (any, bool)
}

type sliceSource struct {
	items []any
	pos   int
}

// FromSlice adapts a slice of items into a Source.
func FromSlice(items []any) Source {
	return &sliceSource{items: items}
}

func (s *sliceSource) Next() (any, bool) {
	if s.pos >= len(s.items) {
		return nil, false
	}
	item := s.items[s.pos]
	s.pos++
	return item, true
}

// SourceFunc adapts a pull function into a Source.
type SourceFunc func() (any, bool)

// Next implements Source.
func (f SourceFunc) Next() (any, bool) { return f() }

// FromChannel adapts a channel into a Source. The source stops when the
// channel is closed.
func FromChannel(ch <-chan any) Source {
	return SourceFunc(func() (any, bool) {
		item, ok := <-ch
		return item, ok
	})
}
