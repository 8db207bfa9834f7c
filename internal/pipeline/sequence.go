package pipeline

import "github.com/helix-search/helix/internal/domain/request"

// Sequence is a lazy, pull-driven stream of assembled requests. Nothing is
// computed ahead of demand and the sequence is not restartable.
//
//	for seq.Next() {
//		handle(seq.Request())
//	}
//	if err := seq.Err(); err != nil { ... }
type Sequence struct {
	pull func() (*request.Request, error)
	cur  *request.Request
	err  error
	done bool
}

// newSequence wraps a pull function. pull returns (nil, nil) when exhausted.
func newSequence(pull func() (*request.Request, error)) *Sequence {
	return &Sequence{pull: pull}
}

// Next advances to the next request. It returns false when the sequence is
// exhausted or production failed; check Err afterwards.
func (s *Sequence) Next() bool {
	if s.done {
		return false
	}
	req, err := s.pull()
	if err != nil {
		s.err = err
		s.done = true
		s.cur = nil
		return false
	}
	if req == nil {
		s.done = true
		s.cur = nil
		return false
	}
	s.cur = req
	return true
}

// Request returns the request produced by the last successful Next.
func (s *Sequence) Request() *request.Request { return s.cur }

// Err returns the error that halted production, if any.
func (s *Sequence) Err() error { return s.err }

// Collect drains the remainder of the sequence into a slice.
func (s *Sequence) Collect() ([]*request.Request, error) {
	var out []*request.Request
	for s.Next() {
		out = append(out, s.Request())
	}
	return out, s.Err()
}
