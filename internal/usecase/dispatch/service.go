// Package dispatch feeds assembled request sequences into the composite
// router, mapping each request's mode to a lifecycle operation.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/helix-search/helix/internal/composite"
	"github.com/helix-search/helix/internal/domain"
	"github.com/helix-search/helix/internal/domain/request"
	"github.com/helix-search/helix/internal/pipeline"
)

// Invoker is the consumer interface over the composite router.
type Invoker interface {
	Invoke(ctx context.Context, name string, args ...any) (any, error)
}

// Result is the outcome of dispatching one request.
type Result struct {
	Mode   request.Mode `json:"mode"`
	Op     string       `json:"op"`
	Docs   int          `json:"docs"`
	Output any          `json:"output,omitempty"`
}

// Stats summarizes one dispatched sequence.
type Stats struct {
	Requests  int      `json:"requests"`
	Documents int      `json:"documents"`
	Results   []Result `json:"results"`
}

// Service dispatches request sequences through a router.
type Service struct {
	router Invoker
	log    *zap.Logger
}

// New creates a dispatch service.
func New(router Invoker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{router: router, log: log}
}

// Run consumes the sequence one request at a time, invoking the mapped
// operation for each. Production errors and operation failures halt the run.
func (s *Service) Run(ctx context.Context, seq *pipeline.Sequence) (Stats, error) {
	var stats Stats
	for seq.Next() {
		req := seq.Request()
		op := opFor(req)
		out, err := s.invoke(ctx, op, req)
		if err != nil {
			return stats, fmt.Errorf("dispatch %s request: %w", req.Mode(), err)
		}
		stats.Requests++
		stats.Documents += len(req.Docs())
		stats.Results = append(stats.Results, Result{
			Mode:   req.Mode(),
			Op:     string(op),
			Docs:   len(req.Docs()),
			Output: out,
		})
		s.log.Debug("request dispatched",
			zap.String("mode", string(req.Mode())),
			zap.String("op", string(op)),
			zap.Int("docs", len(req.Docs())),
		)
	}
	if err := seq.Err(); err != nil {
		return stats, fmt.Errorf("assemble requests: %w", err)
	}
	return stats, nil
}

// invoke tries the direct operation name first and falls back to the
// auto-aggregate alias when no direct route exists.
func (s *Service) invoke(ctx context.Context, op composite.Op, req *request.Request) (any, error) {
	out, err := s.router.Invoke(ctx, string(op), req)
	if errors.Is(err, domain.ErrNoRoute) {
		return s.router.Invoke(ctx, string(op)+composite.AggregateSuffix, req)
	}
	return out, err
}

// opFor maps a request mode to the lifecycle operation that handles it.
func opFor(req *request.Request) composite.Op {
	if req.Flush() {
		return composite.OpFlush
	}
	switch req.Mode() {
	case request.Train:
		return composite.OpTrain
	case request.Search, request.Evaluate:
		return composite.OpQuery
	default:
		return composite.OpAdd
	}
}
