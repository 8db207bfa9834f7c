package pipeline

import (
	"go.uber.org/zap"

	"github.com/helix-search/helix/internal/domain/document"
	"github.com/helix-search/helix/internal/domain/request"
	"github.com/helix-search/helix/internal/metrics"
)

// Options control one assembly run.
type Options struct {
	// BatchSize is the fixed chunk size; 0 means one unbounded batch.
	BatchSize int
	// Type is the initial content-type hint for item resolution.
	Type InputType
	// KeepIDs disables id regeneration on strictly parsed documents.
	// By default parsed ids are regenerated.
	KeepIDs bool
	// MimeType and Weight are applied to documents built on the fallback path.
	MimeType string
	Weight   float64
	// Directives are appended, in order, to every assembled request.
	Directives []request.Directive
	// TopK, when positive, makes Search inject a result-limit directive.
	TopK int
}

func (o Options) withDefaults() Options {
	// A negative size would end every batch at zero items and drop the
	// stream; treat it as unbounded.
	if o.BatchSize < 0 {
		o.BatchSize = 0
	}
	if o.Type == "" {
		o.Type = TypeAuto
	}
	if o.Weight == 0 {
		o.Weight = document.DefaultWeight
	}
	return o
}

// Assembler batches resolved documents into request envelopes, per mode.
type Assembler struct {
	log *zap.Logger
}

// NewAssembler creates a request assembler.
func NewAssembler(log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{log: log}
}

// Index yields the batched requests unmodified.
func (a *Assembler) Index(src Source, opts Options) *Sequence {
	return a.assemble(src, request.Index, opts)
}

// Evaluate yields the batched requests unmodified.
func (a *Assembler) Evaluate(src Source, opts Options) *Sequence {
	return a.assemble(src, request.Evaluate, opts)
}

// Train yields the batched requests followed by one synthetic flush request
// that signals training completion to the downstream consumer.
func (a *Assembler) Train(src Source, opts Options) *Sequence {
	inner := a.assemble(src, request.Train, opts)
	flushed := false
	return newSequence(func() (*request.Request, error) {
		if inner.Next() {
			return inner.Request(), nil
		}
		if err := inner.Err(); err != nil {
			return nil, err
		}
		if flushed {
			return nil, nil
		}
		flushed = true
		a.log.Debug("training stream exhausted, emitting flush request")
		metrics.RequestsAssembledTotal.WithLabelValues(string(request.Control)).Inc()
		return request.NewFlush(), nil
	})
}

// Search yields the batched requests. When opts.TopK is positive, one
// result-limit directive is appended to the caller's directive list before
// batching begins, so it is attached to every request.
func (a *Assembler) Search(src Source, opts Options) *Sequence {
	if opts.TopK > 0 {
		opts.Directives = append(opts.Directives, request.TopK(opts.TopK))
		a.log.Debug("injected top-k directive", zap.Int("top_k", opts.TopK))
	}
	return a.assemble(src, request.Search, opts)
}

// assemble is the common batching loop. The resolved content type is tracked
// across the entire remaining stream, including across batch boundaries: once
// the first AUTO item resolves to DOCUMENT or CONTENT, every later item is
// resolved under that fixed type and never re-probed. Kept for compatibility
// with existing producers.
func (a *Assembler) assemble(src Source, mode request.Mode, opts Options) *Sequence {
	opts = opts.withDefaults()
	docOpts := document.Options{
		MimeType:   opts.MimeType,
		Weight:     opts.Weight,
		LengthHint: opts.BatchSize,
	}
	tracked := opts.Type
	exhausted := false

	return newSequence(func() (*request.Request, error) {
		if exhausted {
			return nil, nil
		}
		req := request.New(mode)
		n := 0
		for opts.BatchSize == 0 || n < opts.BatchSize {
			item, ok := src.Next()
			if !ok {
				exhausted = true
				break
			}
			if pair, isPair := item.(Pair); isPair {
				d, resolved, err := BuildDocument(pair.Primary, tracked, !opts.KeepIDs, docOpts)
				if err != nil {
					return nil, err
				}
				tracked = resolved
				// The ground truth reuses the primary's resolution outright,
				// never re-inferred independently.
				gt, _, err := BuildDocument(pair.GroundTruth, tracked, !opts.KeepIDs, docOpts)
				if err != nil {
					return nil, err
				}
				req.AppendDoc(d)
				req.AppendGroundTruth(gt)
				metrics.DocumentsBuiltTotal.WithLabelValues(string(resolved)).Add(2)
			} else {
				d, resolved, err := BuildDocument(item, tracked, !opts.KeepIDs, docOpts)
				if err != nil {
					return nil, err
				}
				tracked = resolved
				req.AppendDoc(d)
				metrics.DocumentsBuiltTotal.WithLabelValues(string(resolved)).Inc()
			}
			n++
		}
		if n == 0 {
			return nil, nil
		}
		req.AppendDirectives(opts.Directives...)
		metrics.RequestsAssembledTotal.WithLabelValues(string(mode)).Inc()
		return req, nil
	})
}
