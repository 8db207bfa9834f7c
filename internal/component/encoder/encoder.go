// Package encoder is the embedding component: it vectorizes text documents
// in place as requests fan out through the composite router.
package encoder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/helix-search/helix/internal/composite"
	"github.com/helix-search/helix/internal/domain"
	"github.com/helix-search/helix/internal/domain/document"
	"github.com/helix-search/helix/internal/domain/request"
	"github.com/helix-search/helix/internal/metrics"
)

// embeddingClient is the consumer interface over the OpenAI-compatible client.
type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// kvStore persists the encoder's descriptor record.
type kvStore interface {
	Set(ctx context.Context, key string, value []byte) error
}

// Config holds the embedding provider settings.
type Config struct {
	Name       string
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	KeyPrefix  string
	Logger     *zap.Logger
}

// Component embeds text documents via an OpenAI-compatible API.
type Component struct {
	*composite.Base
	client     embeddingClient
	store      kvStore
	model      openai.EmbeddingModel
	dimensions int
	keyPrefix  string
	log        *zap.Logger
}

var _ composite.Component = (*Component)(nil)

// New creates an encoder component.
func New(cfg Config, store kvStore) *Component {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Component{
		Base:       composite.NewBase(cfg.Name),
		client:     openai.NewClientWithConfig(clientCfg),
		store:      store,
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		keyPrefix:  cfg.KeyPrefix,
		log:        log.With(zap.String("component", cfg.Name)),
	}
	// A hosted embedding model needs no local training.
	c.SetTrained(true)
	c.RegisterOp(composite.OpEncode, c.encode)
	c.RegisterOp(composite.OpAdd, c.encode)
	c.RegisterOp(composite.OpQuery, c.encode)
	return c
}

// NewForTest creates an encoder with the provided client (test-only).
func NewForTest(name string, client embeddingClient, store kvStore) *Component {
	c := &Component{
		Base:   composite.NewBase(name),
		client: client,
		store:  store,
		model:  openai.SmallEmbedding3,
		log:    zap.NewNop(),
	}
	c.SetTrained(true)
	c.RegisterOp(composite.OpEncode, c.encode)
	c.RegisterOp(composite.OpAdd, c.encode)
	c.RegisterOp(composite.OpQuery, c.encode)
	return c
}

// encode vectorizes every text document in the request that has no embedding
// yet. It returns the number of documents embedded.
func (c *Component) encode(ctx context.Context, args ...any) (any, error) {
	req, err := requestArg(args)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, d := range append(req.Docs(), req.GroundTruths()...) {
		if d.Kind() != document.KindText || d.Embedding() != nil {
			continue
		}
		vec, err := c.embed(ctx, d.Text())
		if err != nil {
			return nil, fmt.Errorf("embed document %s: %w", d.ID(), err)
		}
		d.SetEmbedding(vec)
		n++
	}
	return n, nil
}

func (c *Component) embed(ctx context.Context, text string) ([]float32, error) {
	embReq := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		embReq.Dimensions = c.dimensions
	}

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, embReq)
	duration := time.Since(start)

	if err != nil {
		metrics.EncoderRequestsTotal.WithLabelValues(string(c.model), "error").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrEncoderError, err)
	}
	if len(resp.Data) == 0 {
		metrics.EncoderRequestsTotal.WithLabelValues(string(c.model), "error").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrEncoderError)
	}

	metrics.EncoderRequestsTotal.WithLabelValues(string(c.model), "success").Inc()
	metrics.EncoderRequestDuration.WithLabelValues(string(c.model)).Observe(duration.Seconds())

	return resp.Data[0].Embedding, nil
}

// Save persists the encoder's descriptor record.
func (c *Component) Save(ctx context.Context) error {
	rec := map[string]any{
		"name":       c.Name(),
		"model":      string(c.model),
		"dimensions": c.dimensions,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode encoder record: %w", err)
	}
	if err := c.store.Set(ctx, c.keyPrefix+"component:"+c.Name(), data); err != nil {
		return fmt.Errorf("save encoder %s: %w", c.Name(), err)
	}
	c.SetUpdated(false)
	return nil
}

// Close releases nothing: the HTTP client holds no persistent resources.
func (c *Component) Close(_ context.Context) error { return nil }

// requestArg extracts the request argument an operation was invoked with.
func requestArg(args []any) (*request.Request, error) {
	for _, a := range args {
		if req, ok := a.(*request.Request); ok {
			return req, nil
		}
	}
	return nil, fmt.Errorf("operation needs a request argument: %w", domain.ErrBadDocumentType)
}
