// Package embedding turns text into vectors through an OpenAI-compatible
// /v1/embeddings endpoint. Every transport or provider failure is wrapped
// in ErrUnavailable so callers can degrade to keyword matching instead of
// failing the request.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable wraps any failure to obtain an embedding: network, HTTP
// status, malformed response. Callers detect it with errors.Is and fall
// back to non-semantic matching.
var ErrUnavailable = errors.New("embedding: provider unavailable")

// Embedder produces fixed-dimension vectors for text.
type Embedder interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the vector size this embedder produces.
	Dimension() int
	// Model names the underlying embedding model.
	Model() string
}

// Config selects and configures the embedding provider. An empty Endpoint
// disables semantic scoring entirely (see Disabled).
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	Dimension int    `yaml:"dimension"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "nomic-embed-text"
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = 30_000
	}
}

// New builds an Embedder from configuration. With no endpoint configured
// it returns a disabled embedder whose calls report ErrUnavailable.
func New(cfg Config) Embedder {
	cfg.defaults()
	if cfg.Endpoint == "" {
		return disabled{model: cfg.Model, dim: cfg.Dimension}
	}
	return newClient(cfg)
}

// disabled is the no-provider embedder: the engine runs, semantic scoring
// is simply reported unavailable.
type disabled struct {
	model string
	dim   int
}

func (d disabled) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
}

func (d disabled) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	_, err := d.Embed(ctx, "")
	return nil, err
}

func (d disabled) Dimension() int { return d.dim }
func (d disabled) Model() string  { return d.model }
