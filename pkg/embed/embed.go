// Package embed provides the embeddings backend abstraction used
// everywhere a piece of text needs a vector: the taxonomy store's label
// and query embeddings and the dense retriever's query embeddings.
//
// Two backends are supported, matching the original service:
//
//   - "placeholder": a deterministic PRNG-derived vector with no external
//     dependency. Same text always yields the same vector; different runs
//     of the process agree with each other.
//   - "st": a model-backed embedder that calls out to a local embeddings
//     HTTP service (the same Ollama-style JSON-over-HTTP contract NornicDB
//     used for its embedding clients), standing in for a real
//     sentence-transformers model.
//
// If the "st" backend fails to initialize or reach its server, New falls
// back to "placeholder" and reports the downgrade rather than failing —
// embeddings are a relevance signal, not a correctness requirement, so a
// missing model should degrade search quality, not take the service down.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"
)

// Embedder generates a vector embedding for a single piece of text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Dimension() int
	BackendName() string
}

// Config configures the embeddings backend.
type Config struct {
	// Backend selects "placeholder" or "st". Any other value is treated
	// as "placeholder".
	Backend string

	// Dimensions is the placeholder backend's vector length. Ignored by
	// "st", which reports the dimension its first successful call
	// discovers.
	Dimensions int

	// APIURL/APIPath/Model configure the "st" backend's HTTP client.
	APIURL  string
	APIPath string
	Model   string
	Timeout time.Duration
}

// DefaultConfig returns the placeholder backend at the original service's
// default dimensionality.
func DefaultConfig() Config {
	return Config{Backend: "placeholder", Dimensions: 768}
}

// DefaultModelConfig returns an "st" backend pointed at a local embeddings
// server, analogous to NornicDB's DefaultOllamaConfig.
func DefaultModelConfig() Config {
	return Config{
		Backend: "st",
		APIURL:  "http://localhost:11434",
		APIPath: "/api/embeddings",
		Model:   "sentence-transformers/all-MiniLM-L6-v2",
		Timeout: 30 * time.Second,
	}
}

// New builds an Embedder from cfg. When cfg.Backend is "st", it probes the
// model server with a single throwaway embed call; on any failure it logs
// nothing itself (the caller decides how to report it) and returns a
// placeholder Embedder instead, with downgraded=true.
func New(cfg Config) (embedder Embedder, downgraded bool, err error) {
	if cfg.Backend != "st" {
		return newPlaceholder(cfg.Dimensions), false, nil
	}

	model := newModelEmbedder(cfg)
	probeCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if _, probeErr := model.embedCtx(probeCtx, "_probe_"); probeErr != nil {
		return newPlaceholder(cfg.Dimensions), true, nil
	}
	return model, false, nil
}

// placeholderEmbedder is the deterministic PRNG-derived backend: the same
// text always seeds the same stream, so repeated calls (and repeated
// process runs) agree.
type placeholderEmbedder struct {
	dim int
}

func newPlaceholder(dim int) *placeholderEmbedder {
	if dim <= 0 {
		dim = 768
	}
	return &placeholderEmbedder{dim: dim}
}

func (p *placeholderEmbedder) Dimension() int    { return p.dim }
func (p *placeholderEmbedder) BackendName() string { return "placeholder" }

// Embed seeds a PRNG from text's 32-bit FNV-1a hash and draws p.dim
// samples from a standard normal distribution via Box-Muller — the same
// shape as the original's np.random.default_rng(...).normal(...).
func (p *placeholderEmbedder) Embed(text string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum32())))

	out := make([]float32, p.dim)
	for i := 0; i < p.dim; i += 2 {
		u1, u2 := rng.Float64(), rng.Float64()
		if u1 <= 0 {
			u1 = 1e-12
		}
		r := math.Sqrt(-2 * math.Log(u1))
		z0 := r * math.Cos(2*math.Pi*u2)
		out[i] = float32(z0)
		if i+1 < p.dim {
			z1 := r * math.Sin(2*math.Pi*u2)
			out[i+1] = float32(z1)
		}
	}
	return out, nil
}

// modelEmbedder calls a local embeddings HTTP server with the same
// JSON-over-HTTP shape NornicDB's OllamaEmbedder used, standing in for a
// real sentence-transformers model.
type modelEmbedder struct {
	cfg    Config
	client *http.Client
	dim    atomic.Int32
}

func newModelEmbedder(cfg Config) *modelEmbedder {
	return &modelEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (m *modelEmbedder) Dimension() int      { return int(m.dim.Load()) }
func (m *modelEmbedder) BackendName() string { return "st" }

func (m *modelEmbedder) Embed(text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()
	return m.embedCtx(ctx, text)
}

type modelRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type modelResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (m *modelEmbedder) embedCtx(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(modelRequest{Model: m.cfg.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	url := m.cfg.APIURL + m.cfg.APIPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed: server returned %d: %s", resp.StatusCode, string(b))
	}

	var out modelResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	m.dim.CompareAndSwap(0, int32(len(out.Embedding)))
	return out.Embedding, nil
}
