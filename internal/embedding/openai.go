package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/kotae/pkg/utils"
)

// embedBatchLimit bounds how many inputs a single embeddings request carries.
const embedBatchLimit = 64

// modelDimensions maps known OpenAI embedding models to their vector width.
var modelDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIOptions configures the OpenAI-backed embedder.
type OpenAIOptions struct {
	APIKey string
	// BaseURL overrides the API endpoint, for proxies and compatible servers.
	BaseURL string
	// Model defaults to text-embedding-3-small.
	Model string
	// Dimensions overrides the model's vector width. Required for models not
	// in the built-in table.
	Dimensions int
	// CacheSize is the LRU capacity in entries. Defaults to 1024.
	CacheSize int
	// RequestsPerSecond throttles API calls. Defaults to 3.
	RequestsPerSecond float64
	// Burst is the limiter's burst allowance. Defaults to 5.
	Burst int
}

// OpenAIEmbedder calls the OpenAI embeddings API and normalizes every vector
// to unit length, so cosine similarity downstream reduces to a dot product.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	dims    int
	cache   *Cache
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAIEmbedder validates opts and builds the API client. No request is
// made until the first Embed call.
func NewOpenAIEmbedder(opts OpenAIOptions, logger *zap.Logger) (*OpenAIEmbedder, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	model := opts.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	dims := opts.Dimensions
	if dims <= 0 {
		known, ok := modelDimensions[model]
		if !ok {
			return nil, fmt.Errorf("unknown embedding model %q: set dimensions explicitly", model)
		}
		dims = known
	}

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 5
	}

	var client *openai.Client
	if opts.BaseURL != "" {
		cfg := openai.DefaultConfig(opts.APIKey)
		cfg.BaseURL = opts.BaseURL
		client = openai.NewClientWithConfig(cfg)
	} else {
		client = openai.NewClient(opts.APIKey)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIEmbedder{
		client:  client,
		model:   model,
		dims:    dims,
		cache:   NewCache(cacheSize),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}, nil
}

// Embed returns the unit-length embedding for text, from cache when possible.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbedding)
	}

	emb := resp.Data[0].Embedding
	if len(emb) != e.dims {
		return nil, fmt.Errorf("%w: vector dimension mismatch: got %d, expected %d", ErrEmbedding, len(emb), e.dims)
	}

	utils.NormalizeL2(emb)
	e.cache.Set(text, emb)
	return emb, nil
}

// EmbedBatch embeds texts in request batches of embedBatchLimit, serving
// cached entries without an API call. Output order matches input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	for start := 0; start < len(missTexts); start += embedBatchLimit {
		end := min(start+embedBatchLimit, len(missTexts))

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: missTexts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbedding, len(resp.Data), end-start)
		}

		for j, data := range resp.Data {
			emb := data.Embedding
			if len(emb) != e.dims {
				return nil, fmt.Errorf("%w: vector dimension mismatch: got %d, expected %d", ErrEmbedding, len(emb), e.dims)
			}
			utils.NormalizeL2(emb)
			e.cache.Set(missTexts[start+j], emb)
			out[missIdx[start+j]] = emb
		}
	}

	e.logger.Debug("embedded batch",
		zap.Int("texts", len(texts)),
		zap.Int("cache_hits", len(texts)-len(missTexts)))
	return out, nil
}

// Dimensions returns the embedding width.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// Close is a no-op; the underlying HTTP client needs no shutdown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
