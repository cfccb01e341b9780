package embedding

import (
	"fmt"

	"go.uber.org/zap"
)

// Options selects and configures an embedding provider.
type Options struct {
	// Provider is "openai" or "mock". Empty selects openai.
	Provider string

	APIKey            string
	BaseURL           string
	Model             string
	Dimensions        int
	CacheSize         int
	RequestsPerSecond float64
	Burst             int
}

// NewEmbedder builds the provider named in opts.
func NewEmbedder(opts Options, logger *zap.Logger) (Embedder, error) {
	switch opts.Provider {
	case "openai", "":
		return NewOpenAIEmbedder(OpenAIOptions{
			APIKey:            opts.APIKey,
			BaseURL:           opts.BaseURL,
			Model:             opts.Model,
			Dimensions:        opts.Dimensions,
			CacheSize:         opts.CacheSize,
			RequestsPerSecond: opts.RequestsPerSecond,
			Burst:             opts.Burst,
		}, logger)

	case "mock":
		return NewMockEmbedder(opts.Dimensions), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, mock)", opts.Provider)
	}
}
