package base

import (
	"github.com/docker/docqa/pkg/config"
	"github.com/docker/docqa/pkg/environment"
	"github.com/docker/docqa/pkg/model/provider/options"
)

// Config is a common base configuration shared by all provider clients.
// It is embedded in provider-specific Client structs.
type Config struct {
	ModelConfig  config.ModelConfig
	ModelOptions options.ModelOptions
	Env          environment.Provider
}

// ID returns the provider and model ID in the format "provider/model"
func (c *Config) ID() string {
	return c.ModelConfig.Provider + "/" + c.ModelConfig.Model
}

// EmbeddingResult contains the embedding and usage information
type EmbeddingResult struct {
	Embedding   []float32
	InputTokens int64
	TotalTokens int64
}

// BatchEmbeddingResult contains multiple embeddings and usage information
type BatchEmbeddingResult struct {
	Embeddings  [][]float32
	InputTokens int64
	TotalTokens int64
}

// ToFloat32 converts an API embedding to the float32 vectors used by the index.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
