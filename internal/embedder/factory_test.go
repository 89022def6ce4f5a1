package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantProvider string
		wantDim      int
		wantErr      error
	}{
		{
			name:         "local provider",
			cfg:          Config{Provider: ProviderLocal},
			wantProvider: ProviderLocal,
			wantDim:      LocalDimension,
		},
		{
			name:         "local provider with dimension and cache",
			cfg:          Config{Provider: "LOCAL", Dimension: 16, CacheSize: 10, RatePerSecond: 100},
			wantProvider: ProviderLocal,
			wantDim:      16,
		},
		{
			name:         "openai provider",
			cfg:          Config{Provider: ProviderOpenAI, APIKey: "k"},
			wantProvider: ProviderOpenAI,
			wantDim:      OpenAIDimension,
		},
		{
			name:         "jina provider",
			cfg:          Config{Provider: " jina ", APIKey: "k"},
			wantProvider: ProviderJina,
			wantDim:      JinaDimension,
		},
		{
			name:    "openai without key",
			cfg:     Config{Provider: ProviderOpenAI},
			wantErr: ErrNoProviderEnabled,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "cohere"},
			wantErr: ErrUnsupportedModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer emb.Close()

			assert.Equal(t, tt.wantProvider, emb.Provider())
			assert.Equal(t, tt.wantDim, emb.Dimension())
		})
	}
}

func TestNew_WrapsCache(t *testing.T) {
	emb, err := New(Config{Provider: ProviderLocal, Dimension: 8, CacheSize: 4})
	require.NoError(t, err)

	_, ok := emb.(*cachedEmbedder)
	assert.True(t, ok, "expected cache decorator outermost")

	first, err := emb.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "a"})
	require.NoError(t, err)
	second, err := emb.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "a"})
	require.NoError(t, err)
	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, ComputeHash("a"), second.Hash)
}

func TestRequiresAPIKey(t *testing.T) {
	assert.True(t, RequiresAPIKey(ProviderOpenAI))
	assert.True(t, RequiresAPIKey(ProviderJina))
	assert.False(t, RequiresAPIKey(ProviderLocal))
}

func TestAPIKeyEnvVar(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnvVar(ProviderOpenAI))
	assert.Equal(t, "JINA_API_KEY", APIKeyEnvVar("Jina"))
	assert.Empty(t, APIKeyEnvVar(ProviderLocal))
}
