package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingServer answers /embeddings with vectors of the given size and
// captures the last decoded request body.
func embeddingServer(t *testing.T, dimension int, last *embeddingsRequest, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if last != nil {
			*last = body
		}

		resp := map[string]interface{}{
			"model": body.Model,
			"data": []map[string]interface{}{
				{
					"index":     0,
					"embedding": make([]float32, dimension),
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIProvider(t *testing.T) {
	t.Run("successful embedding", func(t *testing.T) {
		var last embeddingsRequest
		server := embeddingServer(t, OpenAIDimension, &last, nil)
		defer server.Close()

		provider, err := NewOpenAIProvider(HTTPOptions{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)
		defer provider.Close()

		emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
		require.NoError(t, err)
		assert.Len(t, emb.Vector, OpenAIDimension)
		assert.Equal(t, ProviderOpenAI, emb.Provider)
		assert.Equal(t, DefaultOpenAIModel, emb.Model)

		assert.Equal(t, []string{"hello"}, last.Input)
		assert.Equal(t, DefaultOpenAIModel, last.Model)
		assert.Zero(t, last.Dimensions, "native dimension should not be requested")
	})

	t.Run("requests shortened dimension", func(t *testing.T) {
		var last embeddingsRequest
		server := embeddingServer(t, 256, &last, nil)
		defer server.Close()

		provider, err := NewOpenAIProvider(HTTPOptions{APIKey: "test-key", BaseURL: server.URL, Dimension: 256})
		require.NoError(t, err)

		emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
		require.NoError(t, err)
		assert.Len(t, emb.Vector, 256)
		assert.Equal(t, 256, last.Dimensions)
		assert.Equal(t, 256, provider.Dimension())
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		server := embeddingServer(t, 10, nil, nil)
		defer server.Close()

		provider, err := NewOpenAIProvider(HTTPOptions{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("api error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}))
		defer server.Close()

		provider, err := NewOpenAIProvider(HTTPOptions{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("empty data", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer server.Close()

		provider, err := NewOpenAIProvider(HTTPOptions{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
		assert.ErrorIs(t, err, ErrProviderFailed)
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := NewOpenAIProvider(HTTPOptions{})
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("unknown model requires dimension", func(t *testing.T) {
		_, err := NewOpenAIProvider(HTTPOptions{APIKey: "k", Model: "custom-model"})
		assert.ErrorIs(t, err, ErrUnsupportedModel)

		provider, err := NewOpenAIProvider(HTTPOptions{APIKey: "k", Model: "custom-model", Dimension: 64})
		require.NoError(t, err)
		assert.Equal(t, 64, provider.Dimension())
		assert.Equal(t, "custom-model", provider.Model())
	})

	t.Run("empty text rejected before call", func(t *testing.T) {
		var calls int32
		server := embeddingServer(t, OpenAIDimension, nil, &calls)
		defer server.Close()

		provider, err := NewOpenAIProvider(HTTPOptions{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = provider.GenerateEmbedding(context.Background(), EmbeddingRequest{})
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Zero(t, atomic.LoadInt32(&calls))
	})
}

func TestJinaProvider(t *testing.T) {
	var last embeddingsRequest
	server := embeddingServer(t, JinaDimension, &last, nil)
	defer server.Close()

	provider, err := NewJinaProvider(HTTPOptions{APIKey: "test-key", BaseURL: server.URL + "/"})
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, ProviderJina, provider.Provider())
	assert.Equal(t, JinaDimension, provider.Dimension())

	emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "doc"})
	require.NoError(t, err)
	assert.Len(t, emb.Vector, JinaDimension)
	assert.Equal(t, DefaultJinaModel, last.Model)
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(HTTPOptions{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Less(t, time.Since(start), time.Second)
}

func TestModelDimension(t *testing.T) {
	d, ok := ModelDimension("text-embedding-3-small")
	assert.True(t, ok)
	assert.Equal(t, 1536, d)

	_, ok = ModelDimension("nope")
	assert.False(t, ok)
}
