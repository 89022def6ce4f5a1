package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsync/internal/embedder"
	"github.com/dshills/docsync/pkg/types"
)

func TestParseFailurePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FailurePolicy
		wantErr bool
	}{
		{in: "", want: FailFast},
		{in: "fail", want: FailFast},
		{in: " SKIP ", want: SkipFailed},
		{in: "retry", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFailurePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_OneRequestPerDocument(t *testing.T) {
	emb := newCountingEmbedder()
	r := NewResolver(emb, ResolverConfig{Concurrency: 2})

	docs := []types.Document{doc("a.md", "alpha"), doc("b.md", "bravo"), doc("c.md", "charlie")}
	res, err := r.Resolve(context.Background(), docs)
	require.NoError(t, err)

	assert.Len(t, res.Vectors, 3)
	assert.Empty(t, res.Failed)
	assert.Equal(t, 3, emb.total())
	for _, d := range docs {
		assert.Equal(t, 1, emb.calls[d.Content], d.Identity)
		assert.Len(t, res.Vectors[d.Identity], 4)
	}
}

func TestResolve_FailFast(t *testing.T) {
	emb := newCountingEmbedder()
	emb.failOn["bravo"] = errQuota
	r := NewResolver(emb, ResolverConfig{Concurrency: 1})

	_, err := r.Resolve(context.Background(), []types.Document{doc("a.md", "alpha"), doc("b.md", "bravo")})
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "b.md", perr.Identity)
	assert.ErrorIs(t, err, errQuota)
	assert.Contains(t, err.Error(), "b.md")
}

func TestResolve_SkipFailed(t *testing.T) {
	emb := newCountingEmbedder()
	emb.failOn["bravo"] = errQuota
	r := NewResolver(emb, ResolverConfig{Policy: SkipFailed})

	res, err := r.Resolve(context.Background(), []types.Document{doc("a.md", "alpha"), doc("b.md", "bravo")})
	require.NoError(t, err)

	assert.Contains(t, res.Vectors, "a.md")
	assert.NotContains(t, res.Vectors, "b.md")
	assert.Equal(t, []string{"b.md"}, res.Failed)
}

func TestResolve_DimensionMismatchIsProviderError(t *testing.T) {
	emb := newCountingEmbedder()
	emb.short = true
	r := NewResolver(emb, ResolverConfig{})

	_, err := r.Resolve(context.Background(), []types.Document{doc("a.md", "alpha")})

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, embedder.ErrDimensionMismatch)
}

func TestResolve_CanceledContextAbortsEvenWhenSkipping(t *testing.T) {
	emb := newCountingEmbedder()
	r := NewResolver(emb, ResolverConfig{Policy: SkipFailed})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, []types.Document{doc("a.md", "alpha")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_NoDocuments(t *testing.T) {
	emb := newCountingEmbedder()
	res, err := NewResolver(emb, ResolverConfig{}).Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Vectors)
	assert.Zero(t, emb.total())
}

func TestResolve_RequestTimeout(t *testing.T) {
	emb := newCountingEmbedder()
	emb.block = true
	r := NewResolver(emb, ResolverConfig{Concurrency: 2, Timeout: 20 * time.Millisecond})

	start := time.Now()
	res, err := r.Resolve(context.Background(), []types.Document{doc("a.md", "alpha"), doc("b.md", "bravo")})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Nil(t, res)
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestResolve_RequestTimeoutSkipped(t *testing.T) {
	emb := newCountingEmbedder()
	emb.block = true
	r := NewResolver(emb, ResolverConfig{Timeout: 20 * time.Millisecond, Policy: SkipFailed})

	res, err := r.Resolve(context.Background(), []types.Document{doc("a.md", "alpha")})
	require.NoError(t, err)
	assert.Empty(t, res.Vectors)
	assert.Equal(t, []string{"a.md"}, res.Failed)
}
