package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrtutor/internal/backend/fake"
	"vrtutor/internal/domain"
	"vrtutor/internal/vectorstore/memory"
)

func newStore(t *testing.T, entries map[string][]float64, order []string) *memory.Storage {
	t.Helper()
	s := memory.NewStorage()
	for _, text := range order {
		require.NoError(t, s.Add(text, entries[text]))
	}
	return s
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{0.3, 0.4, 0.5}, []float64{0.3, 0.4, 0.5}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 2}, []float64{-1, -2}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}

func TestRetrieve_IdenticalEmbeddingRanksFirst(t *testing.T) {
	vecs := map[string][]float64{
		"steel": {1, 0, 0},
		"glass": {0.6, 0.8, 0},
		"wood":  {0.8, 0.6, 0},
		"query": {1, 0, 0},
	}
	store := newStore(t, vecs, []string{"glass", "wood", "steel"})
	emb := &fake.Embedder{Vectors: vecs}

	res, err := NewRanker(DefaultThreshold).Retrieve(context.Background(), store, emb, "m", "query", 3)

	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "steel", res[0].Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, "wood", res[1].Text)
	assert.Equal(t, "glass", res[2].Text)
	assert.Equal(t, []string{"query"}, emb.Calls)
}

func TestRetrieve_TruncatesAndSortsNonIncreasing(t *testing.T) {
	vecs := map[string][]float64{
		"a": {1, 0.1}, "b": {1, 0.5}, "c": {1, 0.9}, "d": {1, 2}, "q": {1, 0},
	}
	store := newStore(t, vecs, []string{"a", "b", "c", "d"})

	for topN := 1; topN <= 5; topN++ {
		res, err := NewRanker(0).Retrieve(context.Background(), store, &fake.Embedder{Vectors: vecs}, "m", "q", topN)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res), topN)
		for i := 1; i < len(res); i++ {
			assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
		}
	}
}

func TestRetrieve_TiesKeepInsertionOrder(t *testing.T) {
	vecs := map[string][]float64{
		"first": {1, 1}, "second": {1, 1}, "third": {1, 1}, "q": {1, 2},
	}
	store := newStore(t, vecs, []string{"first", "second", "third"})

	res, err := NewRanker(0).Retrieve(context.Background(), store, &fake.Embedder{Vectors: vecs}, "m", "q", 2)

	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "first", res[0].Text)
	assert.Equal(t, "second", res[1].Text)
}

func TestRetrieve_ThresholdFilters(t *testing.T) {
	vecs := map[string][]float64{
		"same": {1, 0}, "orthogonal": {0, 1}, "opposite": {-1, 0}, "close": {0.9, 0.1}, "q": {1, 0},
	}
	store := newStore(t, vecs, []string{"same", "orthogonal", "opposite", "close"})
	emb := &fake.Embedder{Vectors: vecs}

	res, err := NewRanker(DefaultThreshold).Retrieve(context.Background(), store, emb, "m", "q", 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "same", res[0].Text)
	assert.Equal(t, "close", res[1].Text)

	res, err = NewRanker(0.999).Retrieve(context.Background(), store, emb, "m", "q", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "same", res[0].Text)
}

func TestRetrieve_EmptyInputs(t *testing.T) {
	emb := fake.NewEmbedder()
	empty := memory.NewStorage()

	res, err := NewRanker(0).Retrieve(context.Background(), empty, emb, "m", "what is steel?", 2)
	require.NoError(t, err)
	assert.Empty(t, res)

	store := memory.NewStorage()
	require.NoError(t, store.Add("steel", []float64{1, 0}))
	res, err = NewRanker(0).Retrieve(context.Background(), store, emb, "m", "   ", 2)
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = NewRanker(0).Retrieve(context.Background(), store, emb, "m", "steel", 0)
	require.NoError(t, err)
	assert.Empty(t, res)

	assert.Empty(t, emb.Calls)
}

func TestRetrieve_BackendErrorPropagates(t *testing.T) {
	store := memory.NewStorage()
	require.NoError(t, store.Add("steel", []float64{1, 0}))
	emb := &fake.Embedder{Err: errors.New("ollama unreachable")}

	res, err := NewRanker(0).Retrieve(context.Background(), store, emb, "m", "steel", 2)

	assert.Nil(t, res)
	assert.ErrorContains(t, err, "ollama unreachable")
}

func TestRetrieve_DimensionMismatch(t *testing.T) {
	store := memory.NewStorage()
	require.NoError(t, store.Add("steel", []float64{1, 0}))
	emb := &fake.Embedder{Vectors: map[string][]float64{"q": {1, 0, 0}}}

	_, err := NewRanker(0).Retrieve(context.Background(), store, emb, "m", "q", 2)

	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}
