package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/BagTrace/internal/metrics"
	"github.com/BearBump/BagTrace/internal/models"
	"github.com/BearBump/BagTrace/internal/services/matching/mocks"
)

func TestEngine_FindMatches_SortedAboveThreshold(t *testing.T) {
	idx := newMemIndex()
	lost := idx.add(models.LuggageStatusLost, []float32{1, 0, 0})
	mid := idx.add(models.LuggageStatusFound, []float32{0.9, 0.3, 0})
	best := idx.add(models.LuggageStatusFound, []float32{1, 0.05, 0})
	idx.add(models.LuggageStatusFound, []float32{0, 1, 0})
	idx.add(models.LuggageStatusLost, []float32{1, 0.01, 0})

	out, err := NewEngine(idx, nil).FindMatches(context.Background(), lost.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, best.ID, out[0].LuggageID)
	require.Equal(t, mid.ID, out[1].LuggageID)
	for _, c := range out {
		require.GreaterOrEqual(t, c.Similarity, DefaultThreshold)
		require.NotEqual(t, lost.ID, c.LuggageID)
	}
	require.Len(t, idx.matches, 2)
}

func TestEngine_FindMatches_ExcludesSelf(t *testing.T) {
	idx := &mocks.MockIndex{}
	self, other := uuid.New(), uuid.New()
	idx.On("GetLuggage", mock.Anything, self).
		Return(&models.LuggageRecord{ID: self, Status: models.LuggageStatusLost, Embedding: []float32{0, 0, 1}}, nil).Once()
	// без фильтра сама запись была бы первой с 1.0
	idx.On("SearchSimilar", mock.Anything, mock.Anything).Return([]models.MatchCandidate{
		{LuggageID: self, Similarity: 1},
		{LuggageID: other, Similarity: 0.95},
	}, nil).Once()
	idx.On("UpsertMatches", mock.Anything, mock.Anything).Return(nil).Once()

	out, err := NewEngine(idx, nil).FindMatches(context.Background(), self)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, other, out[0].LuggageID)
	idx.AssertExpectations(t)
}

func TestEngine_FindMatches_OnlyFromLostSide(t *testing.T) {
	for _, status := range []string{models.LuggageStatusFound, models.LuggageStatusMatched, models.LuggageStatusResolved} {
		t.Run(status, func(t *testing.T) {
			idx := newMemIndex()
			q := idx.add(status, []float32{1, 0, 0})
			idx.add(models.LuggageStatusFound, []float32{1, 0.01, 0})

			out, err := NewEngine(idx, nil).FindMatches(context.Background(), q.ID)
			require.ErrorIs(t, err, ErrNotLost)
			require.Nil(t, out)
			require.Empty(t, idx.matches)
		})
	}

	idx := &mocks.MockIndex{}
	id := uuid.New()
	idx.On("GetLuggage", mock.Anything, id).
		Return(&models.LuggageRecord{ID: id, Status: models.LuggageStatusFound, Embedding: []float32{1}}, nil).Once()
	_, err := NewEngine(idx, nil).FindMatches(context.Background(), id)
	require.ErrorIs(t, err, ErrNotLost)
	idx.AssertNotCalled(t, "SearchSimilar", mock.Anything, mock.Anything)
	idx.AssertNotCalled(t, "UpsertMatches", mock.Anything, mock.Anything)
}

func TestEngine_FindMatches_TopK(t *testing.T) {
	idx := newMemIndex()
	lost := idx.add(models.LuggageStatusLost, []float32{1, 0})
	for i := 0; i < 8; i++ {
		idx.add(models.LuggageStatusFound, []float32{1, float32(i) * 0.01})
	}

	out, err := NewEngine(idx, nil).FindMatches(context.Background(), lost.ID)
	require.NoError(t, err)
	require.Len(t, out, DefaultTopK)

	out, err = NewEngine(idx, nil).WithSettings(3, 0.99).FindMatches(context.Background(), lost.ID)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestEngine_FindMatches_Idempotent(t *testing.T) {
	idx := newMemIndex()
	lost := idx.add(models.LuggageStatusLost, []float32{1, 0})
	found := idx.add(models.LuggageStatusFound, []float32{1, 0.1})
	e := NewEngine(idx, nil)

	_, err := e.FindMatches(context.Background(), lost.ID)
	require.NoError(t, err)

	found.Embedding = []float32{1, 0.2}
	out, err := e.FindMatches(context.Background(), lost.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)

	require.Len(t, idx.matches, 1)
	rec := idx.matches[pair{lost.ID, found.ID}]
	require.InDelta(t, out[0].Similarity, rec.Similarity, 1e-12)
	require.Equal(t, models.MatchStatusPending, rec.Status)
}

func TestEngine_FindMatches_NoEmbedding(t *testing.T) {
	idx := newMemIndex()
	l := idx.add(models.LuggageStatusLost, nil)

	_, err := NewEngine(idx, nil).FindMatches(context.Background(), l.ID)
	require.ErrorIs(t, err, ErrNoEmbedding)
}

func TestEngine_FindMatches_NotFound(t *testing.T) {
	_, err := NewEngine(newMemIndex(), nil).FindMatches(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrLuggageNotFound)
}

func TestEngine_FindMatches_ZeroCandidatesIsNotAnError(t *testing.T) {
	idx := &mocks.MockIndex{}
	id := uuid.New()
	idx.On("GetLuggage", mock.Anything, id).Return(&models.LuggageRecord{ID: id, Status: models.LuggageStatusLost, Embedding: []float32{1}}, nil).Once()
	idx.On("SearchSimilar", mock.Anything, models.SimilarityQuery{
		Embedding: []float32{1}, Threshold: DefaultThreshold, Limit: DefaultTopK, Status: models.LuggageStatusFound,
	}).Return([]models.MatchCandidate{{LuggageID: id, Similarity: 1}}, nil).Once()

	out, err := NewEngine(idx, nil).FindMatches(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, out)
	idx.AssertNotCalled(t, "UpsertMatches", mock.Anything, mock.Anything)
}

func TestEngine_FindMatches_PersistFailureSwallowed(t *testing.T) {
	idx := &mocks.MockIndex{}
	id, other := uuid.New(), uuid.New()
	idx.On("GetLuggage", mock.Anything, id).Return(&models.LuggageRecord{ID: id, Status: models.LuggageStatusLost, Embedding: []float32{1, 0}}, nil).Once()
	idx.On("SearchSimilar", mock.Anything, mock.Anything).
		Return([]models.MatchCandidate{{LuggageID: other, Similarity: 1.0000001}}, nil).Once()
	idx.On("UpsertMatches", mock.Anything, []models.MatchRecord{{
		LostLuggageID: id, FoundLuggageID: other, Similarity: 1, Status: models.MatchStatusPending,
	}}).Return(errors.New("db down")).Once()

	m := metrics.New("test", prometheus.NewRegistry())
	out, err := NewEngine(idx, m).FindMatches(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 1.0, out[0].Similarity)
	require.Equal(t, 1.0, testutil.ToFloat64(m.MatchPersistFailures))
	require.Equal(t, 1.0, testutil.ToFloat64(m.MatchCandidates))
	idx.AssertExpectations(t)
}

func TestEngine_FindMatches_LoadAndSearchErrors(t *testing.T) {
	id := uuid.New()

	idx := &mocks.MockIndex{}
	idx.On("GetLuggage", mock.Anything, id).Return(nil, errors.New("conn refused")).Once()
	_, err := NewEngine(idx, nil).FindMatches(context.Background(), id)
	require.ErrorContains(t, err, "load luggage")
	require.NotErrorIs(t, err, ErrLuggageNotFound)

	idx = &mocks.MockIndex{}
	idx.On("GetLuggage", mock.Anything, id).Return(&models.LuggageRecord{ID: id, Status: models.LuggageStatusLost, Embedding: []float32{1}}, nil).Once()
	idx.On("SearchSimilar", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	_, err = NewEngine(idx, nil).FindMatches(context.Background(), id)
	require.ErrorContains(t, err, "search similar")
}

func TestEngine_NotFoundMappedFromIndex(t *testing.T) {
	idx := &mocks.MockIndex{}
	id := uuid.New()
	idx.On("GetLuggage", mock.Anything, id).Return(nil, models.ErrNotFound).Once()
	_, err := NewEngine(idx, nil).FindMatches(context.Background(), id)
	require.ErrorIs(t, err, ErrLuggageNotFound)
}
