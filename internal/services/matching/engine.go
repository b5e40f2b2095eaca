package matching

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/metrics"
	"github.com/BearBump/BagTrace/internal/models"
)

const (
	DefaultTopK      = 5
	DefaultThreshold = 0.80
)

var (
	ErrNoEmbedding     = errors.New("luggage has no embedding")
	ErrLuggageNotFound = errors.New("luggage not found")
	ErrNotLost         = errors.New("luggage is not reported lost")
)

// Index reports a missing record with models.ErrNotFound.
type Index interface {
	GetLuggage(ctx context.Context, id uuid.UUID) (*models.LuggageRecord, error)
	SearchSimilar(ctx context.Context, q models.SimilarityQuery) ([]models.MatchCandidate, error)
	UpsertMatches(ctx context.Context, matches []models.MatchRecord) error
}

type Engine struct {
	index   Index
	metrics *metrics.Metrics

	topK      int
	threshold float64
}

func NewEngine(index Index, m *metrics.Metrics) *Engine {
	return &Engine{
		index:     index,
		metrics:   m,
		topK:      DefaultTopK,
		threshold: DefaultThreshold,
	}
}

func (e *Engine) WithSettings(topK int, threshold float64) *Engine {
	if topK > 0 {
		e.topK = topK
	}
	if threshold > 0 && threshold <= 1 {
		e.threshold = threshold
	}
	return e
}

// FindMatches searches found items similar to the given lost record and records them as pending matches.
// Returned candidates never include the record itself and are sorted by similarity descending.
// Persistence problems are logged and counted; they do not fail the search.
func (e *Engine) FindMatches(ctx context.Context, luggageID uuid.UUID) ([]models.MatchCandidate, error) {
	rec, err := e.index.GetLuggage(ctx, luggageID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, errors.Wrapf(ErrLuggageNotFound, "%s", luggageID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load luggage")
	}
	// Запрос всегда идёт со стороны потерянного багажа.
	if rec.Status != models.LuggageStatusLost {
		return nil, errors.Wrapf(ErrNotLost, "%s is %s", luggageID, rec.Status)
	}
	if len(rec.Embedding) == 0 {
		return nil, errors.Wrapf(ErrNoEmbedding, "%s", luggageID)
	}

	raw, err := e.index.SearchSimilar(ctx, models.SimilarityQuery{
		Embedding: rec.Embedding,
		Threshold: e.threshold,
		Limit:     e.topK,
		Status:    models.LuggageStatusFound,
	})
	if err != nil {
		return nil, errors.Wrap(err, "search similar")
	}

	out := make([]models.MatchCandidate, 0, len(raw))
	for _, c := range raw {
		if c.LuggageID == luggageID || c.Similarity < e.threshold {
			continue
		}
		out = append(out, models.MatchCandidate{LuggageID: c.LuggageID, Similarity: clamp01(c.Similarity)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })

	e.metrics.CandidatesFound(len(out))
	if len(out) == 0 {
		return out, nil
	}

	records := make([]models.MatchRecord, 0, len(out))
	for _, c := range out {
		records = append(records, models.MatchRecord{
			LostLuggageID:  luggageID,
			FoundLuggageID: c.LuggageID,
			Similarity:     c.Similarity,
			Status:         models.MatchStatusPending,
		})
	}
	if err := e.index.UpsertMatches(ctx, records); err != nil {
		e.metrics.MatchPersistFailed()
		slog.Warn("persist matches failed", "luggage_id", luggageID.String(), "candidates", len(records), "error", err.Error())
	}

	slog.Info("match candidates found", "luggage_id", luggageID.String(), "candidates", len(out))
	return out, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
