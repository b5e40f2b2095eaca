package matching

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/models"
)

type pair struct{ lost, found uuid.UUID }

// memIndex mirrors the storage semantics closely enough for engine tests.
type memIndex struct {
	mu      sync.Mutex
	luggage map[uuid.UUID]*models.LuggageRecord
	order   []uuid.UUID
	matches map[pair]models.MatchRecord
}

func newMemIndex() *memIndex {
	return &memIndex{luggage: map[uuid.UUID]*models.LuggageRecord{}, matches: map[pair]models.MatchRecord{}}
}

func (m *memIndex) add(status string, emb []float32) *models.LuggageRecord {
	l := &models.LuggageRecord{ID: uuid.New(), OwnerID: "o", Status: status, Embedding: emb}
	m.luggage[l.ID] = l
	m.order = append(m.order, l.ID)
	return l
}

func (m *memIndex) GetLuggage(_ context.Context, id uuid.UUID) (*models.LuggageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.luggage[id]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "luggage %s", id)
	}
	return l, nil
}

func (m *memIndex) SearchSimilar(_ context.Context, q models.SimilarityQuery) ([]models.MatchCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.MatchCandidate{}
	for _, id := range m.order {
		l := m.luggage[id]
		if l.Embedding == nil || (q.Status != "" && l.Status != q.Status) {
			continue
		}
		if s := cosine(q.Embedding, l.Embedding); s >= q.Threshold {
			out = append(out, models.MatchCandidate{LuggageID: id, Similarity: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memIndex) UpsertMatches(_ context.Context, matches []models.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range matches {
		k := pair{r.LostLuggageID, r.FoundLuggageID}
		if prev, ok := m.matches[k]; ok {
			prev.Similarity = r.Similarity
			m.matches[k] = prev
			continue
		}
		r.ID = uint64(len(m.matches) + 1)
		m.matches[k] = r
	}
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
