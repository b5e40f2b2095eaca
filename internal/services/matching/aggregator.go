package matching

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/models"
)

type MatchStore interface {
	ListLuggageByOwner(ctx context.Context, ownerID string) ([]*models.LuggageRecord, error)
	ListMatchesByLostIDs(ctx context.Context, lostIDs []uuid.UUID) ([]*models.MatchRecord, error)
	GetLuggageByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.LuggageRecord, error)
}

type Aggregator struct {
	store MatchStore
}

func NewAggregator(store MatchStore) *Aggregator {
	return &Aggregator{store: store}
}

// OwnerMatches returns every match whose lost side belongs to ownerID, ordered by similarity.
// Matches whose found side no longer resolves are dropped.
func (a *Aggregator) OwnerMatches(ctx context.Context, ownerID string) ([]models.MatchView, error) {
	owned, err := a.store.ListLuggageByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list owner luggage")
	}
	if len(owned) == 0 {
		return []models.MatchView{}, nil
	}

	lostByID := make(map[uuid.UUID]*models.LuggageRecord, len(owned))
	lostIDs := make([]uuid.UUID, 0, len(owned))
	for _, l := range owned {
		lostByID[l.ID] = l
		lostIDs = append(lostIDs, l.ID)
	}

	matches, err := a.store.ListMatchesByLostIDs(ctx, lostIDs)
	if err != nil {
		return nil, errors.Wrap(err, "list matches")
	}
	if len(matches) == 0 {
		return []models.MatchView{}, nil
	}

	seen := make(map[uuid.UUID]bool, len(matches))
	foundIDs := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		if !seen[m.FoundLuggageID] {
			seen[m.FoundLuggageID] = true
			foundIDs = append(foundIDs, m.FoundLuggageID)
		}
	}

	found, err := a.store.GetLuggageByIDs(ctx, foundIDs)
	if err != nil {
		return nil, errors.Wrap(err, "load found luggage")
	}
	foundByID := make(map[uuid.UUID]*models.LuggageRecord, len(found))
	for _, f := range found {
		foundByID[f.ID] = f
	}

	out := make([]models.MatchView, 0, len(matches))
	for _, m := range matches {
		lost, ok := lostByID[m.LostLuggageID]
		if !ok {
			continue
		}
		f, ok := foundByID[m.FoundLuggageID]
		if !ok {
			continue
		}
		out = append(out, models.MatchView{Match: *m, Lost: lost, Found: f})
	}
	return out, nil
}
