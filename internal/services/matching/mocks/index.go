package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/BearBump/BagTrace/internal/models"
)

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) GetLuggage(ctx context.Context, id uuid.UUID) (*models.LuggageRecord, error) {
	args := m.Called(ctx, id)
	var l *models.LuggageRecord
	if v := args.Get(0); v != nil {
		l = v.(*models.LuggageRecord)
	}
	return l, args.Error(1)
}

func (m *MockIndex) SearchSimilar(ctx context.Context, q models.SimilarityQuery) ([]models.MatchCandidate, error) {
	args := m.Called(ctx, q)
	var out []models.MatchCandidate
	if v := args.Get(0); v != nil {
		out = v.([]models.MatchCandidate)
	}
	return out, args.Error(1)
}

func (m *MockIndex) UpsertMatches(ctx context.Context, matches []models.MatchRecord) error {
	args := m.Called(ctx, matches)
	return args.Error(0)
}

type MockMatchStore struct {
	mock.Mock
}

func (m *MockMatchStore) ListLuggageByOwner(ctx context.Context, ownerID string) ([]*models.LuggageRecord, error) {
	args := m.Called(ctx, ownerID)
	var out []*models.LuggageRecord
	if v := args.Get(0); v != nil {
		out = v.([]*models.LuggageRecord)
	}
	return out, args.Error(1)
}

func (m *MockMatchStore) ListMatchesByLostIDs(ctx context.Context, lostIDs []uuid.UUID) ([]*models.MatchRecord, error) {
	args := m.Called(ctx, lostIDs)
	var out []*models.MatchRecord
	if v := args.Get(0); v != nil {
		out = v.([]*models.MatchRecord)
	}
	return out, args.Error(1)
}

func (m *MockMatchStore) GetLuggageByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.LuggageRecord, error) {
	args := m.Called(ctx, ids)
	var out []*models.LuggageRecord
	if v := args.Get(0); v != nil {
		out = v.([]*models.LuggageRecord)
	}
	return out, args.Error(1)
}
