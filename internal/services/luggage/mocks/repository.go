package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/BearBump/BagTrace/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateLuggage(ctx context.Context, in models.LuggageCreateInput) (*models.LuggageRecord, error) {
	args := m.Called(ctx, in)
	var l *models.LuggageRecord
	if v := args.Get(0); v != nil {
		l = v.(*models.LuggageRecord)
	}
	return l, args.Error(1)
}

func (m *MockRepository) GetLuggage(ctx context.Context, id uuid.UUID) (*models.LuggageRecord, error) {
	args := m.Called(ctx, id)
	var l *models.LuggageRecord
	if v := args.Get(0); v != nil {
		l = v.(*models.LuggageRecord)
	}
	return l, args.Error(1)
}

func (m *MockRepository) ListLuggageByOwner(ctx context.Context, ownerID string) ([]*models.LuggageRecord, error) {
	args := m.Called(ctx, ownerID)
	var out []*models.LuggageRecord
	if v := args.Get(0); v != nil {
		out = v.([]*models.LuggageRecord)
	}
	return out, args.Error(1)
}

func (m *MockRepository) AttachEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func (m *MockRepository) MarkEmbeddingFailed(ctx context.Context, id uuid.UUID, errText string, nextAt time.Time) error {
	args := m.Called(ctx, id, errText, nextAt)
	return args.Error(0)
}

func (m *MockRepository) UpdateMatchStatus(ctx context.Context, id uint64, status string) (*models.MatchRecord, error) {
	args := m.Called(ctx, id, status)
	var r *models.MatchRecord
	if v := args.Get(0); v != nil {
		r = v.(*models.MatchRecord)
	}
	return r, args.Error(1)
}
