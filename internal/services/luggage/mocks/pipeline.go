package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/BearBump/BagTrace/internal/models"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, imageURL string) ([]float32, error) {
	args := m.Called(ctx, imageURL)
	var out []float32
	if v := args.Get(0); v != nil {
		out = v.([]float32)
	}
	return out, args.Error(1)
}

type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) FindMatches(ctx context.Context, luggageID uuid.UUID) ([]models.MatchCandidate, error) {
	args := m.Called(ctx, luggageID)
	var out []models.MatchCandidate
	if v := args.Get(0); v != nil {
		out = v.([]models.MatchCandidate)
	}
	return out, args.Error(1)
}
