package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/BearBump/BagTrace/internal/models"
)

type MockProvider struct {
	mock.Mock
	ProviderName string
}

func (m *MockProvider) Name() string { return m.ProviderName }

func (m *MockProvider) GetRoute(ctx context.Context, q models.RouteQuery) (*models.RouteResult, error) {
	args := m.Called(ctx, q)
	var r *models.RouteResult
	if v := args.Get(0); v != nil {
		r = v.(*models.RouteResult)
	}
	return r, args.Error(1)
}
