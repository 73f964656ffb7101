package testutil

import (
	"context"

	"github.com/Brownie44l1/mood-api/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, in model.Tensor) (model.Output, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(model.Output), args.Error(1)
}
