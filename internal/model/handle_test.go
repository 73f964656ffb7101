package model_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/Brownie44l1/mood-api/internal/model"
	"github.com/Brownie44l1/mood-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.onnx")

	h := model.Load(model.Config{Path: path})

	assert.False(t, h.Available())
	require.Error(t, h.Err())
	assert.Contains(t, h.Err().Error(), path)

	_, err := h.Predictor()
	assert.ErrorIs(t, err, model.ErrModelUnavailable)
}

func TestUnavailableNilError(t *testing.T) {
	h := model.Unavailable(nil)
	assert.False(t, h.Available())
	assert.ErrorIs(t, h.Err(), model.ErrModelUnavailable)
}

func TestLoadedHandle(t *testing.T) {
	p := new(testutil.MockPredictor)
	h := model.Loaded(p)

	assert.True(t, h.Available())
	assert.NoError(t, h.Err())

	got, err := h.Predictor()
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestScore(t *testing.T) {
	in := model.Tensor{Shape: []int64{1, 2, 2, 3}, Data: make([]float32, 12)}

	tests := []struct {
		name    string
		out     model.Output
		err     error
		act     model.Activation
		want    float64
		wantErr bool
	}{
		{name: "first element", out: model.Output{Shape: []int64{1, 1}, Data: []float32{0.25}}, act: model.ActivationNone, want: 0.25},
		{name: "first row of many", out: model.Output{Shape: []int64{1, 2}, Data: []float32{0.75, 0.1}}, act: model.ActivationNone, want: 0.75},
		{name: "sigmoid of zero", out: model.Output{Shape: []int64{1, 1}, Data: []float32{0}}, act: model.ActivationSigmoid, want: 0.5},
		{name: "empty output", out: model.Output{Shape: []int64{1, 0}}, act: model.ActivationNone, wantErr: true},
		{name: "nan output", out: model.Output{Shape: []int64{1, 1}, Data: []float32{float32(math.NaN())}}, act: model.ActivationNone, wantErr: true},
		{name: "predictor error", err: errors.New("boom"), act: model.ActivationNone, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(testutil.MockPredictor)
			p.On("Predict", mock.Anything, in).Return(tt.out, tt.err)

			got, err := model.Score(context.Background(), p, in, tt.act)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrInference)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
			p.AssertExpectations(t)
		})
	}
}

func TestScoreSigmoidRange(t *testing.T) {
	in := model.Tensor{Shape: []int64{1, 1}, Data: []float32{0}}
	for _, logit := range []float32{-40, -3, 0, 3, 40} {
		p := new(testutil.MockPredictor)
		p.On("Predict", mock.Anything, in).Return(model.Output{Shape: []int64{1, 1}, Data: []float32{logit}}, nil)

		got, err := model.Score(context.Background(), p, in, model.ActivationSigmoid)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}
