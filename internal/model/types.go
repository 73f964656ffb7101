package model

import (
	"context"
	"errors"
)

var (
	ErrModelUnavailable = errors.New("model not loaded")
	ErrInference        = errors.New("inference failed")
)

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

type Output struct {
	Shape []int64
	Data  []float32
}

// Predictor runs a single forward pass. Implementations must be safe for
// concurrent use.
type Predictor interface {
	Predict(ctx context.Context, in Tensor) (Output, error)
}

type Activation string

const (
	ActivationNone    Activation = "none"
	ActivationSigmoid Activation = "sigmoid"
)

type Config struct {
	Path        string
	InputName   string
	OutputName  string
	LibraryPath string
	Activation  Activation
}
