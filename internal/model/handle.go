package model

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
)

// Handle is the process-wide model reference. It is either loaded or
// unavailable for the lifetime of the process.
type Handle struct {
	predictor Predictor
	err       error
}

func Loaded(p Predictor) Handle {
	return Handle{predictor: p}
}

func Unavailable(err error) Handle {
	if err == nil {
		err = ErrModelUnavailable
	}
	return Handle{err: err}
}

// Load opens the artifact at cfg.Path. A failure is logged and yields an
// unavailable handle; it never stops the process.
func Load(cfg Config) Handle {
	m, err := NewONNXModel(cfg)
	if err != nil {
		log.WithField("model_path", cfg.Path).Errorf("Failed to load model: %v", err)
		return Unavailable(err)
	}

	log.WithFields(log.Fields{
		"model_path": cfg.Path,
		"input":      m.inputName,
		"output":     m.outputName,
	}).Info("Model loaded successfully")
	return Loaded(m)
}

func (h Handle) Available() bool {
	return h.predictor != nil
}

// Err returns the load error of an unavailable handle.
func (h Handle) Err() error {
	return h.err
}

func (h Handle) Predictor() (Predictor, error) {
	if h.predictor == nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, h.err)
	}
	return h.predictor, nil
}

func (h Handle) Close() {
	if c, ok := h.predictor.(interface{ Close() }); ok {
		c.Close()
	}
}

// Score runs one prediction and reduces it to the first element of the
// first row.
func Score(ctx context.Context, p Predictor, in Tensor, act Activation) (float64, error) {
	out, err := p.Predict(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if len(out.Data) == 0 {
		return 0, fmt.Errorf("%w: model returned an empty output", ErrInference)
	}

	score := float64(out.Data[0])
	if act == ActivationSigmoid {
		score = 1 / (1 + math.Exp(-score))
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: model returned a non-finite score", ErrInference)
	}
	return score, nil
}
