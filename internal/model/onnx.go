package model

import (
	"context"
	"errors"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// Runtime hooks, swapped in tests.
var (
	ortIsInitialized   = ort.IsInitialized
	ortInitialize      = ort.InitializeEnvironment
	ortDestroy         = ort.DestroyEnvironment
	ortInputOutputInfo = ort.GetInputOutputInfo
	ortNewSession      = func(path string, inputs, outputs []string) (*ort.DynamicAdvancedSession, error) {
		return ort.NewDynamicAdvancedSession(path, inputs, outputs, nil)
	}
)

// ONNXModel wraps a dynamic ONNX Runtime session. Tensors are created per
// call, so a single ONNXModel can serve concurrent requests.
type ONNXModel struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

func NewONNXModel(cfg Config) (m *ONNXModel, err error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("model file not found at: %s", cfg.Path)
		}
		return nil, fmt.Errorf("failed to stat model file: %w", err)
	}

	if !ortIsInitialized() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		if err := ortInitialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		// An environment we started must not outlive a failed load.
		defer func() {
			if err != nil {
				ortDestroy()
			}
		}()
	}

	inputName, outputName := cfg.InputName, cfg.OutputName
	if inputName == "" || outputName == "" {
		inputs, outputs, err := ortInputOutputInfo(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read model inputs/outputs: %w", err)
		}
		if len(inputs) == 0 || len(outputs) == 0 {
			return nil, fmt.Errorf("model declares %d inputs and %d outputs", len(inputs), len(outputs))
		}
		if inputName == "" {
			inputName = inputs[0].Name
		}
		if outputName == "" {
			outputName = outputs[0].Name
		}
	}

	session, err := ortNewSession(cfg.Path, []string{inputName}, []string{outputName})
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXModel{
		session:    session,
		inputName:  inputName,
		outputName: outputName,
	}, nil
}

func (m *ONNXModel) Predict(ctx context.Context, in Tensor) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	input, err := ort.NewTensor(ort.NewShape(in.Shape...), in.Data)
	if err != nil {
		return Output{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
		return Output{}, fmt.Errorf("session run: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Output{}, fmt.Errorf("output %q is not a float32 tensor", m.outputName)
	}

	data := make([]float32, len(out.GetData()))
	copy(data, out.GetData())

	return Output{
		Shape: []int64(out.GetShape()),
		Data:  data,
	}, nil
}

func (m *ONNXModel) Close() {
	if m.session != nil {
		m.session.Destroy()
	}
	if ortIsInitialized() {
		ortDestroy()
	}
}
