//go:build windows

package vision

import (
	"context"
	"errors"
	"image"
)

var ErrOnnxNotSupportedOnWindows = errors.New("ONNX models are not supported on Windows")

type OnnxClassifier struct{}

func LoadOnnxClassifier(modelPath string, labels []string) (*OnnxClassifier, error) {
	return nil, ErrOnnxNotSupportedOnWindows
}

func (m *OnnxClassifier) Classify(ctx context.Context, img image.Image) (Prediction, error) {
	return Prediction{}, ErrOnnxNotSupportedOnWindows
}

func (m *OnnxClassifier) Release() {
	// no-op
}
