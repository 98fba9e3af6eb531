//go:build !windows

package vision

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	ort "github.com/yalue/onnxruntime_go"
)

// OnnxClassifier runs an exported imagenet classifier (e.g. torchvision
// resnet50) with a single NCHW float input and a single logits output.
type OnnxClassifier struct {
	session *ort.DynamicAdvancedSession
	labels  []string
}

var _ Classifier = (*OnnxClassifier)(nil)

// LoadOnnxClassifier expects the onnxruntime environment to already be
// initialized by the caller.
func LoadOnnxClassifier(modelPath string, labels []string) (*OnnxClassifier, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading model io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected model with 1 input and 1 output, found %d inputs and %d outputs", len(inputs), len(outputs))
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}

	slog.Info("loaded onnx classifier", "model", modelPath, "input", inputs[0].Name, "output", outputs[0].Name, "classes", len(labels))

	return &OnnxClassifier{session: session, labels: labels}, nil
}

func (m *OnnxClassifier) Classify(ctx context.Context, img image.Image) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	pixels, err := Preprocess(img)
	if err != nil {
		return Prediction{}, err
	}

	inT, err := ort.NewTensor(ort.NewShape(1, 3, CropSize, CropSize), pixels)
	if err != nil {
		return Prediction{}, err
	}
	defer inT.Destroy()

	outT, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(m.labels))))
	if err != nil {
		return Prediction{}, err
	}
	defer outT.Destroy()

	if err := m.session.Run([]ort.Value{inT}, []ort.Value{outT}); err != nil {
		return Prediction{}, fmt.Errorf("session run error: %w", err)
	}

	probs := Softmax(outT.GetData())
	idx, prob := Argmax(probs)
	if idx < 0 {
		return Prediction{}, fmt.Errorf("model produced no outputs")
	}

	return Prediction{ClassIndex: idx, Label: m.labels[idx], Probability: prob}, nil
}

func (m *OnnxClassifier) Release() {
	if err := m.session.Destroy(); err != nil {
		slog.Error("error destroying onnx session", "error", err)
	}
}
