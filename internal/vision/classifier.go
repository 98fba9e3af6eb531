package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	// decoders registered for image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

type ModelType string

const (
	OnnxResNet50 ModelType = "onnx_resnet50"
)

var ErrUnknownModelType = errors.New("unknown classifier model type")

type Prediction struct {
	ClassIndex  int
	Label       string
	Probability float32
}

type Classifier interface {
	Classify(ctx context.Context, img image.Image) (Prediction, error)

	Release()
}

type ClassifierLoader func(modelPath string, labels []string) (Classifier, error)

var loaders = map[ModelType]ClassifierLoader{
	OnnxResNet50: func(modelPath string, labels []string) (Classifier, error) {
		model, err := LoadOnnxClassifier(modelPath, labels)
		if err != nil {
			return nil, err
		}
		return model, nil
	},
}

// RegisterClassifierLoader adds or replaces the loader used for modelType.
func RegisterClassifierLoader(modelType ModelType, loader ClassifierLoader) {
	loaders[modelType] = loader
}

func LoadClassifier(modelType ModelType, modelPath string, labels []string) (Classifier, error) {
	loader, ok := loaders[modelType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModelType, modelType)
	}
	return loader(modelPath, labels)
}

// ClassifyReader decodes an image from r and runs it through c. The header is
// checked against MaxImagePixels before the pixels are decoded.
func ClassifyReader(ctx context.Context, c Classifier, r io.Reader) (Prediction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Prediction{}, fmt.Errorf("error reading image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Prediction{}, fmt.Errorf("cannot identify image file: %w", err)
	}
	if err := checkPixels(cfg.Width, cfg.Height); err != nil {
		return Prediction{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Prediction{}, fmt.Errorf("cannot identify image file: %w", err)
	}

	return c.Classify(ctx, img)
}
