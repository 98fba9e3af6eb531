package vision

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

const (
	ResizeSize = 256
	CropSize   = 224

	// MaxImagePixels bounds both the decoded upload and the resized
	// intermediate image.
	MaxImagePixels = 89478485
)

var ErrImageTooLarge = errors.New("image exceeds pixel limit")

func checkPixels(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("image has invalid size %dx%d", w, h)
	}
	if int64(w)*int64(h) > MaxImagePixels {
		return fmt.Errorf("%w: %dx%d is more than %d pixels", ErrImageTooLarge, w, h, MaxImagePixels)
	}
	return nil
}

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess applies the standard imagenet evaluation transform: resize the
// shorter side to 256, center crop 224x224, scale to [0,1] and normalize each
// channel. The result is a CHW tensor for a batch of one.
func Preprocess(img image.Image) ([]float32, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("image has empty bounds %v", bounds)
	}

	w, h := resizeDims(bounds.Dx(), bounds.Dy(), ResizeSize)
	if err := checkPixels(w, h); err != nil {
		return nil, fmt.Errorf("resized image too large: %w", err)
	}
	resized := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Src, nil)

	left := int(math.Round(float64(w-CropSize) / 2))
	top := int(math.Round(float64(h-CropSize) / 2))

	plane := CropSize * CropSize
	tensor := make([]float32, 3*plane)
	for y := 0; y < CropSize; y++ {
		for x := 0; x < CropSize; x++ {
			off := resized.PixOffset(left+x, top+y)
			idx := y*CropSize + x
			for c := 0; c < 3; c++ {
				v := float32(resized.Pix[off+c]) / 255
				tensor[c*plane+idx] = (v - imagenetMean[c]) / imagenetStd[c]
			}
		}
	}

	return tensor, nil
}

func resizeDims(w, h, size int) (int, int) {
	if w <= h {
		return size, int(float64(size) * float64(h) / float64(w))
	}
	return int(float64(size) * float64(w) / float64(h)), size
}

func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float32, len(logits))
	var sum float64
	for i, l := range logits {
		e := math.Exp(float64(l - maxLogit))
		probs[i] = float32(e)
		sum += e
	}
	for i := range probs {
		probs[i] = float32(float64(probs[i]) / sum)
	}
	return probs
}

// Argmax returns the index and value of the largest element, -1 if empty.
func Argmax(values []float32) (int, float32) {
	best := -1
	var bestVal float32
	for i, v := range values {
		if best < 0 || v > bestVal {
			best, bestVal = i, v
		}
	}
	return best, bestVal
}
