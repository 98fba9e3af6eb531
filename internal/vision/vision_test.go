package vision_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vision-chat/internal/vision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocessShapeAndNormalization(t *testing.T) {
	img := solidImage(320, 240, color.RGBA{R: 255, G: 0, B: 128, A: 255})

	tensor, err := vision.Preprocess(img)
	require.NoError(t, err)
	require.Len(t, tensor, 3*vision.CropSize*vision.CropSize)

	plane := vision.CropSize * vision.CropSize
	expected := []float32{
		(1.0 - 0.485) / 0.229,
		(0.0 - 0.456) / 0.224,
		(128.0/255 - 0.406) / 0.225,
	}
	for c := 0; c < 3; c++ {
		// one 8-bit step of interpolation rounding is tolerated
		for _, i := range []int{0, plane / 2, plane - 1} {
			assert.InDelta(t, expected[c], tensor[c*plane+i], 0.02, "channel %d index %d", c, i)
		}
	}
}

func TestPreprocessSmallImage(t *testing.T) {
	// smaller than the crop, gets upscaled
	tensor, err := vision.Preprocess(solidImage(10, 30, color.White))
	require.NoError(t, err)
	assert.Len(t, tensor, 3*vision.CropSize*vision.CropSize)
}

func TestPreprocessEmptyImage(t *testing.T) {
	_, err := vision.Preprocess(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}

func TestSoftmaxAndArgmax(t *testing.T) {
	probs := vision.Softmax([]float32{1, 3, 2})

	var sum float32
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-5)

	idx, p := vision.Argmax(probs)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 0.6652, p, 1e-3)

	idx, _ = vision.Argmax(nil)
	assert.Equal(t, -1, idx)
	assert.Nil(t, vision.Softmax(nil))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "I see a tabby cat! Confidence: 0.87",
		vision.Describe(vision.Prediction{Label: "tabby cat", Probability: 0.8712}, 0.5))

	assert.Equal(t, vision.LowConfidenceReply,
		vision.Describe(vision.Prediction{Label: "tabby cat", Probability: 0.5}, 0.5))
	assert.Equal(t, vision.LowConfidenceReply,
		vision.Describe(vision.Prediction{Label: "tabby cat", Probability: 0.12}, 0.5))

	assert.Equal(t, "Error processing the image: boom", vision.DescribeError(errors.New("boom")))
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(path, []byte(`["tench", "goldfish", "great white shark"]`), 0o644))
	labels, err := vision.LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tench", "goldfish", "great white shark"}, labels)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o644))
	_, err = vision.LoadLabels(empty)
	assert.Error(t, err)

	_, err = vision.LoadLabels(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

type fixedClassifier struct {
	pred vision.Prediction
	seen image.Rectangle
}

func (c *fixedClassifier) Classify(ctx context.Context, img image.Image) (vision.Prediction, error) {
	c.seen = img.Bounds()
	return c.pred, nil
}

func (c *fixedClassifier) Release() {}

func TestClassifyReader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(8, 6, color.Black)))

	c := &fixedClassifier{pred: vision.Prediction{ClassIndex: 2, Label: "goldfish", Probability: 0.9}}
	pred, err := vision.ClassifyReader(context.Background(), c, &buf)
	require.NoError(t, err)
	assert.Equal(t, "goldfish", pred.Label)
	assert.Equal(t, image.Rect(0, 0, 8, 6), c.seen)

	_, err = vision.ClassifyReader(context.Background(), c, strings.NewReader("definitely not an image"))
	assert.Error(t, err)
}

// pngWithSize encodes a tiny png and rewrites its IHDR to declare w x h.
func pngWithSize(t *testing.T, w, h uint32) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(1, 1, color.Black)))
	data := buf.Bytes()

	// 8 byte signature, then IHDR: length(4) type(4) width(4) height(4) ... crc(4)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestClassifyReaderRejectsHugeCanvas(t *testing.T) {
	c := &fixedClassifier{}
	_, err := vision.ClassifyReader(context.Background(), c, bytes.NewReader(pngWithSize(t, 100000, 100000)))
	assert.ErrorIs(t, err, vision.ErrImageTooLarge)
	assert.Equal(t, image.Rectangle{}, c.seen)
}

func TestPreprocessRejectsExtremeAspectRatio(t *testing.T) {
	_, err := vision.Preprocess(image.NewGray(image.Rect(0, 0, 1, 60000)))
	assert.ErrorIs(t, err, vision.ErrImageTooLarge)

	_, err = vision.Preprocess(image.NewGray(image.Rect(0, 0, 60000, 1)))
	assert.ErrorIs(t, err, vision.ErrImageTooLarge)
}

func TestLoadClassifier(t *testing.T) {
	vision.RegisterClassifierLoader("fixed", func(modelPath string, labels []string) (vision.Classifier, error) {
		return &fixedClassifier{pred: vision.Prediction{Label: labels[0]}}, nil
	})

	c, err := vision.LoadClassifier("fixed", "", []string{"tench"})
	require.NoError(t, err)
	pred, err := c.Classify(context.Background(), solidImage(1, 1, color.White))
	require.NoError(t, err)
	assert.Equal(t, "tench", pred.Label)

	_, err = vision.LoadClassifier("missing", "", nil)
	assert.ErrorIs(t, err, vision.ErrUnknownModelType)
}
