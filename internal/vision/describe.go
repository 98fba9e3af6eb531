package vision

import "fmt"

const (
	DefaultConfidenceThreshold = 0.5

	LowConfidenceReply = "I can't recognize this image with enough confidence."
)

// Describe turns a prediction into the bot's reply. Predictions at or below
// threshold are reported as unrecognized.
func Describe(pred Prediction, threshold float32) string {
	if pred.Probability > threshold {
		return fmt.Sprintf("I see a %s! Confidence: %.2f", pred.Label, pred.Probability)
	}
	return LowConfidenceReply
}

func DescribeError(err error) string {
	return fmt.Sprintf("Error processing the image: %v", err)
}
