// Package identify wraps a hosted vision-language model to name the film or
// show appearing in a list of media references.
package identify

import (
	"fmt"
)

// UnknownTitle is the sentinel title used when the model cannot identify the
// subject or its answer falls below the confidence floor.
const UnknownTitle = "unknown"

// ConfidenceFloor is the threshold below which a proposed title is discarded
// in favor of the unknown sentinel.
const ConfidenceFloor = 0.8

// Result is the model's verdict for one ordered reference list.
type Result struct {
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence_score"`
	Reasoning  string  `json:"reasoning"`
}

// Unknown reports whether the result carries the unknown sentinel.
func (r Result) Unknown() bool { return r.Title == UnknownTitle }

// ModelCallError reports that the hosted model stayed unavailable after all
// retry attempts were exhausted. It wraps the last underlying error.
type ModelCallError struct {
	Attempts int
	Err      error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }
