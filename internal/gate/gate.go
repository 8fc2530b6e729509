// Package gate thresholds scored extraction output before it enters the
// pipeline. The decision is deterministic and carries a reason code suitable
// for user-facing guidance, never the raw comparison.
package gate

// ReasonLowImageQuality is returned when a confidence score falls below the
// configured threshold.
const ReasonLowImageQuality = "low_image_quality"

type Decision struct {
	Accepted bool
	Reason   string
}

// Admit accepts confidence scores at or above threshold.
func Admit(confidence, threshold float64) Decision {
	if confidence >= threshold {
		return Decision{Accepted: true}
	}
	return Decision{Accepted: false, Reason: ReasonLowImageQuality}
}
