package pipeline

import "github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"

// outcome is the fixed user-facing message and guidance for one terminal
// state. Responses draw from this table, never from freeform strings built at
// failure sites.
type outcome struct {
	message  string
	guidance []string
}

var outcomes = map[domain.PipelineState]outcome{
	domain.StateOcrRejected: {
		message: "We could not read the prescription clearly enough.",
		guidance: []string{
			"Take the photo in bright, even lighting.",
			"Place the prescription on a flat surface and avoid shadows.",
			"Make sure the whole page is inside the frame and in focus.",
		},
	},
	domain.StateServiceUnavailable: {
		message: "The simplification service is temporarily unavailable. Your original prescription text is shown instead.",
		guidance: []string{
			"Please try again in a few minutes.",
			"The text shown is exactly what was read from your prescription.",
		},
	},
	domain.StateSafetyFailed: {
		message: "We could not produce a safe simplified version of this prescription.",
		guidance: []string{
			"Please consult your doctor or pharmacist about this prescription.",
			"You can try uploading the prescription again.",
		},
	},
	domain.StateCompleted: {
		message: "Your prescription was simplified successfully.",
	},
}

func outcomeFor(state domain.PipelineState) outcome {
	return outcomes[state]
}
