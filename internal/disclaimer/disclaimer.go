// Package disclaimer appends the mandatory per-language notice to AI-derived
// health content. Disclaimers come from a fixed table, never generated text,
// so the mandatory-notice invariant holds unconditionally.
package disclaimer

import (
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
)

// ApprovedPhrases are the phrases at least one of which every disclaimer
// entry must contain, per language.
var ApprovedPhrases = map[string][]string{
	"en": {"informational purposes only", "not a diagnosis"},
	"hi": {"केवल जानकारी के लिए", "निदान नहीं"},
}

var table = map[string]map[domain.ContentKind]string{
	"en": {
		domain.KindPrescription: "This simplified explanation is for informational purposes only and is not a diagnosis or medical advice. Always follow your doctor's original prescription.",
		domain.KindSymptom:      "This information is for informational purposes only and is not a diagnosis. Please consult a doctor about your symptoms.",
		domain.KindMedicine:     "This medicine information is for informational purposes only and is not a diagnosis or a recommendation. Consult your doctor or pharmacist.",
	},
	"hi": {
		domain.KindPrescription: "यह सरल विवरण केवल जानकारी के लिए है, यह निदान नहीं है। हमेशा अपने डॉक्टर के मूल पर्चे का पालन करें।",
		domain.KindSymptom:      "यह जानकारी केवल जानकारी के लिए है, यह निदान नहीं है। कृपया अपने लक्षणों के बारे में डॉक्टर से सलाह लें।",
		domain.KindMedicine:     "यह दवा की जानकारी केवल जानकारी के लिए है, यह निदान नहीं है। अपने डॉक्टर या फार्मासिस्ट से सलाह लें।",
	},
}

// Text returns the fixed disclaimer for a content kind and language.
// Unknown languages fall back to English.
func Text(kind domain.ContentKind, lang string) string {
	entries, ok := table[lang]
	if !ok {
		entries = table["en"]
	}
	if d, ok := entries[kind]; ok {
		return d
	}
	return entries[domain.KindPrescription]
}

// Compose appends the disclaimer for kind and lang to text.
func Compose(text string, kind domain.ContentKind, lang string) string {
	return text + "\n\n" + Text(kind, lang)
}
