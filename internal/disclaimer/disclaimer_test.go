package disclaimer

import (
	"strings"
	"testing"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
)

func TestEveryEntryContainsAnApprovedPhrase(t *testing.T) {
	for lang, entries := range table {
		phrases, ok := ApprovedPhrases[lang]
		if !ok {
			t.Fatalf("language %q has disclaimers but no approved phrases", lang)
		}
		for kind, text := range entries {
			found := false
			for _, phrase := range phrases {
				if strings.Contains(text, phrase) {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("disclaimer %s/%s lacks an approved phrase: %q", lang, kind, text)
			}
		}
	}
}

func TestComposeAppendsDisclaimer(t *testing.T) {
	body := "Metformin tablet, 500 milligrams."
	out := Compose(body, domain.KindPrescription, "en")

	if !strings.HasPrefix(out, body) {
		t.Fatalf("compose must keep the original text first, got %q", out)
	}
	if !strings.Contains(out, "informational purposes only") {
		t.Fatalf("composed text lacks the mandatory phrase: %q", out)
	}
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	out := Text(domain.KindSymptom, "bn")
	if out != table["en"][domain.KindSymptom] {
		t.Fatalf("expected english fallback, got %q", out)
	}
}

func TestAllKindsCovered(t *testing.T) {
	kinds := []domain.ContentKind{domain.KindPrescription, domain.KindSymptom, domain.KindMedicine}
	for lang := range table {
		for _, kind := range kinds {
			if Text(kind, lang) == "" {
				t.Fatalf("missing disclaimer for %s/%s", lang, kind)
			}
		}
	}
}
