// Package safety is the single gate every simplification result must pass
// before disclaimer injection and before being returned or stored. It checks
// that numeric values survived simplification verbatim and that the generated
// text carries no diagnosis, treatment or dosage-change language.
package safety

import (
	"regexp"
	"strconv"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
)

var numericToken = regexp.MustCompile(`\d+(?:\.\d+)?[a-zA-Z%]*`)
var numericValue = regexp.MustCompile(`\d+(?:\.\d+)?`)

const (
	baseConfidence    = 0.98
	violationDiscount = 0.08
	floorConfidence   = 0.50
)

// Validator holds the per-language pattern tables, compiled once at startup.
type Validator struct {
	families map[string][]family
}

func NewValidator(languages []string) *Validator {
	v := &Validator{families: make(map[string][]family, len(languages))}
	for _, lang := range languages {
		v.families[lang] = compileFamilies(lang)
	}
	// English is also the fallback table for unknown languages, so it is
	// always compiled even when not configured.
	if _, ok := v.families["en"]; !ok {
		v.families["en"] = compileFamilies("en")
	}
	return v
}

// Validate checks simplified against original. Every violated family is
// reported, not just the first; any single violation fails the verdict.
// The check is pure: no logging here, the caller owns privacy-safe logging.
func (v *Validator) Validate(simplified, original, lang string) domain.SafetyVerdict {
	var violations []domain.Violation

	if missing := missingNumerics(original, simplified); len(missing) > 0 {
		violations = append(violations, domain.ViolationNumeric)
	}

	families, ok := v.families[lang]
	if !ok {
		families = v.families["en"]
	}
	for _, f := range families {
		for _, p := range f.patterns {
			if p.MatchString(simplified) {
				violations = append(violations, f.kind)
				break
			}
		}
	}

	return domain.SafetyVerdict{
		Passed:     len(violations) == 0,
		Violations: violations,
		Confidence: confidence(len(violations)),
	}
}

// MissingNumerics returns the original numeric tokens whose values do not
// survive into the simplified text, for diagnostics. Never surfaced to the
// end user.
func (v *Validator) MissingNumerics(original, simplified string) []string {
	return missingNumerics(original, simplified)
}

// missingNumerics extracts the multiset of numeric tokens from each text and
// reports every original token whose value is absent (or depleted) in the
// simplified multiset. Comparison is by numeric value, so "500mg" is
// preserved by "500 milligrams".
func missingNumerics(original, simplified string) []string {
	available := map[float64]int{}
	for _, tok := range numericToken.FindAllString(simplified, -1) {
		available[tokenValue(tok)]++
	}

	var missing []string
	for _, tok := range numericToken.FindAllString(original, -1) {
		val := tokenValue(tok)
		if available[val] > 0 {
			available[val]--
			continue
		}
		missing = append(missing, tok)
	}
	return missing
}

func tokenValue(tok string) float64 {
	num := numericValue.FindString(tok)
	val, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return -1
	}
	return val
}

// confidence is monotonically non-increasing in the number of violations.
// It is diagnostic only; verdict correctness depends solely on Passed and
// the violation labels.
func confidence(violations int) float64 {
	c := baseConfidence - float64(violations)*violationDiscount
	if c < floorConfidence {
		return floorConfidence
	}
	return c
}

// Languages lists the languages with a precompiled pattern table.
func (v *Validator) Languages() []string {
	langs := make([]string, 0, len(v.families))
	for lang := range v.families {
		langs = append(langs, lang)
	}
	return langs
}
