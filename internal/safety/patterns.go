package safety

import (
	"regexp"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
)

// A family groups the compiled patterns for one violation kind in one
// language. Families are built once at validator construction and never
// mutated afterwards.
type family struct {
	kind     domain.Violation
	patterns []*regexp.Regexp
}

// Pattern sources per language. Matching is case-insensitive; families are
// evaluated in this fixed order so verdicts list violations deterministically.
var patternSources = map[string][]struct {
	kind  domain.Violation
	exprs []string
}{
	"en": {
		{
			kind: domain.ViolationDiagnosis,
			exprs: []string{
				`\byou (?:probably |likely |may )?have\b`,
				`\byou are suffering from\b`,
				`\bthis (?:indicates|suggests|shows|means)\b`,
				`\byou (?:have been|were|are) diagnosed\b`,
				`\bit looks like you have\b`,
			},
		},
		{
			kind: domain.ViolationTreatment,
			exprs: []string{
				`\byou should\b`,
				`\byou need to\b`,
				`\bwe recommend\b`,
				`\bit is advisable to\b`,
				`\bthis (?:treats|cures|prevents|will cure|will treat)\b`,
				`\btry taking\b`,
			},
		},
		{
			kind: domain.ViolationDosage,
			exprs: []string{
				`\b(?:increase|decrease|double|reduce|lower|raise) (?:your |the )?(?:dose|dosage|intake|frequency)\b`,
				`\bstop taking\b`,
				`\bskip (?:a|your|the) dose\b`,
				`\btake (?:more|less|extra|additional)\b`,
			},
		},
	},
	"hi": {
		{
			kind: domain.ViolationDiagnosis,
			exprs: []string{
				`आपको .{0,24}(?:बीमारी|रोग|समस्या) है`,
				`यह दर्शाता है`,
				`इसका मतलब है कि आपको`,
			},
		},
		{
			kind: domain.ViolationTreatment,
			exprs: []string{
				`आपको .{0,24}चाहिए`,
				`हम सलाह देते हैं`,
				`यह (?:इलाज|उपचार) (?:करता|करती) है`,
			},
		},
		{
			kind: domain.ViolationDosage,
			exprs: []string{
				`खुराक (?:बढ़ा|घटा|दोगुनी कर)`,
				`लेना बंद कर`,
				`ज़्यादा (?:गोली|दवा) ले`,
			},
		},
	},
}

func compileFamilies(lang string) []family {
	sources, ok := patternSources[lang]
	if !ok {
		sources = patternSources["en"]
	}
	families := make([]family, 0, len(sources))
	for _, src := range sources {
		f := family{kind: src.kind}
		for _, expr := range src.exprs {
			f.patterns = append(f.patterns, regexp.MustCompile(`(?i)`+expr))
		}
		families = append(families, f)
	}
	return families
}
