// Package builtin contains the correction rules applied to ad-hoc survey rows.
//
// Each rule enforces that sub-question answers only carry information when
// their gating question allows it. Ad-hoc extracts do not always apply those
// skips at collection time, so the merge applies them uniformly.
package builtin

import "onmcombine/internal/record"

// Field names and patterns referenced by the consistency rules.
const (
	FieldTestedLast30d   = "tested_for_covid19_last30d"
	FieldSoughtTesting   = "seen_health_professional_sought_testing"
	FieldHowAreYouFeel   = "how_are_you_feeling"
	PatternTestType      = "what_type_medical"
	PatternSymptomChoice = "symptom_last7_day_mc_"

	selected    = "1"
	notSelected = "0"
	feelingSick = "2"
)

// TestTypeFix normalizes the "what type of medical test" multi-choice answers
// of respondents who neither tested for COVID-19 nor sought testing in the last
// 30 days. A gating field that is absent counts as not selected.
type TestTypeFix struct{}

// Apply implements transformer.Transformer.
func (TestTypeFix) Apply(r record.Record) (record.Record, error) {
	if r.Is(FieldTestedLast30d, selected) || r.Is(FieldSoughtTesting, selected) {
		return r, nil
	}
	return normalizeChoices(r, PatternTestType), nil
}

// SymptomFix normalizes the last-7-day symptom multi-choice answers of
// respondents who reported feeling sick.
type SymptomFix struct{}

// Apply implements transformer.Transformer.
func (SymptomFix) Apply(r record.Record) (record.Record, error) {
	if !r.Is(FieldHowAreYouFeel, feelingSick) {
		return r, nil
	}
	return normalizeChoices(r, PatternSymptomChoice), nil
}

// normalizeChoices returns r with every field whose name contains pattern
// forced to "0" unless it is already "1". Blank and "NA" values are rewritten
// too. The input is never mutated; a copy is made on the first change.
func normalizeChoices(r record.Record, pattern string) record.Record {
	out := r
	copied := false
	for _, k := range r.KeysContaining(pattern) {
		if v := r[k]; v == selected || v == notSelected {
			continue
		}
		if !copied {
			out = r.Clone()
			copied = true
		}
		out[k] = notSelected
	}
	return out
}
