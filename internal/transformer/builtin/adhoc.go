package builtin

import "onmcombine/internal/transformer"

// AdhocChain is the correction sequence every ad-hoc row goes through before
// it is written: test-type fix, then symptom fix, then start_date derivation.
func AdhocChain() transformer.Chain {
	return transformer.Chain{TestTypeFix{}, SymptomFix{}, StartDate{}}
}
