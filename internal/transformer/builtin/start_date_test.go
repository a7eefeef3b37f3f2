package builtin

import (
	"errors"
	"testing"

	"onmcombine/internal/record"
)

func TestStartDate(t *testing.T) {
	t.Parallel()

	in := record.Record{FieldStartTime: "2022-05-01T03:00:00"}
	got, err := StartDate{}.Apply(in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got[FieldStartDate] != "2022-05-01" {
		t.Fatalf("start_date = %q, want 2022-05-01", got[FieldStartDate])
	}
	if _, ok := in[FieldStartDate]; ok {
		t.Fatalf("input mutated")
	}
}

func TestStartDate_CutsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"2022年05月01日T03": "2022年05月01",
		"2022-05-0é":      "2022-05-0é",
	} {
		got, err := StartDate{}.Apply(record.Record{FieldStartTime: in})
		if err != nil {
			t.Fatalf("Apply(%q): %v", in, err)
		}
		if got[FieldStartDate] != want {
			t.Fatalf("start_date(%q) = %q, want %q", in, got[FieldStartDate], want)
		}
	}
}

func TestStartDate_Malformed(t *testing.T) {
	t.Parallel()

	for _, in := range []record.Record{
		{},
		{FieldStartTime: ""},
		{FieldStartTime: "2022-05"},
		{FieldStartTime: "2022年05月"}, // 12 bytes, 8 characters
	} {
		if _, err := (StartDate{}).Apply(in); !errors.Is(err, ErrMalformedStartTime) {
			t.Fatalf("Apply(%v) err = %v, want ErrMalformedStartTime", in, err)
		}
	}
}

func TestAdhocChain(t *testing.T) {
	t.Parallel()

	in := record.Record{
		FieldStartTime:           "2022-05-01 03:00:00",
		FieldTestedLast30d:       "0",
		FieldSoughtTesting:       "0",
		FieldHowAreYouFeel:       "2",
		"what_type_medical_pcr":  "",
		"symptom_last7_day_mc_4": "NA",
	}
	got, err := AdhocChain().Apply(in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := map[string]string{
		FieldStartDate:           "2022-05-01",
		"what_type_medical_pcr":  "0",
		"symptom_last7_day_mc_4": "0",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}
