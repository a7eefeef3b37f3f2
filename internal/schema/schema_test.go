package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const weight = "weight_daily_national_13plus"

func TestUnion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		primary []string
		adhoc   [][]string
		want    []string
	}{
		{
			name:    "primary_only_appends_weight",
			primary: []string{"id", "start_date"},
			want:    []string{"id", "start_date", weight},
		},
		{
			name:    "weight_already_present_keeps_position",
			primary: []string{weight, "id"},
			want:    []string{weight, "id"},
		},
		{
			name:    "adhoc_fields_append_in_first_seen_order",
			primary: []string{"id", "a"},
			adhoc: [][]string{
				{"a", "new_2", "new_1"},
				{"new_1", "new_3", "id"},
			},
			want: []string{"id", "a", "new_2", "new_1", "new_3", weight},
		},
		{
			name:    "excluded_removed_everywhere",
			primary: []string{"q73", "id", "q74"},
			adhoc:   [][]string{{"q74", "b", "q73"}},
			want:    []string{"id", "b", weight},
		},
		{
			name:    "duplicate_primary_names_collapse",
			primary: []string{"id", "id", "a"},
			want:    []string{"id", "a", weight},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Union(tc.primary, tc.adhoc, weight, DefaultExcluded).Fields()
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Union mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnion_AdhocOnlyFieldAppearsOnceAfterPrimary(t *testing.T) {
	t.Parallel()

	primary := []string{"id", "a", "b"}
	adhoc := [][]string{{"x"}, {"solo", "x"}, {"solo"}}
	s := Union(primary, adhoc, weight, DefaultExcluded)

	count := 0
	for _, f := range s.Fields() {
		if f == "solo" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("solo appears %d times, want 1", count)
	}
	if got := s.Fields()[len(primary)+1]; got != "solo" {
		t.Fatalf("field after x = %q, want solo", got)
	}
}

func TestSchema_FieldsIsACopy(t *testing.T) {
	t.Parallel()

	s := New("a", "b")
	f := s.Fields()
	f[0] = "mutated"
	if s.Fields()[0] != "a" {
		t.Fatalf("Fields exposes internal storage")
	}
	if diff := cmp.Diff([]string{"a", "b"}, New("b", "a").Sorted()); diff != "" {
		t.Fatalf("Sorted mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ReadsHeadersCaseInsensitively(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		return p
	}
	primary := write("full.csv", "ID,Q73,Start_Date\n1,x,2022-05-01\n")
	a1 := write("a_onm-adhoc.csv", "id,START_TIME,Q74,What_Type_Medical_1\n")
	a2 := write("b_onm-adhoc.csv", "id,start_time,how_are_you_feeling\n")

	s, err := Build(context.Background(), primary, []string{a1, a2}, weight, DefaultExcluded)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"id", "start_date", "start_time", "what_type_medical_1", "how_are_you_feeling", weight}
	if diff := cmp.Diff(want, s.Fields()); diff != "" {
		t.Fatalf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_MissingFileIsFatal(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), nil, weight, DefaultExcluded)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Build err = %v, want os.ErrNotExist", err)
	}
}
