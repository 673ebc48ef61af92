package filter

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/starford/rollbook/internal/models"
	"github.com/starford/rollbook/internal/testutil"
)

func sample(t *testing.T) []models.Record {
	t.Helper()
	return []models.Record{
		testutil.Rec(t, "Alice", "2024-01-01", 55, "note A"),
		testutil.Rec(t, "Bob", "2024-02-01", 10, "note B"),
		testutil.Rec(t, "Alice", "2024-03-15", 100, ""),
		testutil.Rec(t, "Carol", "2023-12-31", 0, "first"),
		testutil.Rec(t, "Bob", "2024-03-15", 73, ""),
	}
}

func TestScenario_AliceOnly(t *testing.T) {
	records := testutil.AliceAndBob(t)
	c := Criteria{
		Names:   []string{"Alice"},
		From:    testutil.Date(t, "2024-01-01"),
		To:      testutil.Date(t, "2024-12-31"),
		MinRoll: 0,
		MaxRoll: 100,
	}
	got := Apply(records, c)
	if diff := cmp.Diff(records[:1], got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultsMatchEverything(t *testing.T) {
	records := sample(t)
	def := Defaults(records)

	if !def.From.Equal(testutil.Date(t, "2023-12-31")) || !def.To.Equal(testutil.Date(t, "2024-03-15")) {
		t.Errorf("date span = %v..%v", def.From, def.To)
	}
	if def.MinRoll != 0 || def.MaxRoll != 100 || len(def.Names) != 0 {
		t.Errorf("defaults = %+v", def)
	}
	if diff := cmp.Diff(records, Apply(records, def)); diff != "" {
		t.Errorf("unrestricted filter changed records (-want +got):\n%s", diff)
	}
}

func TestDefaults_Empty(t *testing.T) {
	def := Defaults(nil)
	if !def.From.IsZero() || !def.To.IsZero() {
		t.Errorf("empty defaults = %+v", def)
	}
	if got := Apply(nil, def); len(got) != 0 {
		t.Errorf("Apply(nil) = %v", got)
	}
}

func TestApply_BoundsAndIdempotence(t *testing.T) {
	records := sample(t)
	cases := []Criteria{
		{From: testutil.Date(t, "2024-01-01"), To: testutil.Date(t, "2024-02-01"), MinRoll: 0, MaxRoll: 100},
		{From: testutil.Date(t, "2000-01-01"), To: testutil.Date(t, "2030-01-01"), MinRoll: 50, MaxRoll: 100},
		{Names: []string{"Bob", "Carol"}, From: testutil.Date(t, "2000-01-01"), To: testutil.Date(t, "2030-01-01"), MinRoll: 0, MaxRoll: 10},
		{From: testutil.Date(t, "2024-03-15"), To: testutil.Date(t, "2024-03-15"), MinRoll: 100, MaxRoll: 100},
		{Names: []string{"Nobody"}, From: testutil.Date(t, "2000-01-01"), To: testutil.Date(t, "2030-01-01"), MaxRoll: 100},
	}
	for i, c := range cases {
		got := Apply(records, c)

		// Every output record is within bounds.
		for _, r := range got {
			if r.RollValue < c.MinRoll || r.RollValue > c.MaxRoll || r.Date.Before(c.From) || r.Date.After(c.To) {
				t.Errorf("case %d: out-of-bounds record %+v", i, r)
			}
		}

		// No matching record is omitted.
		want := 0
		for _, r := range records {
			if c.Match(r) {
				want++
			}
		}
		if len(got) != want {
			t.Errorf("case %d: got %d records, want %d", i, len(got), want)
		}

		if diff := cmp.Diff(got, Apply(got, c)); diff != "" {
			t.Errorf("case %d: not idempotent (-first +second):\n%s", i, diff)
		}
	}
}

func TestApply_PreservesOrder(t *testing.T) {
	records := sample(t)
	got := Apply(records, Criteria{Names: []string{"Bob", "Alice"}, From: testutil.Date(t, "2000-01-01"), To: testutil.Date(t, "2030-01-01"), MaxRoll: 100})
	var names []string
	for _, r := range got {
		names = append(names, r.CharacterName+"@"+r.DateString())
	}
	want := []string{"Alice@2024-01-01", "Bob@2024-02-01", "Alice@2024-03-15", "Bob@2024-03-15"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestNames(t *testing.T) {
	got := Names(sample(t))
	if diff := cmp.Diff([]string{"Alice", "Bob", "Carol"}, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	def := Defaults(sample(t))

	got, err := Parse(url.Values{}, def)
	if err != nil {
		t.Fatalf("Parse(empty): %v", err)
	}
	if diff := cmp.Diff(def, got); diff != "" {
		t.Errorf("blank values should keep defaults (-want +got):\n%s", diff)
	}

	v := url.Values{
		ParamName: {"Alice", " ", "Alice", "Bob"},
		ParamFrom: {"2024-03-01"},
		ParamTo:   {"2024-01-01"},
		ParamMin:  {"120"},
		ParamMax:  {"-5"},
	}
	got, err = Parse(v, def)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Criteria{
		Names:   []string{"Alice", "Bob"},
		From:    testutil.Date(t, "2024-01-01"),
		To:      testutil.Date(t, "2024-03-01"),
		MinRoll: 0,
		MaxRoll: 100,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("criteria mismatch (-want +got):\n%s", diff)
	}

	roundTrip, err := Parse(got.Values(), def)
	if err != nil {
		t.Fatalf("Parse(Values()): %v", err)
	}
	if diff := cmp.Diff(got, roundTrip); diff != "" {
		t.Errorf("Values round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, v := range []url.Values{
		{ParamFrom: {"01/02/2024"}},
		{ParamTo: {"soon"}},
		{ParamMin: {"low"}},
		{ParamMax: {"1.5"}},
	} {
		if _, err := Parse(v, Criteria{}); err == nil {
			t.Errorf("Parse(%v) should fail", v)
		}
	}
}
