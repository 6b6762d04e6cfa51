package plan

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform/builtin"
)

func TestParseFailureMode(t *testing.T) {
	cases := map[string]FailureMode{
		"stop-pipeline": StopPipeline,
		"continue":      Continue,
		"log-and-skip":  LogAndSkip,
	}
	for s, want := range cases {
		got, err := ParseFailureMode(s)
		if err != nil {
			t.Fatalf("ParseFailureMode(%q): %v", s, err)
		}
		if got != want {
			t.Errorf("ParseFailureMode(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseFailureMode("bogus"); err == nil {
		t.Error("ParseFailureMode(\"bogus\") = nil error, want error")
	}
}

func TestEmptyPlanHasNoExplicitFailureMode(t *testing.T) {
	if Empty.HasExplicitFailureMode {
		t.Error("Empty.HasExplicitFailureMode = true, want false")
	}
	if !Empty.IsEmpty() {
		t.Error("Empty.IsEmpty() = false, want true")
	}
}

func newTransform(t *testing.T, factory transform.Factory, json string) transform.Transform {
	t.Helper()
	tr := factory()
	if err := tr.Configure(transform.NewParamBag(json)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return tr
}

func TestDetailEqual(t *testing.T) {
	a := Detail{
		Request: []Entry{
			{Order: 0, Transform: newTransform(t, builtin.NewAddHeader, `{"name":"X","value":"v"}`)},
			{Order: 1, Transform: newTransform(t, builtin.NewCorrelationID, "")},
		},
		Timeout:                5 * time.Second,
		FailureMode:            Continue,
		HasExplicitFailureMode: true,
	}
	b := Detail{
		Request: []Entry{
			{Order: 0, Transform: newTransform(t, builtin.NewAddHeader, `{"name":"X","value":"different"}`)},
			{Order: 1, Transform: newTransform(t, builtin.NewCorrelationID, "")},
		},
		Timeout:                5 * time.Second,
		FailureMode:            Continue,
		HasExplicitFailureMode: true,
	}
	if !a.Equal(b) {
		t.Error("a.Equal(b) = false, want true (entry configuration values don't affect plan identity)")
	}

	c := b
	c.Request = append([]Entry(nil), b.Request...)
	c.Request[1] = Entry{Order: 2, Transform: b.Request[1].Transform}
	if a.Equal(c) {
		t.Error("a.Equal(c) = true, want false (differing Order)")
	}

	if a.Equal(Empty) {
		t.Error("a.Equal(Empty) = true, want false")
	}
}

// entryShape is the comparable projection of an Entry used by
// TestDetailShapeDiff: Transform values hold unexported state and are
// never directly comparable, but their (Order, Name) shape is what
// Detail.Equal actually cares about, so that is what gets diffed.
type entryShape struct {
	Order int
	Name  string
}

func shapeOf(entries []Entry) []entryShape {
	out := make([]entryShape, len(entries))
	for i, e := range entries {
		out[i] = entryShape{Order: e.Order, Name: e.Transform.Name()}
	}
	return out
}

func TestDetailShapeDiff(t *testing.T) {
	a := Detail{Request: []Entry{
		{Order: 10, Transform: newTransform(t, builtin.NewCorrelationID, "")},
		{Order: 20, Transform: newTransform(t, builtin.NewStripAuthorization, "")},
	}}
	b := Detail{Request: []Entry{
		{Order: 10, Transform: newTransform(t, builtin.NewCorrelationID, "")},
		{Order: 20, Transform: newTransform(t, builtin.NewAddHeader, `{"name":"X","value":"v"}`)},
	}}

	if diff := cmp.Diff(shapeOf(a.Request), shapeOf(b.Request)); diff == "" {
		t.Error("cmp.Diff = empty, want a difference at the second entry's name")
	}

	c := Detail{Request: []Entry{
		{Order: 10, Transform: newTransform(t, builtin.NewCorrelationID, "")},
		{Order: 20, Transform: newTransform(t, builtin.NewStripAuthorization, "")},
	}}
	if diff := cmp.Diff(shapeOf(a.Request), shapeOf(c.Request)); diff != "" {
		t.Errorf("cmp.Diff = %s, want no difference", diff)
	}
}
