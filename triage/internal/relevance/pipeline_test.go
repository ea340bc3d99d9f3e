package relevance

import (
	"reflect"
	"testing"
)

func results(scores ...int) []Scored {
	out := make([]Scored, len(scores))
	for i, s := range scores {
		out[i] = Scored{ItemID: string(rune('a' + i)), Score: s}
	}
	return out
}

func ids(rs []Scored) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ItemID
	}
	return out
}

func TestApply_NilPolicy(t *testing.T) {
	in := results(90, 80, 70)
	out := Apply(in, nil)
	if !reflect.DeepEqual(in, out) {
		t.Errorf("nil policy must be a pass-through: %v != %v", out, in)
	}
}

func TestApply_BandGateBelowFiveEvents(t *testing.T) {
	// Aggressive band, but only 4 events: the threshold stage must not
	// filter anything.
	p := &Policy{
		MinRelevanceScore:   60,
		MaxIrrelevanceScore: 80,
		TotalFeedback:       4,
		ConfidenceLevel:     20,
	}
	in := results(95, 50, 30)
	out := Apply(in, p)
	if len(out) != len(in) {
		t.Fatalf("threshold stage filtered below the gate: %d results, want %d", len(out), len(in))
	}
}

func TestApply_BoostGateBelowTenEvents(t *testing.T) {
	p := &Policy{
		MinRelevanceScore:    0,
		MaxIrrelevanceScore:  100,
		AuthorityBoosts:      map[string]int{"acme": 15},
		ClassificationBoosts: map[string]int{},
		TotalFeedback:        9,
		ConfidenceLevel:      45,
	}
	in := []Scored{{ItemID: "a", Score: 60, Authority: "acme"}}
	out := Apply(in, p)
	if out[0].Score != 60 {
		t.Errorf("score = %d, want 60 (boost stage gated below 10 events)", out[0].Score)
	}
}

func TestApply_BandFilters(t *testing.T) {
	p := &Policy{
		MinRelevanceScore:    40,
		MaxIrrelevanceScore:  90,
		AuthorityBoosts:      map[string]int{},
		ClassificationBoosts: map[string]int{},
		TotalFeedback:        8,
		ConfidenceLevel:      40,
	}
	in := results(95, 85, 60, 39)
	out := Apply(in, p)

	want := []string{"b", "c"} // 95 above the ceiling, 39 below the floor
	if !reflect.DeepEqual(ids(out), want) {
		t.Errorf("kept %v, want %v", ids(out), want)
	}
}

func TestApply_BoostsAndClamp(t *testing.T) {
	p := &Policy{
		MinRelevanceScore:    0,
		MaxIrrelevanceScore:  100,
		AuthorityBoosts:      map[string]int{"acme": 15, "blog": -15},
		ClassificationBoosts: map[string]int{"ad": -10},
		TotalFeedback:        20,
		ConfidenceLevel:      100,
	}
	in := []Scored{
		{ItemID: "a", Score: 95, Authority: "acme"},                    // clamps at 100
		{ItemID: "b", Score: 60, Authority: "blog", Classification: "ad"}, // stacks to 35
		{ItemID: "c", Score: 70},                                       // untouched
	}
	out := Apply(in, p)

	byID := map[string]int{}
	for _, r := range out {
		byID[r.ItemID] = r.Score
	}
	if byID["a"] != 100 {
		t.Errorf("a = %d, want 100 (clamped)", byID["a"])
	}
	if byID["b"] != 35 {
		t.Errorf("b = %d, want 35 (-15 -10)", byID["b"])
	}
	if byID["c"] != 70 {
		t.Errorf("c = %d, want 70", byID["c"])
	}
}

func TestApply_ResortAfterBoost(t *testing.T) {
	p := &Policy{
		MinRelevanceScore:    0,
		MaxIrrelevanceScore:  100,
		AuthorityBoosts:      map[string]int{"acme": 12},
		ClassificationBoosts: map[string]int{},
		TotalFeedback:        20,
		ConfidenceLevel:      100,
	}
	in := []Scored{
		{ItemID: "a", Score: 80},
		{ItemID: "b", Score: 75, Authority: "acme"}, // boosted to 87, overtakes a
		{ItemID: "c", Score: 70},
	}
	out := Apply(in, p)

	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(ids(out), want) {
		t.Errorf("order = %v, want %v", ids(out), want)
	}
}

func TestApply_StableTies(t *testing.T) {
	p := &Policy{MinRelevanceScore: 0, MaxIrrelevanceScore: 100,
		AuthorityBoosts: map[string]int{}, ClassificationBoosts: map[string]int{},
		TotalFeedback: 20, ConfidenceLevel: 100}
	in := []Scored{
		{ItemID: "first", Score: 60},
		{ItemID: "second", Score: 60},
		{ItemID: "third", Score: 60},
	}
	out := Apply(in, p)
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(ids(out), want) {
		t.Errorf("tie order = %v, want original similarity order %v", ids(out), want)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	p := &Policy{MinRelevanceScore: 50, MaxIrrelevanceScore: 100,
		AuthorityBoosts: map[string]int{"acme": 10}, ClassificationBoosts: map[string]int{},
		TotalFeedback: 20, ConfidenceLevel: 100}
	in := []Scored{{ItemID: "a", Score: 60, Authority: "acme"}, {ItemID: "b", Score: 40}}
	snapshot := make([]Scored, len(in))
	copy(snapshot, in)

	Apply(in, p)
	if !reflect.DeepEqual(in, snapshot) {
		t.Errorf("input mutated: %v != %v", in, snapshot)
	}
}
