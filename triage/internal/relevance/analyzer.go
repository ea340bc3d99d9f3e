// CLAUDE:SUMMARY Pattern analyzer: full feedback history for one inbox → Learning Policy (band, confidence, boosts).
package relevance

import "math"

// Analyze derives a full Policy from the complete feedback history of one
// inbox. Deterministic: the ledger is authoritative and the returned
// policy is a materialized view of it. The live cutoff and adjustment
// bookkeeping are carried over from prev (they are an operating point,
// not a historical summary); pass nil for a fresh inbox.
func Analyze(events []Event, prev *Policy) *Policy {
	if len(events) == 0 {
		p := Bootstrap()
		if prev != nil {
			p.DynamicMinScore = clamp(prev.DynamicMinScore, DynamicFloor, DynamicCeil)
			p.ExpandCount = prev.ExpandCount
			p.NarrowCount = prev.NarrowCount
			p.LastAdjustedAt = prev.LastAdjustedAt
		}
		return p
	}

	p := &Policy{
		MinRelevanceScore:    0,
		MaxIrrelevanceScore:  100,
		DynamicMinScore:      BootstrapMinScore,
		AuthorityBoosts:      map[string]int{},
		ClassificationBoosts: map[string]int{},
		TotalFeedback:        len(events),
	}
	if prev != nil {
		p.DynamicMinScore = clamp(prev.DynamicMinScore, DynamicFloor, DynamicCeil)
		p.ExpandCount = prev.ExpandCount
		p.NarrowCount = prev.NarrowCount
		p.LastAdjustedAt = prev.LastAdjustedAt
	}

	lowestSaved, highestHidden := -1, -1
	for _, e := range events {
		switch e.Action {
		case ActionSaved:
			p.SavedCount++
			if lowestSaved < 0 || e.Score < lowestSaved {
				lowestSaved = e.Score
			}
		case ActionHidden:
			p.HiddenCount++
			if e.Score > highestHidden {
				highestHidden = e.Score
			}
		case ActionViewed:
			p.ViewedCount++
		}
	}

	// A save at score S is direct evidence S is acceptable: floor sits a
	// small margin below it. A hide at score H says H was not sufficient
	// despite the raw similarity: ceiling sits a small margin above it.
	if lowestSaved >= 0 {
		p.MinRelevanceScore = max(0, lowestSaved-10)
	}
	if highestHidden >= 0 {
		p.MaxIrrelevanceScore = min(100, highestHidden+5)
	}

	p.ConfidenceLevel = min(100, p.TotalFeedback*100/ConfidenceFullAt)

	p.AuthorityBoosts = deriveBoosts(events, func(e Event) string { return e.Authority })
	p.ClassificationBoosts = deriveBoosts(events, func(e Event) string { return e.Classification })

	return p
}

// boostMinObservations is the minimum saved+hidden events carrying a
// given attribute value before a boost is derived for it.
const boostMinObservations = 3

// maxBoost bounds the additive adjustment either direction.
const maxBoost = 15

// deriveBoosts compares each attribute value's save rate against the
// inbox-wide baseline save rate and scales the difference to a bounded
// additive score adjustment. Values with too few observations, or no
// measurable difference, get no entry.
func deriveBoosts(events []Event, key func(Event) string) map[string]int {
	type tally struct{ saved, hidden int }
	perValue := map[string]*tally{}
	var totalSaved, totalHidden int

	for _, e := range events {
		if e.Action != ActionSaved && e.Action != ActionHidden {
			continue
		}
		v := key(e)
		if v == "" {
			continue
		}
		t := perValue[v]
		if t == nil {
			t = &tally{}
			perValue[v] = t
		}
		if e.Action == ActionSaved {
			t.saved++
			totalSaved++
		} else {
			t.hidden++
			totalHidden++
		}
	}

	boosts := map[string]int{}
	totalActions := totalSaved + totalHidden
	if totalActions == 0 {
		return boosts
	}
	baseline := float64(totalSaved) / float64(totalActions)

	for v, t := range perValue {
		n := t.saved + t.hidden
		if n < boostMinObservations {
			continue
		}
		rate := float64(t.saved) / float64(n)
		boost := int(math.Round((rate - baseline) * 30))
		boost = clamp(boost, -maxBoost, maxBoost)
		if boost != 0 {
			boosts[v] = boost
		}
	}
	return boosts
}
