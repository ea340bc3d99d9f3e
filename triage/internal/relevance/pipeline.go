// CLAUDE:SUMMARY Adaptive ranking pipeline: boost stage → band filter stage → stable re-sort, gated on feedback volume.
package relevance

import "sort"

// Scored is one similarity result flowing through the pipeline.
// Authority and Classification are the item's categorical attributes the
// boost stage keys on.
type Scored struct {
	ItemID         string
	Score          int
	Authority      string
	Classification string
}

// Apply runs the adaptive ranking pipeline over raw similarity results:
//
//  1. boost stage — only with TotalFeedback >= 10 and confidence >= 50
//     (score mutation is riskier than filtering and needs more evidence);
//  2. band filter stage — only with TotalFeedback >= 5 and confidence >= 30;
//     drops results outside [MinRelevanceScore, MaxIrrelevanceScore];
//  3. stable re-sort descending by final score, ties keeping the original
//     similarity order.
//
// With a nil policy, or below the gates, each stage is a pass-through: the
// pipeline behaves exactly like plain similarity search until there is a
// learning signal. The input slice is not mutated.
func Apply(results []Scored, p *Policy) []Scored {
	out := make([]Scored, len(results))
	copy(out, results)

	if p != nil {
		if p.TotalFeedback >= boostMinFeedback && p.ConfidenceLevel >= boostMinConfidence {
			for i := range out {
				b := p.AuthorityBoosts[out[i].Authority] + p.ClassificationBoosts[out[i].Classification]
				if b != 0 {
					out[i].Score = clamp(out[i].Score+b, 0, 100)
				}
			}
		}

		if p.TotalFeedback >= bandMinFeedback && p.ConfidenceLevel >= bandMinConfidence {
			kept := out[:0]
			for _, r := range out {
				if r.Score < p.MinRelevanceScore || r.Score > p.MaxIrrelevanceScore {
					continue
				}
				kept = append(kept, r)
			}
			out = kept
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
