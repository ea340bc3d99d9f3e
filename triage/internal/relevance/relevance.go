// CLAUDE:SUMMARY Types and numeric gates for the adaptive relevance engine: Event, Policy, lifecycle phases.
// Package relevance contains the pure logic of the adaptive relevance
// engine: deriving a learning policy from feedback history, steering the
// live score cutoff, and applying the policy to ranked results.
//
// Nothing here touches storage or the network. Callers load feedback,
// call into this package, and persist what comes back.
package relevance

// Action is what the user did with an item.
type Action string

const (
	ActionSaved   Action = "saved"
	ActionHidden  Action = "hidden"
	ActionViewed  Action = "viewed"
	ActionIgnored Action = "ignored"
)

// ValidAction reports whether s is a known feedback action.
func ValidAction(s string) bool {
	switch Action(s) {
	case ActionSaved, ActionHidden, ActionViewed, ActionIgnored:
		return true
	}
	return false
}

// Event is one feedback observation, enriched with the item's categorical
// attributes so boost derivation can see them. Score is the similarity
// score the item had at the moment of the action, not the current one.
type Event struct {
	Action         Action
	Score          int
	Authority      string
	Classification string
	Timestamp      int64
}

// Policy is the derived, cacheable scoring policy for one inbox.
// It is a pure function of the inbox's feedback history, except for
// DynamicMinScore and the adjustment bookkeeping, which form a live
// operating point evolved incrementally by AdjustThreshold.
type Policy struct {
	MinRelevanceScore   int `json:"min_relevance_score"`
	MaxIrrelevanceScore int `json:"max_irrelevance_score"`

	// DynamicMinScore is the live cutoff passed as the minimum-score
	// parameter to the similarity search itself. Bounded [30,70].
	DynamicMinScore int `json:"dynamic_min_score"`

	AuthorityBoosts      map[string]int `json:"authority_boosts"`
	ClassificationBoosts map[string]int `json:"classification_boosts"`

	// ConfidenceLevel in [0,100] is a volume proxy, not a statistical
	// measure; it only gates how aggressively the policy is applied.
	ConfidenceLevel int `json:"confidence_level"`

	TotalFeedback int `json:"total_feedback"`
	SavedCount    int `json:"saved_count"`
	HiddenCount   int `json:"hidden_count"`
	ViewedCount   int `json:"viewed_count"`

	ExpandCount    int   `json:"expand_count"`
	NarrowCount    int   `json:"narrow_count"`
	LastAdjustedAt int64 `json:"last_adjusted_at"`
}

const (
	// BootstrapMinScore is the permissive starting cutoff: early inboxes
	// must show enough items to generate feedback at all.
	BootstrapMinScore = 30

	// DynamicFloor and DynamicCeil bound the live cutoff.
	DynamicFloor = 30
	DynamicCeil  = 70

	// AdjustStep is the only increment the controller moves in.
	AdjustStep = 10

	// ConfidenceFullAt is the feedback count at which confidence hits 100.
	ConfidenceFullAt = 20

	// Gates for the ranking pipeline. Boosting mutates scores and needs
	// more evidence than merely filtering.
	boostMinFeedback   = 10
	boostMinConfidence = 50
	bandMinFeedback    = 5
	bandMinConfidence  = 30
)

// Phase describes where an inbox sits in its learning lifecycle.
// There is no stored phase field; it is always recomputed from counters.
type Phase string

const (
	PhaseNoFeedback           Phase = "no_feedback"
	PhaseLearning             Phase = "learning"
	PhaseActiveLowConfidence  Phase = "active_low_confidence"
	PhaseActiveHighConfidence Phase = "active_high_confidence"
)

// PolicyPhase returns the lifecycle phase for p.
func PolicyPhase(p *Policy) Phase {
	switch {
	case p == nil || p.TotalFeedback == 0:
		return PhaseNoFeedback
	case p.TotalFeedback < bandMinFeedback:
		return PhaseLearning
	case p.TotalFeedback < ConfidenceFullAt:
		return PhaseActiveLowConfidence
	default:
		return PhaseActiveHighConfidence
	}
}

// Bootstrap returns the policy for an inbox with no feedback: full band,
// permissive cutoff, zero confidence, no boosts.
func Bootstrap() *Policy {
	return &Policy{
		MinRelevanceScore:    0,
		MaxIrrelevanceScore:  100,
		DynamicMinScore:      BootstrapMinScore,
		AuthorityBoosts:      map[string]int{},
		ClassificationBoosts: map[string]int{},
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
