// CLAUDE:SUMMARY Dynamic threshold controller: expand/narrow the live cutoff from the recent feedback window.
package relevance

import "fmt"

const (
	// recentWindow is how many of the latest events the controller looks at.
	recentWindow = 20

	// minEventsForAdjust: below this total, the evidence is too thin and
	// the cutoff is returned unchanged.
	minEventsForAdjust = 10

	// Expand: the user keeps saving borderline matches just above the
	// cutoff, so recall should increase.
	expandMinLowSaves = 3
	expandMargin      = 10
	expandMinSaves    = 5

	// Narrow: a high hide rate means the cutoff admits too much noise.
	narrowHideRate   = 0.6
	narrowMinActions = 10
)

// AdjustThreshold proposes a new live cutoff from the most recent feedback.
// events must be in chronological order; current is the cutoff in effect.
// The returned reason is empty when nothing changed, otherwise a short
// human-readable explanation for the UI.
//
// Rule order matters: narrow is evaluated after expand and overwrites its
// proposal when both fire in the same invocation. The result is always
// clamped to [DynamicFloor, DynamicCeil] and moves in steps of AdjustStep —
// no smaller increments, no acceleration on strong signal.
func AdjustThreshold(events []Event, current int) (int, string) {
	if len(events) < minEventsForAdjust {
		return current, ""
	}

	recent := events
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}

	var saves, hides []Event
	for _, e := range recent {
		switch e.Action {
		case ActionSaved:
			saves = append(saves, e)
		case ActionHidden:
			hides = append(hides, e)
		}
	}

	proposed := current
	reason := ""

	lowSaves := 0
	for _, e := range saves {
		if e.Score > 0 && e.Score < current+expandMargin {
			lowSaves++
		}
	}
	if lowSaves >= expandMinLowSaves && len(saves) >= expandMinSaves {
		proposed = max(DynamicFloor, current-AdjustStep)
		reason = fmt.Sprintf("Expanded: %d recent saves scored within %d points of the cutoff", lowSaves, expandMargin)
	}

	actions := len(saves) + len(hides)
	if actions >= narrowMinActions {
		hideRate := float64(len(hides)) / float64(actions)
		if hideRate > narrowHideRate {
			proposed = min(DynamicCeil, current+AdjustStep)
			reason = fmt.Sprintf("Narrowed: %.0f%% of recent actions were hides", hideRate*100)
		}
	}

	proposed = clamp(proposed, DynamicFloor, DynamicCeil)
	if proposed == current {
		return current, ""
	}
	return proposed, reason
}
