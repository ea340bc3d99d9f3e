// CLAUDE:SUMMARY Feedback recording and policy recomputation from the full ledger.
package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/triage/triage/internal/relevance"
	"github.com/hazyhaar/triage/triage/internal/store"
	"github.com/hazyhaar/triage/vecindex"
)

// RecordFeedback validates and appends one event to the ledger. For
// saved/hidden actions on a learning inbox the policy is recomputed
// synchronously; a recompute failure keeps the appended event and the
// previous policy cache — the ledger is the system of record.
func (svc *Service) RecordFeedback(ctx context.Context, req *FeedbackRequest) (*store.FeedbackEvent, error) {
	if req.InboxID == "" {
		return nil, ErrMissingInbox
	}
	in, err := svc.GetInbox(ctx, req.InboxID)
	if err != nil {
		return nil, err
	}
	if req.ItemID == "" {
		return nil, fmt.Errorf("%w: item id required", ErrInvalidInput)
	}
	if !relevance.ValidAction(req.Action) {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, req.Action)
	}

	score := req.Score
	if score < 0 {
		score = svc.currentScore(ctx, in, req.ItemID)
	}
	if score > 100 {
		return nil, fmt.Errorf("%w: score %d outside [0,100]", ErrInvalidInput, req.Score)
	}

	ev := &store.FeedbackEvent{
		ID:             svc.newEventID(),
		InboxID:        req.InboxID,
		ItemID:         req.ItemID,
		Action:         req.Action,
		Score:          score,
		Reason:         req.Reason,
		ViewDurationMs: req.ViewDurationMs,
		CreatedAt:      time.Now().Unix(),
	}
	if err := svc.store.AppendFeedback(ctx, ev); err != nil {
		return nil, err
	}

	action := relevance.Action(req.Action)
	if !in.CatchAll && (action == relevance.ActionSaved || action == relevance.ActionHidden) {
		if _, err := svc.RecomputePolicy(ctx, req.InboxID); err != nil {
			svc.logger.Warn("policy recompute failed, cache kept",
				"inbox_id", req.InboxID, "error", err)
		}
	}
	return ev, nil
}

// RecomputePolicy rebuilds an inbox's policy from its full ledger and
// runs the threshold controller over it. Catch-all inboxes never learn:
// the call returns the (bootstrap) cache untouched.
func (svc *Service) RecomputePolicy(ctx context.Context, inboxID string) (*relevance.Policy, error) {
	in, err := svc.GetInbox(ctx, inboxID)
	if err != nil {
		return nil, err
	}
	if in.CatchAll {
		return parsePolicy(in), nil
	}

	raw, err := svc.store.ListFeedback(ctx, inboxID)
	if err != nil {
		return nil, err
	}
	events, err := svc.enrichEvents(ctx, raw)
	if err != nil {
		return nil, err
	}

	p := relevance.Analyze(events, parsePolicy(in))

	cutoff, reason := relevance.AdjustThreshold(events, p.DynamicMinScore)
	if cutoff != p.DynamicMinScore {
		if cutoff < p.DynamicMinScore {
			p.ExpandCount++
		} else {
			p.NarrowCount++
		}
		svc.logger.Info("threshold adjusted",
			"inbox_id", inboxID, "from", p.DynamicMinScore, "to", cutoff, "reason", reason)
		p.DynamicMinScore = cutoff
		p.LastAdjustedAt = time.Now().Unix()
	}

	if err := svc.store.SavePolicy(ctx, inboxID, marshalPolicy(p)); err != nil {
		return nil, err
	}
	return p, nil
}

// enrichEvents joins each ledger entry with its item's categorical
// attributes so boost derivation can see them. Items deleted since the
// event contribute with empty attributes.
func (svc *Service) enrichEvents(ctx context.Context, raw []*store.FeedbackEvent) ([]relevance.Event, error) {
	items := map[string]*store.Item{}
	out := make([]relevance.Event, 0, len(raw))
	for _, ev := range raw {
		it, ok := items[ev.ItemID]
		if !ok {
			var err error
			it, err = svc.store.GetItem(ctx, ev.ItemID)
			if err != nil {
				return nil, err
			}
			items[ev.ItemID] = it
		}
		e := relevance.Event{
			Action:    relevance.Action(ev.Action),
			Score:     ev.Score,
			Timestamp: ev.CreatedAt,
		}
		if it != nil {
			e.Authority = it.Authority
			e.Classification = it.Classification
		}
		out = append(out, e)
	}
	return out, nil
}

// currentScore resolves the item's present similarity score against the
// inbox query: 100 in the catch-all inbox, 0 whenever a vector is
// missing. Used when feedback arrives without a score-at-display.
func (svc *Service) currentScore(ctx context.Context, in *store.Inbox, itemID string) int {
	if in.CatchAll {
		return 100
	}
	if len(in.QueryVector) == 0 {
		return 0
	}
	qvec, err := vecindex.Deserialize(in.QueryVector)
	if err != nil {
		return 0
	}
	ivec, err := svc.vecs.Vector(ctx, itemID)
	if err != nil || ivec == nil || len(ivec) != len(qvec) {
		return 0
	}
	return vecindex.Score(vecindex.Cosine(qvec, ivec))
}
