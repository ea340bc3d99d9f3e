// CLAUDE:SUMMARY Rank: similarity search pre-filtered by the live cutoff, adaptive pipeline, state attachment.
package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/triage/embedding"
	"github.com/hazyhaar/triage/triage/internal/relevance"
	"github.com/hazyhaar/triage/triage/internal/store"
	"github.com/hazyhaar/triage/vecindex"
)

// Rank returns an inbox's current view. The catch-all inbox shows every
// item at score 100 in recency order. Learning inboxes run the full
// chain: similarity search pre-filtered by the live cutoff, then the
// adaptive pipeline, then inbox-scoped hidden filtering and per-user
// state attachment. When no query vector exists and the embedder is
// down, the view degrades to recency order with zero scores and the
// Degraded flag set — scores are never fabricated.
func (svc *Service) Rank(ctx context.Context, inboxID, userID string, limit int) (*RankResult, error) {
	in, err := svc.GetInbox(ctx, inboxID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = svc.config.RankLimit
	}
	user := svc.userID(ctx, userID)

	p := parsePolicy(in)
	res := &RankResult{
		InboxID: in.ID,
		Phase:   relevance.PolicyPhase(p),
		Items:   []RankedItem{},
	}

	if in.CatchAll {
		res, err := svc.rankRecency(ctx, in, res, user, limit, 100)
		if err != nil {
			return nil, err
		}
		svc.refreshUnread(ctx, in.ID, res)
		return res, nil
	}
	res.Cutoff = p.DynamicMinScore

	qvec, err := svc.queryVector(ctx, in)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			svc.logger.Warn("ranking degraded, embedder unavailable",
				"inbox_id", in.ID, "error", err)
			res.Degraded = true
			return svc.rankRecency(ctx, in, res, user, limit, 0)
		}
		return nil, err
	}

	hits, err := svc.vecs.Search(ctx, qvec, p.DynamicMinScore, 0)
	if err != nil {
		return nil, err
	}

	filters := parseFilters(in)
	scored := make([]relevance.Scored, 0, len(hits))
	items := make(map[string]*store.Item, len(hits))
	for _, h := range hits {
		it, err := svc.store.GetItem(ctx, h.ItemID)
		if err != nil {
			return nil, err
		}
		if it == nil {
			// Vector outlived its item; skip, cleanup happens on delete.
			continue
		}
		if !filters.Match(it) {
			continue
		}
		items[h.ItemID] = it
		scored = append(scored, relevance.Scored{
			ItemID:         h.ItemID,
			Score:          h.Score,
			Authority:      it.Authority,
			Classification: it.Classification,
		})
	}

	ranked := relevance.Apply(scored, p)

	hidden, saved, err := svc.sharedState(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range ranked {
		if hidden[r.ItemID] {
			continue
		}
		ri, err := svc.rankedItem(ctx, items[r.ItemID], r.Score, saved, user)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, ri)
		if len(res.Items) >= limit {
			break
		}
	}
	svc.refreshUnread(ctx, in.ID, res)
	return res, nil
}

// refreshUnread caches the unread counter shown in inbox lists. Best
// effort, a stale counter never fails a rank.
func (svc *Service) refreshUnread(ctx context.Context, inboxID string, res *RankResult) {
	unread := 0
	for _, ri := range res.Items {
		if !ri.Read {
			unread++
		}
	}
	if err := svc.store.SetUnreadCount(ctx, inboxID, unread); err != nil {
		svc.logger.Warn("unread counter update failed", "inbox_id", inboxID, "error", err)
	}
}

// rankRecency is the non-semantic path: newest items first at a fixed
// score, hidden filtering and state attachment still applied.
func (svc *Service) rankRecency(ctx context.Context, in *store.Inbox, res *RankResult, user string, limit, score int) (*RankResult, error) {
	hidden, saved, err := svc.sharedState(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	items, err := svc.store.ListItems(ctx, limit+len(hidden), 0)
	if err != nil {
		return nil, err
	}
	filters := parseFilters(in)
	for _, it := range items {
		if hidden[it.ID] || !filters.Match(it) {
			continue
		}
		ri, err := svc.rankedItem(ctx, it, score, saved, user)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, ri)
		if len(res.Items) >= limit {
			break
		}
	}
	return res, nil
}

// queryVector returns the inbox's cached query vector, embedding and
// persisting it on first use.
func (svc *Service) queryVector(ctx context.Context, in *store.Inbox) ([]float32, error) {
	if len(in.QueryVector) > 0 {
		return vecindex.Deserialize(in.QueryVector)
	}
	vec, err := svc.embed.Embed(ctx, in.Query)
	if err != nil {
		return nil, fmt.Errorf("embed inbox query: %w", err)
	}
	in.QueryVector = vecindex.Serialize(vec)
	if err := svc.store.UpdateInbox(ctx, in); err != nil {
		svc.logger.Warn("query vector cache write failed", "inbox_id", in.ID, "error", err)
	}
	return vec, nil
}

func (svc *Service) sharedState(ctx context.Context, inboxID string) (hidden, saved map[string]bool, err error) {
	hidden, err = svc.store.HiddenItemIDs(ctx, inboxID)
	if err != nil {
		return nil, nil, err
	}
	saved, err = svc.store.SavedItemIDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	return hidden, saved, nil
}

func (svc *Service) rankedItem(ctx context.Context, it *store.Item, score int, saved map[string]bool, user string) (RankedItem, error) {
	ri := RankedItem{Item: it, Score: score, Saved: saved[it.ID], New: true}
	ps, err := svc.store.GetPersonal(ctx, it.ID, user)
	if err != nil {
		return RankedItem{}, err
	}
	if ps != nil {
		ri.Read = ps.Read
		ri.New = ps.New
	}
	return ri, nil
}
