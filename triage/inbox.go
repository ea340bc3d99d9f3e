// CLAUDE:SUMMARY Inbox operations: CRUD, policy cache access, user threshold override.
package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/triage/embedding"
	"github.com/hazyhaar/triage/triage/internal/relevance"
	"github.com/hazyhaar/triage/triage/internal/store"
	"github.com/hazyhaar/triage/vecindex"
)

// CreateInbox creates an inbox and, when an embedder is reachable, embeds
// its query immediately. Embedding failure is not fatal: the vector is
// computed lazily on the first rank instead.
func (svc *Service) CreateInbox(ctx context.Context, in *store.Inbox) error {
	if in.Name == "" {
		return fmt.Errorf("%w: inbox name required", ErrInvalidInput)
	}
	if !in.CatchAll && in.Query == "" {
		return fmt.Errorf("%w: inbox query required", ErrInvalidInput)
	}
	if in.CatchAll {
		existing, err := svc.store.GetCatchAllInbox(ctx)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: catch-all inbox already exists (%s)", ErrInvalidInput, existing.ID)
		}
	}

	if in.ID == "" {
		in.ID = svc.newInboxID()
	}
	if in.FiltersJSON == "" {
		in.FiltersJSON = "{}"
	}
	in.PolicyJSON = marshalPolicy(relevance.Bootstrap())

	if !in.CatchAll {
		vec, err := svc.embed.Embed(ctx, in.Query)
		switch {
		case err == nil:
			in.QueryVector = vecindex.Serialize(vec)
		case errors.Is(err, embedding.ErrUnavailable):
			svc.logger.Warn("query embedding deferred", "inbox_id", in.ID, "error", err)
		default:
			return err
		}
	}

	return svc.store.CreateInbox(ctx, in)
}

// GetInbox returns an inbox by id.
func (svc *Service) GetInbox(ctx context.Context, inboxID string) (*store.Inbox, error) {
	if inboxID == "" {
		return nil, ErrMissingInbox
	}
	in, err := svc.store.GetInbox(ctx, inboxID)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingInbox, inboxID)
	}
	return in, nil
}

// ListInboxes returns all inboxes, catch-all first.
func (svc *Service) ListInboxes(ctx context.Context) ([]*store.Inbox, error) {
	return svc.store.ListInboxes(ctx)
}

// UpdateInbox updates an inbox's name, query, and filters. A changed
// query invalidates the cached query vector and triggers a re-embed; the
// learned policy stays, since the feedback ledger it summarizes does.
func (svc *Service) UpdateInbox(ctx context.Context, in *store.Inbox) error {
	existing, err := svc.GetInbox(ctx, in.ID)
	if err != nil {
		return err
	}
	if in.Name == "" {
		in.Name = existing.Name
	}
	if in.Query == "" {
		in.Query = existing.Query
	}
	if in.FiltersJSON == "" {
		in.FiltersJSON = existing.FiltersJSON
	}

	in.QueryVector = existing.QueryVector
	if !existing.CatchAll && in.Query != existing.Query {
		in.QueryVector = nil
		vec, err := svc.embed.Embed(ctx, in.Query)
		switch {
		case err == nil:
			in.QueryVector = vecindex.Serialize(vec)
		case errors.Is(err, embedding.ErrUnavailable):
			svc.logger.Warn("query re-embedding deferred", "inbox_id", in.ID, "error", err)
		default:
			return err
		}
	}
	return svc.store.UpdateInbox(ctx, in)
}

// DeleteInbox removes an inbox with its feedback ledger and hidden state.
func (svc *Service) DeleteInbox(ctx context.Context, inboxID string) error {
	if _, err := svc.GetInbox(ctx, inboxID); err != nil {
		return err
	}
	return svc.store.DeleteInbox(ctx, inboxID)
}

// GetPolicy returns an inbox's cached learning policy and lifecycle phase.
func (svc *Service) GetPolicy(ctx context.Context, inboxID string) (*PolicyStatus, error) {
	in, err := svc.GetInbox(ctx, inboxID)
	if err != nil {
		return nil, err
	}
	p := parsePolicy(in)
	return &PolicyStatus{
		InboxID: in.ID,
		Phase:   relevance.PolicyPhase(p),
		Policy:  p,
	}, nil
}

// SetLiveThreshold is the user override for the live cutoff. The value
// is clamped to the same bounds the controller honors and written to the
// same policy field, so the next automatic adjustment starts from it.
// Catch-all inboxes have no cutoff to override.
func (svc *Service) SetLiveThreshold(ctx context.Context, inboxID string, v int) (*relevance.Policy, error) {
	in, err := svc.GetInbox(ctx, inboxID)
	if err != nil {
		return nil, err
	}
	if in.CatchAll {
		return nil, fmt.Errorf("%w: catch-all inbox has no relevance threshold", ErrInvalidInput)
	}

	if v < relevance.DynamicFloor {
		v = relevance.DynamicFloor
	}
	if v > relevance.DynamicCeil {
		v = relevance.DynamicCeil
	}

	p := parsePolicy(in)
	p.DynamicMinScore = v
	p.LastAdjustedAt = time.Now().Unix()
	if err := svc.store.SavePolicy(ctx, inboxID, marshalPolicy(p)); err != nil {
		return nil, err
	}
	svc.logger.Info("threshold override", "inbox_id", inboxID, "cutoff", v)
	return p, nil
}

// parsePolicy decodes the cached policy, falling back to the bootstrap
// policy on an empty or corrupt cache. The cache is always rebuildable
// from the ledger, so a bad cache is recoverable, never fatal.
func parsePolicy(in *store.Inbox) *relevance.Policy {
	if in.PolicyJSON == "" {
		return relevance.Bootstrap()
	}
	var p relevance.Policy
	if err := json.Unmarshal([]byte(in.PolicyJSON), &p); err != nil {
		return relevance.Bootstrap()
	}
	if p.AuthorityBoosts == nil {
		p.AuthorityBoosts = map[string]int{}
	}
	if p.ClassificationBoosts == nil {
		p.ClassificationBoosts = map[string]int{}
	}
	if p.DynamicMinScore == 0 {
		p.DynamicMinScore = relevance.BootstrapMinScore
	}
	if p.MaxIrrelevanceScore == 0 && p.TotalFeedback == 0 {
		p.MaxIrrelevanceScore = 100
	}
	return &p
}

func marshalPolicy(p *relevance.Policy) string {
	data, _ := json.Marshal(p)
	return string(data)
}
