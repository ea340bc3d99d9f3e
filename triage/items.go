// CLAUDE:SUMMARY Item operations: ingestion, embedding backlog, save/hide/read state mutations, stats.
package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/triage/triage/internal/relevance"
	"github.com/hazyhaar/triage/triage/internal/store"
)

// UpsertItem ingests or updates an item. Changed text invalidates the
// stored vector so the item re-enters the embedding backlog.
func (svc *Service) UpsertItem(ctx context.Context, it *store.Item) error {
	if it.Title == "" {
		return fmt.Errorf("%w: item title required", ErrInvalidInput)
	}
	if it.ID == "" {
		it.ID = svc.newItemID()
	}

	old, err := svc.store.GetItem(ctx, it.ID)
	if err != nil {
		return err
	}
	textChanged := old != nil && (old.Title != it.Title || old.Body != it.Body)

	if err := svc.store.UpsertItem(ctx, it); err != nil {
		return err
	}
	if textChanged {
		if err := svc.store.ClearEmbedded(ctx, it.ID); err != nil {
			return err
		}
		if err := svc.vecs.Delete(ctx, it.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteItem removes an item, its vector, and its state. The feedback
// ledger keeps its entries.
func (svc *Service) DeleteItem(ctx context.Context, itemID string) error {
	if err := svc.vecs.Delete(ctx, itemID); err != nil {
		return err
	}
	return svc.store.DeleteItem(ctx, itemID)
}

// GetItem returns an item by id.
func (svc *Service) GetItem(ctx context.Context, itemID string) (*store.Item, error) {
	it, err := svc.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	return it, nil
}

// EmbedPending drains the embedding backlog in batches and reports how
// many items were embedded. Stops on the first provider failure so the
// remaining backlog is retried later.
func (svc *Service) EmbedPending(ctx context.Context) (int, error) {
	batch := svc.config.EmbedBatchSize
	embedded := 0
	for {
		items, err := svc.store.ListPendingEmbedding(ctx, batch)
		if err != nil {
			return embedded, err
		}
		if len(items) == 0 {
			return embedded, nil
		}

		texts := make([]string, len(items))
		for i, it := range items {
			texts[i] = embedText(it)
		}
		vecs, err := svc.embed.EmbedBatch(ctx, texts)
		if err != nil {
			return embedded, err
		}

		now := time.Now().Unix()
		for i, it := range items {
			if err := svc.vecs.Upsert(ctx, it.ID, vecs[i]); err != nil {
				return embedded, err
			}
			if err := svc.store.MarkEmbedded(ctx, it.ID, now); err != nil {
				return embedded, err
			}
			embedded++
		}
		if len(items) < batch {
			return embedded, nil
		}
	}
}

func embedText(it *store.Item) string {
	if it.Body == "" {
		return it.Title
	}
	return it.Title + "\n\n" + it.Body
}

// SaveItem sets the global saved flag and records saved feedback in the
// given inbox, which triggers a policy recompute there.
func (svc *Service) SaveItem(ctx context.Context, inboxID, itemID, userID string) error {
	if _, err := svc.GetItem(ctx, itemID); err != nil {
		return err
	}
	if err := svc.store.SaveItem(ctx, itemID, svc.userID(ctx, userID)); err != nil {
		return err
	}
	_, err := svc.RecordFeedback(ctx, &FeedbackRequest{
		InboxID: inboxID,
		ItemID:  itemID,
		Action:  string(relevance.ActionSaved),
		Score:   -1,
	})
	return err
}

// UnsaveItem clears the global saved flag. No feedback is recorded: the
// original save stays in the ledger as history.
func (svc *Service) UnsaveItem(ctx context.Context, itemID string) error {
	return svc.store.UnsaveItem(ctx, itemID)
}

// HideItem hides an item in one inbox and records hidden feedback there.
func (svc *Service) HideItem(ctx context.Context, inboxID, itemID, userID, reason string) error {
	if _, err := svc.GetInbox(ctx, inboxID); err != nil {
		return err
	}
	if _, err := svc.GetItem(ctx, itemID); err != nil {
		return err
	}
	err := svc.store.HideItem(ctx, &store.HiddenState{
		ItemID:   itemID,
		InboxID:  inboxID,
		HiddenBy: svc.userID(ctx, userID),
		Reason:   reason,
	})
	if err != nil {
		return err
	}
	_, err = svc.RecordFeedback(ctx, &FeedbackRequest{
		InboxID: inboxID,
		ItemID:  itemID,
		Action:  string(relevance.ActionHidden),
		Score:   -1,
		Reason:  reason,
	})
	return err
}

// UnhideItem clears an item's hidden state in one inbox.
func (svc *Service) UnhideItem(ctx context.Context, inboxID, itemID string) error {
	if _, err := svc.GetInbox(ctx, inboxID); err != nil {
		return err
	}
	return svc.store.UnhideItem(ctx, itemID, inboxID)
}

// MarkRead sets or clears the caller's read flag for an item.
func (svc *Service) MarkRead(ctx context.Context, itemID, userID string, read bool) error {
	return svc.store.SetRead(ctx, itemID, svc.userID(ctx, userID), read)
}

// MarkViewed records a view: the item stops being new for the caller and
// a viewed event lands in the ledger. Views never trigger a recompute.
func (svc *Service) MarkViewed(ctx context.Context, inboxID, itemID, userID string, durationMs int64) error {
	if err := svc.store.Touch(ctx, itemID, svc.userID(ctx, userID)); err != nil {
		return err
	}
	_, err := svc.RecordFeedback(ctx, &FeedbackRequest{
		InboxID:        inboxID,
		ItemID:         itemID,
		Action:         string(relevance.ActionViewed),
		Score:          -1,
		ViewDurationMs: durationMs,
	})
	return err
}

// Stats returns aggregate engine counters.
func (svc *Service) Stats(ctx context.Context) (*Stats, error) {
	total, pending, err := svc.store.CountItems(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := svc.vecs.Count(ctx)
	if err != nil {
		return nil, err
	}
	inboxes, err := svc.store.ListInboxes(ctx)
	if err != nil {
		return nil, err
	}
	events, err := svc.store.TotalFeedback(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Items:            total,
		PendingEmbedding: pending,
		Vectors:          vectors,
		Inboxes:          len(inboxes),
		FeedbackEvents:   events,
	}, nil
}
