// CLAUDE:SUMMARY Service-level request and response types, re-exported store and relevance types.
package triage

import (
	"github.com/hazyhaar/triage/triage/internal/relevance"
	"github.com/hazyhaar/triage/triage/internal/store"
)

// Re-exported so callers never import the internal packages directly.
type (
	Item          = store.Item
	Inbox         = store.Inbox
	FeedbackEvent = store.FeedbackEvent
	Policy        = relevance.Policy
	Phase         = relevance.Phase
)

// FeedbackRequest records one user action on an item within an inbox.
// Score is the similarity score the item had when shown; callers that do
// not track it pass -1 and the service resolves the current score.
type FeedbackRequest struct {
	InboxID        string `json:"inbox_id"`
	ItemID         string `json:"item_id"`
	Action         string `json:"action"`
	Score          int    `json:"score"`
	Reason         string `json:"reason,omitempty"`
	ViewDurationMs int64  `json:"view_duration_ms,omitempty"`
}

// RankedItem is one entry of a ranked inbox view with the caller's state
// attached.
type RankedItem struct {
	Item  *store.Item `json:"item"`
	Score int         `json:"score"`
	Saved bool        `json:"saved"`
	Read  bool        `json:"read"`
	New   bool        `json:"new"`
}

// RankResult is a ranked inbox view. Degraded is set when semantic
// scoring was unavailable and the result fell back to recency order.
type RankResult struct {
	InboxID  string       `json:"inbox_id"`
	Phase    Phase        `json:"phase"`
	Cutoff   int          `json:"cutoff"`
	Degraded bool         `json:"degraded,omitempty"`
	Items    []RankedItem `json:"items"`
}

// PolicyStatus couples an inbox's cached policy with its lifecycle phase.
type PolicyStatus struct {
	InboxID string  `json:"inbox_id"`
	Phase   Phase   `json:"phase"`
	Policy  *Policy `json:"policy"`
}

// Stats are aggregate counters across the whole engine.
type Stats struct {
	Items            int `json:"items"`
	PendingEmbedding int `json:"pending_embedding"`
	Vectors          int `json:"vectors"`
	Inboxes          int `json:"inboxes"`
	FeedbackEvents   int `json:"feedback_events"`
}
