// CLAUDE:SUMMARY Row types for the triage store: Item, Inbox, FeedbackEvent, item state records.
package store

// Item is a catalog entry. Descriptive fields are immutable after
// ingestion; the embedding is attached asynchronously and its presence is
// tracked by EmbeddedAt (nil until the vector exists).
type Item struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	Authority      string  `json:"authority"`
	Classification string  `json:"classification"`
	Value          float64 `json:"value"`
	PublishedAt    int64   `json:"published_at"`
	EmbeddedAt     *int64  `json:"embedded_at,omitempty"`
	CreatedAt      int64   `json:"created_at"`
}

// Inbox is a saved natural-language query plus its cached learning policy.
// A catch-all inbox bypasses similarity ranking (every item scores 100)
// and never learns from feedback.
type Inbox struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Query       string `json:"query"`
	FiltersJSON string `json:"filters_json"`
	CatchAll    bool   `json:"catch_all"`
	PolicyJSON  string `json:"policy_json"`
	QueryVector []byte `json:"-"`
	UnreadCount int    `json:"unread_count"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// FeedbackEvent is one append-only ledger entry: what the user did when
// shown an item at a given similarity score. Never mutated; deleted only
// by inbox teardown.
type FeedbackEvent struct {
	ID             string `json:"id"`
	InboxID        string `json:"inbox_id"`
	ItemID         string `json:"item_id"`
	Action         string `json:"action"`
	Score          int    `json:"score"`
	Reason         string `json:"reason,omitempty"`
	ViewDurationMs int64  `json:"view_duration_ms,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

// SavedState marks an item saved. Shared, global per item: once saved,
// an item is saved in every inbox.
type SavedState struct {
	ItemID  string `json:"item_id"`
	SavedBy string `json:"saved_by"`
	SavedAt int64  `json:"saved_at"`
}

// HiddenState hides an item within one inbox. Shared: any inbox member
// may set or clear it. Hiding in inbox A leaves the item visible in B.
type HiddenState struct {
	ItemID   string `json:"item_id"`
	InboxID  string `json:"inbox_id"`
	HiddenBy string `json:"hidden_by"`
	Reason   string `json:"reason,omitempty"`
	HiddenAt int64  `json:"hidden_at"`
}

// PersonalState is per item×user read/new bookkeeping. Owned exclusively
// by the user; independent of the shared saved/hidden state.
type PersonalState struct {
	ItemID    string `json:"item_id"`
	UserID    string `json:"user_id"`
	Read      bool   `json:"read"`
	New       bool   `json:"new"`
	UpdatedAt int64  `json:"updated_at"`
}
