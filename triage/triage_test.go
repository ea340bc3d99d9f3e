package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/hazyhaar/triage/dbopen"
	"github.com/hazyhaar/triage/embedding"
	"github.com/hazyhaar/triage/triage/internal/relevance"
	"github.com/hazyhaar/triage/triage/internal/store"
	_ "modernc.org/sqlite"
)

// fakeEmbedder serves fixed vectors keyed by exact text, and can be
// flipped down to exercise degradation.
type fakeEmbedder struct {
	vecs map[string][]float32
	down bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.down {
		return nil, fmt.Errorf("%w: provider down", embedding.ErrUnavailable)
	}
	v, ok := f.vecs[text]
	if !ok {
		return nil, fmt.Errorf("%w: no fixture for %q", embedding.ErrUnavailable, text)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }
func (f *fakeEmbedder) Model() string  { return "fake" }

func newTestService(t *testing.T, fe *fakeEmbedder) *Service {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := ApplySchema(context.Background(), db); err != nil {
		t.Fatalf("ApplySchema: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, nil, logger, WithEmbedder(fe))
}

/// standardFixture: a query on the x axis, one exact match, one near
// match, one orthogonal item.
func standardFixture() *fakeEmbedder {
	return &fakeEmbedder{vecs: map[string][]float32{
		"kubernetes vulnerabilities": {1, 0, 0},
		"kubelet advisory":           {1, 0, 0},
		"container runtime flaw":     {0.9, 0.1, 0},
		"gardening tips":             {0, 1, 0},
	}}
}

func seedInbox(t *testing.T, svc *Service, catchAll bool) *store.Inbox {
	t.Helper()
	in := &store.Inbox{Name: "sec", Query: "kubernetes vulnerabilities", CatchAll: catchAll}
	if catchAll {
		in.Name = "everything"
		in.Query = ""
	}
	if err := svc.CreateInbox(context.Background(), in); err != nil {
		t.Fatalf("CreateInbox: %v", err)
	}
	return in
}

func seedItems(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	for _, it := range []*store.Item{
		{ID: "exact", Title: "kubelet advisory", Authority: "nvd", Classification: "advisory"},
		{ID: "near", Title: "container runtime flaw", Authority: "vendor", Classification: "advisory"},
		{ID: "far", Title: "gardening tips", Authority: "blog", Classification: "article"},
	} {
		if err := svc.UpsertItem(ctx, it); err != nil {
			t.Fatalf("UpsertItem(%s): %v", it.ID, err)
		}
	}
	n, err := svc.EmbedPending(ctx)
	if err != nil {
		t.Fatalf("EmbedPending: %v", err)
	}
	if n != 3 {
		t.Fatalf("embedded %d items, want 3", n)
	}
}

func TestCreateInbox_Validation(t *testing.T) {
	svc := newTestService(t, standardFixture())
	ctx := context.Background()

	if err := svc.CreateInbox(ctx, &store.Inbox{Query: "q"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing name: %v, want ErrInvalidInput", err)
	}
	if err := svc.CreateInbox(ctx, &store.Inbox{Name: "n"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing query: %v, want ErrInvalidInput", err)
	}

	seedInbox(t, svc, true)
	err := svc.CreateInbox(ctx, &store.Inbox{Name: "second", CatchAll: true})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("second catch-all: %v, want ErrInvalidInput", err)
	}
}

func TestCreateInbox_EmbedsQuery(t *testing.T) {
	svc := newTestService(t, standardFixture())
	in := seedInbox(t, svc, false)

	stored, err := svc.GetInbox(context.Background(), in.ID)
	if err != nil {
		t.Fatalf("GetInbox: %v", err)
	}
	if len(stored.QueryVector) != 12 { // 3 float32s
		t.Errorf("QueryVector = %d bytes, want 12", len(stored.QueryVector))
	}
	if stored.PolicyJSON == "" {
		t.Error("no bootstrap policy persisted")
	}
}

func TestRecordFeedback_Validation(t *testing.T) {
	svc := newTestService(t, standardFixture())
	in := seedInbox(t, svc, false)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *FeedbackRequest
		want error
	}{
		{"no inbox", &FeedbackRequest{ItemID: "i", Action: "saved"}, ErrMissingInbox},
		{"unknown inbox", &FeedbackRequest{InboxID: "nope", ItemID: "i", Action: "saved"}, ErrMissingInbox},
		{"no item", &FeedbackRequest{InboxID: in.ID, Action: "saved"}, ErrInvalidInput},
		{"bad action", &FeedbackRequest{InboxID: in.ID, ItemID: "i", Action: "liked"}, ErrInvalidInput},
		{"score too high", &FeedbackRequest{InboxID: in.ID, ItemID: "i", Action: "saved", Score: 150}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RecordFeedback(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFeedbackRecomputeRoundTrip(t *testing.T) {
	svc := newTestService(t, standardFixture())
	in := seedInbox(t, svc, false)
	seedItems(t, svc)
	ctx := context.Background()

	for i, score := range []int{55, 62, 70} {
		ev, err := svc.RecordFeedback(ctx, &FeedbackRequest{
			InboxID: in.ID, ItemID: "exact", Action: "saved", Score: score,
		})
		if err != nil {
			t.Fatalf("RecordFeedback #%d: %v", i, err)
		}
		if ev.ID == "" || ev.Score != score {
			t.Errorf("event = %+v", ev)
		}

		st, err := svc.GetPolicy(ctx, in.ID)
		if err != nil {
			t.Fatalf("GetPolicy: %v", err)
		}
		if st.Policy.TotalFeedback != i+1 || st.Policy.SavedCount != i+1 {
			t.Errorf("after %d events: total %d saved %d",
				i+1, st.Policy.TotalFeedback, st.Policy.SavedCount)
		}
	}

	// Band follows the lowest save; explicit recompute is stable.
	st, _ := svc.GetPolicy(ctx, in.ID)
	if st.Policy.MinRelevanceScore != 45 {
		t.Errorf("MinRelevanceScore = %d, want 45 (55-10)", st.Policy.MinRelevanceScore)
	}
	again, err := svc.RecomputePolicy(ctx, in.ID)
	if err != nil {
		t.Fatalf("RecomputePolicy: %v", err)
	}
	if again.TotalFeedback != 3 || again.MinRelevanceScore != 45 {
		t.Errorf("recompute diverged: %+v", again)
	}
}

func TestCatchAllNeverLearns(t *testing.T) {
	svc := newTestService(t, standardFixture())
	all := seedInbox(t, svc, true)
	seedItems(t, svc)
	ctx := context.Background()

	// Feedback lands in the ledger...
	if _, err := svc.RecordFeedback(ctx, &FeedbackRequest{
		InboxID: all.ID, ItemID: "exact", Action: "saved", Score: 100,
	}); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.FeedbackEvents != 1 {
		t.Errorf("FeedbackEvents = %d, want 1", stats.FeedbackEvents)
	}

	// ...but the policy cache never moves off bootstrap.
	st, err := svc.GetPolicy(ctx, all.ID)
	if err != nil {
		t.Fatalf("GetPolicy: %v", err)
	}
	if st.Policy.TotalFeedback != 0 || st.Policy.ConfidenceLevel != 0 {
		t.Errorf("catch-all learned: %+v", st.Policy)
	}

	// And there is no threshold to override.
	if _, err := svc.SetLiveThreshold(ctx, all.ID, 50); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("SetLiveThreshold on catch-all: %v, want ErrInvalidInput", err)
	}
}

func TestRank_SimilarityAndCutoff(t *testing.T) {
	svc := newTestService(t, standardFixture())
	in := seedInbox(t, svc, false)
	seedItems(t, svc)

	res, err := svc.Rank(context.Background(), in.ID, "ana", 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if res.Degraded {
		t.Error("unexpected degraded flag")
	}
	if res.Cutoff != relevance.BootstrapMinScore {
		t.Errorf("Cutoff = %d, want %d", res.Cutoff, relevance.BootstrapMinScore)
	}
	// "far" is orthogonal (score 0) and falls below the cutoff.
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(res.Items))
	}
	if res.Items[0].Item.ID != "exact" || res.Items[0].Score != 100 {
		t.Errorf("top = %s at %d, want exact at 100", res.Items[0].Item.ID, res.Items[0].Score)
	}
	if res.Items[1].Item.ID != "near" || res.Items[1].Score <= 90 {
		t.Errorf("second = %s at %d, want near above 90", res.Items[1].Item.ID, res.Items[1].Score)
	}
	for _, ri := range res.Items {
		if !ri.New || ri.Read || ri.Saved {
			t.Errorf("%s state = %+v, want fresh", ri.Item.ID, ri)
		}
	}
}

func TestRank_StructuredFilters(t *testing.T) {
	svc := newTestService(t, standardFixture())
	seedItems(t, svc)
	ctx := context.Background()

	in := &store.Inbox{
		Name:        "sec",
		Query:       "kubernetes vulnerabilities",
		FiltersJSON: `{"authorities":["nvd"]}`,
	}
	if err := svc.CreateInbox(ctx, in); err != nil {
		t.Fatalf("CreateInbox: %v", err)
	}

	res, err := svc.Rank(ctx, in.ID, "ana", 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	// "near" clears the similarity cutoff but carries the wrong authority.
	if len(res.Items) != 1 || res.Items[0].Item.ID != "exact" {
		t.Errorf("items = %+v, want only exact", res.Items)
	}
}

func TestRank_HiddenScopedPerInbox(t *testing.T) {
	svc := newTestService(t, standardFixture())
	ctx := context.Background()
	seedItems(t, svc)

	first := seedInbox(t, svc, false)
	second := &store.Inbox{Name: "sec2", Query: "kubernetes vulnerabilities"}
	if err := svc.CreateInbox(ctx, second); err != nil {
		t.Fatalf("CreateInbox: %v", err)
	}

	if err := svc.HideItem(ctx, first.ID, "exact", "ana", "duplicate"); err != nil {
		t.Fatalf("HideItem: %v", err)
	}

	res, err := svc.Rank(ctx, first.ID, "ana", 0)
	if err != nil {
		t.Fatalf("Rank(first): %v", err)
	}
	for _, ri := range res.Items {
		if ri.Item.ID == "exact" {
			t.Error("hidden item surfaced in its own inbox")
		}
	}

	res, err = svc.Rank(ctx, second.ID, "ana", 0)
	if err != nil {
		t.Fatalf("Rank(second): %v", err)
	}
	found := false
	for _, ri := range res.Items {
		if ri.Item.ID == "exact" {
			found = true
		}
	}
	if !found {
		t.Error("item hidden in one inbox vanished from another")
	}
}

func TestRank_SavedAndReadState(t *testing.T) {
	svc := newTestService(t, standardFixture())
	in := seedInbox(t, svc, false)
	seedItems(t, svc)
	ctx := context.Background()

	if err := svc.SaveItem(ctx, in.ID, "exact", "ana"); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}
	if err := svc.MarkRead(ctx, "near", "ana", true); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	res, err := svc.Rank(ctx, in.ID, "ana", 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	byID := map[string]RankedItem{}
	for _, ri := range res.Items {
		byID[ri.Item.ID] = ri
	}
	if !byID["exact"].Saved {
		t.Error("saved flag not attached")
	}
	if !byID["near"].Read || byID["near"].New {
		t.Errorf("near state = %+v, want read and not new", byID["near"])
	}

	// Ranking refreshes the cached unread counter: two ranked items,
	// one read by ana.
	got, err := svc.GetInbox(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetInbox: %v", err)
	}
	if got.UnreadCount != 1 {
		t.Errorf("UnreadCount = %d, want 1", got.UnreadCount)
	}

	// Saved state is global, read state is per user.
	other, err := svc.Rank(ctx, in.ID, "ben", 0)
	if err != nil {
		t.Fatalf("Rank(ben): %v", err)
	}
	for _, ri := range other.Items {
		if ri.Item.ID == "exact" && !ri.Saved {
			t.Error("saved flag not global")
		}
		if ri.Item.ID == "near" && ri.Read {
			t.Error("read flag leaked across users")
		}
	}
}

func TestRank_CatchAllScoresEverything(t *testing.T) {
	svc := newTestService(t, standardFixture())
	all := seedInbox(t, svc, true)
	seedItems(t, svc)

	res, err := svc.Rank(context.Background(), all.ID, "ana", 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("items = %d, want all 3", len(res.Items))
	}
	for _, ri := range res.Items {
		if ri.Score != 100 {
			t.Errorf("%s scored %d, want 100 in catch-all", ri.Item.ID, ri.Score)
		}
	}
}

func TestRank_DegradesWhenEmbedderDown(t *testing.T) {
	fe := standardFixture()
	fe.down = true
	svc := newTestService(t, fe)

	// Inbox created while the embedder is down: no query vector cached.
	in := &store.Inbox{Name: "sec", Query: "kubernetes vulnerabilities"}
	if err := svc.CreateInbox(context.Background(), in); err != nil {
		t.Fatalf("CreateInbox: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if err := svc.UpsertItem(context.Background(), &store.Item{ID: id, Title: id}); err != nil {
			t.Fatalf("UpsertItem: %v", err)
		}
	}

	res, err := svc.Rank(context.Background(), in.ID, "ana", 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded result")
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want 2 in recency order", len(res.Items))
	}
	for _, ri := range res.Items {
		if ri.Score != 0 {
			t.Errorf("%s scored %d in degraded mode, want 0", ri.Item.ID, ri.Score)
		}
	}
}

func TestSetLiveThreshold_Clamps(t *testing.T) {
	svc := newTestService(t, standardFixture())
	in := seedInbox(t, svc, false)
	ctx := context.Background()

	tests := []struct{ in, want int }{
		{50, 50},
		{10, relevance.DynamicFloor},
		{95, relevance.DynamicCeil},
	}
	for _, tt := range tests {
		p, err := svc.SetLiveThreshold(ctx, in.ID, tt.in)
		if err != nil {
			t.Fatalf("SetLiveThreshold(%d): %v", tt.in, err)
		}
		if p.DynamicMinScore != tt.want {
			t.Errorf("SetLiveThreshold(%d) = %d, want %d", tt.in, p.DynamicMinScore, tt.want)
		}
		// Persisted, not just returned.
		st, _ := svc.GetPolicy(ctx, in.ID)
		if st.Policy.DynamicMinScore != tt.want {
			t.Errorf("persisted cutoff = %d, want %d", st.Policy.DynamicMinScore, tt.want)
		}
	}
}

func TestUpsertItem_TextChangeResetsEmbedding(t *testing.T) {
	svc := newTestService(t, standardFixture())
	seedItems(t, svc)
	ctx := context.Background()

	stats, _ := svc.Stats(ctx)
	if stats.PendingEmbedding != 0 || stats.Vectors != 3 {
		t.Fatalf("fixture stats = %+v", stats)
	}

	// Same text: no re-embed.
	if err := svc.UpsertItem(ctx, &store.Item{ID: "exact", Title: "kubelet advisory", Authority: "cisa"}); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	stats, _ = svc.Stats(ctx)
	if stats.PendingEmbedding != 0 {
		t.Errorf("metadata-only update re-queued embedding: %+v", stats)
	}

	// Changed title: vector dropped, item back in the backlog.
	if err := svc.UpsertItem(ctx, &store.Item{ID: "exact", Title: "container runtime flaw"}); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	stats, _ = svc.Stats(ctx)
	if stats.PendingEmbedding != 1 || stats.Vectors != 2 {
		t.Errorf("after text change: %+v, want 1 pending / 2 vectors", stats)
	}
}

func TestDeleteInboxRequiresExisting(t *testing.T) {
	svc := newTestService(t, standardFixture())
	err := svc.DeleteInbox(context.Background(), "nope")
	if !errors.Is(err, ErrMissingInbox) {
		t.Errorf("DeleteInbox(missing) = %v, want ErrMissingInbox", err)
	}
}

func TestThresholdNarrowsUnderHideStorm(t *testing.T) {
	svc := newTestService(t, standardFixture())
	in := seedInbox(t, svc, false)
	seedItems(t, svc)
	ctx := context.Background()

	// 2 saves then 10 hides: hide rate 83% over 12 recent actions.
	for i := 0; i < 2; i++ {
		if _, err := svc.RecordFeedback(ctx, &FeedbackRequest{
			InboxID: in.ID, ItemID: "exact", Action: "saved", Score: 80,
		}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		if _, err := svc.RecordFeedback(ctx, &FeedbackRequest{
			InboxID: in.ID, ItemID: "far", Action: "hidden", Score: 40,
		}); err != nil {
			t.Fatalf("hide: %v", err)
		}
	}

	st, err := svc.GetPolicy(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetPolicy: %v", err)
	}
	if st.Policy.DynamicMinScore <= relevance.BootstrapMinScore {
		t.Errorf("cutoff = %d, want narrowed above %d",
			st.Policy.DynamicMinScore, relevance.BootstrapMinScore)
	}
	if st.Policy.NarrowCount == 0 {
		t.Error("narrow adjustment not counted")
	}
	if st.Policy.DynamicMinScore > relevance.DynamicCeil {
		t.Errorf("cutoff %d above ceiling", st.Policy.DynamicMinScore)
	}
}
