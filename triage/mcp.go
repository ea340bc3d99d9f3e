// CLAUDE:SUMMARY Registers triage_* MCP tools (inboxes, rank, feedback, threshold, items, stats) via kit.RegisterMCPTool.
package triage

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/triage/kit"
	"github.com/hazyhaar/triage/triage/internal/store"
)

// RegisterMCP registers all triage tools on an MCP server.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	svc.registerCreateInbox(srv)
	svc.registerListInboxes(srv)
	svc.registerDeleteInbox(srv)
	svc.registerRank(srv)
	svc.registerFeedback(srv)
	svc.registerSetThreshold(srv)
	svc.registerGetPolicy(srv)
	svc.registerUpsertItem(srv)
	svc.registerSaveItem(srv)
	svc.registerHideItem(srv)
	svc.registerMarkRead(srv)
	svc.registerEmbedPending(srv)
	svc.registerStats(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// decodeInto builds the standard decode function: unmarshal arguments
// into a fresh P.
func decodeInto[P any]() func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p P
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}
}

// --- Inboxes ---

func (svc *Service) registerCreateInbox(srv *mcp.Server) {
	type req struct {
		Name     string `json:"name"`
		Query    string `json:"query"`
		Filters  string `json:"filters_json"`
		CatchAll bool   `json:"catch_all"`
	}

	tool := &mcp.Tool{
		Name:        "triage_create_inbox",
		Description: "Create an inbox: a saved query items are ranked against. catch_all makes the one inbox that shows everything",
		InputSchema: inputSchema(map[string]any{
			"name":         map[string]any{"type": "string", "description": "Inbox display name"},
			"query":        map[string]any{"type": "string", "description": "Natural-language relevance query"},
			"filters_json": map[string]any{"type": "string", "description": "Structured filters as JSON"},
			"catch_all":    map[string]any{"type": "boolean", "description": "Catch-all inbox (no ranking, no learning)"},
		}, []string{"name"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		in := &store.Inbox{
			Name:        p.Name,
			Query:       p.Query,
			FiltersJSON: p.Filters,
			CatchAll:    p.CatchAll,
		}
		if err := svc.CreateInbox(ctx, in); err != nil {
			return nil, err
		}
		return in, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

func (svc *Service) registerListInboxes(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "triage_list_inboxes",
		Description: "List all inboxes with their unread counts",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return svc.ListInboxes(ctx)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

func (svc *Service) registerDeleteInbox(srv *mcp.Server) {
	type req struct {
		InboxID string `json:"inbox_id"`
	}

	tool := &mcp.Tool{
		Name:        "triage_delete_inbox",
		Description: "Delete an inbox and its feedback history",
		InputSchema: inputSchema(map[string]any{
			"inbox_id": map[string]any{"type": "string", "description": "Inbox ID"},
		}, []string{"inbox_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if err := svc.DeleteInbox(ctx, p.InboxID); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": p.InboxID}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

// --- Ranking and feedback ---

func (svc *Service) registerRank(srv *mcp.Server) {
	type req struct {
		InboxID string `json:"inbox_id"`
		UserID  string `json:"user_id"`
		Limit   int    `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "triage_rank",
		Description: "Rank items for an inbox through the adaptive relevance pipeline",
		InputSchema: inputSchema(map[string]any{
			"inbox_id": map[string]any{"type": "string", "description": "Inbox ID"},
			"user_id":  map[string]any{"type": "string", "description": "Acting user (read/new state)"},
			"limit":    map[string]any{"type": "integer", "description": "Max results"},
		}, []string{"inbox_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.Rank(ctx, p.InboxID, p.UserID, p.Limit)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

func (svc *Service) registerFeedback(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "triage_feedback",
		Description: "Record feedback (saved, hidden, viewed, ignored) for an item in an inbox",
		InputSchema: inputSchema(map[string]any{
			"inbox_id":         map[string]any{"type": "string", "description": "Inbox ID"},
			"item_id":          map[string]any{"type": "string", "description": "Item ID"},
			"action":           map[string]any{"type": "string", "description": "saved | hidden | viewed | ignored"},
			"score":            map[string]any{"type": "integer", "description": "Similarity score when shown; -1 to resolve the current score"},
			"reason":           map[string]any{"type": "string", "description": "Optional reason (hides)"},
			"view_duration_ms": map[string]any{"type": "integer", "description": "View duration in ms"},
		}, []string{"inbox_id", "item_id", "action"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return svc.RecordFeedback(ctx, r.(*FeedbackRequest))
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[FeedbackRequest]())
}

func (svc *Service) registerSetThreshold(srv *mcp.Server) {
	type req struct {
		InboxID string `json:"inbox_id"`
		Value   int    `json:"value"`
	}

	tool := &mcp.Tool{
		Name:        "triage_set_threshold",
		Description: "Override an inbox's live relevance cutoff (clamped to 30..70)",
		InputSchema: inputSchema(map[string]any{
			"inbox_id": map[string]any{"type": "string", "description": "Inbox ID"},
			"value":    map[string]any{"type": "integer", "description": "New cutoff"},
		}, []string{"inbox_id", "value"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.SetLiveThreshold(ctx, p.InboxID, p.Value)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

func (svc *Service) registerGetPolicy(srv *mcp.Server) {
	type req struct {
		InboxID string `json:"inbox_id"`
	}

	tool := &mcp.Tool{
		Name:        "triage_get_policy",
		Description: "Show an inbox's learned policy and lifecycle phase",
		InputSchema: inputSchema(map[string]any{
			"inbox_id": map[string]any{"type": "string", "description": "Inbox ID"},
		}, []string{"inbox_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.GetPolicy(ctx, p.InboxID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

// --- Items ---

func (svc *Service) registerUpsertItem(srv *mcp.Server) {
	type req struct {
		ID             string  `json:"id"`
		Title          string  `json:"title"`
		Body           string  `json:"body"`
		Authority      string  `json:"authority"`
		Classification string  `json:"classification"`
		Value          float64 `json:"value"`
		PublishedAt    int64   `json:"published_at"`
	}

	tool := &mcp.Tool{
		Name:        "triage_upsert_item",
		Description: "Ingest or update an item; changed text re-enters the embedding backlog",
		InputSchema: inputSchema(map[string]any{
			"id":             map[string]any{"type": "string", "description": "Item ID (generated when empty)"},
			"title":          map[string]any{"type": "string", "description": "Title"},
			"body":           map[string]any{"type": "string", "description": "Body text"},
			"authority":      map[string]any{"type": "string", "description": "Source or publisher"},
			"classification": map[string]any{"type": "string", "description": "Content category"},
			"value":          map[string]any{"type": "number", "description": "Numeric value (e.g. severity)"},
			"published_at":   map[string]any{"type": "integer", "description": "Publication time (unix)"},
		}, []string{"title"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		it := &store.Item{
			ID:             p.ID,
			Title:          p.Title,
			Body:           p.Body,
			Authority:      p.Authority,
			Classification: p.Classification,
			Value:          p.Value,
			PublishedAt:    p.PublishedAt,
		}
		if err := svc.UpsertItem(ctx, it); err != nil {
			return nil, err
		}
		return it, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

func (svc *Service) registerSaveItem(srv *mcp.Server) {
	type req struct {
		InboxID string `json:"inbox_id"`
		ItemID  string `json:"item_id"`
		UserID  string `json:"user_id"`
	}

	tool := &mcp.Tool{
		Name:        "triage_save_item",
		Description: "Save an item (global) and record saved feedback in the inbox",
		InputSchema: inputSchema(map[string]any{
			"inbox_id": map[string]any{"type": "string", "description": "Inbox the save happened in"},
			"item_id":  map[string]any{"type": "string", "description": "Item ID"},
			"user_id":  map[string]any{"type": "string", "description": "Acting user"},
		}, []string{"inbox_id", "item_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if err := svc.SaveItem(ctx, p.InboxID, p.ItemID, p.UserID); err != nil {
			return nil, err
		}
		return map[string]string{"saved": p.ItemID}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

func (svc *Service) registerHideItem(srv *mcp.Server) {
	type req struct {
		InboxID string `json:"inbox_id"`
		ItemID  string `json:"item_id"`
		UserID  string `json:"user_id"`
		Reason  string `json:"reason"`
	}

	tool := &mcp.Tool{
		Name:        "triage_hide_item",
		Description: "Hide an item in one inbox and record hidden feedback; other inboxes are unaffected",
		InputSchema: inputSchema(map[string]any{
			"inbox_id": map[string]any{"type": "string", "description": "Inbox ID"},
			"item_id":  map[string]any{"type": "string", "description": "Item ID"},
			"user_id":  map[string]any{"type": "string", "description": "Acting user"},
			"reason":   map[string]any{"type": "string", "description": "Why the item was hidden"},
		}, []string{"inbox_id", "item_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if err := svc.HideItem(ctx, p.InboxID, p.ItemID, p.UserID, p.Reason); err != nil {
			return nil, err
		}
		return map[string]string{"hidden": p.ItemID}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

func (svc *Service) registerMarkRead(srv *mcp.Server) {
	type req struct {
		ItemID string `json:"item_id"`
		UserID string `json:"user_id"`
		Read   *bool  `json:"read"`
	}

	tool := &mcp.Tool{
		Name:        "triage_mark_read",
		Description: "Set or clear the caller's read flag on an item",
		InputSchema: inputSchema(map[string]any{
			"item_id": map[string]any{"type": "string", "description": "Item ID"},
			"user_id": map[string]any{"type": "string", "description": "Acting user"},
			"read":    map[string]any{"type": "boolean", "description": "Read state (default true)"},
		}, []string{"item_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		read := true
		if p.Read != nil {
			read = *p.Read
		}
		if err := svc.MarkRead(ctx, p.ItemID, p.UserID, read); err != nil {
			return nil, err
		}
		return map[string]any{"item_id": p.ItemID, "read": read}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

// --- Maintenance ---

func (svc *Service) registerEmbedPending(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "triage_embed_pending",
		Description: "Embed all items waiting for a vector",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		n, err := svc.EmbedPending(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]int{"embedded": n}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}

func (svc *Service) registerStats(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "triage_stats",
		Description: "Aggregate engine counters: items, vectors, inboxes, feedback",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return svc.Stats(ctx)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req]())
}
