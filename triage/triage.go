// CLAUDE:SUMMARY Main Service orchestrator: store, vector index, embedder, and all business methods.
// Package triage is the adaptive relevance engine: items are scored
// against inbox queries by embedding similarity, user feedback accrues in
// an append-only ledger, and a learned policy reshapes what each inbox
// surfaces.
package triage

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/hazyhaar/triage/embedding"
	"github.com/hazyhaar/triage/idgen"
	"github.com/hazyhaar/triage/kit"
	"github.com/hazyhaar/triage/triage/internal/store"
	"github.com/hazyhaar/triage/vecindex"
)

// Service is the main triage orchestrator.
type Service struct {
	store  *store.Store
	vecs   *vecindex.Index
	embed  embedding.Embedder
	logger *slog.Logger
	config *Config

	newInboxID func() string
	newEventID func() string
	newItemID  func() string
}

// New creates a triage Service on an already-opened database. The caller
// applies ApplySchema first. A nil config uses defaults; a nil logger
// uses slog.Default.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		store:      store.NewStore(db),
		vecs:       vecindex.New(db),
		embed:      embedding.New(cfg.Embedding),
		logger:     logger,
		config:     cfg,
		newInboxID: idgen.Prefixed("inb_", idgen.Default),
		newEventID: idgen.Prefixed("evt_", idgen.Default),
		newItemID:  idgen.Prefixed("itm_", idgen.Default),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithEmbedder overrides the embedder built from config. Use in tests
// with a fake, or to share one client across services.
func WithEmbedder(e embedding.Embedder) ServiceOption {
	return func(svc *Service) { svc.embed = e }
}

// WithIDGenerator overrides the id generators for deterministic tests.
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(svc *Service) {
		svc.newInboxID = idgen.Prefixed("inb_", gen)
		svc.newEventID = idgen.Prefixed("evt_", gen)
		svc.newItemID = idgen.Prefixed("itm_", gen)
	}
}

// ApplySchema creates the triage tables (store and vector index) and runs
// pending migrations. Idempotent.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for _, schema := range []string{store.Schema, vecindex.Schema} {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return err
		}
	}
	return store.Migrate(ctx, db)
}

// userID resolves the acting user: explicit parameter first, then the
// transport context, then the configured default.
func (svc *Service) userID(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if id := kit.GetUserID(ctx); id != "" {
		return id
	}
	return svc.config.DefaultUser
}
