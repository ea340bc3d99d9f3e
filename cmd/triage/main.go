// CLAUDE:SUMMARY Entry point for the triage service — chi HTTP API, optional MCP stdio transport.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/triage/dbopen"
	"github.com/hazyhaar/triage/embedding"
	"github.com/hazyhaar/triage/triage"
)

const version = "1.0.0"

func main() {
	cfg, err := triage.LoadConfig(env("TRIAGE_CONFIG", ""))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	applyEnvOverrides(cfg)

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logOut := os.Stdout
	if env("MCP_TRANSPORT", "") == "stdio" {
		// stdout carries the MCP protocol when serving stdio.
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Database.
	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open db", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := triage.ApplySchema(ctx, db); err != nil {
		slog.Error("apply schema", "error", err)
		os.Exit(1)
	}

	svc := triage.New(db, cfg, logger)

	// MCP stdio: serve the tool set over stdin/stdout instead of HTTP.
	if env("MCP_TRANSPORT", "") == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "triage", Version: version}, nil)
		svc.RegisterMCP(mcpSrv)
		slog.Info("MCP stdio starting")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Router.
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok", "version": version})
	})

	r.Route("/api", func(r chi.Router) {
		// Inboxes.
		r.Get("/inboxes", func(w http.ResponseWriter, req *http.Request) {
			list, err := svc.ListInboxes(req.Context())
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, list)
		})
		r.Post("/inboxes", func(w http.ResponseWriter, req *http.Request) {
			var in triage.Inbox
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.CreateInbox(req.Context(), &in); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 201, in)
		})
		r.Get("/inboxes/{id}", func(w http.ResponseWriter, req *http.Request) {
			in, err := svc.GetInbox(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, in)
		})
		r.Put("/inboxes/{id}", func(w http.ResponseWriter, req *http.Request) {
			var in triage.Inbox
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				writeError(w, 400, err)
				return
			}
			in.ID = chi.URLParam(req, "id")
			if err := svc.UpdateInbox(req.Context(), &in); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, in)
		})
		r.Delete("/inboxes/{id}", func(w http.ResponseWriter, req *http.Request) {
			if err := svc.DeleteInbox(req.Context(), chi.URLParam(req, "id")); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]string{"deleted": chi.URLParam(req, "id")})
		})

		// Ranking, feedback, policy.
		r.Get("/inboxes/{id}/rank", func(w http.ResponseWriter, req *http.Request) {
			res, err := svc.Rank(req.Context(),
				chi.URLParam(req, "id"),
				req.URL.Query().Get("user"),
				queryInt(req, "limit", 0))
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, res)
		})
		r.Post("/inboxes/{id}/feedback", func(w http.ResponseWriter, req *http.Request) {
			var fr triage.FeedbackRequest
			if err := json.NewDecoder(req.Body).Decode(&fr); err != nil {
				writeError(w, 400, err)
				return
			}
			fr.InboxID = chi.URLParam(req, "id")
			ev, err := svc.RecordFeedback(req.Context(), &fr)
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 201, ev)
		})
		r.Get("/inboxes/{id}/policy", func(w http.ResponseWriter, req *http.Request) {
			st, err := svc.GetPolicy(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, st)
		})
		r.Put("/inboxes/{id}/threshold", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Value int `json:"value"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			p, err := svc.SetLiveThreshold(req.Context(), chi.URLParam(req, "id"), body.Value)
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, p)
		})
		r.Post("/inboxes/{id}/recompute", func(w http.ResponseWriter, req *http.Request) {
			p, err := svc.RecomputePolicy(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, p)
		})

		// Items.
		r.Post("/items", func(w http.ResponseWriter, req *http.Request) {
			var it triage.Item
			if err := json.NewDecoder(req.Body).Decode(&it); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.UpsertItem(req.Context(), &it); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 201, it)
		})
		r.Get("/items/{id}", func(w http.ResponseWriter, req *http.Request) {
			it, err := svc.GetItem(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, it)
		})
		r.Delete("/items/{id}", func(w http.ResponseWriter, req *http.Request) {
			if err := svc.DeleteItem(req.Context(), chi.URLParam(req, "id")); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]string{"deleted": chi.URLParam(req, "id")})
		})
		r.Post("/items/{id}/save", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				InboxID string `json:"inbox_id"`
				UserID  string `json:"user_id"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.SaveItem(req.Context(), body.InboxID, chi.URLParam(req, "id"), body.UserID); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]string{"saved": chi.URLParam(req, "id")})
		})
		r.Post("/items/{id}/unsave", func(w http.ResponseWriter, req *http.Request) {
			if err := svc.UnsaveItem(req.Context(), chi.URLParam(req, "id")); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]string{"unsaved": chi.URLParam(req, "id")})
		})
		r.Post("/items/{id}/hide", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				InboxID string `json:"inbox_id"`
				UserID  string `json:"user_id"`
				Reason  string `json:"reason"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.HideItem(req.Context(), body.InboxID, chi.URLParam(req, "id"), body.UserID, body.Reason); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]string{"hidden": chi.URLParam(req, "id")})
		})
		r.Post("/items/{id}/unhide", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				InboxID string `json:"inbox_id"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.UnhideItem(req.Context(), body.InboxID, chi.URLParam(req, "id")); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]string{"unhidden": chi.URLParam(req, "id")})
		})
		r.Post("/items/{id}/read", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				UserID string `json:"user_id"`
				Read   *bool  `json:"read"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			read := true
			if body.Read != nil {
				read = *body.Read
			}
			if err := svc.MarkRead(req.Context(), chi.URLParam(req, "id"), body.UserID, read); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]any{"item_id": chi.URLParam(req, "id"), "read": read})
		})
		r.Post("/items/{id}/viewed", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				InboxID    string `json:"inbox_id"`
				UserID     string `json:"user_id"`
				DurationMs int64  `json:"duration_ms"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.MarkViewed(req.Context(), body.InboxID, chi.URLParam(req, "id"), body.UserID, body.DurationMs); err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]string{"viewed": chi.URLParam(req, "id")})
		})

		// Maintenance.
		r.Post("/embed-pending", func(w http.ResponseWriter, req *http.Request) {
			n, err := svc.EmbedPending(req.Context())
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]int{"embedded": n})
		})
		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			stats, err := svc.Stats(req.Context())
			if err != nil {
				writeError(w, httpStatus(err), err)
				return
			}
			writeJSON(w, 200, stats)
		})
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// httpStatus maps service sentinels to HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, triage.ErrMissingInbox):
		return 404
	case errors.Is(err, triage.ErrNotFound):
		return 404
	case errors.Is(err, triage.ErrInvalidInput):
		return 400
	case errors.Is(err, embedding.ErrUnavailable):
		return 503
	default:
		return 500
	}
}

// applyEnvOverrides lets env vars win over the YAML config for the
// settings that change between deployments.
func applyEnvOverrides(cfg *triage.Config) {
	cfg.DBPath = env("TRIAGE_DB", cfg.DBPath)
	cfg.HTTPAddr = env("TRIAGE_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultUser = env("TRIAGE_USER", cfg.DefaultUser)
	cfg.Embedding.Endpoint = env("EMBED_ENDPOINT", cfg.Embedding.Endpoint)
	cfg.Embedding.Model = env("EMBED_MODEL", cfg.Embedding.Model)
	cfg.Embedding.APIKey = env("EMBED_API_KEY", cfg.Embedding.APIKey)
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
