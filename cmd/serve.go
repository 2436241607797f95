package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dh-lab/wikimatch/internal/tabular"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose reconciliation over HTTP",
	Long: `Starts an HTTP facade for UI collaborators. POST /reconcile takes a
tabular dataset inline and runs a full batch synchronously, responding with
the per-record results and aggregate stats.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/reconcile", handleReconcile)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// reconcileRequest is an inline tabular dataset plus query options.
type reconcileRequest struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Column  string     `json:"column"`
	Types   []string   `json:"types,omitempty"`
	Limit   int        `json:"limit,omitempty"`
}

// handleReconcile runs one synchronous batch. The inter-request delay still
// applies, so large datasets belong in the CLI, not here.
func handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Column == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "column is required"})
		return
	}

	table := tabular.NewTable("upload", req.Headers, req.Rows)
	records, err := tabular.Normalize(table, req.Column)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sess := newSession(req.Types, req.Limit, 0)
	if err := sess.Run(r.Context(), records, nil); err != nil {
		zap.L().Error("serve: batch failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reconciliation failed"})
		return
	}

	writeJSON(w, http.StatusOK, runSummary{Items: sess.Results(), Stats: sess.Stats()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
