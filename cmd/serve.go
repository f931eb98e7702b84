package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/checkpoint"
	"github.com/sells-group/venture-scout/internal/pipeline"
	"github.com/sells-group/venture-scout/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pipeline progress over HTTP",
	Long: `Exposes the workspace and run ledger as a small read-only API so a
dashboard can watch a long collection run without touching the artifacts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ckpt, err := openCheckpointRead()
		if err != nil {
			return err
		}
		defer ckpt.Close()

		ledger, err := openLedger(ctx)
		if err != nil {
			return err
		}
		if ledger != nil {
			defer ledger.Close()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(ckpt, ledger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("status server listening", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func newRouter(ckpt *checkpoint.Store, ledger store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/status", func(w http.ResponseWriter, req *http.Request) {
		statuses, err := stageStatuses(ckpt)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statuses)
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		if ledger == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "run ledger disabled"})
			return
		}
		runs, err := ledger.ListRuns(req.Context(), 50)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/api/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		if ledger == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "run ledger disabled"})
			return
		}
		run, err := ledger.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		stages, err := ledger.ListStageRuns(req.Context(), run.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"run": run, "stages": stages})
	})

	return r
}

// stageStatus is the per-stage progress summary served to dashboards.
type stageStatus struct {
	Stage          string     `json:"stage"`
	ArtifactExists bool       `json:"artifact_exists"`
	Entities       int        `json:"entities"`
	Incomplete     int        `json:"incomplete"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func stageStatuses(ckpt *checkpoint.Store) ([]stageStatus, error) {
	statuses := make([]stageStatus, 0, len(pipeline.StageOrder))
	for _, stage := range pipeline.StageOrder {
		st := stageStatus{Stage: stage}
		if ckpt.ArtifactExists(stage) {
			st.ArtifactExists = true
			set, err := ckpt.Load(stage)
			if err != nil {
				return nil, err
			}
			st.Entities = len(set)
			for i := range set {
				if checkpoint.Incomplete(&set[i], cfg.Reset.RequiredFields, cfg.Reset.Threshold) {
					st.Incomplete++
				}
			}
			if info, err := os.Stat(ckpt.JSONPath(stage)); err == nil {
				mt := info.ModTime()
				st.UpdatedAt = &mt
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
