// Package server exposes the inbound webhook trigger. The endpoint
// acknowledges receipt immediately with the resolved source page ID and
// runs the pipeline asynchronously; the HTTP caller is never blocked on
// pipeline completion and is not re-notified of asynchronous failures.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/the2hourclo/email-to-tweet-railway/internal/pipeline"
)

// pipelineTimeout bounds one asynchronous run end to end.
const pipelineTimeout = 10 * time.Minute

// Processor runs the pipeline for one source page.
type Processor interface {
	Process(ctx context.Context, sourceID string) (*pipeline.Summary, error)
}

// Server is the webhook HTTP server.
type Server struct {
	processor Processor
	wg        sync.WaitGroup
}

// New creates a new Server.
func New(processor Processor) *Server {
	return &Server{processor: processor}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/health", s.handleHealth)
	return logMiddleware(mux)
}

// Wait blocks until all in-flight pipeline runs have drained.
func (s *Server) Wait() {
	s.wg.Wait()
}

type webhookResponse struct {
	Status string `json:"status"`
	PageID string `json:"page_id"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	pageID, ok := ResolvePageID(body)
	if !ok {
		http.Error(w, "no page ID found in request body", http.StatusBadRequest)
		return
	}

	// Register the run before acknowledging so Wait cannot miss it, then
	// respond; the pipeline runs in the background.
	s.wg.Add(1)
	writeJSON(w, webhookResponse{Status: "accepted", PageID: pageID})

	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
		defer cancel()

		summary, err := s.processor.Process(ctx, pageID)
		if err != nil {
			slog.Error("pipeline run failed", "page_id", pageID, "error", err)
			return
		}
		if summary.Skipped {
			slog.Info("pipeline run skipped", "page_id", pageID)
			return
		}
		slog.Info("pipeline run finished",
			"page_id", pageID,
			"mode", summary.Mode,
			"concepts", summary.ConceptCount,
		)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed", time.Since(start),
		)
	})
}
