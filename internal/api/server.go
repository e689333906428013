// Package api implements the Pennywise HTTP API: Q&A, summarization,
// and the expense tracker agent.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fenwick/pennywise/internal/agent"
	"github.com/fenwick/pennywise/internal/config"
	"github.com/fenwick/pennywise/internal/llm"
	"github.com/fenwick/pennywise/internal/session"
	"github.com/fenwick/pennywise/internal/stream"
	"github.com/fenwick/pennywise/internal/summarizer"
	"github.com/fenwick/pennywise/internal/tools"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address    string
	port       int
	llm        llm.Client
	summarizer *summarizer.Summarizer
	sessions   *session.Store
	loop       *agent.Loop
	streaming  config.StreamingConfig
	logger     *slog.Logger
	server     *http.Server
}

// NewServer creates an API server. All collaborators are injected;
// the server holds no state of its own beyond the listener.
func NewServer(cfg *config.Config, client llm.Client, loop *agent.Loop, sessions *session.Store, logger *slog.Logger) *Server {
	return &Server{
		address:    cfg.Listen.Address,
		port:       cfg.Listen.Port,
		llm:        client,
		summarizer: summarizer.New(client, logger),
		sessions:   sessions,
		loop:       loop,
		streaming:  cfg.Streaming,
		logger:     logger,
	}
}

// Handler builds the full middleware-wrapped handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/qna", s.handleQna)
	mux.HandleFunc("POST /api/summarize", s.handleSummarize)
	mux.HandleFunc("POST /api/tracker", s.handleTracker)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return s.withCORS(s.withLogging(mux))
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Long for streaming responses
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// withCORS reproduces the permissive development policy on /api/*:
// all origins, the standard methods, and the session id header exposed
// so browser clients can read it.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		h.Set("Access-Control-Expose-Headers", "Content-Type, X-Session-ID")
		h.Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]string{"error": message}, s.logger)
}

// synthConfig translates the streaming config for the emitter.
func (s *Server) synthConfig() stream.Config {
	return stream.Config{
		ChunkSize: s.streaming.ChunkSize,
		Delay:     s.streaming.Delay(),
	}
}

// streamCompletion handles the shared streamed-text response shape of
// the qna and summarize endpoints. complete and relay run the
// underlying chain in one-shot and streaming form respectively.
func (s *Server) streamCompletion(
	w http.ResponseWriter,
	r *http.Request,
	mode string,
	complete func(ctx context.Context) (*llm.Completion, error),
	relay func(ctx context.Context, cb llm.StreamCallback) (*llm.Completion, error),
) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.errorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if mode == config.ModeSynthetic {
		comp, err := complete(r.Context())
		if err != nil {
			s.logger.Error("completion failed", "error", err)
			s.errorResponse(w, http.StatusInternalServerError, "The language model request failed. Please try again.")
			return
		}
		if err := stream.Synthetic(r.Context(), w, flusher.Flush, comp.Text, s.synthConfig()); err != nil {
			s.logger.Debug("synthetic stream aborted", "error", err)
		}
		return
	}

	// Relay mode: forward provider partial output as it arrives.
	rl := stream.NewRelay(w, flusher.Flush)
	comp, err := relay(r.Context(), rl.Token)
	if err != nil {
		s.logger.Error("streaming completion failed", "error", err)
		if rl.Streamed() {
			// Headers are gone; the only option left is inline text.
			fmt.Fprintf(w, `{"error": "An error occurred during streaming: %s"}`, "provider failure")
			flusher.Flush()
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "The language model request failed. Please try again.")
		return
	}

	// The provider yielded no partial events; fall back to synthetic
	// emission of the full text.
	if !rl.Streamed() && comp.Text != "" {
		if err := stream.Synthetic(r.Context(), w, flusher.Flush, comp.Text, s.synthConfig()); err != nil {
			s.logger.Debug("synthetic fallback aborted", "error", err)
		}
	}
}

func (s *Server) handleQna(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		s.errorResponse(w, http.StatusBadRequest, "Missing 'question' in request body")
		return
	}

	s.streamCompletion(w, r, s.streaming.QnaMode,
		func(ctx context.Context) (*llm.Completion, error) {
			return s.llm.Complete(ctx, req.Question)
		},
		func(ctx context.Context, cb llm.StreamCallback) (*llm.Completion, error) {
			return s.llm.Stream(ctx, req.Question, cb)
		},
	)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		s.errorResponse(w, http.StatusBadRequest, "Missing 'text' in request body")
		return
	}

	s.streamCompletion(w, r, s.streaming.SummarizeMode,
		func(ctx context.Context) (*llm.Completion, error) {
			return s.summarizer.Summarize(ctx, req.Text)
		},
		func(ctx context.Context, cb llm.StreamCallback) (*llm.Completion, error) {
			return s.summarizer.SummarizeStream(ctx, req.Text, cb)
		},
	)
}

func (s *Server) handleTracker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt    string `json:"prompt"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		s.errorResponse(w, http.StatusBadRequest, "Missing 'prompt' in request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.errorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sess, sid := s.sessions.GetOrCreate(req.SessionID)
	w.Header().Set("X-Session-ID", sid)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	// Serialize the whole read-run-append cycle per session.
	sess.LockRun()
	defer sess.UnlockRun()

	reg := tools.NewRegistry(sess.Ledger())
	result, err := s.loop.Run(r.Context(), reg, sess.RenderTranscript(), req.Prompt)
	if err != nil {
		// Client disconnected; nothing to write.
		s.logger.Debug("agent run abandoned", "session", sid, "error", err)
		return
	}

	s.logger.Info("agent run completed",
		"session", sid,
		"finish_reason", result.FinishReason,
		"steps", len(result.Steps),
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
	)

	sess.AppendExchange(req.Prompt, result.Answer)

	// The loop has already run to completion; the tracker path always
	// uses synthetic emission of the finished answer.
	if err := stream.Synthetic(r.Context(), w, flusher.Flush, result.Answer, s.synthConfig()); err != nil {
		s.logger.Debug("synthetic stream aborted", "session", sid, "error", err)
	}
}
