package agentbus

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	logx "github.com/startupx/agents/pkg/logger"
)

const (
	// APIKeyHeader carries the shared secret when AGENT_API_KEY is set.
	APIKeyHeader = "X-API-KEY"

	// maxBodyBytes leaves room for image attachments sent as data URLs.
	maxBodyBytes = 16 << 20
)

var ErrUnknownMessage = errors.New("unknown message id")

type Config struct {
	APIKey      string        `envconfig:"AGENT_API_KEY"`
	Host        string        `envconfig:"AGENT_HOST" default:"localhost"`
	SyncTimeout time.Duration `envconfig:"AGENT_SYNC_TIMEOUT" default:"60s"`
	ResponseTTL time.Duration `envconfig:"AGENT_RESPONSE_TTL" default:"10m"`
}

// Server exposes one agent's Handler over HTTP.
type Server struct {
	card     Card
	handler  Handler
	cfg      Config
	registry *Registry
	router   chi.Router
	log      zerolog.Logger

	// handlers outlive the request that dispatched them
	baseCtx context.Context
	wg      sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithRegistry makes the server park replies in r instead of a registry of
// its own. Servers in one process can share a registry since message ids are
// unique.
func WithRegistry(r *Registry) Option {
	return func(s *Server) {
		if r != nil {
			s.registry = r
		}
	}
}

func NewServer(card Card, h Handler, cfg Config, opts ...Option) *Server {
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 60 * time.Second
	}
	s := &Server{
		card:    card,
		handler: h,
		cfg:     cfg,
		log:     logx.Component("agentbus").With().Str("agent", card.ID).Logger(),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry(cfg.ResponseTTL)
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/.well-known/agent.json", s.handleCard)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/webhook", s.handleWebhook)
		r.Post("/webhook/sync", s.handleWebhookSync)
		r.Get("/webhook/response/{id}", s.handleResponse)
	})
	return r
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Registry() *Registry { return s.registry }

// Wait blocks until every dispatched handler has returned.
func (s *Server) Wait() { s.wg.Wait() }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down and
// waits for in-flight handlers.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.Info().Str("address", ln.Addr().String()).Str("name", s.card.Name).Msg("Agent listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("Agent server shutdown error")
	}
	s.wg.Wait()
	s.log.Info().Msg("Agent stopped")
	return nil
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" {
			got := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.APIKey)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorReply{Error: "unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "agent": s.card.ID})
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.decode(w, r)
	if !ok {
		return
	}
	s.dispatch(msg)
	writeJSON(w, http.StatusAccepted, acceptedReply{Status: "received", MessageID: msg.MessageID})
}

func (s *Server) handleWebhookSync(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.decode(w, r)
	if !ok {
		return
	}
	s.dispatch(msg)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SyncTimeout)
	defer cancel()

	reply, err := s.registry.Wait(ctx, msg.MessageID)
	if err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.MessageID).Msg("Sync webhook timed out")
		writeJSON(w, http.StatusGatewayTimeout, errorReply{Error: "timed out waiting for agent response"})
		return
	}
	writeJSON(w, http.StatusOK, syncReply{Status: "success", MessageID: msg.MessageID, Response: reply})
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reply, ok := s.registry.Response(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorReply{Error: "response not available"})
		return
	}
	writeJSON(w, http.StatusOK, syncReply{Status: "success", MessageID: id, Response: reply})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (Message, bool) {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "failed to read request body"})
		return Message{}, false
	}
	if len(body) > maxBodyBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorReply{Error: "request body too large"})
		return Message{}, false
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "invalid JSON payload"})
		return Message{}, false
	}
	msg.MessageID = uuid.NewString()
	return msg, true
}

func (s *Server) dispatch(msg Message) {
	s.registry.Register(msg.MessageID)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("message_id", msg.MessageID).Msg("Handler panicked")
				s.registry.SetResponse(msg.MessageID, fmt.Sprintf("Error: %v", rec))
			}
		}()

		reply := s.handler.Handle(s.baseCtx, msg)
		s.registry.SetResponse(msg.MessageID, reply)
	}()
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
