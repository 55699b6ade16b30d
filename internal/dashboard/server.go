// Package dashboard serves the founder-facing web UI and proxies queries to
// agent processes.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/startupx/agents/internal/agent/model"
	"github.com/startupx/agents/internal/agentbus"
	errx "github.com/startupx/agents/internal/core/error"
	logx "github.com/startupx/agents/pkg/logger"
)

const (
	maxBodyBytes        = 16 << 20
	defaultAgentID      = "core"
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// Server holds the chi router, the store and the agent table.
type Server struct {
	cfg     Config
	agents  []Agent
	byID    map[string]Agent
	store   model.Store
	client  *agentbus.Client
	limiter *rate.Limiter
	router  chi.Router
	log     zerolog.Logger

	onboardingTmpl *template.Template
	dashboardTmpl  *template.Template
}

func NewServer(cfg Config, agents []Agent, store model.Store) *Server {
	if cfg.UserID == "" {
		cfg.UserID = model.DefaultUserID
	}
	s := &Server{
		cfg:            cfg,
		agents:         agents,
		byID:           make(map[string]Agent, len(agents)),
		store:          store,
		client:         agentbus.NewClient(cfg.clientTimeout(), cfg.APIKey),
		log:            logx.Component("dashboard"),
		onboardingTmpl: pageSet("onboarding.html"),
		dashboardTmpl:  pageSet("dashboard.html"),
	}
	for _, a := range agents {
		s.byID[a.ID] = a
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleOnboarding)
	r.Get("/dashboard", s.handleDashboard)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/onboard", s.handleOnboard)
		r.With(s.rateLimited).Post("/query", s.handleQuery)
		r.Get("/status", s.handleStatus)
		r.Get("/profile", s.handleProfile)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info().Str("address", ln.Addr().String()).Msg("StartupX Dashboard started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("Dashboard shutdown error")
	}
	return nil
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorReply{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	s.render(w, s.onboardingTmpl, onboardingPage{Title: "Onboarding", Fields: onboardingFields})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := s.profile(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Error loading profile")
		http.Error(w, errx.SystemErrorMessage, errx.Status(err))
		return
	}
	s.render(w, s.dashboardTmpl, dashboardPage{Title: "Dashboard", Profile: p, Agents: s.agents})
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error().Err(err).Msg("Error rendering page")
		http.Error(w, errx.SystemErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var p *model.Profile
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, err)
		return
	}
	if p == nil {
		writeError(w, errx.BadRequest("profile is required"))
		return
	}
	if err := s.store.UpdateProfile(r.Context(), s.cfg.UserID, *p); err != nil {
		s.log.Error().Err(err).Msg("Error saving profile")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect": "/dashboard"})
}

type queryRequest struct {
	AgentID   string            `json:"agent_id"`
	Content   string            `json:"content"`
	SessionID string            `json:"session_id"`
	File      *model.Attachment `json:"file"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var q queryRequest
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, err)
		return
	}
	if q.AgentID == "" {
		q.AgentID = defaultAgentID
	}
	if q.SessionID == "" {
		q.SessionID = model.DefaultSessionID
	}

	agent, ok := s.byID[q.AgentID]
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "Unknown agent"})
		return
	}

	msg := agentbus.Message{
		Content:   q.Content,
		SessionID: q.SessionID,
		Metadata:  agentbus.Metadata{File: q.File},
	}
	reply, err := s.client.SendSync(r.Context(), agent.baseURL(s.cfg.AgentHost), msg)
	if err != nil {
		s.log.Warn().Err(err).Str("agent", agent.ID).Msg("Agent query failed")
		writeJSON(w, http.StatusInternalServerError, errorReply{Error: errx.AgentUnavailableMessage})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.StatusCode)
	_, _ = w.Write(reply.Body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, probeAll(r.Context(), s.cfg.AgentHost, s.agents, s.cfg.ProbeTimeout))
}

// profileView mirrors the stored row; a missing image is null.
type profileView struct {
	StartupName    string  `json:"startup_name"`
	FounderName    string  `json:"founder_name"`
	Stage          string  `json:"stage"`
	ProblemSolved  string  `json:"problem_solved"`
	ProductService string  `json:"product_service"`
	TargetMarket   string  `json:"target_market"`
	RevenueModel   string  `json:"revenue_model"`
	FundingStatus  string  `json:"funding_status"`
	ProfileImage   *string `json:"profile_image"`
}

func newProfileView(p model.Profile) profileView {
	v := profileView{
		StartupName:    p.StartupName,
		FounderName:    p.FounderName,
		Stage:          p.Stage,
		ProblemSolved:  p.ProblemSolved,
		ProductService: p.ProductService,
		TargetMarket:   p.TargetMarket,
		RevenueModel:   p.RevenueModel,
		FundingStatus:  p.FundingStatus,
	}
	if p.ProfileImage != "" {
		img := p.ProfileImage
		v.ProfileImage = &img
	}
	return v
}

func (s *Server) profile(ctx context.Context) (profileView, error) {
	p, err := s.store.Profile(ctx, s.cfg.UserID)
	if err != nil {
		return profileView{}, err
	}
	if p == nil {
		return newProfileView(model.DefaultProfile()), nil
	}
	return newProfileView(*p), nil
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profile(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Error loading profile")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		sessionID = model.DefaultSessionID
	}
	agentID := q.Get("agent_id")
	if agentID == "" {
		agentID = defaultAgentID
	}
	if _, ok := s.byID[agentID]; !ok {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "Unknown agent"})
		return
	}

	limit := defaultHistoryLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, errx.BadRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	turns, err := s.store.History(r.Context(), sessionID, agentID, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Error loading history")
		writeError(w, err)
		return
	}
	if turns == nil {
		turns = []model.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"agent_id":   agentID,
		"history":    turns,
	})
}

type errorReply struct {
	Error string `json:"error"`
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errx.BadRequest("failed to read request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errx.BadRequest("invalid JSON payload")
	}
	return nil
}

// writeError replies with the error's status; 400s carry their own message.
func writeError(w http.ResponseWriter, err error) {
	status := errx.Status(err)
	msg := err.Error()
	var appErr *errx.AppError
	if errors.As(err, &appErr) && status == http.StatusBadRequest {
		msg = appErr.Message
	}
	writeJSON(w, status, errorReply{Error: msg})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
