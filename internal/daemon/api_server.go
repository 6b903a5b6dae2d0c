package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reelforge/internal/api"
	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/orchestrator"
	"reelforge/internal/selection"
	"reelforge/internal/services"
	"reelforge/internal/session"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           requestIDMiddleware(authMiddleware(cfg.Paths.APIToken, srv.routes())),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("POST /api/notifications/test", s.handleTestNotification)

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /api/sessions/{id}/artifacts/{stage}", s.handleArtifact)
	mux.HandleFunc("POST /api/sessions/{id}/configure", s.handleConfigure)
	mux.HandleFunc("POST /api/sessions/{id}/advance", s.controlHandler("advance", s.orch().Advance))
	mux.HandleFunc("POST /api/sessions/{id}/retry", s.controlHandler("retry", s.orch().Retry))
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.controlHandler("reset", s.orch().Reset))
	mux.HandleFunc("POST /api/sessions/{id}/publish", s.controlHandler("publish", s.orch().Publish))
	mux.HandleFunc("POST /api/sessions/{id}/regenerate", s.handleRegenerate)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", s.handleCancel)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) orch() *orchestrator.Orchestrator {
	return s.daemon.Orchestrator()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.FromCatalog(s.orch().Voices()))
}

func (s *apiServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	snaps := s.orch().List()
	if value := strings.TrimSpace(r.URL.Query().Get("phase")); value != "" {
		phase, ok := session.ParsePhase(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown phase "+strconv.Quote(value))
			return
		}
		filtered := snaps[:0]
		for _, snap := range snaps {
			if snap.Phase == phase {
				filtered = append(filtered, snap)
			}
		}
		snaps = filtered
	}
	s.writeJSON(w, http.StatusOK, api.SessionListResponse{Sessions: api.FromSnapshots(snaps)})
}

func (s *apiServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.orch().Create(r.Context(), orchestrator.CreateInput{
		Title:      req.Title,
		Script:     req.Script,
		Duration:   session.Duration(req.Duration),
		Voice:      session.VoiceID(req.Voice),
		ChannelURL: req.ChannelURL,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SessionResponse{Session: api.FromSnapshot(snap)})
}

func (s *apiServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.orch().Snapshot(r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: api.FromSnapshot(snap)})
}

func (s *apiServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.orch().Destroy(s.daemon.baseContext(), r.PathValue("id")); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req api.ConfigureRequest
	if !s.decode(w, r, &req) {
		return
	}
	in := orchestrator.ConfigureInput{
		Script:   req.Script,
		Duration: session.Duration(req.Duration),
		Voice:    session.VoiceID(req.Voice),
	}
	s.runControl(w, r, r.PathValue("id"), "configure", func(ctx context.Context) (session.Snapshot, error) {
		return s.orch().Configure(ctx, r.PathValue("id"), in)
	})
}

func (s *apiServer) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req api.RegenerateRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, ok := session.ParseStageKind(req.Stage)
	if !ok {
		s.writeFailure(w, &selection.ValidationError{InvalidFields: []string{"stage"}})
		return
	}
	id := r.PathValue("id")
	s.runControl(w, r, id, "regenerate", func(ctx context.Context) (session.Snapshot, error) {
		return s.orch().Regenerate(ctx, id, kind)
	})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.orch().Cancel(id); err != nil {
		s.writeFailure(w, err)
		return
	}
	snap, err := s.orch().Snapshot(id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SessionResponse{Session: api.FromSnapshot(snap)})
}

func (s *apiServer) controlHandler(operation string, op func(context.Context, string) (session.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		s.runControl(w, r, id, operation, func(ctx context.Context) (session.Snapshot, error) {
			return op(ctx, id)
		})
	}
}

func (s *apiServer) runControl(w http.ResponseWriter, r *http.Request, id, operation string, op func(context.Context) (session.Snapshot, error)) {
	snap, pending, err := s.daemon.control(r.Context(), id, operation, op)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	status := http.StatusOK
	if pending {
		status = http.StatusAccepted
	}
	s.writeJSON(w, status, api.SessionResponse{Session: api.FromSnapshot(snap), Pending: pending})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	bus := s.orch().Events()
	if id := r.PathValue("id"); id != "" {
		if _, err := s.orch().Snapshot(id); err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromEvents(bus.SinceForSession(id, since), since, false))
		return
	}
	withSession := r.URL.Query().Get("snapshots") == "1"
	s.writeJSON(w, http.StatusOK, api.FromEvents(bus.Since(since), since, withSession))
}

func (s *apiServer) handleArtifact(w http.ResponseWriter, r *http.Request) {
	kind, ok := session.ParseStageKind(r.PathValue("stage"))
	if !ok {
		s.writeFailure(w, &selection.ValidationError{InvalidFields: []string{"stage"}})
		return
	}
	query := r.URL.Query()
	version := 0
	if value := strings.TrimSpace(query.Get("version")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			s.writeFailure(w, &selection.ValidationError{InvalidFields: []string{"version"}})
			return
		}
		version = parsed
	}
	art, err := s.orch().Artifact(r.Context(), r.PathValue("id"), kind, version)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	withPayload := query.Get("payload") == "1" || strings.EqualFold(query.Get("payload"), "true")
	s.writeJSON(w, http.StatusOK, api.FromArtifact(art, withPayload))
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.TestNotification(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: nil, Next: 0})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	tail := query.Get("tail") == "1" || strings.EqualFold(query.Get("tail"), "true")
	sessionID := strings.TrimSpace(query.Get("session"))
	component := strings.TrimSpace(query.Get("component"))

	var (
		raw  []logging.LogEvent
		next uint64
	)
	if tail && since == 0 && !follow {
		raw, next = hub.Tail(limit)
	} else {
		var err error
		raw, next, err = hub.Fetch(r.Context(), since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	filtered := make([]logging.LogEvent, 0, len(raw))
	for _, evt := range raw {
		if sessionID != "" && evt.SessionID != sessionID {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{
		Events: api.FromLogEvents(filtered),
		Next:   next,
	})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	status := api.StatusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(s.log(), "api request failed", "api_request_failed",
			logging.String("error_kind", string(services.KindOf(err))),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, api.ErrorBody(err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
