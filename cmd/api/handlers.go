package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/zester4/fixium/engine/diagnose"
	"github.com/zester4/fixium/engine/domain"
	"github.com/zester4/fixium/engine/history"
	"github.com/zester4/fixium/engine/ingest"
	"github.com/zester4/fixium/engine/session"
	"github.com/zester4/fixium/pkg/metrics"
	"github.com/zester4/fixium/pkg/natsutil"
	"github.com/zester4/fixium/pkg/resilience"
)

type server struct {
	sessions *session.Registry
	diag     *diagnose.Service
	history  *history.Recorder
	nc       *nats.Conn // nil when event publishing is disabled
	metrics  *metrics.Registry
	logger   *slog.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/screen", s.handleSetScreen)
	mux.HandleFunc("POST /api/sessions/{id}/device", s.handleSetDevice)
	mux.HandleFunc("POST /api/sessions/{id}/photos", s.handleAddPhoto)
	mux.HandleFunc("DELETE /api/sessions/{id}/photos/{photoID}", s.handleRemovePhoto)
	mux.HandleFunc("POST /api/sessions/{id}/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/sessions/{id}/guide", s.handleGetGuide)
	mux.HandleFunc("POST /api/sessions/{id}/steps/{n}/toggle", s.handleToggleStep)
	mux.HandleFunc("POST /api/sessions/{id}/steps/{n}/complete", s.handleCompleteStep)
	mux.HandleFunc("POST /api/sessions/{id}/complete", s.handleCompleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleResetSession)

	mux.HandleFunc("GET /api/history", s.handleListHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleRemoveHistory)
	mux.HandleFunc("POST /api/history/{id}/rating", s.handleRateHistory)

	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionView is the state snapshot returned to clients.
type sessionView struct {
	ID             string                 `json:"id"`
	Screen         session.Screen         `json:"screen"`
	Device         *domain.DeviceInfo     `json:"device,omitempty"`
	Photos         []domain.CapturedPhoto `json:"photos"`
	PhotosComplete bool                   `json:"photosComplete"`
	NextPhotoRole  string                 `json:"nextPhotoRole,omitempty"`
	ContinueLabel  string                 `json:"continueLabel"`
	Progress       *session.Progress      `json:"progress,omitempty"`
}

func (s *server) viewOf(sess *session.Session) sessionView {
	v := sessionView{
		ID:             sess.ID(),
		Screen:         sess.Screen(),
		Photos:         sess.Photos(),
		PhotosComplete: sess.PhotosComplete(),
		ContinueLabel:  sess.ContinueLabel(),
	}
	if d, ok := sess.Device(); ok {
		v.Device = &d
	}
	if role, ok := sess.NextPhotoRole(); ok {
		v.NextPhotoRole = string(role)
	}
	if p, err := sess.StepProgress(); err == nil {
		v.Progress = &p
	}
	return v
}

func (s *server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	s.metrics.Counter("fixium_sessions_created_total").Inc()
	writeJSON(w, http.StatusCreated, s.viewOf(sess))
}

func (s *server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, s.viewOf(sess))
	}
}

func (s *server) handleSetScreen(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Screen session.Screen `json:"screen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Screen == "" {
		writeError(w, http.StatusBadRequest, "screen is required")
		return
	}
	sess.SetScreen(req.Screen)
	writeJSON(w, http.StatusOK, s.viewOf(sess))
}

func (s *server) handleSetDevice(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var device domain.DeviceInfo
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.SetDevice(device); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.viewOf(sess))
}

func (s *server) handleAddPhoto(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Role    domain.PhotoRole `json:"type"`
		DataURL string           `json:"dataUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	photo := domain.CapturedPhoto{
		ID:        uuid.NewString(),
		Role:      req.Role,
		DataURL:   req.DataURL,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := sess.AddPhoto(photo); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.viewOf(sess))
}

func (s *server) handleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.RemovePhoto(r.PathValue("photoID"))
	writeJSON(w, http.StatusOK, s.viewOf(sess))
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.BeginAnalysis(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	device, _ := sess.Device()
	guide, err := s.diag.Analyze(r.Context(), sess.ID(), device, sess.Photos())
	if err != nil {
		sess.FailAnalysis()
		s.metrics.Counter(metrics.WithLabels("fixium_analyses_total", "outcome", "error")).Inc()
		s.writeAnalysisError(w, err)
		return
	}

	if err := sess.ApplyAnalysis(guide); err != nil {
		// The session left the analyzing screen while the request was in
		// flight; the result is discarded.
		s.metrics.Counter(metrics.WithLabels("fixium_analyses_total", "outcome", "stale")).Inc()
		writeError(w, http.StatusConflict, "analysis no longer wanted")
		return
	}

	s.metrics.Counter(metrics.WithLabels("fixium_analyses_total", "outcome", "ok")).Inc()
	writeJSON(w, http.StatusOK, guide)
}

func (s *server) writeAnalysisError(w http.ResponseWriter, err error) {
	var parseErr *diagnose.ParseError
	var gwErr *diagnose.GatewayError
	switch {
	case errors.Is(err, diagnose.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "analysis rate limit reached, try again shortly")
	case errors.Is(err, diagnose.ErrQuotaExhausted):
		writeError(w, http.StatusPaymentRequired, "AI credits exhausted")
	case errors.Is(err, diagnose.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "AI gateway is not configured")
	case errors.Is(err, resilience.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "AI gateway is unavailable")
	case errors.As(err, &parseErr):
		writeError(w, http.StatusBadGateway, "AI response could not be parsed")
	case errors.As(err, &gwErr):
		writeError(w, http.StatusBadGateway, "AI gateway request failed")
	default:
		s.logger.Error("analysis failed", "err", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func (s *server) handleGetGuide(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	guide, ok := sess.Guide()
	if !ok {
		writeError(w, http.StatusNotFound, "no repair guide yet")
		return
	}
	writeJSON(w, http.StatusOK, guide)
}

func stepIndex(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("n"))
	return n, err == nil
}

func (s *server) handleToggleStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	n, ok := stepIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid step index")
		return
	}
	if err := sess.ToggleStep(n); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	progress, _ := sess.StepProgress()
	writeJSON(w, http.StatusOK, progress)
}

func (s *server) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	n, ok := stepIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid step index")
		return
	}
	if err := sess.MarkStepComplete(n); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	progress, _ := sess.StepProgress()
	writeJSON(w, http.StatusOK, progress)
}

type completeResponse struct {
	Guide     domain.RepairGuide `json:"guide"`
	HistoryID string             `json:"historyId,omitempty"`
	Recorded  bool               `json:"recorded"`
}

func (s *server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	guide, firstTime, err := sess.Complete()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	resp := completeResponse{Guide: guide}
	if firstTime {
		entry, err := s.history.Add(r.Context(), guide)
		if err != nil {
			s.logger.Error("history record failed", "guide", guide.ID, "err", err)
		} else {
			resp.HistoryID = entry.ID
			resp.Recorded = true
		}
		s.publishCompleted(r, entry, guide)
		s.metrics.Counter("fixium_repairs_completed_total").Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) publishCompleted(r *http.Request, entry history.Entry, guide domain.RepairGuide) {
	if s.nc == nil {
		return
	}
	ev := ingest.CompletedRepair{
		HistoryID:   entry.ID,
		Guide:       guide,
		CompletedAt: entry.CompletedAt,
	}
	if err := natsutil.Publish(r.Context(), s.nc, ingest.CompletedSubject, ev); err != nil {
		s.logger.Warn("completed-repair publish failed", "guide", guide.ID, "err", err)
	}
}

func (s *server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, s.viewOf(sess))
}

func (s *server) handleListHistory(w http.ResponseWriter, _ *http.Request) {
	entries := s.history.List()
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "history clear failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleRemoveHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "history remove failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleRateHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be 1-5")
		return
	}
	if err := s.history.SetRating(r.Context(), r.PathValue("id"), req.Rating); err != nil {
		writeError(w, http.StatusInternalServerError, "rating update failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
