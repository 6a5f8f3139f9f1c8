package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/mediaview/internal/logger"
	"github.com/marmos91/mediaview/pkg/media"
	"github.com/marmos91/mediaview/pkg/preload"
	"github.com/marmos91/mediaview/pkg/viewer"
)

// HeaderPreloadCache reports whether media was served from the preload
// cache ("hit") or not ("miss").
const HeaderPreloadCache = "X-Preload-Cache"

// SessionHandler handles viewer session endpoints.
type SessionHandler struct {
	manager *viewer.Manager
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(manager *viewer.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// CreateSessionRequest is the request body for POST /api/v1/sessions.
type CreateSessionRequest struct {
	Items []preload.Item `json:"items"`
	Index int            `json:"index"`
}

// PositionRequest is the request body for PUT /api/v1/sessions/{id}/position.
type PositionRequest struct {
	Index *int `json:"index"`
}

// MetricsResponse is a preload snapshot with durations in milliseconds.
type MetricsResponse struct {
	LoadTimeMs       float64            `json:"load_time_ms"`
	NavigationTimeMs float64            `json:"navigation_time_ms"`
	PreloadCount     int                `json:"preload_count"`
	MediaCacheSize   int                `json:"media_cache_size"`
	MemoryUsage      *preload.HeapStats `json:"memory_usage,omitempty"`
}

// SessionResponse describes a session and its cache.
type SessionResponse struct {
	ID      string          `json:"id"`
	Index   int             `json:"index"`
	Items   int             `json:"items"`
	Current *preload.Item   `json:"current,omitempty"`
	Metrics MetricsResponse `json:"metrics"`
}

// TimerResponse is returned when a timer is stopped.
type TimerResponse struct {
	Timer      string  `json:"timer"`
	DurationMs float64 `json:"duration_ms"`
}

func toMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func metricsResponse(s preload.Snapshot) MetricsResponse {
	return MetricsResponse{
		LoadTimeMs:       toMillis(s.LoadTime),
		NavigationTimeMs: toMillis(s.NavigationTime),
		PreloadCount:     s.PreloadCount,
		MediaCacheSize:   s.MediaCacheSize,
		MemoryUsage:      s.MemoryUsage,
	}
}

func sessionResponse(s *viewer.Session, snap preload.Snapshot) SessionResponse {
	resp := SessionResponse{ID: s.ID(), Metrics: metricsResponse(snap)}
	if item, idx, ok := s.Current(); ok {
		resp.Current = &item
		resp.Index = idx
	}
	resp.Items = s.Info().Items
	return resp
}

// writeViewerError maps viewer and preload errors to problem responses.
func writeViewerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, viewer.ErrSessionNotFound):
		NotFound(w, "Session not found")
	case errors.Is(err, viewer.ErrSessionClosed):
		Gone(w, "Session closed")
	case errors.Is(err, viewer.ErrInvalidItems),
		errors.Is(err, preload.ErrEmptyItems),
		errors.Is(err, preload.ErrInvalidIndex):
		UnprocessableEntity(w, err.Error())
	default:
		InternalServerError(w, "Viewer operation failed")
	}
}

// session resolves the {id} URL parameter. On failure it writes the
// problem response and returns nil.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) *viewer.Session {
	s, err := h.manager.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeViewerError(w, err)
		return nil
	}
	return s
}

// Create handles POST /api/v1/sessions.
// Opens a viewer on the given items and prefetches around index.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s, snap, err := h.manager.Create(r.Context(), req.Items, req.Index)
	if err != nil {
		writeViewerError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+s.ID())
	writeJSON(w, http.StatusCreated, sessionResponse(s, snap))
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.List())
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s, s.Metrics()))
}

// Close handles DELETE /api/v1/sessions/{id}.
// Clears the session cache, releasing every prefetched element.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Close(chi.URLParam(r, "id")); err != nil {
		writeViewerError(w, err)
		return
	}
	writeNoContent(w)
}

// Navigate handles PUT /api/v1/sessions/{id}/position.
func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	var req PositionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Index == nil {
		BadRequest(w, "index is required")
		return
	}

	snap, err := s.Navigate(r.Context(), *req.Index)
	if err != nil {
		writeViewerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s, snap))
}

// Next handles POST /api/v1/sessions/{id}/next.
func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	snap, err := s.Next(r.Context())
	if err != nil {
		writeViewerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s, snap))
}

// Prev handles POST /api/v1/sessions/{id}/prev.
func (h *SessionHandler) Prev(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	snap, err := s.Prev(r.Context())
	if err != nil {
		writeViewerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s, snap))
}

// Media handles GET /api/v1/sessions/{id}/media?id=&src=.
//
// Serves the prefetched bytes: the full image, or the leading bytes of a
// video. Anything not Loaded is a miss and the client loads the item
// directly.
func (h *SessionHandler) Media(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	id, src := r.URL.Query().Get("id"), r.URL.Query().Get("src")
	if id == "" || src == "" {
		BadRequest(w, "id and src query parameters are required")
		return
	}

	var (
		body        []byte
		contentType string
	)
	switch el := s.Get(id, src).(type) {
	case *media.Image:
		body, contentType = el.Data(), el.ContentType()
	case *media.Video:
		body, contentType = el.Header(), el.ContentType()
		if size := el.Size(); size >= 0 {
			w.Header().Set("X-Media-Size", strconv.FormatInt(size, 10))
		}
		w.Header().Set("X-Media-Preload", el.Preload())
	}

	// Released between lookup and read counts as a miss too.
	if body == nil {
		w.Header().Set(HeaderPreloadCache, "miss")
		NotFound(w, "Media not in preload cache")
		return
	}

	logger.DebugCtx(r.Context(), "Serving prefetched media",
		logger.KeySessionID, s.ID(),
		logger.KeyMediaID, id,
		logger.KeySize, len(body))

	w.Header().Set(HeaderPreloadCache, "hit")
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Metrics handles GET /api/v1/sessions/{id}/metrics.
func (h *SessionHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, metricsResponse(s.Metrics()))
}

// Export handles GET /api/v1/sessions/{id}/export.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.Export())
}

// Timer handles POST /api/v1/sessions/{id}/timers/{timer}/{action}.
//
// timer is "load" or "navigation", action is "start" or "end". Ending a
// timer returns the measured interval.
func (h *SessionHandler) Timer(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	timer, action := chi.URLParam(r, "timer"), chi.URLParam(r, "action")
	c := s.Cache()

	var elapsed time.Duration
	switch timer + "/" + action {
	case "load/start":
		c.StartTimer()
	case "load/end":
		elapsed = c.EndTimer()
	case "navigation/start":
		c.StartNavigationTimer()
	case "navigation/end":
		elapsed = c.EndNavigationTimer()
	default:
		NotFound(w, "Unknown timer or action")
		return
	}

	if action == "start" {
		writeNoContent(w)
		return
	}
	writeJSON(w, http.StatusOK, TimerResponse{Timer: timer, DurationMs: toMillis(elapsed)})
}
