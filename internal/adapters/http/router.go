package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/norrhem/stagecraft/internal/core/domain"
	"github.com/norrhem/stagecraft/internal/core/ports"
	"github.com/norrhem/stagecraft/internal/observability/metrics"
)

const serviceName = "api"

type RouterConfig struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	MaxInFlightWait time.Duration
}

type Router struct {
	swipes   ports.SwipeRecorder
	profiles ports.ProfileReader
	picker   ports.ImagePicker
	notifier ports.ProfileNotifier
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
	cfg      RouterConfig
}

func NewRouter(
	swipes ports.SwipeRecorder,
	profiles ports.ProfileReader,
	picker ports.ImagePicker,
	notifier ports.ProfileNotifier,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	cfg RouterConfig,
) *Router {
	return &Router{
		swipes:   swipes,
		profiles: profiles,
		picker:   picker,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.Handle("GET /metrics", rt.metrics.Handler())
	mux.HandleFunc("POST /v1/swipes", rt.recordSwipe)
	mux.HandleFunc("GET /v1/subjects/{subjectID}/profile", rt.getProfile)
	mux.HandleFunc("GET /v1/subjects/{subjectID}/profile/stream", rt.streamProfile)
	mux.HandleFunc("GET /v1/subjects/{subjectID}/swipes/count", rt.getSwipeCount)
	mux.HandleFunc("GET /v1/subjects/{subjectID}/next-images", rt.nextImages)

	var handler http.Handler = mux
	if rt.cfg.MaxInFlight > 0 {
		wait := rt.cfg.MaxInFlightWait
		if wait <= 0 {
			wait = 200 * time.Millisecond
		}
		handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, wait)
	}
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	handler = rt.observeMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) recordSwipe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID string `json:"subject_id"`
		ImageID   string `json:"image_id"`
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	swipe, err := rt.swipes.Record(r.Context(), strings.TrimSpace(req.SubjectID), strings.TrimSpace(req.ImageID), domain.SwipeDirection(req.Direction))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	rt.metrics.SwipeAppended(serviceName, string(swipe.Direction))
	writeJSON(w, http.StatusAccepted, swipe)
}

func (rt *Router) getProfile(w http.ResponseWriter, r *http.Request) {
	subjectID := r.PathValue("subjectID")

	profile, err := rt.profiles.ProfileBySubject(r.Context(), subjectID)
	if err != nil {
		if domain.IsKind(err, domain.ErrProfileNotFound) {
			rt.metrics.ProfileRead(serviceName, "missing")
		}
		rt.writeError(w, r, err)
		return
	}

	rt.metrics.ProfileRead(serviceName, "found")
	writeJSON(w, http.StatusOK, profile)
}

func (rt *Router) getSwipeCount(w http.ResponseWriter, r *http.Request) {
	subjectID := r.PathValue("subjectID")

	count, err := rt.profiles.SwipeCount(r.Context(), subjectID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id":  subjectID,
		"swipe_count": count,
	})
}

func (rt *Router) nextImages(w http.ResponseWriter, r *http.Request) {
	subjectID := r.PathValue("subjectID")

	limit := 1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	images, err := rt.picker.NextImages(r.Context(), subjectID, limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	rt.metrics.ImagesPicked(serviceName, len(images))
	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id": subjectID,
		"images":     images,
	})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (rt *Router) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rt.metrics.RequestStarted()
		defer rt.metrics.RequestFinished()

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		rt.metrics.ObserveRequest(serviceName, r.Method, routePattern(r), recorder.statusCode, time.Since(start))
	})
}

// routePattern keeps the metrics path label low-cardinality by collapsing
// subject identifiers back into their route placeholder.
func routePattern(r *http.Request) string {
	path := r.URL.Path
	rest, ok := strings.CutPrefix(path, "/v1/subjects/")
	if !ok {
		return path
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return "/v1/subjects/{subjectID}" + rest[idx:]
	}
	return "/v1/subjects/{subjectID}"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
