package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

const sseHeartbeatInterval = 25 * time.Second

// streamProfile pushes profile snapshots over SSE: the current state on
// connect (when one exists), then every committed recomputation until the
// client goes away.
func (rt *Router) streamProfile(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported"})
		return
	}

	subjectID := r.PathValue("subjectID")
	ctx := r.Context()

	updates, err := rt.notifier.WatchUpdates(ctx, subjectID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	rt.metrics.StreamOpened()
	defer rt.metrics.StreamClosed()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if profile, err := rt.profiles.ProfileBySubject(ctx, subjectID); err == nil {
		if err := writeSSEProfile(w, flusher, profile); err != nil {
			return
		}
	} else if !domain.IsKind(err, domain.ErrProfileNotFound) {
		rt.logger.Warn("profile_stream_snapshot_failed",
			"request_id", requestIDFromContext(ctx),
			"subject_id", subjectID,
			"error", err,
		)
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case profile, open := <-updates:
			if !open {
				return
			}
			if err := writeSSEProfile(w, flusher, &profile); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEProfile(w http.ResponseWriter, flusher http.Flusher, profile *domain.StyleProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: profile\ndata: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
