package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/warp/internal/model"
	"github.com/seantiz/warp/internal/store"
)

func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("get run for events", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Finished runs have nothing left to stream; their events are in the
	// history endpoint.
	if model.IsTerminal(run.Status) {
		w.WriteHeader(http.StatusOK)
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// A run that finishes between the status check and Subscribe yields a
	// closed channel, so the loop below still terminates.
	ch, unsub := s.engine.Broker().Subscribe(id)
	defer unsub()

	eventStreams.Inc()
	defer eventStreams.Dec()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				_ = writeSSEEvent(w, "done", "stream complete")
				if canFlush {
					flusher.Flush()
				}
				return
			}
			if err := writeSSEData(w, msg); err != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// eventHistoryLine is a single event in the history response.
type eventHistoryLine struct {
	Seq       int    `json:"seq"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// eventHistoryResponse is the JSON response for GET /v1/runs/{id}/events/history.
type eventHistoryResponse struct {
	RunID  string             `json:"run_id"`
	Status string             `json:"status"`
	Events []eventHistoryLine `json:"events"`
}

func (s *Server) handleGetEventHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("get run for event history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	events, err := s.store.GetEvents(r.Context(), id)
	if err != nil {
		s.logger.Error("get run events", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get run events")
		return
	}

	lines := make([]eventHistoryLine, len(events))
	for i, e := range events {
		lines[i] = eventHistoryLine{
			Seq:       e.Seq,
			Message:   e.Message,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
	}

	s.writeJSON(w, http.StatusOK, eventHistoryResponse{
		RunID:  id,
		Status: run.Status,
		Events: lines,
	})
}

// writeSSEData writes msg as one SSE data event, one "data:" line per line
// of msg.
func writeSSEData(w http.ResponseWriter, msg string) error {
	for seg := range strings.SplitSeq(msg, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", seg); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}

// writeSSEEvent writes a named SSE event.
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	return err
}
