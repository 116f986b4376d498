package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DevDizzle/profit-scout/internal/domain/task"
	"github.com/DevDizzle/profit-scout/internal/metrics"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/logger"
)

// TaskStreamer is the stream handler's view of the orchestrator
type TaskStreamer interface {
	Subscribe(taskID string) (<-chan task.Notification, func(), error)
	MarkDelivered(taskID string)
}

// StreamHandler relays task notifications to clients over Server-Sent Events
type StreamHandler struct {
	tasks             TaskStreamer
	keepAliveInterval time.Duration
	maxWait           time.Duration
	log               *logger.Logger
}

// NewStreamHandler creates the SSE relay handler
func NewStreamHandler(tasks TaskStreamer, keepAliveInterval, maxWait time.Duration) *StreamHandler {
	return &StreamHandler{
		tasks:             tasks,
		keepAliveInterval: keepAliveInterval,
		maxWait:           maxWait,
		log:               logger.Get().With("component", "stream"),
	}
}

// ServeHTTP streams notifications for one task: GET /stream/{task_id}.
// The connection ends after the terminal notification, after maxWait with a
// timeout frame, or when the client disconnects. A subscriber arriving after
// the task finished still receives the terminal notification immediately.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")

	ch, unsubscribe, err := h.tasks.Subscribe(taskID)
	if errors.Is(err, errors.ErrTaskNotFound) {
		metrics.StreamSubscriptions.WithLabelValues("unknown_task").Inc()
		writeError(w, err)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	defer unsubscribe()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.Wrap(errors.ErrInternal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAliveInterval)
	defer keepAlive.Stop()
	deadline := time.NewTimer(h.maxWait)
	defer deadline.Stop()

	h.log.Debugw("Stream opened", "task_id", taskID)

	for {
		select {
		case notif, open := <-ch:
			if !open {
				// Channel closed right after the terminal send; the
				// notification was already consumed in a prior iteration.
				metrics.StreamSubscriptions.WithLabelValues("delivered").Inc()
				return
			}
			if err := writeEvent(w, flusher, notif); err != nil {
				metrics.StreamSubscriptions.WithLabelValues("client_gone").Inc()
				h.log.Debugw("Stream write failed", "task_id", taskID, "error", err)
				return
			}
			if notif.Status.Terminal() {
				h.tasks.MarkDelivered(taskID)
				metrics.StreamSubscriptions.WithLabelValues("delivered").Inc()
				h.log.Debugw("Terminal notification delivered", "task_id", taskID, "status", notif.Status)
				return
			}

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				metrics.StreamSubscriptions.WithLabelValues("client_gone").Inc()
				return
			}
			flusher.Flush()

		case <-deadline.C:
			detail, _ := json.Marshal(task.ErrorDetail{
				Message: "analysis is taking longer than expected, please retry",
			})
			_ = writeEvent(w, flusher, task.Notification{Status: task.StatusError, Data: detail})
			metrics.StreamSubscriptions.WithLabelValues("timeout").Inc()
			h.log.Warnw("Stream timed out", "task_id", taskID)
			return

		case <-r.Context().Done():
			metrics.StreamSubscriptions.WithLabelValues("client_gone").Inc()
			h.log.Debugw("Stream client disconnected", "task_id", taskID)
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, notif task.Notification) error {
	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
