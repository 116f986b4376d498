package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevDizzle/profit-scout/internal/domain/task"
	"github.com/DevDizzle/profit-scout/pkg/errors"
)

type fakeStreamer struct {
	mu        sync.Mutex
	ch        chan task.Notification
	known     bool
	delivered []string
}

func newFakeStreamer(known bool) *fakeStreamer {
	return &fakeStreamer{
		ch:    make(chan task.Notification, 8),
		known: known,
	}
}

func (f *fakeStreamer) Subscribe(taskID string) (<-chan task.Notification, func(), error) {
	if !f.known {
		return nil, nil, errors.ErrTaskNotFound
	}
	return f.ch, func() {}, nil
}

func (f *fakeStreamer) MarkDelivered(taskID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, taskID)
}

func (f *fakeStreamer) Delivered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.delivered...)
}

func newStreamServer(t *testing.T, streamer TaskStreamer, keepAlive, maxWait time.Duration) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream/{task_id}", NewStreamHandler(streamer, keepAlive, maxWait).ServeHTTP)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// readEvents collects SSE data payloads until the stream closes
func readEvents(t *testing.T, body *bufio.Scanner) []string {
	t.Helper()
	var events []string
	for body.Scan() {
		line := body.Text()
		if strings.HasPrefix(line, "data: ") {
			events = append(events, strings.TrimPrefix(line, "data: "))
		}
	}
	return events
}

func TestStream_DeliversTerminalAndCloses(t *testing.T) {
	streamer := newFakeStreamer(true)
	srv := newStreamServer(t, streamer, time.Minute, time.Minute)

	streamer.ch <- task.Notification{Status: task.StatusRunning}
	streamer.ch <- task.Notification{
		Status: task.StatusCompleted,
		Data:   json.RawMessage(`{"ticker":"AAPL","synthesis":"Buy."}`),
	}

	resp, err := http.Get(srv.URL + "/stream/task-1")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, bufio.NewScanner(resp.Body))
	require.Len(t, events, 2)

	var first, last task.Notification
	require.NoError(t, json.Unmarshal([]byte(events[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(events[1]), &last))
	assert.Equal(t, task.StatusRunning, first.Status)
	assert.Equal(t, task.StatusCompleted, last.Status)

	assert.Equal(t, []string{"task-1"}, streamer.Delivered())
}

func TestStream_ErrorTerminalIsDelivered(t *testing.T) {
	streamer := newFakeStreamer(true)
	srv := newStreamServer(t, streamer, time.Minute, time.Minute)

	streamer.ch <- task.Notification{
		Status: task.StatusError,
		Data:   json.RawMessage(`{"message":"no analysis data available for AAPL"}`),
	}

	resp, err := http.Get(srv.URL + "/stream/task-1")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	events := readEvents(t, bufio.NewScanner(resp.Body))
	require.Len(t, events, 1)

	var notif task.Notification
	require.NoError(t, json.Unmarshal([]byte(events[0]), &notif))
	assert.Equal(t, task.StatusError, notif.Status)
	assert.Equal(t, []string{"task-1"}, streamer.Delivered())
}

func TestStream_UnknownTaskIs404(t *testing.T) {
	srv := newStreamServer(t, newFakeStreamer(false), time.Minute, time.Minute)

	resp, err := http.Get(srv.URL + "/stream/missing")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStream_TimeoutFrameAfterMaxWait(t *testing.T) {
	streamer := newFakeStreamer(true)
	srv := newStreamServer(t, streamer, time.Minute, 50*time.Millisecond)

	resp, err := http.Get(srv.URL + "/stream/task-1")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	events := readEvents(t, bufio.NewScanner(resp.Body))
	require.Len(t, events, 1)

	var notif task.Notification
	require.NoError(t, json.Unmarshal([]byte(events[0]), &notif))
	assert.Equal(t, task.StatusError, notif.Status)

	var detail task.ErrorDetail
	require.NoError(t, json.Unmarshal(notif.Data, &detail))
	assert.Contains(t, detail.Message, "taking longer than expected")
	assert.Empty(t, streamer.Delivered())
}

func TestStream_KeepAliveCommentsAreSent(t *testing.T) {
	streamer := newFakeStreamer(true)
	srv := newStreamServer(t, streamer, 20*time.Millisecond, 120*time.Millisecond)

	resp, err := http.Get(srv.URL + "/stream/task-1")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	scanner := bufio.NewScanner(resp.Body)
	sawKeepAlive := false
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), ": keep-alive") {
			sawKeepAlive = true
			break
		}
	}
	assert.True(t, sawKeepAlive, "expected at least one keep-alive comment")
}
