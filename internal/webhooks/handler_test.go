package webhooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePublisher struct {
	published []Task
	err       error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	f.published = append(f.published, t)
	return nil
}

func recordingEvent(uuid, hostEmail string) []byte {
	obj := map[string]any{"uuid": uuid}
	if hostEmail != "" {
		obj["host_email"] = hostEmail
	}
	raw, _ := json.Marshal(map[string]any{
		"event":   "recording.completed",
		"payload": map[string]any{"object": obj},
	})
	return raw
}

func newTestRouter(pub Publisher) chi.Router {
	r := chi.NewRouter()
	NewHandler(pub, "meetsync.tasks", NewMemoryDeduper(), zap.NewNop().Sugar()).Register(r)
	return r
}

func post(t *testing.T, r chi.Router, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestRecordingCompletedPublishesTask(t *testing.T) {
	pub := &fakePublisher{}
	r := newTestRouter(pub)

	w := post(t, r, "/webhooks/zoom/recording-completed", recordingEvent("ev-1", "host@acme.test"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, pub.published, 1)
	require.Equal(t, Task{UserEmail: "host@acme.test", TaskType: "recordingCompleted"}, pub.published[0])
}

func TestRecordingCompletedWithoutHostEmailAcksAndDrops(t *testing.T) {
	pub := &fakePublisher{}
	r := newTestRouter(pub)

	w := post(t, r, "/webhooks/zoom/recording-completed", recordingEvent("ev-1", ""))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, pub.published)
}

func TestDuplicateDeliveryIsDropped(t *testing.T) {
	pub := &fakePublisher{}
	r := newTestRouter(pub)

	w := post(t, r, "/webhooks/zoom/recording-completed", recordingEvent("ev-1", "host@acme.test"))
	require.Equal(t, http.StatusOK, w.Code)
	w = post(t, r, "/webhooks/zoom/recording-completed", recordingEvent("ev-1", "host@acme.test"))
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, pub.published, 1)

	// a different delivery id still goes through
	w = post(t, r, "/webhooks/zoom/recording-completed", recordingEvent("ev-2", "host@acme.test"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, pub.published, 2)
}

func TestPublishFailureStillAcks(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	r := newTestRouter(pub)

	w := post(t, r, "/webhooks/zoom/recording-completed", recordingEvent("ev-1", "host@acme.test"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, pub.published)
}

func TestUnparseableBodyStillAcks(t *testing.T) {
	pub := &fakePublisher{}
	r := newTestRouter(pub)

	w := post(t, r, "/webhooks/zoom/recording-completed", []byte("not json"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, pub.published)
}

func TestMeetingCreatedAcks(t *testing.T) {
	pub := &fakePublisher{}
	r := newTestRouter(pub)

	w := post(t, r, "/webhooks/zoom/meeting-created", recordingEvent("ev-9", "host@acme.test"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, pub.published)
}
