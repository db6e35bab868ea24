// Package webhooks receives provider event callbacks and turns them into
// queued tasks. The provider retries on non-2xx, so every handler path
// acknowledges; bad events are logged and dropped, never bounced.
package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmespath/go-jmespath"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"meetsync/pkg/problems"
)

var eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "meetsync",
	Subsystem: "webhooks",
	Name:      "events_total",
	Help:      "Webhook deliveries received per event kind.",
}, []string{"event"})

// Publisher pushes a task onto the queue. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NoopPublisher drops tasks; used when no queue is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(subject string, data []byte) error { return nil }

// Task is the queued work item downstream workers consume.
type Task struct {
	UserEmail string `json:"userEmail"`
	TaskType  string `json:"taskType"`
}

type Handler struct {
	pub     Publisher
	subject string
	dedupe  Deduper
	log     *zap.SugaredLogger
}

func NewHandler(pub Publisher, subject string, dedupe Deduper, log *zap.SugaredLogger) *Handler {
	return &Handler{pub: pub, subject: subject, dedupe: dedupe, log: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/zoom/recording-completed", h.recordingCompleted)
	r.Post("/webhooks/zoom/meeting-created", h.meetingCreated)
}

func (h *Handler) recordingCompleted(w http.ResponseWriter, r *http.Request) {
	eventsReceived.WithLabelValues("recording-completed").Inc()
	event, ok := h.decode(w, r)
	if !ok {
		return
	}
	if id := h.eventID(event); id != "" {
		first, err := h.dedupe.FirstSeen(r.Context(), id)
		if err != nil {
			// dedupe store down; better a duplicate task than a lost one
			h.log.Warnw("webhook dedupe check failed", "err", err, "id", id)
		} else if !first {
			h.log.Debugw("duplicate webhook delivery dropped", "id", id)
			h.ack(w)
			return
		}
	}
	email := h.extractString(event, "payload.object.host_email")
	if email == "" {
		h.log.Warnw("recording webhook without host email, dropped")
		h.ack(w)
		return
	}
	h.publish(Task{UserEmail: email, TaskType: "recordingCompleted"})
	h.ack(w)
}

// meetingCreated is acknowledged and logged only; no downstream task
// consumes it yet.
func (h *Handler) meetingCreated(w http.ResponseWriter, r *http.Request) {
	eventsReceived.WithLabelValues("meeting-created").Inc()
	event, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.log.Infow("meeting created webhook",
		"host", h.extractString(event, "payload.object.host_email"),
		"id", h.extractString(event, "payload.object.uuid"))
	h.ack(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.ack(w)
		return nil, false
	}
	var event map[string]any
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.Warnw("unparseable webhook body dropped", "err", err)
		h.ack(w)
		return nil, false
	}
	return event, true
}

func (h *Handler) eventID(event map[string]any) string {
	return h.extractString(event, "payload.object.uuid")
}

func (h *Handler) extractString(event map[string]any, expr string) string {
	v, err := jmespath.Search(expr, event)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (h *Handler) publish(t Task) {
	data, _ := json.Marshal(t)
	if err := h.pub.Publish(h.subject, data); err != nil {
		// acked regardless; the provider retry would re-publish anyway
		h.log.Errorw("task publish failed", "err", err, "taskType", t.TaskType)
		return
	}
	h.log.Infow("task published", "taskType", t.TaskType, "userEmail", t.UserEmail)
}

func (h *Handler) ack(w http.ResponseWriter) {
	problems.Write(w, problems.OK(nil))
}
