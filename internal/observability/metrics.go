package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes prometheus collectors for the ticketing core.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	HTTPErrors        *prometheus.CounterVec
	TicketsCreated    *prometheus.CounterVec
	MessagesAppended  *prometheus.CounterVec
	AttachmentUploads *prometheus.CounterVec
}

// NewMetrics registers and returns the collector set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "supportdesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		HTTPErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportdesk",
			Name:      "http_errors_total",
			Help:      "Domain errors surfaced over HTTP, by error code.",
		}, []string{"path", "method", "code"}),
		TicketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportdesk",
			Name:      "tickets_created_total",
			Help:      "Tickets created, by creator role.",
		}, []string{"role"}),
		MessagesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportdesk",
			Name:      "messages_appended_total",
			Help:      "Messages appended to tickets, by sender type and visibility.",
		}, []string{"sender_type", "internal"}),
		AttachmentUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportdesk",
			Name:      "attachment_uploads_total",
			Help:      "Attachment store uploads, by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.HTTPRequests,
			m.HTTPDuration,
			m.HTTPErrors,
			m.TicketsCreated,
			m.MessagesAppended,
			m.AttachmentUploads,
		)
	}
	return m
}

// RecordRequest increments counters for a completed request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(path, method, code).Inc()
}

// RecordTicketCreated counts a ticket creation.
func (m *Metrics) RecordTicketCreated(role string) {
	if m == nil {
		return
	}
	m.TicketsCreated.WithLabelValues(role).Inc()
}

// RecordMessageAppended counts an appended message.
func (m *Metrics) RecordMessageAppended(senderType string, internal bool) {
	if m == nil {
		return
	}
	m.MessagesAppended.WithLabelValues(senderType, strconv.FormatBool(internal)).Inc()
}

// RecordUpload counts an attachment store call.
func (m *Metrics) RecordUpload(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.AttachmentUploads.WithLabelValues(outcome).Inc()
}
