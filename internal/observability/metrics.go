package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu                   sync.Mutex
	requestCount         map[string]int64
	errorCount           map[string]int64
	transitionCount      map[string]int64
	auditFailures        int64
	notificationFailures int64
	notificationsDropped int64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests             map[string]int64 `json:"requests"`
	Errors               map[string]int64 `json:"errors"`
	Transitions          map[string]int64 `json:"transitions"`
	AuditFailures        int64            `json:"audit_failures"`
	NotificationFailures int64            `json:"notification_failures"`
	NotificationsDropped int64            `json:"notifications_dropped"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		transitionCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTransition counts committed status changes per edge.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCount[from+"->"+to]++
}

// RecordAuditFailure counts audit entries that could not be written.
func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditFailures++
}

// RecordNotificationFailure counts notifications the notifier rejected.
func (m *Metrics) RecordNotificationFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationFailures++
}

// RecordNotificationDropped counts events discarded because the queue was full.
func (m *Metrics) RecordNotificationDropped() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsDropped++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:             copyCounts(m.requestCount),
		Errors:               copyCounts(m.errorCount),
		Transitions:          copyCounts(m.transitionCount),
		AuditFailures:        m.auditFailures,
		NotificationFailures: m.notificationFailures,
		NotificationsDropped: m.notificationsDropped,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
