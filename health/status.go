package health

import (
	"regexp"
	"strings"
	"time"
)

// State is the coarse health of a backend or of the whole gateway.
type State string

// States, ordered from best to worst.
const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

func (s State) worse(than State) bool {
	return s.rank() > than.rank()
}

func (s State) rank() int {
	switch s {
	case StateHealthy:
		return 0
	case StateDegraded:
		return 1
	default:
		return 2
	}
}

// Status is the last known health of a backend, or of the gateway with
// its backends as sub-statuses.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      State     `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics describes the last check of a backend
type Metrics struct {
	Latency    time.Duration `json:"latency"`
	ErrorCount int           `json:"error_count"`
	LastCheck  time.Time     `json:"last_check,omitempty"`
}

// NewStatus stamps a status for component.
func NewStatus(component string, state State, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == StateHealthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func (s Status) IsHealthy() bool   { return s.Status == StateHealthy }
func (s Status) IsDegraded() bool  { return s.Status == StateDegraded }
func (s Status) IsUnhealthy() bool { return s.Status == StateUnhealthy }

// FromCheck converts the outcome of a backend check into a status. A
// failed check of a critical backend is unhealthy; any other failure only
// degrades the gateway.
func FromCheck(name string, err error, latency time.Duration, critical bool, errorCount int) Status {
	var status Status
	switch {
	case err == nil:
		status = NewStatus(name, StateHealthy, "Backend responding")
	case critical:
		status = NewStatus(name, StateUnhealthy, sanitizeErrorMessage(err.Error()))
	default:
		status = NewStatus(name, StateDegraded, sanitizeErrorMessage(err.Error()))
	}
	status.Metrics = &Metrics{
		Latency:    latency,
		ErrorCount: errorCount,
		LastCheck:  status.Timestamp,
	}
	return status
}

// Aggregate reports the worst state among subs, with subs attached.
func Aggregate(component string, subs []Status) Status {
	worst := StateHealthy
	for _, sub := range subs {
		if sub.Status.worse(worst) {
			worst = sub.Status
		}
	}

	var message string
	switch {
	case len(subs) == 0:
		message = "No backends checked yet"
	case worst == StateHealthy:
		message = "All backends are healthy"
	default:
		message = "One or more backends are " + string(worst)
	}

	status := NewStatus(component, worst, message)
	status.SubStatuses = append([]Status(nil), subs...)
	return status
}

// Placeholders replace anything in a check error that locates or
// authenticates a backend.
var (
	urlPattern        = regexp.MustCompile(`(?:https?|mongodb(?:\+srv)?|redis|nats|wss?)://[^\s]+`)
	unixPathPattern   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipPattern         = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portPattern       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialPattern = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// sanitizeErrorMessage strips URLs, paths, addresses, ports and
// credentials from a check error before it is served on /health.
func sanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}
	msg = urlPattern.ReplaceAllString(msg, "[URL]")
	msg = unixPathPattern.ReplaceAllString(msg, "[PATH]")
	msg = ipPattern.ReplaceAllString(msg, "[IP]")
	msg = portPattern.ReplaceAllString(msg, "[PORT]")

	lower := strings.ToLower(msg)
	for _, word := range []string{"password", "token", "key", "secret", "credential"} {
		if strings.Contains(lower, word) {
			return credentialPattern.ReplaceAllString(msg, "[REDACTED]")
		}
	}
	return msg
}
