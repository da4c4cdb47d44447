package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/platform/httpx"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

// HealthHandlers serves the process liveness and readiness probes. Healthz
// answers without touching any dependency; Readyz runs the dependency probes
// through the system service.
type HealthHandlers struct {
	system    services.SystemService
	clock     func() time.Time
	startedAt time.Time
}

// HealthOption customises HealthHandlers construction.
type HealthOption func(*HealthHandlers)

// WithHealthSystemService wires the service backing the readiness probe.
func WithHealthSystemService(svc services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = svc
	}
}

// WithHealthClock overrides the time source.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthStartTime overrides the process start timestamp used for uptime.
func WithHealthStartTime(t time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if !t.IsZero() {
			h.startedAt = t
		}
	}
}

// NewHealthHandlers constructs the probe handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock:     time.Now,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status": string(domain.HealthStatusOK),
		"uptime": now.Sub(h.startedAt).Round(time.Second).String(),
		"time":   formatTime(now),
	})
}

type healthCheckPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	CheckedAt string `json:"checked_at,omitempty"`
}

// Readyz reports dependency readiness. Any non-ok probe turns the response
// into a 503 with the failing checks listed in details.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.system == nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"status": string(domain.HealthStatusOK),
			"checks": map[string]healthCheckPayload{},
		})
		return
	}

	report, err := h.system.Health(ctx)
	if err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  string(domain.HealthStatusError),
			"checks":  map[string]healthCheckPayload{},
			"details": []string{err.Error()},
		})
		return
	}

	checks := make(map[string]healthCheckPayload, len(report.Checks))
	details := make([]string, 0)
	for name, check := range report.Checks {
		checks[name] = healthCheckPayload{
			Status:    string(check.Status),
			Detail:    check.Detail,
			Error:     check.Error,
			LatencyMS: check.Latency.Milliseconds(),
			CheckedAt: formatTime(check.CheckedAt),
		}
		if check.Status != domain.HealthStatusOK {
			reason := check.Error
			if reason == "" {
				reason = check.Detail
			}
			if reason == "" {
				reason = string(check.Status)
			}
			details = append(details, fmt.Sprintf("%s: %s", name, reason))
		}
	}
	sort.Strings(details)

	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}

	httpx.WriteJSON(w, status, map[string]any{
		"status":       string(report.Status),
		"checks":       checks,
		"details":      details,
		"generated_at": formatTime(report.GeneratedAt),
	})
}
