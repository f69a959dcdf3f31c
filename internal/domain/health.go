package domain

import "time"

// ServiceStatus classifies one dependent service.
type ServiceStatus string

const (
	StatusHealthy   ServiceStatus = "healthy"
	StatusUnhealthy ServiceStatus = "unhealthy"
)

// OverallStatus summarizes both dependent services.
type OverallStatus string

const (
	OverallHealthy   OverallStatus = "healthy"
	OverallDegraded  OverallStatus = "degraded"
	OverallUnhealthy OverallStatus = "unhealthy"
)

// ServiceHealth is the latest probe outcome for one dependent service.
type ServiceHealth struct {
	Status         ServiceStatus `json:"status"`
	ResponseTimeMS *int64        `json:"responseTime,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	Error          string        `json:"error,omitempty"`
}

// Healthy reports whether the service was classified healthy.
func (h ServiceHealth) Healthy() bool {
	return h.Status == StatusHealthy
}

// SystemStatus is recomputed on every poll and replaces the previous one.
type SystemStatus struct {
	OPALServer      ServiceHealth `json:"opalServer"`
	OPAEngine       ServiceHealth `json:"opaEngine"`
	Timestamp       time.Time     `json:"timestamp"`
	OverallStatus   OverallStatus `json:"overallStatus"`
	DevelopmentMode bool          `json:"developmentMode"`
}
