// Package health probes OPA and OPAL and derives the overall system status.
package health

import "opagate/internal/domain"

// Overall derives the system status from the two service classifications:
// both healthy is healthy, both unhealthy is unhealthy, anything else is
// degraded.
func Overall(opal, engine domain.ServiceStatus) domain.OverallStatus {
	opalUp := opal == domain.StatusHealthy
	engineUp := engine == domain.StatusHealthy
	switch {
	case opalUp && engineUp:
		return domain.OverallHealthy
	case !opalUp && !engineUp:
		return domain.OverallUnhealthy
	default:
		return domain.OverallDegraded
	}
}
