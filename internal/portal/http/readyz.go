package http

import (
	"net/http"
	"time"

	"github.com/shogun1988/authportal/internal/portal/store"
	"github.com/shogun1988/authportal/pkg/httpx"
)

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
}

// ReadyHealthResponse extends the liveness payload with dependency checks.
type ReadyHealthResponse struct {
	HealthResponse
	Checks HealthChecks `json:"checks"`
}

// ReadyzHandler reports degraded with a 503 when the database is unreachable.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := HealthChecks{Database: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, ReadyHealthResponse{
			HealthResponse: HealthResponse{
				Status:  overallStatus,
				Uptime:  time.Since(startTime).String(),
				Version: version,
			},
			Checks: checks,
		})
	}
}
