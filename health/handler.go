package health

import (
	"encoding/json"
	"net/http"
)

// response is the wire shape of the health endpoint.
type response struct {
	Status     Status   `json:"status"`
	Components []Status `json:"components"`
}

// Handler serves the monitor's aggregate as JSON. Healthy and degraded
// report 200 so probes do not restart a node that is merely impaired;
// unhealthy reports 503.
func Handler(monitor *Monitor, system string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		aggregate := monitor.Aggregate(system)

		code := http.StatusOK
		if aggregate.State == StateUnhealthy {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(response{
			Status:     aggregate,
			Components: monitor.All(),
		})
	})
}
