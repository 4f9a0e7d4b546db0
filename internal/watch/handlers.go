package watch

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// statusResponse is the body of GET /status.
type statusResponse struct {
	Running   bool          `json:"running"`
	Interval  time.Duration `json:"interval_ns"`
	Cycles    int64         `json:"cycles"`
	LastCycle *time.Time    `json:"last_cycle,omitempty"`
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/status", Handler: m.handleStatus},
	}
}

// handleStatus reports the scheduler state.
//
//	@Summary		Poller status
//	@Description	Returns whether the poll schedule is running and cycle counters.
//	@Tags			watch
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} statusResponse
//	@Router			/watch/status [get]
func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Running:  m.poller != nil && m.poller.Running(),
		Interval: m.cfg.Interval,
	}
	if m.poller != nil {
		resp.Cycles = m.poller.Cycles()
		if last := m.poller.LastCycle(); !last.IsZero() {
			resp.LastCycle = &last
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
