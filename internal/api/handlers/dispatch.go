package handlers

import (
	"context"
	"net/http"
	"route-dispatch-service/internal/api/dto"
	"route-dispatch-service/internal/services"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Runner executes one dispatch tick.
type Runner interface {
	Run(ctx context.Context, nowUTC time.Time) (services.Report, error)
}

type DispatchHandler struct {
	Runner Runner
	Now    func() time.Time
}

// Trigger runs the batch for the current instant, or for ?at=<RFC3339> when
// an operator replays a missed tick. The run is detached from the request so
// a dropped cron connection cannot abort a tenant mid-persist.
func (h *DispatchHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	at := now().UTC()

	if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "at must be an RFC3339 timestamp")
			return
		}
		at = parsed.UTC()
	}

	report, err := h.Runner.Run(context.WithoutCancel(r.Context()), at)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("dispatch run failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewDispatchReportResponse(report))
}
