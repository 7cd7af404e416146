package handlers

import (
	"net/http"
	"route-dispatch-service/internal/api/dto"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/ports"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type RoutesHandler struct {
	Store ports.AssignmentStore
}

// Get returns the persisted routes for one tenant and date.
func (h *RoutesHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	date := chi.URLParam(r, "date")

	if tenantID == "" {
		writeError(w, r, http.StatusBadRequest, "tenant id is required")
		return
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	as, err := h.Store.ListAssignments(r.Context(), tenantID, date)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("tenant_id", tenantID).Msg("list assignments failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewRoutesResponse(tenantID, date, as))
}
