package handlers

import (
	"net/http"
	"strconv"

	"github.com/firasbarkia/energy-connect-hub/internal/service"
)

// NewStationRevenueHandler returns GET /stations/revenue handler for
// station-owner reporting.
func NewStationRevenueHandler(svc *service.ReservationsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID := r.URL.Query().Get("station_id")
		if stationID == "" {
			writeError(w, http.StatusBadRequest, "station_id is required")
			return
		}
		limit := 30
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}

		periods, err := svc.StationRevenue(r.Context(), stationID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch revenue")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"revenue": periods})
	}
}
