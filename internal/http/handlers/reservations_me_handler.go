package handlers

import (
	"net/http"

	"github.com/firasbarkia/energy-connect-hub/internal/service"
)

// NewReservationsMeHandler returns GET /reservations/me handler.
func NewReservationsMeHandler(svc *service.ReservationsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		reservations, err := svc.ReservationsForUser(r.Context(), userID, 50)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch reservations")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": reservations})
	}
}
