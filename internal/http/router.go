package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	AvailableSessions http.HandlerFunc
	Reserve           http.HandlerFunc
	Confirm           http.HandlerFunc
	Cancel            http.HandlerFunc
	Complete          http.HandlerFunc
	ReservationsMe    http.HandlerFunc
	StationRevenue    http.HandlerFunc
	SessionFeed       http.HandlerFunc
	Health            http.HandlerFunc
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.AvailableSessions != nil {
		mux.Handle("/sessions/available", method(http.MethodGet, routes.AvailableSessions))
	}
	if routes.Reserve != nil {
		mux.Handle("/sessions/reserve", method(http.MethodPost, routes.Reserve))
	}
	if routes.Confirm != nil {
		mux.Handle("/sessions/confirm", method(http.MethodPost, routes.Confirm))
	}
	if routes.Cancel != nil {
		mux.Handle("/sessions/cancel", method(http.MethodPost, routes.Cancel))
	}
	if routes.Complete != nil {
		mux.Handle("/sessions/complete", method(http.MethodPost, routes.Complete))
	}
	if routes.ReservationsMe != nil {
		mux.Handle("/reservations/me", method(http.MethodGet, routes.ReservationsMe))
	}
	if routes.StationRevenue != nil {
		mux.Handle("/stations/revenue", method(http.MethodGet, routes.StationRevenue))
	}
	if routes.SessionFeed != nil {
		mux.Handle("/sessions/feed", method(http.MethodGet, routes.SessionFeed))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
