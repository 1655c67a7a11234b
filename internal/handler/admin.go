package handler

import "net/http"

// ListBookings handles GET /admin/bookings?page=&limit=.
func (s *Server) ListBookings(w http.ResponseWriter, r *http.Request) {
	p, err := paginationParams(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("page and limit must be integers"))
		return
	}

	page, err := s.bookings.List(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err, "booking")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetDashboard handles GET /admin/dashboard.
func (s *Server) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.bookings.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "dashboard")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
