package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkordes/trek-booking/internal/domain"
)

// bookingRequest mirrors the fields of the public booking form.
type bookingRequest struct {
	TripID     string  `json:"tripId"`
	Adults     int     `json:"adults"`
	Children   int     `json:"children"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	TotalPrice float64 `json:"totalPrice"`
	Honeypot   string  `json:"website_hp"`
}

type bookingErrors struct {
	Server string `json:"server,omitempty"`
}

// bookingResponse is what the booking form renders.
type bookingResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	ID      string         `json:"id,omitempty"`
	Errors  *bookingErrors `json:"errors,omitempty"`
}

// SubmitBooking handles POST /bookings. It accepts the booking form either
// URL-encoded, as multipart, or as JSON with the same field names.
func (s *Server) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	req, err := readBookingRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid request body"))
		return
	}

	res, err := s.bookings.Submit(r.Context(), domain.BookingInput{
		TripID:     req.TripID,
		Adults:     req.Adults,
		Children:   req.Children,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		TotalPrice: req.TotalPrice,
		Honeypot:   req.Honeypot,
	})

	resp := bookingResponse{Success: res.Success, Message: res.Message}
	if res.Booking != nil {
		resp.ID = res.Booking.ID.String()
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, resp)
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, domain.ErrNotFound):
		resp.Errors = &bookingErrors{Server: "trip not found"}
		writeJSON(w, http.StatusNotFound, resp)
	default:
		slog.ErrorContext(r.Context(), "booking failed", "error", err)
		resp.Errors = &bookingErrors{Server: err.Error()}
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

func readBookingRequest(r *http.Request) (bookingRequest, error) {
	var req bookingRequest
	if !isForm(r) {
		err := decodeJSON(r, &req)
		return req, err
	}

	if err := parseForm(r); err != nil {
		return req, err
	}
	req = bookingRequest{
		TripID:     r.FormValue("tripId"),
		Adults:     formInt(r, "adults"),
		Children:   formInt(r, "children"),
		Name:       r.FormValue("name"),
		Email:      r.FormValue("email"),
		Phone:      r.FormValue("phone"),
		TotalPrice: formFloat(r, "totalPrice"),
		Honeypot:   r.FormValue("website_hp"),
	}
	return req, nil
}

// --- form helpers -----------------------------------------------------------

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(1 << 20)
	}
	return r.ParseForm()
}

// formInt reads an integer field; anything unparsable reads as 0.
func formInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	return n
}

func formFloat(r *http.Request, key string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue(key)), 64)
	return f
}
