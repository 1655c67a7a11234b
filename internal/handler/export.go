package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/trek-booking/internal/domain"
)

// csvHeaders defines the column names written as the first row of a CSV export.
var csvHeaders = []string{
	"booking_id", "created_at", "status", "trip_id", "trip_title",
	"customer_name", "customer_email", "customer_phone",
	"adults", "children", "total_price",
}

// ExportBookings handles GET /admin/bookings/export.
// Use ?format=csv to receive a CSV download; the default is JSON.
func (s *Server) ExportBookings(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("format must be csv or json"))
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("format must be csv or json"))
		return
	}

	rows, err := s.bookings.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "booking")
		return
	}

	if format == nil || *format == "json" {
		writeJSON(w, http.StatusOK, map[string]any{"data": rows})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeaders)
	for _, b := range rows {
		_ = cw.Write(bookingCSVRecord(b))
	}
	cw.Flush()
}

// bookingCSVRecord flattens a booking. A booking whose trip was deleted has
// an empty trip_id but keeps its trip_title.
func bookingCSVRecord(b domain.Booking) []string {
	tripID := ""
	if b.TripID != nil {
		tripID = b.TripID.String()
	}
	return []string{
		b.ID.String(),
		b.CreatedAt.UTC().Format(time.RFC3339),
		string(b.Status),
		tripID,
		b.TripTitle,
		b.CustomerName,
		b.CustomerEmail,
		b.CustomerPhone,
		strconv.Itoa(b.Adults),
		strconv.Itoa(b.Children),
		strconv.FormatFloat(b.TotalPrice, 'f', 2, 64),
	}
}
