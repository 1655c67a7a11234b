package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/trek-booking/internal/domain"
)

// ListTrips handles GET /trips. Only published trips are listed.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	s.listTrips(w, r, true)
}

// AdminListTrips handles GET /admin/trips, drafts included.
func (s *Server) AdminListTrips(w http.ResponseWriter, r *http.Request) {
	s.listTrips(w, r, false)
}

func (s *Server) listTrips(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	views, err := s.catalog.List(r.Context(), publishedOnly)
	if err != nil {
		writeServiceError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

// GetTrip handles GET /trips/{slug}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !domain.ValidSlug(slug) {
		writeJSON(w, http.StatusNotFound, notFoundBody("trip not found"))
		return
	}

	view, err := s.catalog.GetBySlug(r.Context(), slug, true)
	if err != nil {
		writeServiceError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AdminGetTrip handles GET /admin/trips/{id}.
func (s *Server) AdminGetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("id must be a UUID"))
		return
	}

	view, err := s.catalog.GetByID(r.Context(), id, false)
	if err != nil {
		writeServiceError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CreateTrip handles POST /admin/trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := s.readTripInput(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	defer cleanup()

	res, err := s.trips.Create(r.Context(), in)
	if err != nil {
		writeMutationError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// UpdateTrip handles PUT /admin/trips/{id}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("id must be a UUID"))
		return
	}
	in, cleanup, err := s.readTripInput(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	defer cleanup()

	res, err := s.trips.Update(r.Context(), id, in)
	if err != nil {
		writeMutationError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type statusRequest struct {
	Status domain.TripStatus `json:"status"`
}

// SetTripStatus handles PATCH /admin/trips/{id}/status.
func (s *Server) SetTripStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("id must be a UUID"))
		return
	}
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid request body"))
		return
	}

	res, err := s.trips.SetStatus(r.Context(), id, body.Status)
	if err != nil {
		writeMutationError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteTrip handles DELETE /admin/trips/{id}.
// Responds 200 with the write result so cleanup warnings reach the caller.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("id must be a UUID"))
		return
	}

	res, err := s.trips.Delete(r.Context(), id)
	if err != nil {
		writeMutationError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteTripImage handles DELETE /admin/trips/{id}/images/{imageId}.
func (s *Server) DeleteTripImage(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("id must be a UUID"))
		return
	}
	imageID, err := pathUUID(r, "imageId")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("imageId must be a UUID"))
		return
	}

	res, err := s.trips.DeleteImage(r.Context(), tripID, imageID)
	if err != nil {
		writeMutationError(w, r, err, "image")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- mapping helpers --------------------------------------------------------

// readTripInput accepts either a JSON body or a multipart form with the trip
// fields as JSON in the "trip" part, images in "images" and an optional
// itinerary PDF in "pdf". Empty file parts are ignored. The returned cleanup
// removes any temp files the multipart parser created.
func (s *Server) readTripInput(r *http.Request) (domain.TripInput, func(), error) {
	var in domain.TripInput
	noop := func() {}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := decodeJSON(r, &in); err != nil {
			return domain.TripInput{}, noop, errors.New("invalid request body")
		}
		return in, noop, nil
	}

	if err := r.ParseMultipartForm(s.opts.MultipartMemory); err != nil {
		return domain.TripInput{}, noop, errors.New("invalid multipart body")
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	raw := r.FormValue("trip")
	if raw == "" {
		cleanup()
		return domain.TripInput{}, noop, errors.New("trip part is required")
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		cleanup()
		return domain.TripInput{}, noop, errors.New("trip part must be valid JSON")
	}

	for _, fh := range r.MultipartForm.File["images"] {
		if fh.Size == 0 {
			continue
		}
		in.Images = append(in.Images, uploadFromPart(fh))
	}
	if pdfs := r.MultipartForm.File["pdf"]; len(pdfs) > 0 && pdfs[0].Size > 0 {
		pdf := uploadFromPart(pdfs[0])
		in.PDF = &pdf
	}
	return in, cleanup, nil
}
