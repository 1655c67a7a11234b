package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trek-booking/internal/domain"
)

// pathUUID binds the named chi path parameter as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	return id, err
}

// paginationParams binds the optional ?page= and ?limit= query parameters.
func paginationParams(r *http.Request) (domain.PaginationParams, error) {
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		return domain.PaginationParams{}, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		return domain.PaginationParams{}, err
	}
	return domain.NewPaginationParams(page, limit), nil
}

// uploadFromPart adapts a multipart file to a domain.Upload.
func uploadFromPart(fh *multipart.FileHeader) domain.Upload {
	var f openapi_types.File
	f.InitFromMultipart(fh)
	return domain.Upload{
		Filename:    f.Filename(),
		ContentType: fh.Header.Get("Content-Type"),
		Size:        f.FileSize(),
		Open:        f.Reader,
	}
}
