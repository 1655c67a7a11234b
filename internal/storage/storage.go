// Package storage puts trip images and itinerary PDFs into object storage and
// resolves them to public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is the blob storage the trip workflows upload into.
type ObjectStore interface {
	// Upload writes r under key. size may be -1 when unknown.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// PublicURL resolves key to a URL browsers can fetch without credentials.
	PublicURL(key string) string

	// Remove deletes a single object. Removing a missing object is not an error.
	Remove(ctx context.Context, key string) error

	// RemovePrefix deletes every object whose key starts with prefix.
	RemovePrefix(ctx context.Context, prefix string) error
}

// TripPrefix is the namespace all objects of a trip live under.
func TripPrefix(tripID uuid.UUID) string {
	return tripID.String() + "/"
}

// ImageKey names the i-th image of an upload batch. The millisecond timestamp
// keeps keys unique across batches; tag distinguishes create ("") from
// later additions ("new").
func ImageKey(tripID uuid.UUID, at time.Time, i int, tag, filename string) string {
	name := fmt.Sprintf("%d_%d", at.UnixMilli(), i)
	if tag != "" {
		name = fmt.Sprintf("%d_%s_%d", at.UnixMilli(), tag, i)
	}
	return TripPrefix(tripID) + name + "." + extension(filename)
}

// PDFKey names an itinerary PDF upload.
func PDFKey(tripID uuid.UUID, at time.Time, filename string) string {
	return fmt.Sprintf("%sitinerary_%d.%s", TripPrefix(tripID), at.UnixMilli(), extension(filename))
}

// extension returns the lowercased extension of filename without the dot,
// or "bin" when there is none.
func extension(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}
