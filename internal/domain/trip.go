// Package domain contains the core data types for the Trek Booking service.
// This package has zero external dependencies beyond google/uuid and is
// imported by every other internal package (repo, service, handler).
package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Difficulty grades how demanding a trek is. The set is closed.
type Difficulty string

const (
	DifficultyEasy        Difficulty = "Easy"
	DifficultyModerate    Difficulty = "Moderate"
	DifficultyChallenging Difficulty = "Challenging"
)

// Valid reports whether d is one of the known grades.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyChallenging:
		return true
	}
	return false
}

// TripStatus controls whether a trip appears in the public catalogue.
type TripStatus string

const (
	TripStatusDraft     TripStatus = "draft"
	TripStatusPublished TripStatus = "published"
)

// Valid reports whether s is a known status.
func (s TripStatus) Valid() bool {
	return s == TripStatusDraft || s == TripStatusPublished
}

// Trip is the base row of the trip aggregate.
// Images, pricing, itinerary and meta rows belong to a trip and are deleted
// with it.
type Trip struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Overview     string     `json:"overview"`
	Difficulty   Difficulty `json:"difficulty"`
	DurationDays int        `json:"duration_days"`
	MinPax       int        `json:"min_pax"`
	MaxPax       int        `json:"max_pax"`
	MaxAltitude  string     `json:"max_altitude"`
	BestSeason   string     `json:"best_season"`
	StartPoint   string     `json:"start_point"`
	EndPoint     string     `json:"end_point"`
	Status       TripStatus `json:"status"`
	PDFPath      *string    `json:"pdf_path,omitempty"` // nil until an itinerary PDF is uploaded
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSplitter = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases title and collapses every run of non-alphanumeric
// characters into a single hyphen, trimming hyphens at both ends.
// "Everest Base Camp Trek!" becomes "everest-base-camp-trek".
func Slugify(title string) string {
	s := slugSplitter.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// ValidSlug reports whether s is lowercase, hyphen-separated and URL-safe.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
