package domain

import "io"

// Upload is a file submitted alongside a trip write.
// Open may be called more than once; each call returns a fresh reader.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// TripInput is the full payload of a trip create or update.
// Location maps to the trip's start point.
type TripInput struct {
	Title        string         `json:"title"`
	Slug         string         `json:"slug"`
	Overview     string         `json:"overview"`
	Difficulty   Difficulty     `json:"difficulty"`
	DurationDays int            `json:"duration_days"`
	MinPax       int            `json:"min_pax"`
	MaxPax       int            `json:"max_pax"`
	MaxAltitude  string         `json:"max_altitude"`
	BestSeason   string         `json:"best_season"`
	Location     string         `json:"location"`
	EndPoint     string         `json:"end_point"`
	Price        float64        `json:"price"`
	ChildPrice   float64        `json:"child_price"`
	Itinerary    []ItineraryDay `json:"itinerary"`
	Highlights   []string       `json:"highlights"`
	Included     []string       `json:"included"`
	Excluded     []string       `json:"excluded"`

	Images []Upload `json:"-"`
	PDF    *Upload  `json:"-"`
}

// Warning records a best-effort step that failed without aborting the
// workflow it belonged to.
type Warning struct {
	Step    string `json:"step"`
	Item    string `json:"item,omitempty"`
	Message string `json:"message"`
}

// Workflow step names reported in warnings.
const (
	StepImageUpload = "image_upload"
	StepImageRow    = "image_row"
	StepImageRemove = "image_remove"
	StepPricing     = "pricing"
	StepItinerary   = "itinerary"
	StepMeta        = "meta"
	StepPDFUpload   = "pdf_upload"
	StepPDFPath     = "pdf_path"
	StepBlobCleanup = "blob_cleanup"
)

// WriteResult is returned by every successful trip mutation.
// Warnings is never nil.
type WriteResult struct {
	TripID   string    `json:"id"`
	Slug     string    `json:"slug,omitempty"`
	Warnings []Warning `json:"warnings"`
}
