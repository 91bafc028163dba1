package database

import (
	"time"
)

// StoredPigeon represents a catalog entry. Embedding is nil for entries
// registered without a usable photo; such entries never appear in
// similarity results.
type StoredPigeon struct {
	ID          string
	Name        string
	Description string
	IsPublic    bool
	Embedding   []float32
	FirstSeen   time.Time
	CreatedAt   time.Time
}

// StoredImage represents a photo attached to a pigeon.
type StoredImage struct {
	ID        string
	PigeonID  string
	FilePath  string
	FileSize  int64
	MimeType  string
	Embedding []float32
	IsPrimary bool
	CreatedAt time.Time
}

// Sighting records that a registered pigeon was spotted again.
type Sighting struct {
	ID        string
	PigeonID  string
	Notes     string
	Timestamp time.Time
}

// PigeonMetadata is the enriched lookup result used in match responses.
type PigeonMetadata struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	FirstSeen      time.Time `json:"first_seen"`
	SightingsCount int       `json:"sightings_count"`
}

// PigeonSummary is a compact listing row.
type PigeonSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	FirstSeen      time.Time `json:"first_seen"`
	SightingsCount int       `json:"sightings_count"`
}

// Neighbor is a single similarity-search result.
type Neighbor struct {
	PigeonID   string
	Name       string
	Similarity float64
}
