// Package dedup implements the event deduplication and merge engine:
// fingerprint-based fuzzy matching, per-field conflict resolution, atomic
// merge execution, and an append-only merge audit trail.
package dedup

import "time"

// EventRecord is the normalized shape of an ingested real-world event.
// Records arrive from upstream adapters (ticketing APIs, scrapers, manual
// entry); the engine never persists them.
type EventRecord struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	VenueName   string     `json:"venue_name,omitempty"`
	CityName    string     `json:"city_name,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Category    string     `json:"category,omitempty"`
	Subcategory string     `json:"subcategory,omitempty"`
	PriceMin    *float64   `json:"price_min,omitempty"`
	PriceMax    *float64   `json:"price_max,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	WebsiteURL  string     `json:"website_url,omitempty"`
	TicketURL   string     `json:"ticket_url,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	VideoURL    string     `json:"video_url,omitempty"`
	Source      string     `json:"source,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	IsFeatured  bool       `json:"is_featured,omitempty"`
	IsFree      bool       `json:"is_free,omitempty"`
	Status      string     `json:"status,omitempty"`
	ViewCount   int64      `json:"view_count,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

// Clone returns a deep copy of the record. Pointer fields and the tag slice
// are duplicated so mutations of the copy never leak into the original.
func (e EventRecord) Clone() EventRecord {
	out := e
	out.StartTime = cloneTimePtr(e.StartTime)
	out.EndTime = cloneTimePtr(e.EndTime)
	out.PriceMin = cloneFloatPtr(e.PriceMin)
	out.PriceMax = cloneFloatPtr(e.PriceMax)
	out.Latitude = cloneFloatPtr(e.Latitude)
	out.Longitude = cloneFloatPtr(e.Longitude)
	if e.Tags != nil {
		out.Tags = make([]string, len(e.Tags))
		copy(out.Tags, e.Tags)
	}
	return out
}

// HasCoordinates reports whether both latitude and longitude are present.
func (e EventRecord) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
