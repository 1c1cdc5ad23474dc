package dedup

import "math"

// coordPrecision rounds coordinates to 4 decimal places (roughly 11 meters),
// enough to treat venue-level jitter between sources as identical.
const coordPrecision = 1e4

// Fingerprint is an immutable, comparable snapshot of an event's
// matching-relevant fields. It is a pure function of the EventRecord:
// generating it twice from the same record yields the same fingerprint.
type Fingerprint struct {
	EventID     string   `json:"event_id"`
	Title       string   `json:"title"`
	TitleTokens []string `json:"title_tokens,omitempty"`
	Venue       string   `json:"venue"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Date        string   `json:"date,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// newFingerprint derives a fingerprint from an event. It is total: malformed
// or near-empty records degrade to a valid fingerprint whose comparisons
// simply score low, never to an error.
func newFingerprint(event EventRecord) Fingerprint {
	fp := Fingerprint{
		EventID:     event.ID,
		Title:       normalizeText(event.Title),
		TitleTokens: tokenize(event.Title),
		Venue:       normalizeText(event.VenueName),
		Keywords:    extractKeywords(event.Description),
	}
	if event.HasCoordinates() {
		lat := roundCoord(*event.Latitude)
		lon := roundCoord(*event.Longitude)
		fp.Latitude = &lat
		fp.Longitude = &lon
	}
	if event.StartTime != nil {
		fp.Date = event.StartTime.UTC().Format("2006-01-02")
	}
	return fp
}

// hasCoordinates reports whether the fingerprint carries a rounded position.
func (f Fingerprint) hasCoordinates() bool {
	return f.Latitude != nil && f.Longitude != nil
}

func roundCoord(v float64) float64 {
	return math.Round(v*coordPrecision) / coordPrecision
}
