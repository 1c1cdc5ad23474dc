package dedup

import "time"

func timePtr(t time.Time) *time.Time { return &t }

func floatPtr(f float64) *float64 { return &f }

// jazzNight is a fully populated record used as a baseline across tests.
func jazzNight(id, source string) EventRecord {
	start := time.Date(2026, 9, 12, 20, 0, 0, 0, time.UTC)
	return EventRecord{
		ID:          id,
		Title:       "Jazz Concert at Blue Note",
		Description: "An intimate evening of live jazz with a celebrated quartet",
		VenueName:   "Blue Note Jazz Club",
		CityName:    "New York",
		StartTime:   timePtr(start),
		Category:    "music",
		Latitude:    floatPtr(40.7306),
		Longitude:   floatPtr(-74.0007),
		Source:      source,
		Tags:        []string{"jazz", "live-music"},
		UpdatedAt:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func rockNight(id, source string) EventRecord {
	start := time.Date(2026, 10, 3, 19, 30, 0, 0, time.UTC)
	return EventRecord{
		ID:        id,
		Title:     "Rock Concert at Madison Square Garden",
		VenueName: "Madison Square Garden",
		CityName:  "New York",
		StartTime: timePtr(start),
		Category:  "music",
		Latitude:  floatPtr(40.7505),
		Longitude: floatPtr(-73.9934),
		Source:    source,
		Tags:      []string{"rock"},
		UpdatedAt: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
	}
}
