package dedup

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MergeHistoryEntry is one executed merge. Entries are append-only and never
// mutated after being written.
type MergeHistoryEntry struct {
	HistoryID         string            `json:"history_id"`
	PrimaryEventID    string            `json:"primary_event_id"`
	DuplicateEventIDs []string          `json:"duplicate_event_ids"`
	DuplicateSources  []string          `json:"duplicate_sources,omitempty"`
	FieldResolutions  []FieldResolution `json:"field_resolutions,omitempty"`
	MergedBy          string            `json:"merged_by"`
	MergedAt          time.Time         `json:"merged_at"`
	Strategy          Strategy          `json:"strategy"`
}

// MergeReport aggregates the history for reporting: totals, breakdown by
// strategy, and duplicate volume by ingestion source.
type MergeReport struct {
	TotalMerges        int              `json:"total_merges"`
	TotalDuplicates    int              `json:"total_duplicates"`
	MergesByStrategy   map[Strategy]int `json:"merges_by_strategy"`
	DuplicatesBySource map[string]int   `json:"duplicates_by_source"`
	LastMergedAt       *time.Time       `json:"last_merged_at,omitempty"`
}

// MergeHistoryTracker is the append-only audit log of executed merges,
// queryable per primary event id.
type MergeHistoryTracker struct {
	mu        sync.RWMutex
	entries   []MergeHistoryEntry
	byPrimary map[string][]int
}

// NewMergeHistoryTracker creates an empty tracker.
func NewMergeHistoryTracker() *MergeHistoryTracker {
	return &MergeHistoryTracker{byPrimary: make(map[string][]int)}
}

// Append records an executed merge, assigning a history id when the entry
// does not already carry one, and returns the stored entry.
func (t *MergeHistoryTracker) Append(entry MergeHistoryEntry) MergeHistoryEntry {
	if entry.HistoryID == "" {
		entry.HistoryID = uuid.New().String()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byPrimary[entry.PrimaryEventID] = append(t.byPrimary[entry.PrimaryEventID], len(t.entries))
	t.entries = append(t.entries, entry)
	return entry
}

// GetEventHistory returns the merges recorded for a primary event id in
// chronological order. Events accumulate entries over time as new duplicates
// surface.
func (t *MergeHistoryTracker) GetEventHistory(primaryEventID string) []MergeHistoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	indexes := t.byPrimary[primaryEventID]
	out := make([]MergeHistoryEntry, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, t.entries[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MergedAt.Before(out[j].MergedAt) })
	return out
}

// All returns a copy of every entry in append order.
func (t *MergeHistoryTracker) All() []MergeHistoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]MergeHistoryEntry(nil), t.entries...)
}

// Len returns the number of recorded merges.
func (t *MergeHistoryTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Report aggregates the full history.
func (t *MergeHistoryTracker) Report() MergeReport {
	t.mu.RLock()
	defer t.mu.RUnlock()

	report := MergeReport{
		TotalMerges:        len(t.entries),
		MergesByStrategy:   make(map[Strategy]int),
		DuplicatesBySource: make(map[string]int),
	}
	for _, entry := range t.entries {
		report.MergesByStrategy[entry.Strategy]++
		report.TotalDuplicates += len(entry.DuplicateEventIDs)
		for _, source := range entry.DuplicateSources {
			if source == "" {
				source = "unknown"
			}
			report.DuplicatesBySource[source]++
		}
		if report.LastMergedAt == nil || entry.MergedAt.After(*report.LastMergedAt) {
			at := entry.MergedAt
			report.LastMergedAt = &at
		}
	}
	return report
}

// restore replaces the tracker's contents from an export snapshot. Used only
// by import; normal operation is strictly append-only.
func (t *MergeHistoryTracker) restore(entries []MergeHistoryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append([]MergeHistoryEntry(nil), entries...)
	t.byPrimary = make(map[string][]int, len(entries))
	for i, entry := range t.entries {
		t.byPrimary[entry.PrimaryEventID] = append(t.byPrimary[entry.PrimaryEventID], i)
	}
}
