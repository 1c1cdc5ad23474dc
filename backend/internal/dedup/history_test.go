package dedup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryAccumulatesPerPrimary(t *testing.T) {
	tracker := NewMergeHistoryTracker()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	const merges = 4
	for i := 0; i < merges; i++ {
		tracker.Append(MergeHistoryEntry{
			PrimaryEventID:    "primary",
			DuplicateEventIDs: []string{fmt.Sprintf("dup-%d", i)},
			MergedBy:          "system",
			MergedAt:          base.Add(time.Duration(i) * time.Minute),
			Strategy:          StrategyEnhancePrimary,
		})
	}
	tracker.Append(MergeHistoryEntry{
		PrimaryEventID: "other",
		MergedBy:       "system",
		MergedAt:       base,
		Strategy:       StrategyManual,
	})

	entries := tracker.GetEventHistory("primary")
	require.Len(t, entries, merges)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].MergedAt.Before(entries[i-1].MergedAt),
			"entries must be in non-decreasing MergedAt order")
	}
	assert.Empty(t, tracker.GetEventHistory("unknown"))
	assert.Equal(t, merges+1, tracker.Len())
}

func TestHistoryAppendAssignsID(t *testing.T) {
	tracker := NewMergeHistoryTracker()

	entry := tracker.Append(MergeHistoryEntry{PrimaryEventID: "p", MergedAt: time.Now()})
	assert.NotEmpty(t, entry.HistoryID)

	stored := tracker.GetEventHistory("p")
	require.Len(t, stored, 1)
	assert.Equal(t, entry.HistoryID, stored[0].HistoryID)
}

func TestHistoryReport(t *testing.T) {
	tracker := NewMergeHistoryTracker()
	at := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)

	tracker.Append(MergeHistoryEntry{
		PrimaryEventID:    "p1",
		DuplicateEventIDs: []string{"d1", "d2"},
		DuplicateSources:  []string{"scraper", "eventbrite"},
		MergedAt:          at,
		Strategy:          StrategyEnhancePrimary,
	})
	tracker.Append(MergeHistoryEntry{
		PrimaryEventID:    "p2",
		DuplicateEventIDs: []string{"d3"},
		DuplicateSources:  []string{"scraper"},
		MergedAt:          at.Add(time.Hour),
		Strategy:          StrategyQualityBased,
	})

	report := tracker.Report()
	assert.Equal(t, 2, report.TotalMerges)
	assert.Equal(t, 3, report.TotalDuplicates)
	assert.Equal(t, 1, report.MergesByStrategy[StrategyEnhancePrimary])
	assert.Equal(t, 1, report.MergesByStrategy[StrategyQualityBased])
	assert.Equal(t, 2, report.DuplicatesBySource["scraper"])
	assert.Equal(t, 1, report.DuplicatesBySource["eventbrite"])
	require.NotNil(t, report.LastMergedAt)
	assert.Equal(t, at.Add(time.Hour), *report.LastMergedAt)
}

func TestHistoryReportEmpty(t *testing.T) {
	report := NewMergeHistoryTracker().Report()

	assert.Zero(t, report.TotalMerges)
	assert.Empty(t, report.MergesByStrategy)
	assert.Nil(t, report.LastMergedAt)
}

func TestHistoryEntriesAreImmutableCopies(t *testing.T) {
	tracker := NewMergeHistoryTracker()
	tracker.Append(MergeHistoryEntry{
		PrimaryEventID:    "p",
		DuplicateEventIDs: []string{"d"},
		MergedAt:          time.Now(),
	})

	first := tracker.GetEventHistory("p")
	first[0].PrimaryEventID = "tampered"

	again := tracker.GetEventHistory("p")
	assert.Equal(t, "p", again[0].PrimaryEventID)
}
