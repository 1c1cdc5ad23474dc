package dedup

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Strategy selects how a merge decision resolves contested fields.
type Strategy string

const (
	// StrategyEnhancePrimary keeps the primary's identity and fills gaps
	// from duplicates via conflict resolution.
	StrategyEnhancePrimary Strategy = "enhance_primary"
	// StrategyQualityBased lets per-event quality scores decide which data
	// wins per field. The merged record still carries the primary's id.
	StrategyQualityBased Strategy = "quality_based"
	// StrategyManual records the merge without automatic field resolution;
	// the caller curates the resulting record.
	StrategyManual Strategy = "manual"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyEnhancePrimary, StrategyQualityBased, StrategyManual:
		return true
	}
	return false
}

// MergeDecision is an immutable plan for merging duplicates into a primary
// event. Build one with CreateMergeDecision; construction is pure and has no
// side effects.
type MergeDecision struct {
	PrimaryEventID    string            `json:"primary_event_id"`
	DuplicateEventIDs []string          `json:"duplicate_event_ids"`
	Strategy          Strategy          `json:"strategy"`
	FieldResolutions  []FieldResolution `json:"field_resolutions"`
	Confidence        float64           `json:"confidence"`

	primary    EventRecord
	duplicates []EventRecord
}

// MergeResult is the outcome of executing a merge decision. On failure,
// Errors explains why, MergedEvent is nil, and no history was written.
type MergeResult struct {
	Success     bool         `json:"success"`
	MergedEvent *EventRecord `json:"merged_event,omitempty"`
	HistoryID   string       `json:"history_id,omitempty"`
	Errors      []string     `json:"errors,omitempty"`
}

// sourceTrust ranks ingestion sources for quality scoring. Unlisted sources
// fall back to defaultSourceTrust.
var sourceTrust = map[string]float64{
	"manual":       1.0,
	"ticketmaster": 0.9,
	"eventbrite":   0.85,
	"scraper":      0.4,
}

const defaultSourceTrust = 0.5

// EventMerger builds and executes merge decisions. The resolver can be
// swapped at runtime when configuration changes the critical-field set, so
// access to it is guarded.
type EventMerger struct {
	mu       sync.RWMutex
	matcher  *FuzzyMatcher
	resolver *ConflictResolver
	history  *MergeHistoryTracker
	now      func() time.Time
}

// NewEventMerger wires a merger over the shared matcher, resolver, and
// history tracker.
func NewEventMerger(matcher *FuzzyMatcher, resolver *ConflictResolver, history *MergeHistoryTracker) *EventMerger {
	return &EventMerger{
		matcher:  matcher,
		resolver: resolver,
		history:  history,
		now:      time.Now,
	}
}

// setResolver swaps the conflict resolver. Safe to call while merges are in
// flight; a decision under construction keeps the resolver it started with.
func (m *EventMerger) setResolver(r *ConflictResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolver = r
}

func (m *EventMerger) conflictResolver() *ConflictResolver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolver
}

// CreateMergeDecision plans a merge of duplicates into primary under the
// given strategy. It is pure: nothing is mutated and no history is written.
// The duplicate id set never contains the primary's id. An unknown strategy
// is a programming error and returns an error rather than a silent no-op.
func (m *EventMerger) CreateMergeDecision(primary EventRecord, duplicates []EventRecord, strategy Strategy) (MergeDecision, error) {
	if !strategy.Valid() {
		return MergeDecision{}, fmt.Errorf("unknown merge strategy %q", strategy)
	}

	kept := make([]EventRecord, 0, len(duplicates))
	ids := make([]string, 0, len(duplicates))
	seen := map[string]bool{primary.ID: true}
	for _, d := range duplicates {
		if d.ID != "" && seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		kept = append(kept, d.Clone())
		ids = append(ids, d.ID)
	}

	decision := MergeDecision{
		PrimaryEventID:    primary.ID,
		DuplicateEventIDs: ids,
		Strategy:          strategy,
		Confidence:        m.decisionConfidence(primary, kept),
		primary:           primary.Clone(),
		duplicates:        kept,
	}

	all := append([]EventRecord{decision.primary}, decision.duplicates...)
	switch strategy {
	case StrategyEnhancePrimary:
		decision.FieldResolutions = m.conflictResolver().ResolveConflicts(all, mergeableFields)
	case StrategyQualityBased:
		decision.FieldResolutions = resolveByQuality(all)
	case StrategyManual:
		// Manual merges carry no automatic resolutions.
	}
	return decision, nil
}

// ExecuteMerge validates and applies a decision. Validation failures are
// surfaced as data: success=false with descriptive errors, no mutation, and
// no history entry. On success the merged record (always under the primary's
// id) is returned along with the id of the single history entry written.
// Persisting the merged record and retiring the duplicates in storage is the
// caller's responsibility.
func (m *EventMerger) ExecuteMerge(decision MergeDecision, actorID string) MergeResult {
	var errs []string
	if !decision.Strategy.Valid() {
		errs = append(errs, fmt.Sprintf("unknown merge strategy %q", decision.Strategy))
	}
	if decision.PrimaryEventID == "" {
		errs = append(errs, "primary event id is required")
	}
	if decision.primary.Title == "" {
		errs = append(errs, "primary event must have a non-empty title")
	}
	if len(decision.duplicates) == 0 {
		errs = append(errs, "at least one duplicate event is required")
	}
	for _, id := range decision.DuplicateEventIDs {
		if id == "" {
			errs = append(errs, "duplicate event id must not be empty")
		} else if id == decision.PrimaryEventID {
			errs = append(errs, fmt.Sprintf("duplicate id %s overlaps the primary event", id))
		}
	}
	if len(errs) > 0 {
		return MergeResult{Success: false, Errors: errs}
	}

	merged := decision.primary.Clone()
	for _, res := range decision.FieldResolutions {
		setFieldValue(&merged, res.Field, res.Value)
	}
	// Identity is unconditional: the merged record keeps the primary's id.
	merged.ID = decision.PrimaryEventID
	merged.UpdatedAt = m.now()

	if actorID == "" {
		actorID = "system"
	}
	sources := make([]string, 0, len(decision.duplicates))
	for _, d := range decision.duplicates {
		sources = append(sources, d.Source)
	}
	entry := m.history.Append(MergeHistoryEntry{
		PrimaryEventID:    decision.PrimaryEventID,
		DuplicateEventIDs: append([]string(nil), decision.DuplicateEventIDs...),
		DuplicateSources:  sources,
		FieldResolutions:  append([]FieldResolution(nil), decision.FieldResolutions...),
		MergedBy:          actorID,
		MergedAt:          merged.UpdatedAt,
		Strategy:          decision.Strategy,
	})

	return MergeResult{
		Success:     true,
		MergedEvent: &merged,
		HistoryID:   entry.HistoryID,
	}
}

// decisionConfidence is the mean overall similarity between the primary and
// each duplicate.
func (m *EventMerger) decisionConfidence(primary EventRecord, duplicates []EventRecord) float64 {
	if len(duplicates) == 0 {
		return 0
	}
	primaryFP := m.matcher.GenerateFingerprint(primary)
	var sum float64
	for _, d := range duplicates {
		sum += m.matcher.CalculateSimilarity(primaryFP, m.matcher.GenerateFingerprint(d)).Overall
	}
	return sum / float64(len(duplicates))
}

// qualityScore rates how trustworthy and complete a record is: description
// richness, presence of an image, and source trust.
func qualityScore(e EventRecord) float64 {
	descScore := math.Min(float64(len(e.Description))/1000, 1)
	imageScore := 0.0
	if e.ImageURL != "" {
		imageScore = 1
	}
	trust := defaultSourceTrust
	if t, ok := sourceTrust[e.Source]; ok {
		trust = t
	}
	return 0.4*descScore + 0.2*imageScore + 0.4*trust
}

// resolveByQuality picks, per field, the value from the highest-quality
// event that has one. events[0] is the primary; quality ordering is stable,
// so the primary wins ties. Scores are indexed by position, not by id, since
// ingested records may arrive with empty or colliding ids. Tags still union
// across all inputs.
func resolveByQuality(events []EventRecord) []FieldResolution {
	scores := make([]float64, len(events))
	order := make([]int, len(events))
	for i, e := range events {
		scores[i] = qualityScore(e)
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	resolutions := make([]FieldResolution, 0, len(mergeableFields))
	for _, field := range mergeableFields {
		if field == FieldTags {
			resolutions = append(resolutions, resolveTags(events))
			continue
		}
		res := FieldResolution{Field: field}
		for _, idx := range order {
			if value, present := fieldValue(events[idx], field); present {
				res.Value = value
				res.SourceEventID = events[idx].ID
				break
			}
		}
		resolutions = append(resolutions, res)
	}
	return resolutions
}
