package dedup

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotInitialized is returned when an engine operation runs before
// Initialize. This is a programming-contract violation, not an expected
// failure mode.
var ErrNotInitialized = errors.New("dedup: orchestrator not initialized")

// ProcessMode selects what ProcessEvents does with detected duplicates.
type ProcessMode string

const (
	// ProcessModeDetect only counts duplicates.
	ProcessModeDetect ProcessMode = "detect"
	// ProcessModeMerge additionally merges each duplicate into its best
	// match using the enhance_primary strategy.
	ProcessModeMerge ProcessMode = "merge"
)

// ProcessReport accumulates the outcome of one ProcessEvents run. A bad item
// lands in Errors without aborting the rest of its batch.
type ProcessReport struct {
	ProcessedCount  int           `json:"processed_count"`
	DuplicatesFound int           `json:"duplicates_found"`
	MergedCount     int           `json:"merged_count"`
	UniqueEvents    int           `json:"unique_events"`
	Batches         int           `json:"batches"`
	Errors          []string      `json:"errors,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// PerformanceSnapshot carries lifetime counters for export and reporting.
type PerformanceSnapshot struct {
	RunsTotal       int        `json:"runs_total"`
	ProcessedTotal  int        `json:"processed_total"`
	DuplicatesTotal int        `json:"duplicates_total"`
	MergedTotal     int        `json:"merged_total"`
	Cache           CacheStats `json:"cache"`
}

// ExportDocument is the backup/restore format. The engine holds no
// persistent storage of its own, so this document is the complete state.
type ExportDocument struct {
	MergeHistory  []MergeHistoryEntry `json:"mergeHistory"`
	Configuration Config              `json:"configuration"`
	Performance   PerformanceSnapshot `json:"performance"`
}

// HealthStatus aggregates component health into healthy, warning, or error,
// with recommendations for anything degraded.
type HealthStatus struct {
	Status          string            `json:"status"`
	Components      map[string]string `json:"components"`
	Recommendations []string          `json:"recommendations,omitempty"`
	CheckedAt       time.Time         `json:"checked_at"`
}

// Health states, ordered by severity.
const (
	HealthHealthy = "healthy"
	HealthWarning = "warning"
	HealthError   = "error"
)

// cacheWarnEntries is the combined cache size above which HealthCheck
// recommends a cache clear.
const cacheWarnEntries = 50000

// Orchestrator composes the matcher, resolver, merger, and history tracker
// into one engine API: duplicate checks, batch processing, runtime
// configuration, health reporting, and import/export.
type Orchestrator struct {
	mu          sync.Mutex
	matcher     *FuzzyMatcher
	resolver    *ConflictResolver
	merger      *EventMerger
	history     *MergeHistoryTracker
	initialized bool

	runsTotal       int
	processedTotal  int
	duplicatesTotal int
	mergedTotal     int
}

// NewOrchestrator builds an engine over the given configuration. Call
// Initialize before use.
func NewOrchestrator(cfg Config) *Orchestrator {
	matcher := NewFuzzyMatcher(cfg)
	resolver := NewConflictResolver(cfg.CriticalFields)
	history := NewMergeHistoryTracker()
	return &Orchestrator{
		matcher:  matcher,
		resolver: resolver,
		merger:   NewEventMerger(matcher, resolver, history),
		history:  history,
	}
}

// Initialize marks the engine ready. Idempotent.
func (o *Orchestrator) Initialize() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.initialized = true
	return nil
}

// Cleanup releases cached state. Idempotent, and safe to call even after a
// partial or failed Initialize.
func (o *Orchestrator) Cleanup() error {
	o.mu.Lock()
	o.initialized = false
	o.mu.Unlock()
	o.matcher.ClearCache()
	return nil
}

func (o *Orchestrator) ready() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return ErrNotInitialized
	}
	return nil
}

// CheckForDuplicates runs duplicate detection for one candidate against a
// pool of existing events.
func (o *Orchestrator) CheckForDuplicates(candidate EventRecord, pool []EventRecord) (DuplicateCheckResult, error) {
	if err := o.ready(); err != nil {
		return DuplicateCheckResult{}, err
	}
	return o.matcher.CheckForDuplicates(candidate, pool), nil
}

// CreateMergeDecision plans a merge without executing it.
func (o *Orchestrator) CreateMergeDecision(primary EventRecord, duplicates []EventRecord, strategy Strategy) (MergeDecision, error) {
	if err := o.ready(); err != nil {
		return MergeDecision{}, err
	}
	return o.merger.CreateMergeDecision(primary, duplicates, strategy)
}

// ExecuteMerge applies a planned merge.
func (o *Orchestrator) ExecuteMerge(decision MergeDecision, actorID string) (MergeResult, error) {
	if err := o.ready(); err != nil {
		return MergeResult{}, err
	}
	result := o.merger.ExecuteMerge(decision, actorID)
	if result.Success {
		o.mu.Lock()
		o.mergedTotal++
		o.mu.Unlock()
	}
	return result, nil
}

// ProcessEvents partitions events into batches and runs pairwise duplicate
// detection against the accumulated unique set, merging on the fly in merge
// mode. One bad item never aborts its batch; it is reported in the result's
// Errors. Each batch is fully drained before the next is touched, bounding
// peak memory on large runs.
func (o *Orchestrator) ProcessEvents(events []EventRecord, mode ProcessMode) (ProcessReport, error) {
	if err := o.ready(); err != nil {
		return ProcessReport{}, err
	}
	if mode != ProcessModeDetect && mode != ProcessModeMerge {
		return ProcessReport{}, fmt.Errorf("dedup: unknown process mode %q", mode)
	}

	cfg := o.matcher.Config()
	start := time.Now()
	report := ProcessReport{}

	unique := make([]EventRecord, 0, len(events))
	uniqueIndex := make(map[string]int)

	batchSize := cfg.Performance.BatchSize
	if batchSize <= 0 {
		// NewOrchestrator accepts unvalidated configs; the offset loop
		// must always advance.
		batchSize = DefaultConfig().Performance.BatchSize
	}
	for offset := 0; offset < len(events); offset += batchSize {
		end := offset + batchSize
		if end > len(events) {
			end = len(events)
		}
		batch := events[offset:end]
		report.Batches++

		for i, event := range batch {
			report.ProcessedCount++
			if event.ID == "" {
				report.Errors = append(report.Errors,
					fmt.Sprintf("event at index %d has no id", offset+i))
				continue
			}

			check := o.matcher.CheckForDuplicates(event, unique)
			if !check.IsDuplicate {
				uniqueIndex[event.ID] = len(unique)
				unique = append(unique, event)
				continue
			}
			report.DuplicatesFound++

			if mode != ProcessModeMerge {
				continue
			}
			primaryIdx, ok := uniqueIndex[check.Matches[0].EventID]
			if !ok {
				report.Errors = append(report.Errors,
					fmt.Sprintf("event %s: matched unknown primary %s", event.ID, check.Matches[0].EventID))
				continue
			}
			decision, err := o.merger.CreateMergeDecision(unique[primaryIdx], []EventRecord{event}, StrategyEnhancePrimary)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("event %s: %v", event.ID, err))
				continue
			}
			result := o.merger.ExecuteMerge(decision, "pipeline")
			if !result.Success {
				report.Errors = append(report.Errors,
					fmt.Sprintf("event %s: merge failed: %v", event.ID, result.Errors))
				continue
			}
			unique[primaryIdx] = *result.MergedEvent
			report.MergedCount++
		}
	}

	report.UniqueEvents = len(unique)
	report.Duration = time.Since(start)

	o.mu.Lock()
	o.runsTotal++
	o.processedTotal += report.ProcessedCount
	o.duplicatesTotal += report.DuplicatesFound
	o.mergedTotal += report.MergedCount
	o.mu.Unlock()

	return report, nil
}

// GetEventHistory returns the chronological merge history for a primary id.
func (o *Orchestrator) GetEventHistory(primaryEventID string) []MergeHistoryEntry {
	return o.history.GetEventHistory(primaryEventID)
}

// Report aggregates the merge history.
func (o *Orchestrator) Report() MergeReport {
	return o.history.Report()
}

// GetConfig returns the engine's current configuration.
func (o *Orchestrator) GetConfig() Config {
	return o.matcher.Config()
}

// UpdateConfig applies a partial configuration update after validating the
// resulting config. Invalid patches are rejected with per-field errors and
// leave the live configuration untouched. Concurrent updates serialize on
// the orchestrator lock, so no patch is lost.
func (o *Orchestrator) UpdateConfig(patch ConfigPatch) (Config, []FieldError) {
	o.mu.Lock()
	defer o.mu.Unlock()

	candidate := o.matcher.Config().Apply(patch)
	if errs := candidate.Validate(); len(errs) > 0 {
		return o.matcher.Config(), errs
	}
	o.matcher.setConfig(candidate)
	o.resolver = NewConflictResolver(candidate.CriticalFields)
	o.merger.setResolver(o.resolver)
	return candidate, nil
}

// CacheStats exposes matcher cache observability.
func (o *Orchestrator) CacheStats() CacheStats {
	return o.matcher.GetCacheStats()
}

// ClearCaches drops the matcher's fingerprint and similarity caches.
// Long-running hosts should call this periodically; the caches never expire
// on their own.
func (o *Orchestrator) ClearCaches() {
	o.matcher.ClearCache()
}

// HealthCheck aggregates matcher, resolver, and tracker status.
func (o *Orchestrator) HealthCheck() HealthStatus {
	status := HealthStatus{
		Components: make(map[string]string),
		CheckedAt:  time.Now(),
	}

	o.mu.Lock()
	initialized := o.initialized
	o.mu.Unlock()

	status.Components["orchestrator"] = HealthHealthy
	if !initialized {
		status.Components["orchestrator"] = HealthError
		status.Recommendations = append(status.Recommendations, "call Initialize before processing events")
	}

	status.Components["matcher"] = HealthHealthy
	if errs := o.matcher.Config().Validate(); len(errs) > 0 {
		status.Components["matcher"] = HealthError
		for _, e := range errs {
			status.Recommendations = append(status.Recommendations, "fix configuration: "+e.Error())
		}
	} else if stats := o.matcher.GetCacheStats(); stats.Fingerprints+stats.Similarities > cacheWarnEntries {
		status.Components["matcher"] = HealthWarning
		status.Recommendations = append(status.Recommendations, "matcher caches are large; clear them or lower max_candidates")
	}

	status.Components["history"] = HealthHealthy

	status.Status = HealthHealthy
	for _, s := range status.Components {
		if s == HealthError {
			status.Status = HealthError
			break
		}
		if s == HealthWarning {
			status.Status = HealthWarning
		}
	}
	return status
}

// ExportData serializes the engine's full state: merge history,
// configuration, and performance counters.
func (o *Orchestrator) ExportData() ExportDocument {
	o.mu.Lock()
	perf := PerformanceSnapshot{
		RunsTotal:       o.runsTotal,
		ProcessedTotal:  o.processedTotal,
		DuplicatesTotal: o.duplicatesTotal,
		MergedTotal:     o.mergedTotal,
	}
	o.mu.Unlock()
	perf.Cache = o.matcher.GetCacheStats()

	return ExportDocument{
		MergeHistory:  o.history.All(),
		Configuration: o.matcher.Config(),
		Performance:   perf,
	}
}

// ImportData restores engine state from an export document. The
// configuration import is all-or-nothing: a malformed configuration is
// rejected with per-field errors and nothing, including history, is touched.
func (o *Orchestrator) ImportData(doc ExportDocument) []FieldError {
	if errs := doc.Configuration.Validate(); len(errs) > 0 {
		return errs
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.matcher.setConfig(doc.Configuration)
	o.resolver = NewConflictResolver(doc.Configuration.CriticalFields)
	o.merger.setResolver(o.resolver)
	o.history.restore(doc.MergeHistory)

	o.runsTotal = doc.Performance.RunsTotal
	o.processedTotal = doc.Performance.ProcessedTotal
	o.duplicatesTotal = doc.Performance.DuplicatesTotal
	o.mergedTotal = doc.Performance.MergedTotal
	return nil
}
