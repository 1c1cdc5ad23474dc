package dedup

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// pairKey identifies an unordered pair of event ids.
type pairKey struct {
	a, b string
}

func newPairKey(x, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// CacheStats reports fingerprint/similarity cache occupancy and hit rates.
type CacheStats struct {
	Fingerprints   int    `json:"fingerprints"`
	Similarities   int    `json:"similarities"`
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
	CachingEnabled bool   `json:"caching_enabled"`
}

// FuzzyMatcher normalizes events into fingerprints and scores similarity
// between them. Each matcher owns its caches and configuration, so
// independently configured instances can coexist (isolated tests, per-worker
// matchers).
type FuzzyMatcher struct {
	mu           sync.RWMutex
	cfg          Config
	semantic     SemanticScorer
	fingerprints map[string]Fingerprint
	similarities map[pairKey]SimilarityScore
	hits         uint64
	misses       uint64
}

// NewFuzzyMatcher creates a matcher with the given configuration and the
// default keyword-overlap semantic scorer.
func NewFuzzyMatcher(cfg Config) *FuzzyMatcher {
	return &FuzzyMatcher{
		cfg:          cfg,
		semantic:     keywordOverlapScorer{},
		fingerprints: make(map[string]Fingerprint),
		similarities: make(map[pairKey]SimilarityScore),
	}
}

// SetSemanticScorer replaces the description similarity implementation and
// drops the similarity cache, since cached pair scores embed the old scorer.
func (m *FuzzyMatcher) SetSemanticScorer(s SemanticScorer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.semantic = s
	m.similarities = make(map[pairKey]SimilarityScore)
}

// GenerateFingerprint derives (and caches, by event id) the fingerprint of
// an event. It is total: malformed input degrades to a near-empty
// fingerprint rather than failing.
func (m *FuzzyMatcher) GenerateFingerprint(event EventRecord) Fingerprint {
	if event.ID != "" {
		m.mu.RLock()
		cached, ok := m.fingerprints[event.ID]
		enabled := m.cfg.Performance.EnableCaching
		m.mu.RUnlock()
		if enabled && ok {
			m.mu.Lock()
			m.hits++
			m.mu.Unlock()
			return cached
		}
	}

	fp := newFingerprint(event)

	m.mu.Lock()
	m.misses++
	if m.cfg.Performance.EnableCaching && event.ID != "" {
		m.fingerprints[event.ID] = fp
	}
	m.mu.Unlock()
	return fp
}

// CalculateSimilarity scores two fingerprints. Results are cached by the
// unordered event-id pair when both ids are present.
func (m *FuzzyMatcher) CalculateSimilarity(a, b Fingerprint) SimilarityScore {
	cacheable := a.EventID != "" && b.EventID != "" && a.EventID != b.EventID
	var key pairKey
	if cacheable {
		key = newPairKey(a.EventID, b.EventID)
		m.mu.RLock()
		cached, ok := m.similarities[key]
		enabled := m.cfg.Performance.EnableCaching
		m.mu.RUnlock()
		if enabled && ok {
			m.mu.Lock()
			m.hits++
			m.mu.Unlock()
			return cached
		}
	}

	m.mu.RLock()
	cfg := m.cfg
	semantic := m.semantic
	m.mu.RUnlock()

	score := calculateSimilarity(a, b, cfg, semantic)

	m.mu.Lock()
	m.misses++
	if cfg.Performance.EnableCaching && cacheable {
		m.similarities[key] = score
	}
	m.mu.Unlock()
	return score
}

// CheckForDuplicates compares a candidate against up to MaxCandidates pool
// entries and returns the matches at or above the overall threshold, sorted
// by descending score. With ParallelProcessing enabled the comparisons fan
// out across workers; scores land in position-indexed slots, so the outcome
// is identical to a sequential scan. It never fails: a malformed candidate
// produces a degraded fingerprint and simply matches nothing.
func (m *FuzzyMatcher) CheckForDuplicates(candidate EventRecord, pool []EventRecord) DuplicateCheckResult {
	cfg := m.Config()
	candidateFP := m.GenerateFingerprint(candidate)

	candidates := make([]EventRecord, 0, len(pool))
	for _, other := range pool {
		if len(candidates) >= cfg.Performance.MaxCandidates {
			break
		}
		if other.ID != "" && other.ID == candidate.ID {
			continue
		}
		candidates = append(candidates, other)
	}

	scores := make([]SimilarityScore, len(candidates))
	if cfg.Performance.ParallelProcessing && len(candidates) > 1 {
		m.scoreCandidates(candidateFP, candidates, scores)
	} else {
		for i, other := range candidates {
			scores[i] = m.CalculateSimilarity(candidateFP, m.GenerateFingerprint(other))
		}
	}

	result := DuplicateCheckResult{Matches: []DuplicateMatch{}}
	for i, score := range scores {
		if score.Overall < cfg.Thresholds.Overall {
			continue
		}
		result.Matches = append(result.Matches, DuplicateMatch{
			EventID: candidates[i].ID,
			Score:   score,
			Reasons: matchReasons(score, cfg.Thresholds),
		})
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		if result.Matches[i].Score.Overall != result.Matches[j].Score.Overall {
			return result.Matches[i].Score.Overall > result.Matches[j].Score.Overall
		}
		return result.Matches[i].EventID < result.Matches[j].EventID
	})

	if len(result.Matches) > 0 {
		result.IsDuplicate = true
		result.Confidence = result.Matches[0].Score.Overall
	}
	return result
}

// scoreCandidates fans independent pair comparisons out across workers.
// Fingerprints and pair scores are pure functions of their keys, so
// concurrent cache writes are last-writer-wins safe.
func (m *FuzzyMatcher) scoreCandidates(fp Fingerprint, candidates []EventRecord, scores []SimilarityScore) {
	workers := runtime.NumCPU()
	if workers > len(candidates) {
		workers = len(candidates)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				scores[i] = m.CalculateSimilarity(fp, m.GenerateFingerprint(candidates[i]))
			}
		}()
	}
	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// ClearCache drops all cached fingerprints and pair scores.
func (m *FuzzyMatcher) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fingerprints = make(map[string]Fingerprint)
	m.similarities = make(map[pairKey]SimilarityScore)
	m.hits = 0
	m.misses = 0
}

// GetCacheStats returns current cache occupancy and hit counters.
func (m *FuzzyMatcher) GetCacheStats() CacheStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CacheStats{
		Fingerprints:   len(m.fingerprints),
		Similarities:   len(m.similarities),
		Hits:           m.hits,
		Misses:         m.misses,
		CachingEnabled: m.cfg.Performance.EnableCaching,
	}
}

// Config returns a copy of the matcher's current configuration.
func (m *FuzzyMatcher) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.cfg
	cfg.CriticalFields = append([]string(nil), m.cfg.CriticalFields...)
	return cfg
}

// UpdateConfig applies a partial configuration update and returns the
// resulting config. Cached similarity scores are dropped because they embed
// the previous weights.
func (m *FuzzyMatcher) UpdateConfig(patch ConfigPatch) Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = m.cfg.Apply(patch)
	m.similarities = make(map[pairKey]SimilarityScore)
	return m.cfg
}

// setConfig replaces the whole configuration (import path).
func (m *FuzzyMatcher) setConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	m.similarities = make(map[pairKey]SimilarityScore)
}

// DuplicateMatch is one pool entry that scored at or above the overall
// threshold against the candidate.
type DuplicateMatch struct {
	EventID string          `json:"event_id"`
	Score   SimilarityScore `json:"score"`
	Reasons []string        `json:"reasons"`
}

// DuplicateCheckResult is the outcome of a duplicate check. Confidence is
// the best match's overall score, or 0 when nothing matched.
type DuplicateCheckResult struct {
	IsDuplicate bool             `json:"is_duplicate"`
	Matches     []DuplicateMatch `json:"matches"`
	Confidence  float64          `json:"confidence"`
}

// matchReasons builds the ordered human-readable explanations for a match by
// inspecting which field scores individually cleared their thresholds.
func matchReasons(s SimilarityScore, t Thresholds) []string {
	var reasons []string
	if s.Title >= t.Title {
		reasons = append(reasons, fmt.Sprintf("title similarity %.2f", s.Title))
	}
	if s.Venue >= t.Venue {
		reasons = append(reasons, "same venue")
	}
	if s.Location >= t.Location {
		reasons = append(reasons, fmt.Sprintf("location similarity %.2f", s.Location))
	}
	if s.Date >= t.Date && s.Date > 0 {
		reasons = append(reasons, "same date")
	}
	if s.Semantic >= t.Semantic && s.Semantic > 0 {
		reasons = append(reasons, fmt.Sprintf("description overlap %.2f", s.Semantic))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("overall similarity %.2f", s.Overall))
	}
	return reasons
}
