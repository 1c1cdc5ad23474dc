package dedup

import (
	"math"
	"strings"
)

// SimilarityScore holds the per-field similarity components in [0,1] and the
// weighted overall score. Overall is the weighted average over whichever
// fields were computable for the pair, with weights renormalized to sum 1.
type SimilarityScore struct {
	Title    float64 `json:"title"`
	Venue    float64 `json:"venue"`
	Location float64 `json:"location"`
	Date     float64 `json:"date"`
	Semantic float64 `json:"semantic"`
	Overall  float64 `json:"overall"`
}

// SemanticScorer scores description-level similarity between two
// fingerprints in [0,1]. The keyword-overlap default is a soft corroborating
// signal; alternative implementations can be plugged into the matcher.
type SemanticScorer interface {
	Score(a, b Fingerprint) (score float64, computable bool)
}

// keywordOverlapScorer is the default SemanticScorer: Jaccard overlap of the
// fingerprints' description keyword sets.
type keywordOverlapScorer struct{}

func (keywordOverlapScorer) Score(a, b Fingerprint) (float64, bool) {
	if len(a.Keywords) == 0 || len(b.Keywords) == 0 {
		return 0, false
	}
	return jaccard(tokenSet(a.Keywords), tokenSet(b.Keywords)), true
}

// calculateSimilarity scores two fingerprints under the given config.
// The function is symmetric and reflexive: sim(a,b)==sim(b,a) and a
// self-comparison of a non-empty fingerprint scores an overall of 1.
//
// Field computability rules:
//   - title/venue/semantic: both sides must have normalized content.
//   - date: both sides must have a start date.
//   - location: computable when at least one side has coordinates; a pair
//     with exactly one side positioned scores 0 rather than being skipped.
func calculateSimilarity(a, b Fingerprint, cfg Config, semantic SemanticScorer) SimilarityScore {
	var score SimilarityScore
	var weightSum, weighted float64

	if a.Title != "" && b.Title != "" {
		score.Title = textSimilarity(a.Title, b.Title, a.TitleTokens, b.TitleTokens)
		weightSum += cfg.Weights.Title
		weighted += score.Title * cfg.Weights.Title
	}

	if a.Venue != "" && b.Venue != "" {
		score.Venue = venueSimilarity(a.Venue, b.Venue)
		weightSum += cfg.Weights.Venue
		weighted += score.Venue * cfg.Weights.Venue
	}

	if a.hasCoordinates() || b.hasCoordinates() {
		score.Location = locationSimilarity(a, b, cfg.LocationRadiusMeters)
		weightSum += cfg.Weights.Location
		weighted += score.Location * cfg.Weights.Location
	}

	if a.Date != "" && b.Date != "" {
		if a.Date == b.Date {
			score.Date = 1
		}
		weightSum += cfg.Weights.Date
		weighted += score.Date * cfg.Weights.Date
	}

	if sem, ok := semantic.Score(a, b); ok {
		score.Semantic = sem
		weightSum += cfg.Weights.Semantic
		weighted += score.Semantic * cfg.Weights.Semantic
	}

	if weightSum > 0 {
		score.Overall = weighted / weightSum
	}
	return score
}

// textSimilarity blends token-set Jaccard with trigram Jaccard, taking the
// larger of the two. Token overlap is strict about word identity while
// trigrams tolerate minor spelling variation; identical strings score 1
// under both.
func textSimilarity(a, b string, tokensA, tokensB []string) float64 {
	if a == b {
		return 1
	}
	token := jaccard(tokenSet(tokensA), tokenSet(tokensB))
	trigram := jaccard(trigramSet(a), trigramSet(b))
	return math.Max(token, trigram)
}

// containmentFloor is the minimum venue score when one normalized name
// contains the other ("blue note" vs "blue note jazz club").
const containmentFloor = 0.8

func venueSimilarity(a, b string) float64 {
	score := textSimilarity(a, b, strings.Fields(a), strings.Fields(b))
	if score < containmentFloor && (strings.Contains(a, b) || strings.Contains(b, a)) {
		score = containmentFloor
	}
	return score
}

// locationSimilarity decays linearly with great-circle distance, reaching 0
// at radiusMeters. A pair where only one side has coordinates scores 0.
func locationSimilarity(a, b Fingerprint, radiusMeters float64) float64 {
	if !a.hasCoordinates() || !b.hasCoordinates() {
		return 0
	}
	if radiusMeters <= 0 {
		return 0
	}
	d := haversineMeters(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	if d >= radiusMeters {
		return 0
	}
	return 1 - d/radiusMeters
}

// haversineMeters computes the great-circle distance between two points.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusMeters = 6371000.0

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}
