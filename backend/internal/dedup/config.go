package dedup

import "fmt"

// Thresholds holds the per-field and overall similarity cutoffs.
// Per-field thresholds drive match reasons; the overall threshold decides
// whether a comparison counts as a duplicate.
type Thresholds struct {
	Title    float64 `json:"title"`
	Venue    float64 `json:"venue"`
	Location float64 `json:"location"`
	Date     float64 `json:"date"`
	Semantic float64 `json:"semantic"`
	Overall  float64 `json:"overall"`
}

// Weights holds the per-field contribution to the overall score. Weights are
// renormalized over whichever fields were computable for a given pair, so
// they do not need to sum to 1.
type Weights struct {
	Title    float64 `json:"title"`
	Venue    float64 `json:"venue"`
	Location float64 `json:"location"`
	Date     float64 `json:"date"`
	Semantic float64 `json:"semantic"`
}

// Performance holds batching and caching knobs.
type Performance struct {
	BatchSize          int  `json:"batch_size"`
	MaxCandidates      int  `json:"max_candidates"`
	EnableCaching      bool `json:"enable_caching"`
	ParallelProcessing bool `json:"parallel_processing"`
}

// Config is the engine's runtime configuration. Partial updates merge onto
// the existing values via ConfigPatch; unspecified keys always retain their
// current setting.
type Config struct {
	Thresholds           Thresholds  `json:"thresholds"`
	Weights              Weights     `json:"weights"`
	Performance          Performance `json:"performance"`
	LocationRadiusMeters float64     `json:"location_radius_meters"`
	CriticalFields       []string    `json:"critical_fields"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			Title:    0.80,
			Venue:    0.70,
			Location: 0.80,
			Date:     1.0,
			Semantic: 0.50,
			Overall:  0.70,
		},
		Weights: Weights{
			Title:    0.30,
			Venue:    0.20,
			Location: 0.20,
			Date:     0.20,
			Semantic: 0.10,
		},
		Performance: Performance{
			BatchSize:          100,
			MaxCandidates:      500,
			EnableCaching:      true,
			ParallelProcessing: false,
		},
		LocationRadiusMeters: 1000,
		CriticalFields:       []string{FieldTitle, FieldStartTime, FieldVenueName},
	}
}

// ThresholdsPatch is a partial Thresholds update; nil fields keep the
// current value.
type ThresholdsPatch struct {
	Title    *float64 `json:"title,omitempty"`
	Venue    *float64 `json:"venue,omitempty"`
	Location *float64 `json:"location,omitempty"`
	Date     *float64 `json:"date,omitempty"`
	Semantic *float64 `json:"semantic,omitempty"`
	Overall  *float64 `json:"overall,omitempty"`
}

// WeightsPatch is a partial Weights update.
type WeightsPatch struct {
	Title    *float64 `json:"title,omitempty"`
	Venue    *float64 `json:"venue,omitempty"`
	Location *float64 `json:"location,omitempty"`
	Date     *float64 `json:"date,omitempty"`
	Semantic *float64 `json:"semantic,omitempty"`
}

// PerformancePatch is a partial Performance update.
type PerformancePatch struct {
	BatchSize          *int  `json:"batch_size,omitempty"`
	MaxCandidates      *int  `json:"max_candidates,omitempty"`
	EnableCaching      *bool `json:"enable_caching,omitempty"`
	ParallelProcessing *bool `json:"parallel_processing,omitempty"`
}

// ConfigPatch is a partial Config update applied with merge-by-key
// semantics. A nil section leaves that whole section untouched.
type ConfigPatch struct {
	Thresholds           *ThresholdsPatch  `json:"thresholds,omitempty"`
	Weights              *WeightsPatch     `json:"weights,omitempty"`
	Performance          *PerformancePatch `json:"performance,omitempty"`
	LocationRadiusMeters *float64          `json:"location_radius_meters,omitempty"`
	CriticalFields       []string          `json:"critical_fields,omitempty"`
}

// Apply returns a copy of c with every non-nil patch field overridden.
func (c Config) Apply(p ConfigPatch) Config {
	out := c
	out.CriticalFields = append([]string(nil), c.CriticalFields...)

	if p.Thresholds != nil {
		applyFloat(&out.Thresholds.Title, p.Thresholds.Title)
		applyFloat(&out.Thresholds.Venue, p.Thresholds.Venue)
		applyFloat(&out.Thresholds.Location, p.Thresholds.Location)
		applyFloat(&out.Thresholds.Date, p.Thresholds.Date)
		applyFloat(&out.Thresholds.Semantic, p.Thresholds.Semantic)
		applyFloat(&out.Thresholds.Overall, p.Thresholds.Overall)
	}
	if p.Weights != nil {
		applyFloat(&out.Weights.Title, p.Weights.Title)
		applyFloat(&out.Weights.Venue, p.Weights.Venue)
		applyFloat(&out.Weights.Location, p.Weights.Location)
		applyFloat(&out.Weights.Date, p.Weights.Date)
		applyFloat(&out.Weights.Semantic, p.Weights.Semantic)
	}
	if p.Performance != nil {
		if p.Performance.BatchSize != nil {
			out.Performance.BatchSize = *p.Performance.BatchSize
		}
		if p.Performance.MaxCandidates != nil {
			out.Performance.MaxCandidates = *p.Performance.MaxCandidates
		}
		if p.Performance.EnableCaching != nil {
			out.Performance.EnableCaching = *p.Performance.EnableCaching
		}
		if p.Performance.ParallelProcessing != nil {
			out.Performance.ParallelProcessing = *p.Performance.ParallelProcessing
		}
	}
	applyFloat(&out.LocationRadiusMeters, p.LocationRadiusMeters)
	if p.CriticalFields != nil {
		out.CriticalFields = append([]string(nil), p.CriticalFields...)
	}
	return out
}

// FieldError describes a single invalid configuration field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate returns one FieldError per invalid setting. A valid config
// returns nil.
func (c Config) Validate() []FieldError {
	var errs []FieldError

	checkUnit := func(field string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("must be between 0 and 1, got %v", v),
			})
		}
	}
	checkUnit("thresholds.title", c.Thresholds.Title)
	checkUnit("thresholds.venue", c.Thresholds.Venue)
	checkUnit("thresholds.location", c.Thresholds.Location)
	checkUnit("thresholds.date", c.Thresholds.Date)
	checkUnit("thresholds.semantic", c.Thresholds.Semantic)
	checkUnit("thresholds.overall", c.Thresholds.Overall)

	checkWeight := func(field string, v float64) {
		if v < 0 {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("must not be negative, got %v", v),
			})
		}
	}
	checkWeight("weights.title", c.Weights.Title)
	checkWeight("weights.venue", c.Weights.Venue)
	checkWeight("weights.location", c.Weights.Location)
	checkWeight("weights.date", c.Weights.Date)
	checkWeight("weights.semantic", c.Weights.Semantic)

	sum := c.Weights.Title + c.Weights.Venue + c.Weights.Location + c.Weights.Date + c.Weights.Semantic
	if sum <= 0 {
		errs = append(errs, FieldError{Field: "weights", Message: "at least one weight must be positive"})
	}

	if c.Performance.BatchSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "performance.batch_size",
			Message: fmt.Sprintf("must be positive, got %d", c.Performance.BatchSize),
		})
	}
	if c.Performance.MaxCandidates <= 0 {
		errs = append(errs, FieldError{
			Field:   "performance.max_candidates",
			Message: fmt.Sprintf("must be positive, got %d", c.Performance.MaxCandidates),
		})
	}
	if c.LocationRadiusMeters <= 0 {
		errs = append(errs, FieldError{
			Field:   "location_radius_meters",
			Message: fmt.Sprintf("must be positive, got %v", c.LocationRadiusMeters),
		})
	}

	return errs
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
