package dedup

// FieldResolution records the resolved value for one field and the event it
// was taken from. SourceEventID is empty when the field was absent on every
// input and resolved to nil.
type FieldResolution struct {
	Field         string      `json:"field"`
	Value         interface{} `json:"value"`
	SourceEventID string      `json:"source_event_id,omitempty"`
}

// ConflictResolver picks the winning value for each contested field when
// duplicate events disagree. Policy, in order:
//
//  1. Primary-source preference for critical fields: the first event passed
//     to ResolveConflicts is the primary/original, and its value wins
//     whenever it has one.
//  2. Completeness preference: the longer / non-null value wins. Tags are
//     set-like and resolve to the union of every input's tags.
//  3. Most-recent-update tiebreak: when completeness ties, the event with
//     the latest UpdatedAt wins.
//
// A field absent on every input resolves to a nil value. ResolveConflicts
// never fails.
type ConflictResolver struct {
	critical map[string]bool
}

// NewConflictResolver creates a resolver treating the named fields as
// critical (primary-source preferred).
func NewConflictResolver(criticalFields []string) *ConflictResolver {
	critical := make(map[string]bool, len(criticalFields))
	for _, f := range criticalFields {
		critical[f] = true
	}
	return &ConflictResolver{critical: critical}
}

// ResolveConflicts resolves each named field across the given events.
// events[0] is treated as the primary. The result has one resolution per
// requested field, in request order.
func (r *ConflictResolver) ResolveConflicts(events []EventRecord, fields []string) []FieldResolution {
	resolutions := make([]FieldResolution, 0, len(fields))
	for _, field := range fields {
		resolutions = append(resolutions, r.resolveField(events, field))
	}
	return resolutions
}

func (r *ConflictResolver) resolveField(events []EventRecord, field string) FieldResolution {
	if len(events) == 0 {
		return FieldResolution{Field: field}
	}

	if field == FieldTags {
		return resolveTags(events)
	}

	if r.critical[field] {
		if value, present := fieldValue(events[0], field); present {
			return FieldResolution{Field: field, Value: value, SourceEventID: events[0].ID}
		}
	}

	best := FieldResolution{Field: field}
	bestScore := 0
	var bestIdx = -1
	for i, event := range events {
		value, present := fieldValue(event, field)
		if !present {
			continue
		}
		score := fieldCompleteness(value, present)
		switch {
		case bestIdx < 0 || score > bestScore:
			best = FieldResolution{Field: field, Value: value, SourceEventID: event.ID}
			bestScore = score
			bestIdx = i
		case score == bestScore && event.UpdatedAt.After(events[bestIdx].UpdatedAt):
			best = FieldResolution{Field: field, Value: value, SourceEventID: event.ID}
			bestIdx = i
		}
	}
	return best
}

// resolveTags unions every input's tags, preserving first-seen order. Values
// present on any input are never dropped.
func resolveTags(events []EventRecord) FieldResolution {
	var union []string
	seen := make(map[string]struct{})
	source := ""
	for _, event := range events {
		for _, tag := range event.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			union = append(union, tag)
		}
		if source == "" && len(event.Tags) > 0 {
			source = event.ID
		}
	}
	if union == nil {
		return FieldResolution{Field: FieldTags}
	}
	return FieldResolution{Field: FieldTags, Value: union, SourceEventID: source}
}
