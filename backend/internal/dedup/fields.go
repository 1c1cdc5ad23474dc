package dedup

import "time"

// Canonical field names used by conflict resolution and merge decisions.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldVenueName   = "venue_name"
	FieldCityName    = "city_name"
	FieldStartTime   = "start_time"
	FieldEndTime     = "end_time"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
	FieldPriceMin    = "price_min"
	FieldPriceMax    = "price_max"
	FieldCurrency    = "currency"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldWebsiteURL  = "website_url"
	FieldTicketURL   = "ticket_url"
	FieldImageURL    = "image_url"
	FieldVideoURL    = "video_url"
	FieldTags        = "tags"
	FieldStatus      = "status"
)

// enrichableFields are filled from duplicates when the primary lacks them.
var enrichableFields = []string{
	FieldDescription,
	FieldVenueName,
	FieldCityName,
	FieldEndTime,
	FieldCategory,
	FieldSubcategory,
	FieldPriceMin,
	FieldPriceMax,
	FieldCurrency,
	FieldLatitude,
	FieldLongitude,
	FieldWebsiteURL,
	FieldTicketURL,
	FieldImageURL,
	FieldVideoURL,
	FieldTags,
}

// mergeableFields is every field conflict resolution knows how to read and
// write. Identity fields (id, source, external_id) and bookkeeping fields
// are deliberately excluded: the merged record always keeps the primary's.
var mergeableFields = append([]string{FieldTitle, FieldStartTime, FieldStatus}, enrichableFields...)

// fieldValue reads a named field from a record. present is false when the
// field carries no usable value (empty string, nil pointer, empty slice).
func fieldValue(e EventRecord, field string) (value interface{}, present bool) {
	switch field {
	case FieldTitle:
		return e.Title, e.Title != ""
	case FieldDescription:
		return e.Description, e.Description != ""
	case FieldVenueName:
		return e.VenueName, e.VenueName != ""
	case FieldCityName:
		return e.CityName, e.CityName != ""
	case FieldStartTime:
		return e.StartTime, e.StartTime != nil
	case FieldEndTime:
		return e.EndTime, e.EndTime != nil
	case FieldCategory:
		return e.Category, e.Category != ""
	case FieldSubcategory:
		return e.Subcategory, e.Subcategory != ""
	case FieldPriceMin:
		return e.PriceMin, e.PriceMin != nil
	case FieldPriceMax:
		return e.PriceMax, e.PriceMax != nil
	case FieldCurrency:
		return e.Currency, e.Currency != ""
	case FieldLatitude:
		return e.Latitude, e.Latitude != nil
	case FieldLongitude:
		return e.Longitude, e.Longitude != nil
	case FieldWebsiteURL:
		return e.WebsiteURL, e.WebsiteURL != ""
	case FieldTicketURL:
		return e.TicketURL, e.TicketURL != ""
	case FieldImageURL:
		return e.ImageURL, e.ImageURL != ""
	case FieldVideoURL:
		return e.VideoURL, e.VideoURL != ""
	case FieldTags:
		return e.Tags, len(e.Tags) > 0
	case FieldStatus:
		return e.Status, e.Status != ""
	default:
		return nil, false
	}
}

// setFieldValue writes a resolved value onto a record. Values produced by
// fieldValue round-trip exactly; anything else is ignored, keeping merge
// application total.
func setFieldValue(e *EventRecord, field string, value interface{}) {
	if value == nil {
		return
	}
	switch field {
	case FieldTitle:
		if v, ok := value.(string); ok {
			e.Title = v
		}
	case FieldDescription:
		if v, ok := value.(string); ok {
			e.Description = v
		}
	case FieldVenueName:
		if v, ok := value.(string); ok {
			e.VenueName = v
		}
	case FieldCityName:
		if v, ok := value.(string); ok {
			e.CityName = v
		}
	case FieldStartTime:
		if v, ok := value.(*time.Time); ok {
			e.StartTime = cloneTimePtr(v)
		}
	case FieldEndTime:
		if v, ok := value.(*time.Time); ok {
			e.EndTime = cloneTimePtr(v)
		}
	case FieldCategory:
		if v, ok := value.(string); ok {
			e.Category = v
		}
	case FieldSubcategory:
		if v, ok := value.(string); ok {
			e.Subcategory = v
		}
	case FieldPriceMin:
		if v, ok := value.(*float64); ok {
			e.PriceMin = cloneFloatPtr(v)
		}
	case FieldPriceMax:
		if v, ok := value.(*float64); ok {
			e.PriceMax = cloneFloatPtr(v)
		}
	case FieldCurrency:
		if v, ok := value.(string); ok {
			e.Currency = v
		}
	case FieldLatitude:
		if v, ok := value.(*float64); ok {
			e.Latitude = cloneFloatPtr(v)
		}
	case FieldLongitude:
		if v, ok := value.(*float64); ok {
			e.Longitude = cloneFloatPtr(v)
		}
	case FieldWebsiteURL:
		if v, ok := value.(string); ok {
			e.WebsiteURL = v
		}
	case FieldTicketURL:
		if v, ok := value.(string); ok {
			e.TicketURL = v
		}
	case FieldImageURL:
		if v, ok := value.(string); ok {
			e.ImageURL = v
		}
	case FieldVideoURL:
		if v, ok := value.(string); ok {
			e.VideoURL = v
		}
	case FieldTags:
		if v, ok := value.([]string); ok {
			e.Tags = append([]string(nil), v...)
		}
	case FieldStatus:
		if v, ok := value.(string); ok {
			e.Status = v
		}
	}
}

// fieldCompleteness ranks how complete a value is for completeness-preference
// resolution. Longer strings beat shorter ones; any non-nil value beats
// absence.
func fieldCompleteness(value interface{}, present bool) int {
	if !present {
		return 0
	}
	switch v := value.(type) {
	case string:
		return len(v)
	case []string:
		return len(v)
	default:
		return 1
	}
}
