package intent

import "trendscout/internal/model"

// Overrides are explicit numeric parameters that win over resolved values.
// A nil field leaves the resolved value untouched.
type Overrides struct {
	MinViewsPerHour      *float64
	MinViews             *int64
	MaxAgeMonths         *int
	ResultLimit          *int
	MinViewsPerHourRatio *float64
}

// Apply returns spec with the overrides applied. ResultLimit is clamped to
// [1, model.MaxResultLimit] and negative thresholds are raised to zero.
func (o Overrides) Apply(spec model.FilterSpec) model.FilterSpec {
	if o.MinViewsPerHour != nil {
		spec.MinViewsPerHour = max(*o.MinViewsPerHour, 0)
	}
	if o.MinViews != nil {
		spec.MinViews = max(*o.MinViews, 0)
	}
	if o.MaxAgeMonths != nil {
		spec.MaxAgeMonths = max(*o.MaxAgeMonths, 0)
	}
	if o.ResultLimit != nil {
		spec.ResultLimit = min(max(*o.ResultLimit, 1), model.MaxResultLimit)
	}
	if o.MinViewsPerHourRatio != nil {
		spec.MinViewsPerHourRatio = max(*o.MinViewsPerHourRatio, 0)
	}
	return spec
}
