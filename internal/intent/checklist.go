package intent

import (
	"strings"

	"trendscout/internal/model"
)

// Field names a FilterSpec field a checklist label can set.
type Field string

// Fields addressable from the checklist.
const (
	FieldMaxChannelAgeMonths  Field = "maxChannelAgeMonths"
	FieldMaxSubscribers       Field = "maxSubscribers"
	FieldMaxChannelVideos     Field = "maxChannelVideos"
	FieldMinViewsPerHour      Field = "minViewsPerHour"
	FieldMinViews             Field = "minViews"
	FieldMinViewsPerHourRatio Field = "minViewsPerHourRatio"
	FieldMinEngagementPct     Field = "minEngagementPct"
	FieldDuration             Field = "duration"
	FieldRecentOnly           Field = "recentOnly"
	FieldRegionCode           Field = "regionCode"
	FieldLocale               Field = "locale"
)

// Assignment is the single field/value pair a label maps to.
type Assignment struct {
	Field Field
	Num   float64
	Text  string
}

// Criterion is one entry of the checklist vocabulary.
type Criterion struct {
	Group  string
	Label  string
	Assign Assignment
}

func num(f Field, v float64) Assignment { return Assignment{Field: f, Num: v} }
func text(f Field, v string) Assignment { return Assignment{Field: f, Text: v} }
func flag(f Field) Assignment { return Assignment{Field: f, Num: 1} }
func crit(group, label string, a Assignment) Criterion {
	return Criterion{Group: group, Label: label, Assign: a}
}

// Revenue-per-mille labels are not listed: the platform exposes no revenue data to filter on.
var criteria = []Criterion{
	crit("Channel age", "Channel under 1 month old", num(FieldMaxChannelAgeMonths, 1)),
	crit("Channel age", "Channel under 3 months old", num(FieldMaxChannelAgeMonths, 3)),
	crit("Channel age", "Channel under 6 months old", num(FieldMaxChannelAgeMonths, 6)),
	crit("Channel age", "Channel under 1 year old", num(FieldMaxChannelAgeMonths, 12)),

	crit("Subscribers", "Under 1K subscribers", num(FieldMaxSubscribers, 1000)),
	crit("Subscribers", "Under 10K subscribers", num(FieldMaxSubscribers, 10000)),
	crit("Subscribers", "Under 100K subscribers", num(FieldMaxSubscribers, 100000)),
	crit("Subscribers", "Under 1M subscribers", num(FieldMaxSubscribers, 1000000)),

	crit("Channel videos", "Fewer than 10 videos", num(FieldMaxChannelVideos, 10)),
	crit("Channel videos", "Fewer than 50 videos", num(FieldMaxChannelVideos, 50)),
	crit("Channel videos", "Fewer than 100 videos", num(FieldMaxChannelVideos, 100)),

	crit("Velocity", "Over 100 views per hour", num(FieldMinViewsPerHour, 100)),
	crit("Velocity", "Over 500 views per hour", num(FieldMinViewsPerHour, 500)),
	crit("Velocity", "Over 1000 views per hour", num(FieldMinViewsPerHour, 1000)),
	crit("Velocity", "Over 5000 views per hour", num(FieldMinViewsPerHour, 5000)),
	crit("Velocity", "Over 10000 views per hour", num(FieldMinViewsPerHour, 10000)),

	crit("Monthly views", "Over 10K monthly views", num(FieldMinViews, 10000)),
	crit("Monthly views", "Over 100K monthly views", num(FieldMinViews, 100000)),
	crit("Monthly views", "Over 1M monthly views", num(FieldMinViews, 1000000)),
	crit("Monthly views", "Over 10M monthly views", num(FieldMinViews, 10000000)),

	crit("Velocity ratio", "Velocity ratio over 1.5x", num(FieldMinViewsPerHourRatio, 1.5)),
	crit("Velocity ratio", "Velocity ratio over 2x", num(FieldMinViewsPerHourRatio, 2)),
	crit("Velocity ratio", "Velocity ratio over 3x", num(FieldMinViewsPerHourRatio, 3)),
	crit("Velocity ratio", "Velocity ratio over 5x", num(FieldMinViewsPerHourRatio, 5)),

	crit("Engagement", "Engagement over 1%", num(FieldMinEngagementPct, 1)),
	crit("Engagement", "Engagement over 3%", num(FieldMinEngagementPct, 3)),
	crit("Engagement", "Engagement over 5%", num(FieldMinEngagementPct, 5)),
	crit("Engagement", "Engagement over 10%", num(FieldMinEngagementPct, 10)),

	crit("Duration", "Short videos (under 4 min)", text(FieldDuration, string(model.DurationShort))),
	crit("Duration", "Medium videos (4 to 20 min)", text(FieldDuration, string(model.DurationMedium))),
	crit("Duration", "Long videos (over 20 min)", text(FieldDuration, string(model.DurationLong))),

	crit("Recency", "Published in the last 7 days", flag(FieldRecentOnly)),

	crit("Country", "Country: France", text(FieldRegionCode, "FR")),
	crit("Country", "Country: Canada", text(FieldRegionCode, "CA")),
	crit("Country", "Country: United States", text(FieldRegionCode, "US")),
	crit("Country", "Country: India", text(FieldRegionCode, "IN")),
	crit("Country", "Country: Spain", text(FieldRegionCode, "ES")),
	crit("Country", "Country: United Kingdom", text(FieldRegionCode, "GB")),
	crit("Country", "Country: Germany", text(FieldRegionCode, "DE")),

	crit("Language", "Language: English", text(FieldLocale, "en")),
	crit("Language", "Language: French", text(FieldLocale, "fr")),
	crit("Language", "Language: Spanish", text(FieldLocale, "es")),
	crit("Language", "Language: German", text(FieldLocale, "de")),
	crit("Language", "Language: Hindi", text(FieldLocale, "hi")),
}

var byLabel = indexCriteria(criteria)

func indexCriteria(cs []Criterion) map[string]Assignment {
	m := make(map[string]Assignment, len(cs))
	for _, c := range cs {
		m[normalizeLabel(c.Label)] = c.Assign
	}
	return m
}

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Lookup returns the assignment for a checklist label.
func Lookup(label string) (Assignment, bool) {
	a, ok := byLabel[normalizeLabel(label)]
	return a, ok
}

// Group is a named set of checklist labels.
type Group struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

// Vocabulary returns the checklist labels grouped by criterion, in display order.
func Vocabulary() []Group {
	var groups []Group
	for _, c := range criteria {
		if n := len(groups); n > 0 && groups[n-1].Name == c.Group {
			groups[n-1].Labels = append(groups[n-1].Labels, c.Label)
			continue
		}
		groups = append(groups, Group{Name: c.Group, Labels: []string{c.Label}})
	}
	return groups
}

func resolveChecklist(query string, labels []string) model.FilterSpec {
	spec := model.DefaultFilterSpec(query)
	for _, label := range labels {
		if a, ok := Lookup(label); ok {
			a.apply(&spec)
		}
	}
	return spec
}

func (a Assignment) apply(spec *model.FilterSpec) {
	switch a.Field {
	case FieldMaxChannelAgeMonths:
		spec.MaxChannelAgeMonths = int(a.Num)
	case FieldMaxSubscribers:
		spec.MaxSubscribers = int64(a.Num)
	case FieldMaxChannelVideos:
		spec.MaxChannelVideos = int64(a.Num)
	case FieldMinViewsPerHour:
		spec.MinViewsPerHour = a.Num
	case FieldMinViews:
		spec.MinViews = int64(a.Num)
	case FieldMinViewsPerHourRatio:
		spec.MinViewsPerHourRatio = a.Num
	case FieldMinEngagementPct:
		spec.MinEngagementPct = a.Num
	case FieldDuration:
		spec.Duration = model.Duration(a.Text)
	case FieldRecentOnly:
		spec.RecentOnly = a.Num != 0
	case FieldRegionCode:
		spec.RegionCode = a.Text
	case FieldLocale:
		spec.Locale = a.Text
	}
}
