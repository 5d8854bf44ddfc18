package model

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	localeRe = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)
	regionRe = regexp.MustCompile(`^[A-Z]{2}$`)
)

// ValidLocale reports whether s is a two-letter language code or a five-letter language-region tag.
func ValidLocale(s string) bool {
	return localeRe.MatchString(s)
}

// ValidRegion reports whether s is a two-letter upper-case region code.
func ValidRegion(s string) bool {
	return regionRe.MatchString(s)
}

// Validate checks the FilterSpec invariants.
func (s FilterSpec) Validate() error {
	var errs []error
	if s.MinViewsPerHour < 0 {
		errs = append(errs, fmt.Errorf("minViewsPerHour must be >= 0, got %v", s.MinViewsPerHour))
	}
	if s.MinViews < 0 {
		errs = append(errs, fmt.Errorf("minViews must be >= 0, got %d", s.MinViews))
	}
	if s.MinViewsPerHourRatio < 0 {
		errs = append(errs, fmt.Errorf("minViewsPerHourRatio must be >= 0, got %v", s.MinViewsPerHourRatio))
	}
	if s.MaxAgeMonths < 0 {
		errs = append(errs, fmt.Errorf("maxAgeMonths must be >= 0, got %d", s.MaxAgeMonths))
	}
	if s.MaxChannelAgeMonths < 0 || s.MaxSubscribers < 0 || s.MaxChannelVideos < 0 || s.MinEngagementPct < 0 {
		errs = append(errs, errors.New("channel thresholds must be >= 0"))
	}
	if s.ResultLimit < 1 || s.ResultLimit > MaxResultLimit {
		errs = append(errs, fmt.Errorf("resultLimit must be between 1 and %d, got %d", MaxResultLimit, s.ResultLimit))
	}
	if !ValidLocale(s.Locale) {
		errs = append(errs, fmt.Errorf("invalid locale %q", s.Locale))
	}
	if !ValidRegion(s.RegionCode) {
		errs = append(errs, fmt.Errorf("invalid region code %q", s.RegionCode))
	}
	switch s.Duration {
	case DurationAny, DurationShort, DurationMedium, DurationLong:
	default:
		errs = append(errs, fmt.Errorf("invalid duration %q", s.Duration))
	}
	return errors.Join(errs...)
}
