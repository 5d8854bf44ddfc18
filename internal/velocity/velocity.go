// Package velocity derives time-normalized popularity metrics from raw video statistics.
package velocity

import (
	"time"

	"trendscout/internal/model"
)

// Compute returns the metrics of a video published at publishedAt with viewCount views,
// evaluated at now. ref is an optional earlier observation of the same video; when it lies
// strictly between publishedAt and now it is used to compare recent velocity against the
// lifetime average.
//
// A video with a non-positive age has no defined rate: ViewsPerHour is reported as 0.
func Compute(publishedAt time.Time, viewCount int64, now time.Time, ref *model.Snapshot) model.Metrics {
	views := float64(max(viewCount, 0))
	age := now.Sub(publishedAt).Hours()

	m := model.Metrics{AgeHours: age}
	if age <= 0 {
		return m
	}
	m.ViewsPerHour = views / age

	if ref == nil || !ref.ObservedAt.After(publishedAt) || !ref.ObservedAt.Before(now) {
		return m
	}
	window := now.Sub(ref.ObservedAt).Hours()
	gained := float64(max(viewCount-ref.ViewCount, 0))
	m.HasReference = true
	if m.ViewsPerHour > 0 {
		m.ViewsPerHourRatio = (gained / window) / m.ViewsPerHour
	}
	return m
}

// EngagementPct returns likes plus comments as a percentage of views.
func EngagementPct(views, likes, comments int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(max(likes, 0)+max(comments, 0)) / float64(views) * 100
}
