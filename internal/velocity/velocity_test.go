package velocity

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"trendscout/internal/model"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestCompute(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		publishedAt time.Time
		views       int64
		ref         *model.Snapshot
		want        model.Metrics
	}{
		{
			name:        "two hours old",
			publishedAt: now.Add(-2 * time.Hour),
			views:       150000,
			want:        model.Metrics{AgeHours: 2, ViewsPerHour: 75000},
		},
		{
			name:        "zero views",
			publishedAt: now.Add(-10 * time.Hour),
			views:       0,
			want:        model.Metrics{AgeHours: 10},
		},
		{
			name:        "negative views clamped",
			publishedAt: now.Add(-10 * time.Hour),
			views:       -50,
			want:        model.Metrics{AgeHours: 10},
		},
		{
			name:        "published exactly now",
			publishedAt: now,
			views:       1000,
			want:        model.Metrics{AgeHours: 0},
		},
		{
			name:        "published in the future (clock skew)",
			publishedAt: now.Add(30 * time.Minute),
			views:       1000,
			want:        model.Metrics{AgeHours: -0.5},
		},
		{
			name:        "reference with steady velocity",
			publishedAt: now.Add(-10 * time.Hour),
			views:       10000,
			ref:         &model.Snapshot{ViewCount: 5000, ObservedAt: now.Add(-5 * time.Hour)},
			want:        model.Metrics{AgeHours: 10, ViewsPerHour: 1000, ViewsPerHourRatio: 1, HasReference: true},
		},
		{
			name:        "reference with accelerating velocity",
			publishedAt: now.Add(-10 * time.Hour),
			views:       10000,
			ref:         &model.Snapshot{ViewCount: 6000, ObservedAt: now.Add(-1 * time.Hour)},
			want:        model.Metrics{AgeHours: 10, ViewsPerHour: 1000, ViewsPerHourRatio: 4, HasReference: true},
		},
		{
			name:        "reference count above current is clamped",
			publishedAt: now.Add(-10 * time.Hour),
			views:       10000,
			ref:         &model.Snapshot{ViewCount: 12000, ObservedAt: now.Add(-1 * time.Hour)},
			want:        model.Metrics{AgeHours: 10, ViewsPerHour: 1000, HasReference: true},
		},
		{
			name:        "reference observed at now is ignored",
			publishedAt: now.Add(-10 * time.Hour),
			views:       10000,
			ref:         &model.Snapshot{ViewCount: 9000, ObservedAt: now},
			want:        model.Metrics{AgeHours: 10, ViewsPerHour: 1000},
		},
		{
			name:        "reference before publish is ignored",
			publishedAt: now.Add(-10 * time.Hour),
			views:       10000,
			ref:         &model.Snapshot{ViewCount: 0, ObservedAt: now.Add(-11 * time.Hour)},
			want:        model.Metrics{AgeHours: 10, ViewsPerHour: 1000},
		},
		{
			name:        "reference ignored when age is not positive",
			publishedAt: now,
			views:       100,
			ref:         &model.Snapshot{ViewCount: 0, ObservedAt: now.Add(-time.Hour)},
			want:        model.Metrics{AgeHours: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.publishedAt, tt.views, now, tt.ref)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
			}
			if math.IsNaN(got.ViewsPerHour) || math.IsInf(got.ViewsPerHour, 0) {
				t.Errorf("ViewsPerHour is not finite: %v", got.ViewsPerHour)
			}
		})
	}
}

func TestEngagementPct(t *testing.T) {
	tests := []struct {
		name                   string
		views, likes, comments int64
		want                   float64
	}{
		{name: "no views", views: 0, likes: 10, comments: 5, want: 0},
		{name: "five percent", views: 1000, likes: 40, comments: 10, want: 5},
		{name: "negative counts clamped", views: 1000, likes: -3, comments: 20, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EngagementPct(tt.views, tt.likes, tt.comments)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("EngagementPct() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
