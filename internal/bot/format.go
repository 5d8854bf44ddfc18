package bot

import (
	"fmt"
	"strconv"
	"strings"

	"trendscout/internal/intent"
	"trendscout/internal/model"
)

// maxMessageLen is the Telegram limit for a text message.
const maxMessageLen = 4096

// FormatResults formats a ranking as a Telegram message.
func FormatResults(spec model.FilterSpec, results []model.RankedResult) string {
	var b strings.Builder
	b.WriteString(describeSpec(spec))
	b.WriteString("\n")

	if len(results) == 0 {
		b.WriteString("\nNo videos matched. Try a broader topic or fewer criteria.")
		return b.String()
	}

	for i, r := range results {
		entry := formatResult(i+1, r)
		if b.Len()+len(entry) > maxMessageLen-64 {
			fmt.Fprintf(&b, "\n...and %d more", len(results)-i)
			break
		}
		b.WriteString(entry)
	}
	return b.String()
}

func formatResult(n int, r model.RankedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%d. %s\n", n, r.Title)
	if r.ChannelTitle != "" {
		fmt.Fprintf(&b, "   %s\n", r.ChannelTitle)
	}
	fmt.Fprintf(&b, "   %s views/h, %s views, %s old\n", groupDigits(r.ViewsPerHour), groupDigits(r.Views), formatAge(r.AgeHours))
	fmt.Fprintf(&b, "   %s\n", r.URL)
	return b.String()
}

func describeSpec(s model.FilterSpec) string {
	var b strings.Builder
	if s.SearchText != "" {
		fmt.Fprintf(&b, "Trending %q", s.SearchText)
	} else {
		b.WriteString("Trending now")
	}
	fmt.Fprintf(&b, " (%s, %s)\n", s.Locale, s.RegionCode)

	conds := []string{
		fmt.Sprintf("%s+ views/h", strconv.FormatFloat(s.MinViewsPerHour, 'f', -1, 64)),
		fmt.Sprintf("%s+ views", groupDigits(s.MinViews)),
	}
	if s.RecentOnly {
		conds = append(conds, "last 7 days")
	}
	if s.MaxAgeMonths > 0 {
		conds = append(conds, fmt.Sprintf("under %d months old", s.MaxAgeMonths))
	}
	if s.Duration != "" {
		conds = append(conds, string(s.Duration)+" videos")
	}
	if s.MaxSubscribers > 0 {
		conds = append(conds, fmt.Sprintf("under %s subscribers", groupDigits(s.MaxSubscribers)))
	}
	b.WriteString(strings.Join(conds, ", "))
	return b.String()
}

// FormatVocabulary lists the checklist labels by group.
func FormatVocabulary(groups []intent.Group) string {
	var b strings.Builder
	b.WriteString("Checklist labels (send one per line after /trending <topic>):\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "\n%s:\n", g.Name)
		for _, l := range g.Labels {
			fmt.Fprintf(&b, "  %s\n", l)
		}
	}
	return b.String()
}

// FormatWatchList formats the watched channels of a chat.
func FormatWatchList(watches []model.WatchedChannel) string {
	if len(watches) == 0 {
		return "You are not watching any channels. Use /watch <channel_id> to add one."
	}
	var b strings.Builder
	b.WriteString("Watched channels:\n")
	for _, w := range watches {
		fmt.Fprintf(&b, "\n#%d %s\n   %s\n", w.ID, w.Title, w.ChannelID)
		if w.LastPolledAt != nil {
			fmt.Fprintf(&b, "   last polled %s\n", w.LastPolledAt.UTC().Format("2006-01-02 15:04 UTC"))
		} else {
			b.WriteString("   not polled yet\n")
		}
	}
	return b.String()
}

func formatAge(hours int64) string {
	switch {
	case hours < 1:
		return "<1h"
	case hours < 48:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dd", hours/24)
	}
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
