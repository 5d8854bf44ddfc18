package bot

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"trendscout/internal/intent"
)

var channelIDRe = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)

// ParseTrendingArgs splits /trending arguments into free text and checklist
// labels. The first line is the text; every further non-empty line is a label.
func ParseTrendingArgs(args string) intent.Input {
	lines := strings.Split(strings.TrimSpace(args), "\n")

	in := intent.Input{Query: strings.TrimSpace(lines[0])}
	for _, l := range lines[1:] {
		if l = strings.TrimSpace(l); l != "" {
			in.Criteria = append(in.Criteria, l)
		}
	}
	return in
}

// ParseChannelID extracts a channel ID from a bare ID or a /channel/ URL.
func ParseChannelID(args string) (string, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return "", fmt.Errorf("channel ID is required")
	}
	s = strings.Fields(s)[0]

	if strings.Contains(s, "/") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("invalid channel URL %q", s)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "channel" {
			return "", fmt.Errorf("invalid channel URL %q", s)
		}
		s = parts[1]
	}

	if !channelIDRe.MatchString(s) {
		return "", fmt.Errorf("invalid channel ID %q", s)
	}
	return s, nil
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}
