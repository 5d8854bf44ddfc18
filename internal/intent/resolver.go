// Package intent turns a ranking request into a normalized FilterSpec.
//
// Two strategies exist. A checklist of pre-worded labels maps each label to one
// FilterSpec field through a fixed table. Free text is scanned for phrases that
// switch individual rules on. Resolution never fails: unrecognized input leaves
// the defaults in place.
package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"trendscout/internal/model"
)

// Viral tier thresholds applied by virality phrases.
const (
	ViralMinViewsPerHour = 1000
	ViralMinViews        = 500000
)

// Input is a ranking request. When Criteria is non-empty the checklist strategy
// is used and Query, if any, becomes the search text.
type Input struct {
	Query    string
	Criteria []string
}

// Empty reports whether the input carries neither a query nor a checklist.
func (in Input) Empty() bool {
	return strings.TrimSpace(in.Query) == "" && len(in.Criteria) == 0
}

// Resolve returns the FilterSpec described by in.
func Resolve(in Input) model.FilterSpec {
	if len(in.Criteria) > 0 {
		return resolveChecklist(in.Query, in.Criteria)
	}
	return resolveText(in.Query)
}

var themeNegations = []string{
	"no particular theme", "no specific theme", "no theme", "any theme",
	"any topic", "any subject", "whatever topic",
	"n'importe quel sujet", "n'importe quel thème", "peu importe le sujet",
	"peu importe le thème", "sans thème", "pas de thème", "tous les sujets", "tous sujets",
}

var recencyPhrases = []string{
	"recent", "recently", "this week", "last 7 days", "past week", "latest", "new videos",
	"récent", "récente", "récents", "récentes", "cette semaine", "derniers jours", "nouvelles vidéos",
}

var viralPhrases = []string{
	"viral", "going viral", "blowing up", "exploding", "buzz",
	"virale", "virales", "viraux", "qui explose", "explose", "cartonne",
}

type localeRule struct {
	phrases []string
	locale  string
	region  string
}

var localeRules = []localeRule{
	{phrases: []string{"france", "french", "français", "francais", "française"}, locale: "fr", region: "FR"},
	{phrases: []string{"canada", "canadian", "canadien", "canadienne", "québec", "quebec"}, locale: "fr", region: "CA"},
	{phrases: []string{"usa", "united states", "america", "american", "états-unis", "etats-unis"}, locale: "en", region: "US"},
	{phrases: []string{"india", "indian", "inde", "indien", "indienne"}, locale: "en", region: "IN"},
	{phrases: []string{"spain", "spanish", "españa", "espagne", "espagnol", "espagnole"}, locale: "es", region: "ES"},
}

func resolveText(query string) model.FilterSpec {
	spec := model.DefaultFilterSpec(query)
	text := strings.ToLower(query)

	if lastMatch(text, themeNegations) >= 0 {
		spec.SearchText = ""
	}
	if lastMatch(text, recencyPhrases) >= 0 {
		spec.RecentOnly = true
	}
	if lastMatch(text, viralPhrases) >= 0 {
		spec.MinViewsPerHour = max(spec.MinViewsPerHour, ViralMinViewsPerHour)
		spec.MinViews = max(spec.MinViews, ViralMinViews)
	}

	best := -1
	for _, r := range localeRules {
		if pos := lastMatch(text, r.phrases); pos > best {
			best = pos
			spec.Locale, spec.RegionCode = r.locale, r.region
		}
	}
	return spec
}

// lastMatch returns the byte offset of the last whole-word occurrence of any
// phrase in text, or -1.
func lastMatch(text string, phrases []string) int {
	last := -1
	for _, p := range phrases {
		if pos := lastWordIndex(text, p); pos > last {
			last = pos
		}
	}
	return last
}

func lastWordIndex(text, phrase string) int {
	last := -1
	for from := 0; from <= len(text)-len(phrase); {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(phrase)
		if wordBoundaryBefore(text, start) && wordBoundaryAfter(text, end) {
			last = start
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return last
}

func wordBoundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
