// Package deadline extracts deadlines from a pinned Discord message and posts reminders
// as they approach.
package deadline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is one deadline line of the pinned message.
type Entry struct {
	Label string
	// Due is midnight of the due day, in the location of the time passed to Parse.
	Due time.Time
	// Notified reports whether a reminder was already sent for the entry's current threshold.
	// It lives in memory only.
	Notified bool
}

// Key identifies a deadline across re-reads of the pinned message.
func (e Entry) Key() string {
	return strings.ToLower(e.Label) + "|" + e.Due.Format("2006-01-02")
}

const weekdays = `(?:lundi|mardi|mercredi|jeudi|vendredi|samedi|dimanche|` +
	`monday|tuesday|wednesday|thursday|friday|saturday|sunday|` +
	`lun|mar|mer|jeu|ven|sam|dim|mon|tue|wed|thu|fri|sat|sun)\.?,?\s+`

var (
	isoDate = regexp.MustCompile(`(?i)(?:\b` + weekdays + `)?\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	// "15 mars", "1er avril 2025", "3 june"
	nameDate = regexp.MustCompile(`(?i)(?:\b` + weekdays + `)?\b(\d{1,2})(?:er|st|nd|rd|th)?\s+` +
		`(janvier|février|fevrier|mars|avril|mai|juin|juillet|août|aout|septembre|octobre|novembre|décembre|decembre|` +
		`january|february|march|april|may|june|july|august|september|october|november|december|` +
		`janv|févr|fevr|avr|juil|sept|déc|dec|jan|feb|apr|jun|jul|aug|sep|oct|nov)\.?(?:\s+(\d{4}))?\b`)

	// Numeric dates, most trusted separator first. The year must repeat the separator.
	numDates = []struct {
		re   *regexp.Regexp
		rank int
	}{
		{numericDate("/"), rankSlash},
		{numericDate("-"), rankDash},
		{numericDate("."), rankDot},
	}

	// "15/03-22/03", "15.03 au 22.03": the end of a range belongs to the date token.
	rangeTail = regexp.MustCompile(`(?i)^\s*(?:-|–|au|to|à)\s*\d{1,2}[./-]\d{1,2}(?:[./-](?:\d{4}|\d{2}))?\b`)

	listMarker    = regexp.MustCompile(`^(?:[-*•>]+|\d+[.)])\s+`)
	spaces        = regexp.MustCompile(`\s+`)
	openPadding   = regexp.MustCompile(`([(\[]) `)
	closePadding  = regexp.MustCompile(` ([)\]])`)
	emptyBrackets = regexp.MustCompile(`\(\)|\[\]`)
)

// Date tokens on a line are ranked; the earliest position only breaks ties. A bare "3.4" is
// more often a section number than a date.
const (
	rankExplicit = iota // month name or explicit year
	rankSlash
	rankDash
	rankDot
)

func numericDate(sep string) *regexp.Regexp {
	s := regexp.QuoteMeta(sep)
	return regexp.MustCompile(`(?i)(?:\b` + weekdays + `)?\b(\d{1,2})` + s + `(\d{1,2})(?:` + s + `(\d{4}|\d{2}))?\b`)
}

var monthNames = map[string]time.Month{
	"janvier": time.January, "janv": time.January, "january": time.January, "jan": time.January,
	"février": time.February, "fevrier": time.February, "févr": time.February, "fevr": time.February,
	"february": time.February, "feb": time.February,
	"mars": time.March, "march": time.March,
	"avril": time.April, "avr": time.April, "april": time.April, "apr": time.April,
	"mai": time.May, "may": time.May,
	"juin": time.June, "june": time.June, "jun": time.June,
	"juillet": time.July, "juil": time.July, "july": time.July, "jul": time.July,
	"août": time.August, "aout": time.August, "august": time.August, "aug": time.August,
	"septembre": time.September, "sept": time.September, "september": time.September, "sep": time.September,
	"octobre": time.October, "october": time.October, "oct": time.October,
	"novembre": time.November, "november": time.November, "nov": time.November,
	"décembre": time.December, "decembre": time.December, "déc": time.December, "dec": time.December,
	"december": time.December,
}

// Parse extracts deadlines from the text of the pinned message. Lines without a recognizable
// date or without a label are skipped. A date without a year falls in the year of now, or in the
// next one when that day has already passed.
func Parse(text string, now time.Time) []Entry {
	today := dateOf(now)
	var entries []Entry
	for _, line := range strings.Split(text, "\n") {
		entry, ok := parseLine(line, today)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func parseLine(line string, today time.Time) (Entry, bool) {
	line = stripMarkdown(line)
	if line == "" {
		return Entry{}, false
	}

	tok, ok := findDate(line, today)
	if !ok {
		return Entry{}, false
	}

	label := cleanLabel(line[:tok.start] + " " + line[tok.end:])
	if label == "" {
		return Entry{}, false
	}
	return Entry{Label: label, Due: tok.due}, true
}

type dateToken struct {
	start, end int
	due        time.Time
	rank       int
}

// findDate returns the best ranked valid date token on the line.
func findDate(line string, today time.Time) (dateToken, bool) {
	var best dateToken
	found := false
	consider := func(tok dateToken) {
		if !found || tok.rank < best.rank || (tok.rank == best.rank && tok.start < best.start) {
			best = tok
			found = true
		}
	}

	for _, m := range isoDate.FindAllStringSubmatchIndex(line, -1) {
		year, _ := strconv.Atoi(line[m[2]:m[3]])
		month, _ := strconv.Atoi(line[m[4]:m[5]])
		day, _ := strconv.Atoi(line[m[6]:m[7]])
		if due, ok := makeDate(year, time.Month(month), day, today); ok {
			consider(dateToken{start: m[0], end: m[1], due: due, rank: rankExplicit})
		}
	}

	for _, nd := range numDates {
		for _, m := range nd.re.FindAllStringSubmatchIndex(line, -1) {
			if overlapsISO(line, m) {
				continue
			}
			day, _ := strconv.Atoi(line[m[2]:m[3]])
			month, _ := strconv.Atoi(line[m[4]:m[5]])
			due, ok := resolveYear(line, m[6], m[7], time.Month(month), day, today)
			if !ok {
				continue
			}
			rank := nd.rank
			if m[6] >= 0 {
				rank = rankExplicit
			}
			consider(dateToken{start: m[0], end: m[1], due: due, rank: rank})
		}
	}

	for _, m := range nameDate.FindAllStringSubmatchIndex(line, -1) {
		day, _ := strconv.Atoi(line[m[2]:m[3]])
		month := monthNames[strings.ToLower(line[m[4]:m[5]])]
		if due, ok := resolveYear(line, m[6], m[7], month, day, today); ok {
			consider(dateToken{start: m[0], end: m[1], due: due, rank: rankExplicit})
		}
	}

	if found {
		if tail := rangeTail.FindStringIndex(line[best.end:]); tail != nil {
			best.end += tail[1]
		}
	}
	return best, found
}

// overlapsISO reports whether a dd-mm match is the tail of a yyyy-mm-dd date.
func overlapsISO(line string, m []int) bool {
	return m[0] > 0 && line[m[0]-1] == '-' && isoDate.MatchString(line)
}

// resolveYear reads the optional year group, or picks the next occurrence of day/month.
func resolveYear(line string, start, end int, month time.Month, day int, today time.Time) (time.Time, bool) {
	if start >= 0 {
		year, _ := strconv.Atoi(line[start:end])
		if end-start == 2 {
			year += 2000
		}
		return makeDate(year, month, day, today)
	}

	due, ok := makeDate(today.Year(), month, day, today)
	if !ok {
		// 29/02 outside a leap year may still exist next year.
		return makeDate(today.Year()+1, month, day, today)
	}
	if due.Before(today) {
		return makeDate(today.Year()+1, month, day, today)
	}
	return due, true
}

// makeDate builds midnight of the given day in today's location, rejecting impossible dates.
func makeDate(year int, month time.Month, day int, today time.Time) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, today.Location())
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func stripMarkdown(line string) string {
	line = strings.NewReplacer("**", "", "__", "", "~~", "", "||", "", "`", "").Replace(line)
	line = strings.TrimSpace(line)
	return strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
}

const labelCutset = " \t:;,.|–—-"

// cleanLabel collapses what is left of the line once the date is cut out. Brackets are only
// removed when empty or unbalanced.
func cleanLabel(s string) string {
	s = balance(s, "(", ")")
	s = balance(s, "[", "]")
	s = spaces.ReplaceAllString(s, " ")
	s = openPadding.ReplaceAllString(s, "$1")
	s = closePadding.ReplaceAllString(s, "$1")
	s = emptyBrackets.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.Trim(s, labelCutset)
}

// balance drops the last unmatched opening brackets and the first unmatched closing ones.
func balance(s, open, close string) string {
	for strings.Count(s, open) > strings.Count(s, close) {
		i := strings.LastIndex(s, open)
		s = s[:i] + s[i+1:]
	}
	for strings.Count(s, close) > strings.Count(s, open) {
		i := strings.Index(s, close)
		s = s[:i] + s[i+1:]
	}
	return s
}

// dateOf truncates t to midnight in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysUntil counts calendar days from today to due; negative when due has passed.
func DaysUntil(today, due time.Time) int {
	a := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
