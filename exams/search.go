// Package exams answers /old-exam requests: it narrows the exam archive to a year and a set of
// candidates, asks a completion service to pick among them and keeps only real paths from the answer.
package exams

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	DefaultMaxCandidates = 350
	MaxCount             = 5
)

// ErrUnavailable means the listing or the completion service failed. Callers tell the user to retry later.
var ErrUnavailable = errors.New("exam search unavailable")

var yearPrefixes = map[int]string{
	1: "1ere/",
	2: "2eme/",
	3: "3eme/",
}

var yearLabels = map[int]string{
	1: "1ère",
	2: "2ème",
	3: "3ème",
}

// Completer sends a prompt to a language model and returns its raw answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Query is one exam search request.
type Query struct {
	Text string
	// Year is the academic year, 1 to 3.
	Year int
	// Count is the number of files wanted, clamped to 1..MaxCount.
	Count int
}

// Result is the outcome of a search. Files is empty when nothing matched.
type Result struct {
	Query      Query
	Files      []string
	Candidates int
}

// Searcher runs exam searches against a Lister and a Completer.
type Searcher struct {
	lister        Lister
	completer     Completer
	maxCandidates int
}

// NewSearcher returns a Searcher. maxCandidates <= 0 uses DefaultMaxCandidates.
func NewSearcher(lister Lister, completer Completer, maxCandidates int) *Searcher {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return &Searcher{
		lister:        lister,
		completer:     completer,
		maxCandidates: maxCandidates,
	}
}

// Search lists the archive, filters it for q and lets the completer choose. Every returned file
// is part of the listing. Failures of the listing or the completer wrap ErrUnavailable and are not retried.
func (s *Searcher) Search(ctx context.Context, q Query) (Result, error) {
	q.Count = clampCount(q.Count)
	result := Result{Query: q}

	if _, ok := yearPrefixes[q.Year]; !ok {
		return result, fmt.Errorf("invalid year %d: must be 1, 2 or 3", q.Year)
	}

	files, err := s.lister.ListFiles(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: listing exams: %w", ErrUnavailable, err)
	}

	yearFiles, err := FilterByYear(files, q.Year)
	if err != nil {
		return result, err
	}
	candidates := Prefilter(q.Text, yearFiles, s.maxCandidates)
	result.Candidates = len(candidates)
	if len(candidates) == 0 {
		slog.Info("no exam files for year", "year", q.Year, "files", len(files))
		return result, nil
	}

	answer, err := s.completer.Complete(ctx, BuildPrompt(q, candidates))
	if err != nil {
		return result, fmt.Errorf("%w: completion: %w", ErrUnavailable, err)
	}

	result.Files = SelectFiles(answer, candidates, q.Count)
	slog.Info("exam search finished",
		"query", q.Text,
		"year", q.Year,
		"candidates", len(candidates),
		"selected", len(result.Files))
	return result, nil
}

func clampCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

// FilterByYear keeps the paths under the year's folder.
func FilterByYear(files []string, year int) ([]string, error) {
	prefix, ok := yearPrefixes[year]
	if !ok {
		return nil, fmt.Errorf("invalid year %d: must be 1, 2 or 3", year)
	}
	var out []string
	for _, f := range files {
		if strings.HasPrefix(f, prefix) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Prefilter keeps the candidates containing at least one query token, case-insensitively.
// When no token matches anything, the whole list is kept. The result holds at most limit paths.
func Prefilter(query string, candidates []string, limit int) []string {
	tokens := strings.Fields(strings.ToLower(strings.ReplaceAll(query, "%20", " ")))

	filtered := candidates
	if len(tokens) > 0 {
		var matched []string
		for _, c := range candidates {
			lower := strings.ToLower(strings.ReplaceAll(c, "%20", " "))
			for _, tok := range tokens {
				if strings.Contains(lower, tok) {
					matched = append(matched, c)
					break
				}
			}
		}
		if len(matched) > 0 {
			filtered = matched
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

// BuildPrompt asks for the most relevant paths out of candidates, one per line.
func BuildPrompt(q Query, candidates []string) string {
	var b strings.Builder
	b.WriteString("You are given a user request for an exam file.\n")
	b.WriteString("From the list of file paths below, pick the most relevant path(s) that best match the request.\n")
	fmt.Fprintf(&b, "Return at most %d path(s).\n", clampCount(q.Count))
	b.WriteString("Respond with ONLY the exact path(s) from the list, one per line. Do not add explanations.\n\n")
	fmt.Fprintf(&b, "User request: %s\n", q.Text)
	fmt.Fprintf(&b, "Year: %s\n\n", yearLabels[q.Year])
	for _, c := range candidates {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	return b.String()
}

var (
	answerMarker = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)
	answerQuotes = "`\"'“”‘’"
)

// SelectFiles maps the completer's answer back onto candidates. Each line is matched, in order,
// as an exact path, as an unambiguous file name, then as text containing a candidate path (the
// longest one wins). Lines matching nothing are dropped. At most n distinct paths are returned.
func SelectFiles(answer string, candidates []string, n int) []string {
	byPath := make(map[string]string, len(candidates))
	byName := make(map[string][]string, len(candidates))
	for _, c := range candidates {
		lower := strings.ToLower(c)
		byPath[lower] = c
		name := path.Base(lower)
		byName[name] = append(byName[name], c)
	}

	seen := make(map[string]bool)
	var selected []string
	for _, line := range strings.Split(answer, "\n") {
		if len(selected) >= n {
			break
		}
		line = cleanAnswerLine(line)
		if line == "" {
			continue
		}

		match, ok := matchCandidate(strings.ToLower(line), candidates, byPath, byName)
		if !ok {
			slog.Debug("discarding completion line without a matching file", "line", line)
			continue
		}
		if seen[match] {
			continue
		}
		seen[match] = true
		selected = append(selected, match)
	}
	return selected
}

func cleanAnswerLine(line string) string {
	line = strings.TrimSpace(line)
	line = answerMarker.ReplaceAllString(line, "")
	line = strings.TrimSpace(strings.Trim(line, answerQuotes))
	line = strings.TrimPrefix(line, "./")
	return strings.TrimLeft(line, "/")
}

func matchCandidate(line string, candidates []string, byPath map[string]string, byName map[string][]string) (string, bool) {
	if c, ok := byPath[line]; ok {
		return c, true
	}
	if names := byName[line]; len(names) == 1 {
		return names[0], true
	}

	var best string
	for _, c := range candidates {
		if len(c) > len(best) && strings.Contains(line, strings.ToLower(c)) {
			best = c
		}
	}
	return best, best != ""
}

// FolderURL links to the folder holding p on the public share, opened in the PDF viewer.
func FolderURL(shareBaseURL, p string) string {
	folder := path.Dir(p)
	if folder == "." {
		folder = ""
	}
	segments := strings.Split(folder, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return shareBaseURL + "?path=/" + strings.Join(segments, "/") + "#pdfviewer"
}
