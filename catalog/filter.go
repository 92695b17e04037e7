package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
)

// Filter drops folders and files that are not exams.
type Filter struct {
	// SkipNames are whole names to drop, compared case-insensitively.
	SkipNames []string
	// SkipSubstrings drop any name containing one of them, case-insensitively.
	SkipSubstrings []string
}

// DefaultFilter removes course material that is not an exam, exams older than 2021 and readmes.
var DefaultFilter = Filter{
	SkipNames: []string{
		"resume", "cheat_sheet", "tp", "tps", "tp_series", "projet_integre", "projet",
		"wortschatz", "exercices_moodle", "exercice_moodle", "exos simulation matlab",
		"code", "applications_mobiles", "pi", "rs", "il", "quizz", "wiki",
	},
	SkipSubstrings: []string{
		"2003", "2004", "2005", "2006", "2007", "2008", "2009", "2010", "2011",
		"2012", "2013", "2014", "2015", "2016", "2017", "2018", "2019", "2020",
		"0405", "0506", "0607", "0708", "0809", "0910", "1011", "1112", "1213",
		"1314", "1415", "1516", "1617", "1718", "1819", "1920", "2122",
		"readme",
	},
}

// Skip reports whether a node called name is dropped. "%20" counts as a space.
func (f Filter) Skip(name string) bool {
	if name == "" {
		return false
	}
	name = strings.ToLower(strings.ReplaceAll(name, "%20", " "))
	for _, skip := range f.SkipNames {
		if name == strings.ToLower(skip) {
			return true
		}
	}
	for _, sub := range f.SkipSubstrings {
		if strings.Contains(name, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// Apply returns a filtered copy of n, or nil when n itself is dropped.
func (f Filter) Apply(n *Node) *Node {
	if n == nil || f.Skip(n.Name) {
		return nil
	}
	out := *n
	out.Children = nil
	for _, child := range n.Children {
		if kept := f.Apply(child); kept != nil {
			out.Children = append(out.Children, kept)
		}
	}
	return &out
}

// Files returns the sorted paths of the files under n that have an extension.
func Files(n *Node) []string {
	var files []string
	var collect func(*Node)
	collect = func(n *Node) {
		if n == nil {
			return
		}
		if !n.Dir {
			if n.Path != "" && path.Ext(n.Path) != "" {
				files = append(files, n.Path)
			}
			return
		}
		for _, child := range n.Children {
			collect(child)
		}
	}
	collect(n)

	slices.Sort(files)
	return slices.Compact(files)
}

// WriteJSON writes v as indented JSON without escaping HTML characters.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
