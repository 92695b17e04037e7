package exams

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Lister returns the exam corpus as slash-separated paths relative to the archive root,
// e.g. "1ere/Teleinformatique/TE1_2023_corrige.pdf".
type Lister interface {
	ListFiles(ctx context.Context) ([]string, error)
}

// DirLister lists the files of a local mirror of the archive.
type DirLister struct {
	Root string
}

// ListFiles walks Root and returns every file with an extension. Hidden entries are skipped.
func (l DirLister) ListFiles(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p != l.Root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(d.Name()) == "" {
			return nil
		}
		rel, err := filepath.Rel(l.Root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		slog.Error("failed to walk exam directory", "root", l.Root, "error", err)
		return nil, fmt.Errorf("failed to walk %s: %w", l.Root, err)
	}
	return normalise(files), nil
}

// JSONLister reads a JSON array of paths, as written by the catalog tool.
type JSONLister struct {
	Path string
}

// ListFiles reads the file on every call so a refreshed catalog is picked up without a restart.
func (l JSONLister) ListFiles(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		slog.Error("failed to read exam catalog", "path", l.Path, "error", err)
		return nil, fmt.Errorf("failed to read %s: %w", l.Path, err)
	}
	var files []string
	if err := json.Unmarshal(data, &files); err != nil {
		slog.Error("failed to decode exam catalog", "path", l.Path, "error", err)
		return nil, fmt.Errorf("failed to decode %s: %w", l.Path, err)
	}
	return normalise(files), nil
}

// normalise trims leading slashes, drops empty and duplicate entries and sorts.
func normalise(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		f = strings.TrimLeft(strings.TrimSpace(f), "/")
		if f == "" {
			continue
		}
		out = append(out, path.Clean(f))
	}
	slices.Sort(out)
	return slices.Compact(out)
}
