// Package scan selects and prioritises the files of a repository that are
// worth summarising.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileCandidate is a source file chosen for analysis.
type FileCandidate struct {
	// Absolute filesystem path.
	Path string `json:"path"`
	// Root-relative path using forward slashes (e.g. "src/app.py").
	RelPath   string  `json:"relative_path"`
	Language  string  `json:"language"`
	SizeBytes int64   `json:"size_bytes"`
	Weight    float64 `json:"weight"`
}

// Options bounds candidate selection.
type Options struct {
	MaxCandidateFiles int
	MaxFileBytes      int64
	// RespectGitignore drops files matched by the root .gitignore.
	RespectGitignore bool
}

// Select walks root and returns recognised source files ordered by
// descending weight, capped at opts.MaxCandidateFiles. Files with equal
// weight keep their discovery order. An empty result is not an error.
func Select(root string, opts Options) ([]FileCandidate, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.New("scan: root is not a directory")
	}
	var ignored func(rel string) bool
	if opts.RespectGitignore {
		ignored = loadGitignore(root)
	}

	var out []FileCandidate
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && IsNoiseDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		// regular files only; symlinks and devices are skipped
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if IsNoiseFile(name) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		size := fi.Size()
		if size == 0 || (opts.MaxFileBytes > 0 && size > opts.MaxFileBytes) {
			return nil
		}
		lang := LanguageFor(name)
		if lang == "" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ignored != nil && ignored(rel) {
			return nil
		}
		out = append(out, FileCandidate{
			Path:      path,
			RelPath:   rel,
			Language:  lang,
			SizeBytes: size,
			Weight:    Weight(rel, size, lang),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if opts.MaxCandidateFiles > 0 && len(out) > opts.MaxCandidateFiles {
		out = out[:opts.MaxCandidateFiles]
	}
	return out, nil
}

// Weight scores a file from its root-relative path, size and language.
// Shallow, small, primary-language files under a conventional source root
// score highest.
func Weight(relPath string, size int64, language string) float64 {
	parts := splitPath(relPath)
	depth := len(parts) - 1
	if depth < 0 {
		depth = 0
	}
	depthPenalty := 1.0 / float64(1+depth)
	sizeScore := 1.0 / (1.0 + float64(size)/2000.0)

	languageBonus := 1.0
	if primaryLanguages[language] {
		languageBonus = 1.5
	}
	specialBonus := 1.0
	for _, seg := range parts {
		if sourceRootNames[seg] {
			specialBonus = 1.2
			break
		}
	}
	return depthPenalty * sizeScore * languageBonus * specialBonus
}

func splitPath(rel string) []string {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}
