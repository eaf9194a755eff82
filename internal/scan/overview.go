package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// MaxOverviewDepth bounds how many path levels Overview renders.
const MaxOverviewDepth = 3

type overviewEntry struct {
	rel   string
	depth int
	isDir bool
}

// Overview renders an indented listing of directories and files up to
// MaxOverviewDepth levels, shallow entries first. Noise file extensions are
// omitted; noise directories and large files are still listed so the reader
// sees the full shape of the tree.
func Overview(root string) (string, error) {
	var entries []overviewEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		depth := len(splitPath(rel))
		if depth > MaxOverviewDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsNoiseFile(d.Name()) {
			return nil
		}
		entries = append(entries, overviewEntry{rel: rel, depth: depth, isDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return "", err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].depth != entries[j].depth {
			return entries[i].depth < entries[j].depth
		}
		return entries[i].rel < entries[j].rel
	})

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := strings.Repeat("  ", e.depth-1) + "├─ " + filepath.Base(e.rel)
		if e.isDir {
			line += "/"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
