// Package archive turns an uploaded zip into a scratch directory on disk.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidArchive marks input that is not a usable zip archive.
var ErrInvalidArchive = errors.New("invalid zip archive")

// MaxUnpackedBytes caps the total uncompressed size of one archive.
var MaxUnpackedBytes int64 = 512 << 20

// TempPrefix names scratch directories created by Unpack.
const TempPrefix = "ai-reviewer-"

// NoiseDirs are removed after extraction wherever they appear.
var NoiseDirs = map[string]bool{
	"__pycache__":  true,
	".git":         true,
	".hg":          true,
	".svn":         true,
	".idea":        true,
	".vscode":      true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// Unpack extracts data into a fresh temporary directory and strips noise
// directories. The caller must invoke cleanup once done with dir; cleanup
// is never nil.
func Unpack(ctx context.Context, data []byte) (dir string, cleanup func(), err error) {
	cleanup = func() {}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", cleanup, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	dir, err = os.MkdirTemp("", TempPrefix)
	if err != nil {
		return "", cleanup, err
	}
	cleanup = func() {
		if rerr := os.RemoveAll(dir); rerr != nil {
			log.Printf("archive: cleanup %s: %v", dir, rerr)
		}
	}

	if err := extract(ctx, zr, dir); err != nil {
		cleanup()
		return "", func() {}, err
	}
	if err := RemoveNoiseDirs(dir); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return dir, cleanup, nil
}

func extract(ctx context.Context, zr *zip.Reader, dest string) error {
	var total int64
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := entryPath(f.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		mode := f.Mode()

		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		case !mode.IsRegular():
			// links and device entries are never materialised
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		n, err := writeEntry(f, target, MaxUnpackedBytes-total)
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

func writeEntry(f *zip.File, target string, budget int64) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, io.LimitReader(rc, budget+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, f.Name, err)
		}
		return n, err
	}
	if n > budget {
		return n, fmt.Errorf("%w: uncompressed size exceeds %d bytes", ErrInvalidArchive, MaxUnpackedBytes)
	}
	return n, nil
}

// entryPath validates a zip entry name and returns it as a clean relative
// slash path. Names that would land outside the destination are rejected.
func entryPath(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || (len(name) > 1 && name[1] == ':') {
		return "", fmt.Errorf("%w: absolute entry %q", ErrInvalidArchive, name)
	}
	clean := path.Clean(name)
	if clean == "." {
		return "", nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: entry %q escapes the archive root", ErrInvalidArchive, name)
	}
	return clean, nil
}

// RemoveNoiseDirs deletes every directory under root whose name is in
// NoiseDirs, at any depth.
func RemoveNoiseDirs(root string) error {
	var doomed []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root && d.IsDir() && NoiseDirs[d.Name()] {
			doomed = append(doomed, p)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, p := range doomed {
		if err := os.RemoveAll(p); err != nil {
			log.Printf("archive: remove %s: %v", p, err)
		}
	}
	return nil
}
