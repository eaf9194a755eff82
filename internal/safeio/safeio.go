// Package safeio reads files of an analysed repository without following
// links out of its root.
package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	ErrOutsideRoot = errors.New("safeio: path resolves outside root")
	ErrIsDir       = errors.New("safeio: path is a directory")
)

// SafeFS resolves every path against a fixed, symlink-free root.
type SafeFS struct {
	absRoot string
}

// NewSafeFS locks all future reads to root.
func NewSafeFS(root string) (*SafeFS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("safeio: root is not a directory")
	}
	return &SafeFS{absRoot: abs}, nil
}

// Root returns the resolved root directory.
func (s *SafeFS) Root() string {
	if s == nil {
		return ""
	}
	return s.absRoot
}

// Stat returns metadata for a path under the root.
func (s *SafeFS) Stat(userPath string) (fs.FileInfo, error) {
	p, err := s.resolve(userPath)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

// ReadFile returns the raw bytes of a regular file under the root.
// userPath may be root-relative or absolute.
func (s *SafeFS) ReadFile(userPath string) ([]byte, error) {
	p, err := s.resolve(userPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrIsDir
	}
	return os.ReadFile(p)
}

// ReadText reads a file as UTF-8. Content that is not valid UTF-8 is decoded
// as ISO-8859-1 instead, which accepts every byte sequence.
func (s *SafeFS) ReadText(userPath string) (string, error) {
	b, err := s.ReadFile(userPath)
	if err != nil {
		return "", err
	}
	return DecodeText(b), nil
}

// DecodeText converts raw file bytes to a string: UTF-8 when valid,
// otherwise ISO-8859-1.
func DecodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// ISO-8859-1 maps all 256 byte values; keep going regardless.
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

func (s *SafeFS) resolve(userPath string) (string, error) {
	if s == nil {
		return "", errors.New("safeio: filesystem not configured")
	}
	if userPath == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(userPath)
	if clean == "." {
		return s.absRoot, nil
	}

	joined := clean
	if !isAbs(clean) {
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, userPath)
		}
		joined = filepath.Join(s.absRoot, clean)
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !hasPathPrefix(resolved, s.absRoot) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, userPath)
	}
	return resolved, nil
}

func isAbs(p string) bool {
	return filepath.IsAbs(p) || (runtime.GOOS == "windows" && filepath.VolumeName(p) != "")
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if root == "" || path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path+sep, root)
}
