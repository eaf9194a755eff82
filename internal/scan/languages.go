package scan

import (
	"path/filepath"
	"strings"
)

// languageByExt maps recognised source and doc extensions to a language name.
var languageByExt = map[string]string{
	".py":    "Python",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".java":  "Java",
	".go":    "Go",
	".rs":    "Rust",
	".cs":    "C#",
	".rb":    "Ruby",
	".php":   "PHP",
	".swift": "Swift",
	".kt":    "Kotlin",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".hpp":   "C++",
	".m":     "Objective-C",
	".scala": "Scala",
	".sql":   "SQL",
	".yaml":  "YAML",
	".yml":   "YAML",
	".json":  "JSON",
	".md":    "Markdown",
}

// primaryLanguages get a weight bonus: application logic usually lives there.
var primaryLanguages = map[string]bool{
	"Python":     true,
	"TypeScript": true,
	"JavaScript": true,
}

// sourceRootNames are conventional directories that hold application code.
var sourceRootNames = map[string]bool{
	"src":     true,
	"app":     true,
	"server":  true,
	"service": true,
}

var skipDirs = map[string]bool{
	"__pycache__":   true,
	".git":          true,
	".hg":           true,
	".svn":          true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	"node_modules":  true,
	"vendor":        true,
	"target":        true,
	"dist":          true,
	"build":         true,
	"out":           true,
	"coverage":      true,
	".idea":         true,
	".vscode":       true,
	".next":         true,
	".cache":        true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
}

// LanguageFor returns the language for a file name, or "" when the
// extension is not recognised.
func LanguageFor(name string) string {
	return languageByExt[strings.ToLower(filepath.Ext(name))]
}

// IsNoiseDir reports whether a directory name is version-control metadata,
// a dependency cache or build output.
func IsNoiseDir(name string) bool {
	return skipDirs[name]
}

// IsNoiseFile reports whether a file extension marks binary or generated
// content that is never worth reading.
func IsNoiseFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	// images
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".bmp", ".tiff", ".svg":
		return true
	// video
	case ".mp4", ".m4v", ".mov", ".mkv", ".webm", ".avi":
		return true
	// audio
	case ".mp3", ".wav", ".ogg", ".flac", ".m4a":
		return true
	// archives, binaries, lockfiles
	case ".pdf", ".zip", ".jar", ".gz", ".tgz", ".bz2", ".7z", ".exe", ".dll", ".dylib", ".so",
		".bin", ".lock", ".woff", ".woff2":
		return true
	}
	return false
}
