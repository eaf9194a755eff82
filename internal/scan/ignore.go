package scan

import (
	"log"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// loadGitignore compiles root/.gitignore. It returns nil when the file is
// absent or unreadable, in which case nothing is ignored.
func loadGitignore(root string) func(rel string) bool {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil || gi == nil {
		return nil
	}
	log.Printf("scan: applying %s", filepath.Join(root, ".gitignore"))
	return gi.MatchesPath
}
