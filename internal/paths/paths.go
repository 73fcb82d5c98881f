// Package paths holds the small filesystem helpers shared by the resolvers,
// the fetcher and the header locator.
package paths

import (
	"os"
	"path/filepath"
)

// Join composes root and next. A relative next such as "./include" is
// cleaned so that joined paths compare equal regardless of spelling.
func Join(root, next string) string {
	return filepath.Join(root, next)
}

// Exists reports whether anything (file or directory) is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
