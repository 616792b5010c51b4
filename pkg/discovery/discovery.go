package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sqljob/pkg/models"
)

// ErrDirectory is returned when the test directory cannot be listed.
var ErrDirectory = errors.New("test directory unavailable")

// Discover lists the entries of dir whose base name matches pattern.
//
// Paths are built from dir as given, so "./job" yields "./job/a.sql".
// Subdirectories are skipped. A missing or unreadable directory returns an
// empty slice together with an error wrapping ErrDirectory; callers treat that
// as a batch with zero files.
func Discover(dir, pattern string) ([]models.TestFile, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return []models.TestFile{}, fmt.Errorf("%w: %s: %v", ErrDirectory, dir, err)
	}

	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) && !strings.HasSuffix(prefix, "/") {
		prefix += string(filepath.Separator)
	}

	files := make([]models.TestFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		// Match only fails on a bad pattern, which was checked above.
		if ok, _ := filepath.Match(pattern, entry.Name()); ok {
			files = append(files, models.TestFile(prefix+entry.Name()))
		}
	}
	return files, nil
}
