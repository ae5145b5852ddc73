// Package backup copies a store file to a timestamped sibling before it is
// rewritten.
package backup

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/illarion/vaultmerge/internal/security"
)

const filePerm = 0600

// Name returns the backup path for path at now: "<path>.bak.<unix-seconds>"
func Name(path string, now time.Time) string {
	return path + ".bak." + strconv.FormatInt(now.Unix(), 10)
}

// Create copies path to Name(path, now) in the same directory and returns
// the backup path. An existing backup with the same name is never replaced.
func Create(path string, now time.Time) (string, error) {
	dst := Name(path, now)

	validator, err := security.New(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("failed to open backup directory: %w", err)
	}
	defer validator.Close()

	if err := validator.CopyFileInRoot(filepath.Base(path), filepath.Base(dst), filePerm); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return dst, nil
}
