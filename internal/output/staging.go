package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const maxStagingAttempts = 16

var ErrStagingExhausted = errors.New("output: staging name collisions exhausted retry budget")

func defaultStagingName() string {
	return ".stage-" + uuid.NewString() + ".tmp"
}

// createStaging opens an exclusively created, randomly named file in dir,
// creating the directory tree if needed. A name collision retries with a
// fresh name; any other creation failure is fatal for the resolution.
func createStaging(dir string, nextName func() string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: create staging directory %s: %w", dir, err)
	}
	for attempt := 0; attempt < maxStagingAttempts; attempt++ {
		path := filepath.Join(dir, nextName())
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("output: create staging file %s: %w", path, err)
		}
	}
	return nil, ErrStagingExhausted
}
