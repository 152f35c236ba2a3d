//go:build !unix

package dirlock

import (
	"fmt"
	"os"
)

// Without flock only the in-process registry guards the directory.
func lockFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	return f, nil
}

func unlockFile(f *os.File) error {
	return f.Close()
}
