package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// SessionStorePath returns the sqlite file holding the protocol keys of one device.
func SessionStorePath(sessionsDir, deviceID string) string {
	return filepath.Join(sessionsDir, fmt.Sprintf("session-%s.db", deviceID))
}

// SessionStoreFiles lists the sqlite file of a device plus its WAL companions.
func SessionStoreFiles(sessionsDir, deviceID string) []string {
	base := SessionStorePath(sessionsDir, deviceID)
	return []string{base, base + "-wal", base + "-shm"}
}

// EnsureDirectories creates the storage layout used at runtime.
func EnsureDirectories(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
