package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/candleworks/catalogsync/internal/logger"
)

// ensureStagingDir creates the staging directory if it does not exist.
func ensureStagingDir(dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create staging directory %s: %w", dir, err)
	}
	return nil
}

// purgeStale removes staged payloads older than the retention window.
// The file fetched by the current run is always younger than any sensible
// retention window, so it survives its own run's purge. Individual
// removal failures are logged and skipped; cleanup never fails a run.
func purgeStale(dir string, retention time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warnf("Failed to read staging directory %s for cleanup: %v", dir, err)
		return 0
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warnf("Failed to remove stale staging file %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Infof("Purged %d stale staging file(s) from %s", removed, dir)
	}
	return removed
}
