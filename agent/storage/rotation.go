package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RotateFile renames a file that can no longer be appended to so a fresh
// one can take its place, and returns the backup path.
//
// Example: totals_2024_05.csv -> totals_2024_05.csv.backup.2024-05-31T06-00-12
//
// The backup file is left in place for manual recovery.
func RotateFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file to rotate: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T15-04-05")
	backupPath := fmt.Sprintf("%s.backup.%s", path, timestamp)
	if err := os.Rename(path, backupPath); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return backupPath, nil
}

// CleanupOldBackups removes backups made by RotateFile for path, keeping
// only the keepCount most recent.
func CleanupOldBackups(path string, keepCount int, log Logger) error {
	log = orNop(log)
	if keepCount < 0 {
		keepCount = 0
	}

	matches, err := filepath.Glob(path + ".backup.*")
	if err != nil {
		return fmt.Errorf("failed to find backup files: %w", err)
	}
	if len(matches) <= keepCount {
		return nil
	}

	type backupFile struct {
		path    string
		modTime time.Time
	}
	backups := make([]backupFile, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		backups = append(backups, backupFile{path: match, modTime: info.ModTime()})
	}

	// newest first
	sort.Slice(backups, func(i, j int) bool { return backups[i].modTime.After(backups[j].modTime) })

	var removed int
	for i := keepCount; i < len(backups); i++ {
		if err := os.Remove(backups[i].path); err != nil {
			log.Warn("Failed to remove old backup", "path", backups[i].path, "error", err)
		} else {
			removed++
		}
	}
	if removed > 0 {
		log.Info("Cleaned up old backups", "removed", removed, "kept", keepCount)
	}
	return nil
}
