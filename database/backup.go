// crushnote/database/backup.go
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ali-GR/CrushNoteApp/utils"
)

// BackupDatabase creates a consistent snapshot of the live database using
// VACUUM INTO and returns the path of the backup file.
func (ds *DatabaseService) BackupDatabase() (string, error) {
	if utils.BackupDir == "" {
		return "", fmt.Errorf("backup directory is not configured")
	}
	if err := os.MkdirAll(utils.BackupDir, 0755); err != nil {
		return "", fmt.Errorf("could not create backup directory %s: %w", utils.BackupDir, err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02_15-04-05")
	backupFilename := fmt.Sprintf("crushnote_backup_%s.db", timestamp)
	backupPath := filepath.Join(utils.BackupDir, backupFilename)

	ds.logger.Info("Starting database backup", "destination", backupPath)

	_, err := ds.DB.Exec("VACUUM INTO ?", backupPath)
	if err != nil {
		// If backup fails, attempt to remove the potentially incomplete file
		if removeErr := os.Remove(backupPath); removeErr != nil && !os.IsNotExist(removeErr) {
			ds.logger.Error("Failed to remove incomplete backup file", "path", backupPath, "error", removeErr)
		}
		return "", fmt.Errorf("VACUUM INTO command failed: %w", err)
	}

	return backupPath, nil
}

// UploadBackup pushes a finished backup file to the configured storage
// backend. Returns the stored location.
func (ds *DatabaseService) UploadBackup(storage utils.StorageService, backupPath string) (string, error) {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return "", fmt.Errorf("could not read backup file: %w", err)
	}
	location, err := storage.SaveFile(filepath.Base(backupPath), data, "application/octet-stream")
	if err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}
	ds.logger.Info("Backup uploaded", "location", location)
	return location, nil
}
