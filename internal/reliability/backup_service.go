package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/database"
	"github.com/fundguard/fundguard/internal/events"
)

const (
	archivePrefix    = "fundguard-backup-"
	archiveTimestamp = "2006-01-02-150405"

	// Backups newer than the retention count are never deleted, and at
	// least this many archives survive any rotation.
	minBackupsToKeep = 3
)

// BackupMetadata describes the contents of one backup archive.
type BackupMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// BackupInfo describes one archive stored offsite.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService snapshots the compliance database with VACUUM INTO, wraps
// the snapshot and its checksum manifest in a tar.gz archive, and ships the
// archive offsite.
type BackupService struct {
	db             *database.DB
	client         *R2Client // nil means archives stay local only
	dataDir        string
	retentionCount int
	eventManager   *events.Manager
	log            zerolog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(
	db *database.DB,
	client *R2Client,
	dataDir string,
	retentionCount int,
	eventManager *events.Manager,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		db:             db,
		client:         client,
		dataDir:        dataDir,
		retentionCount: retentionCount,
		eventManager:   eventManager,
		log:            log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup snapshots the database, archives it, and uploads the
// archive when an object store is configured. The local copy stays under
// <dataDir>/backups either way.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) error {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp(s.dataDir, "backup-staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	// VACUUM INTO produces a consistent snapshot without blocking writers.
	snapshotName := s.db.Name() + ".db"
	snapshotPath := filepath.Join(stagingDir, snapshotName)
	if err := s.db.VacuumInto(snapshotPath); err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}

	info, err := os.Stat(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to stat snapshot: %w", err)
	}
	checksum, err := checksumFile(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to checksum snapshot: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Database:  s.db.Name(),
		Filename:  snapshotName,
		SizeBytes: info.Size(),
		Checksum:  checksum,
	}
	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	backupsDir := filepath.Join(s.dataDir, "backups")
	if err := os.MkdirAll(backupsDir, 0755); err != nil {
		return fmt.Errorf("failed to create backups directory: %w", err)
	}

	archiveName := archivePrefix + time.Now().Format(archiveTimestamp) + ".tar.gz"
	archivePath := filepath.Join(backupsDir, archiveName)
	if err := createArchive(archivePath, []string{snapshotPath, metadataPath}); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	if s.client != nil {
		archiveFile, err := os.Open(archivePath)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer archiveFile.Close()

		if err := s.client.Upload(ctx, archiveName, archiveFile); err != nil {
			return err
		}
		if err := s.RotateOldBackups(ctx); err != nil {
			s.log.Error().Err(err).Msg("Backup rotation failed")
		}
	}
	s.rotateLocal(backupsDir)

	duration := time.Since(startTime)
	if s.eventManager != nil {
		s.eventManager.EmitTyped("reliability", &events.BackupCompletedData{
			Key:       archiveName,
			SizeBytes: archiveInfo.Size(),
			Duration:  duration.Round(time.Millisecond).String(),
		})
	}

	s.log.Info().
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Dur("duration_ms", duration).
		Bool("uploaded", s.client != nil).
		Msg("Backup completed")
	return nil
}

// ListBackups lists the archives stored offsite, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	if s.client == nil {
		return nil, fmt.Errorf("no object store configured")
	}

	objects, err := s.client.List(ctx, archivePrefix)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		timestamp, ok := parseArchiveTimestamp(*obj.Key)
		if !ok {
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}
		backups = append(backups, BackupInfo{
			Filename:  *obj.Key,
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes offsite archives beyond the retention count,
// always keeping the newest few.
func (s *BackupService) RotateOldBackups(ctx context.Context) error {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}

	keep := s.retentionCount
	if keep < minBackupsToKeep {
		keep = minBackupsToKeep
	}
	if len(backups) <= keep {
		return nil
	}

	deleted := 0
	for _, backup := range backups[keep:] {
		if err := s.client.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return nil
}

// rotateLocal applies the same retention policy to the local archive copies.
func (s *BackupService) rotateLocal(backupsDir string) {
	entries, err := os.ReadDir(backupsDir)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read local backups directory")
		return
	}

	var names []string
	for _, entry := range entries {
		if _, ok := parseArchiveTimestamp(entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	keep := s.retentionCount
	if keep < minBackupsToKeep {
		keep = minBackupsToKeep
	}
	for _, name := range names[min(keep, len(names)):] {
		if err := os.Remove(filepath.Join(backupsDir, name)); err != nil {
			s.log.Error().Err(err).Str("filename", name).Msg("Failed to delete local backup")
		}
	}
}

func parseArchiveTimestamp(filename string) (time.Time, bool) {
	if !strings.HasPrefix(filename, archivePrefix) || !strings.HasSuffix(filename, ".tar.gz") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(filename, archivePrefix), ".tar.gz")
	timestamp, err := time.Parse(archiveTimestamp, raw)
	if err != nil {
		return time.Time{}, false
	}
	return timestamp, true
}

func checksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func createArchive(archivePath string, files []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, path := range files {
		if err := addFileToArchive(tarWriter, path); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func addFileToArchive(tarWriter *tar.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    filepath.Base(path),
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, file)
	return err
}
