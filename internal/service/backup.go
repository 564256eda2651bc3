package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediavault/media-api/internal/backup"
	"mediavault/media-api/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BackupRunner glues the snapshot builder, the archive codec and the
// restore engine into queue jobs
type BackupRunner struct {
	DB    *gorm.DB
	Store backup.BlobStore
	Jobs  *JobQueue
}

// BackupResult is what a completed backup job resolves to: the S3 key of
// the finished container. The caller downloads it through a separate
// request instead of holding the job open.
type BackupResult struct {
	Key string `json:"s3_key"`
}

func NewBackupRunner(db *gorm.DB, store backup.BlobStore, jobs *JobQueue) *BackupRunner {
	return &BackupRunner{DB: db, Store: store, Jobs: jobs}
}

// SubmitBackup queues a backup job for the given scope. The admin gate for
// full backups runs here, before anything is queued or read.
func (r *BackupRunner) SubmitBackup(user *model.User, scope string) (string, error) {
	if scope == backup.ScopeFull && !user.IsAdmin {
		return "", backup.ErrNotAdmin
	}

	return r.Jobs.Submit("backup", func(ctx context.Context) (any, error) {
		return r.runBackup(ctx, user, scope)
	})
}

func (r *BackupRunner) runBackup(ctx context.Context, user *model.User, scope string) (any, error) {
	snap, err := backup.BuildSnapshot(r.DB, user, scope)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "backup-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp container, %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := backup.Encode(ctx, snap, r.Store, tmp); err != nil {
		return nil, err
	}

	key := containerKey(scope, user.Username)

	if err := r.Store.UploadFile(ctx, tmp.Name(), key, "application/zip"); err != nil {
		return nil, fmt.Errorf("failed to store container, %w", err)
	}

	zap.L().Info("Backup container stored",
		zap.String("key", key),
		zap.String("scope", scope),
		zap.Int("files", len(snap.Files)))

	return &BackupResult{Key: key}, nil
}

// SubmitRestore queues a restore of the container at s3Key. deleteAfter
// marks containers this process uploaded itself (restore-by-upload), which
// are removed once the job ends.
func (r *BackupRunner) SubmitRestore(user *model.User, s3Key string, deleteAfter bool) (string, error) {
	return r.Jobs.Submit("restore", func(ctx context.Context) (any, error) {
		return r.runRestore(ctx, user, s3Key, deleteAfter)
	})
}

func (r *BackupRunner) runRestore(ctx context.Context, user *model.User, s3Key string, deleteAfter bool) (any, error) {
	if deleteAfter {
		defer func() {
			if err := r.Store.Delete(context.Background(), s3Key); err != nil {
				zap.L().Warn("Failed to delete uploaded container",
					zap.String("key", s3Key),
					zap.Error(err))
			}
		}()
	}

	// The working directory is private to this invocation and always
	// removed, success or not
	workDir, err := os.MkdirTemp("", "restore-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory, %w", err)
	}
	defer os.RemoveAll(workDir)

	containerPath := filepath.Join(workDir, "container.zip")
	if err := r.Store.DownloadFile(ctx, s3Key, containerPath); err != nil {
		return nil, fmt.Errorf("failed to download container %q, %w", s3Key, err)
	}

	manifest, err := backup.Decode(containerPath, workDir)
	if err != nil {
		return nil, err
	}

	restorer := &backup.Restorer{DB: r.DB, Store: r.Store}

	summary, err := restorer.Restore(ctx, manifest, workDir, user)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Restore finished",
		zap.String("key", s3Key),
		zap.Int("restored_files", summary.RestoredFiles),
		zap.Int("total_files", summary.TotalFiles))

	return summary, nil
}

func containerKey(scope, username string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")

	if scope == backup.ScopeFull {
		return fmt.Sprintf("backups/full_backup_all_users_%s.zip", timestamp)
	}

	return fmt.Sprintf("backups/backup_%s_%s.zip", username, timestamp)
}
