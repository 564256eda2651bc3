package service

import (
	"context"
	"strings"
	"time"

	"mediavault/media-api/internal/backup"

	"go.uber.org/zap"
)

// BackupSweep periodically deletes aged containers under backups/. A backup
// job that times out can leave a half-written container behind; this is the
// sweep that picks those up, along with old finished backups nobody
// downloaded.
func BackupSweep(t, maxAge time.Duration, store backup.BlobStore) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Backup sweep attached",
		zap.Duration("tick_every", t),
		zap.Duration("max_age", maxAge))

	go func() {
		for range ticker.C {
			keys, err := store.List(context.Background(), "backups/")
			if err != nil {
				zap.L().Error("Failed to list backup containers", zap.Error(err))
				continue
			}

			cutoff := time.Now().UTC().Add(-maxAge)

			for _, key := range keys {
				created, ok := containerTimestamp(key)
				if !ok || created.After(cutoff) {
					continue
				}

				if err := store.Delete(context.Background(), key); err != nil {
					zap.L().Error("Failed to delete aged container",
						zap.String("key", key),
						zap.Error(err))
					continue
				}

				zap.L().Debug("Deleted aged container", zap.String("key", key))
			}
		}
	}()
}

// containerTimestamp parses the trailing _YYYYMMDD_HHMMSS.zip part of a
// container key
func containerTimestamp(key string) (time.Time, bool) {
	name := strings.TrimSuffix(key, ".zip")
	if name == key {
		return time.Time{}, false
	}

	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return time.Time{}, false
	}

	stamp := parts[len(parts)-2] + "_" + parts[len(parts)-1]

	created, err := time.Parse("20060102_150405", stamp)
	if err != nil {
		return time.Time{}, false
	}

	return created, true
}
