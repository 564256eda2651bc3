package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"mediavault/media-api/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Restorer reconstructs a decoded backup inside the current database. The
// target may be the source database, a fresh one, or one already holding
// overlapping rows, so nothing is inserted before its foreign keys are
// resolved through the per-restore ID maps.
type Restorer struct {
	DB    *gorm.DB
	Store BlobStore
}

// Summary reports how much of the manifest actually made it into the
// database. RestoredFiles < TotalFiles means rows were skipped, not lost
// silently.
type Summary struct {
	TotalFiles        int `json:"total_files"`
	RestoredFiles     int `json:"restored_files"`
	ReattributedFiles int `json:"reattributed_files"`

	RestoredUsers      int `json:"restored_users"`
	RestoredGroups     int `json:"restored_groups"`
	RestoredCategories int `json:"restored_categories"`
	RestoredTags       int `json:"restored_tags"`
	RestoredMembers    int `json:"restored_members"`
	RestoredLinks      int `json:"restored_links"`
}

// idMaps translate manifest-recorded IDs into target-database IDs. They are
// built incrementally in dependency order and live only for one restore.
type idMaps struct {
	users  map[string]string
	groups map[string]string
	files  map[string]string
}

// Restore runs the dependency-ordered restore inside a single transaction:
// users, groups, memberships, categories, tags, files, file-group links.
// Per-row problems are logged and skipped; the access check, a canceled or
// timed-out context, and the final commit fail the whole operation and roll
// everything back.
func (r *Restorer) Restore(ctx context.Context, m *Manifest, workDir string, requester *model.User) (*Summary, error) {
	if m.BackupType == ScopeFull && !requester.IsAdmin {
		return nil, ErrNotAdmin
	}

	sum := &Summary{TotalFiles: len(m.Files)}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		maps := &idMaps{
			users:  map[string]string{},
			groups: map[string]string{},
			files:  map[string]string{},
		}

		if m.BackupType == ScopeFull {
			// Every user already present maps to itself
			var existing []string
			if err := tx.Model(&model.User{}).Pluck("id", &existing).Error; err != nil {
				return fmt.Errorf("failed to list existing users, %w", err)
			}
			for _, id := range existing {
				maps.users[id] = id
			}

			sum.RestoredUsers = restoreUsers(tx, m.Users, maps)
		} else {
			// A user-scope backup resolves exactly one owner: whoever runs
			// the restore. No other account may gain rows from it, even when
			// the archive names IDs that exist in this database.
			maps.users[m.UserID] = requester.ID
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		sum.RestoredGroups = restoreGroups(tx, m, maps)

		if m.BackupType == ScopeFull {
			sum.RestoredMembers = restoreMembers(tx, m.GroupMembers, maps)
		}

		sum.RestoredCategories = restoreCategories(tx, m.Categories)
		sum.RestoredTags = restoreTags(tx, m.Tags)

		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		sum.RestoredFiles, sum.ReattributedFiles, err = r.restoreFiles(ctx, tx, m, workDir, maps)
		if err != nil {
			return err
		}

		sum.RestoredLinks = restoreLinks(tx, m.FileGroupLinks, maps)

		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	return sum, nil
}

// restoreUsers inserts manifest users that don't exist yet and maps every
// manifest user ID to its row in the target database. Identity is matched
// by email or username first so two installations can't collide on IDs.
func restoreUsers(tx *gorm.DB, users []UserRecord, maps *idMaps) int {
	restored := 0

	for _, rec := range users {
		var existing model.User

		err := tx.Where("email = ? OR username = ?", rec.Email, rec.Username).First(&existing).Error
		if err == nil {
			maps.users[rec.ID] = existing.ID
			continue
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("Failed to look up user, skipping",
				zap.String("backup_user_id", rec.ID),
				zap.Error(err))
			continue
		}

		// Insert using the backup's original ID to keep the remapping
		// surface small
		u := model.User{
			ID:           rec.ID,
			Username:     rec.Username,
			Email:        rec.Email,
			PasswordHash: rec.PasswordHash,
			IsActive:     rec.IsActive,
			IsAdmin:      rec.IsAdmin,
			CreatedAt:    parseTime(rec.CreatedAt),
			UpdatedAt:    parseTime(rec.UpdatedAt),
		}

		if err := tx.Create(&u).Error; err != nil {
			zap.L().Warn("Failed to restore user, skipping",
				zap.String("backup_user_id", rec.ID),
				zap.Error(err))
			continue
		}

		maps.users[rec.ID] = u.ID
		restored++
	}

	return restored
}

func restoreGroups(tx *gorm.DB, m *Manifest, maps *idMaps) int {
	restored := 0

	for _, rec := range m.Groups {
		var existing model.Group

		err := tx.Where("id = ?", rec.ID).First(&existing).Error
		if err == nil {
			maps.groups[rec.ID] = existing.ID
			continue
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("Failed to look up group, skipping",
				zap.String("backup_group_id", rec.ID),
				zap.Error(err))
			continue
		}

		creatorID, ok := maps.users[rec.CreatorID]
		if !ok {
			// Only full-scope restores may widen the map from the table; a
			// user-scope archive resolves no identity beyond its owner
			if m.BackupType != ScopeFull {
				zap.L().Warn("Group creator unresolved, skipping group",
					zap.String("backup_group_id", rec.ID),
					zap.String("creator_id", rec.CreatorID))
				continue
			}

			var n int64
			if err := tx.Model(&model.User{}).Where("id = ?", rec.CreatorID).Count(&n).Error; err != nil || n == 0 {
				zap.L().Warn("Group creator unresolved, skipping group",
					zap.String("backup_group_id", rec.ID),
					zap.String("creator_id", rec.CreatorID),
					zap.Error(err))
				continue
			}

			maps.users[rec.CreatorID] = rec.CreatorID
			creatorID = rec.CreatorID
		}

		g := model.Group{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			CreatorID:   creatorID,
			CreatedAt:   parseTime(rec.CreatedAt),
			UpdatedAt:   parseTime(rec.UpdatedAt),
		}

		if err := tx.Create(&g).Error; err != nil {
			zap.L().Warn("Failed to restore group, skipping",
				zap.String("backup_group_id", rec.ID),
				zap.Error(err))
			continue
		}

		maps.groups[rec.ID] = g.ID
		restored++
	}

	return restored
}

func restoreMembers(tx *gorm.DB, members []GroupMemberRecord, maps *idMaps) int {
	restored := 0

	for _, rec := range members {
		userID, okU := maps.users[rec.UserID]
		groupID, okG := maps.groups[rec.GroupID]

		if !okU || !okG {
			zap.L().Warn("Membership endpoint unresolved, skipping",
				zap.String("backup_user_id", rec.UserID),
				zap.String("backup_group_id", rec.GroupID))
			continue
		}

		var userCount, groupCount int64
		errU := tx.Model(&model.User{}).Where("id = ?", userID).Count(&userCount).Error
		errG := tx.Model(&model.Group{}).Where("id = ?", groupID).Count(&groupCount).Error
		if errU != nil || errG != nil || userCount == 0 || groupCount == 0 {
			zap.L().Warn("Membership endpoint missing from database, skipping",
				zap.String("user_id", userID),
				zap.String("group_id", groupID),
				zap.Error(errors.Join(errU, errG)))
			continue
		}

		// Duplicate membership is a no-op, not an error
		var n int64
		err := tx.Model(&model.GroupMember{}).
			Where("user_id = ? AND group_id = ?", userID, groupID).
			Count(&n).
			Error
		if err != nil {
			zap.L().Warn("Failed to check for existing membership, skipping",
				zap.String("user_id", userID),
				zap.String("group_id", groupID),
				zap.Error(err))
			continue
		}
		if n > 0 {
			continue
		}

		mem := model.GroupMember{
			UserID:     userID,
			GroupID:    groupID,
			Role:       rec.Role,
			InvitedBy:  rec.InvitedBy,
			InvitedAt:  parseTime(rec.InvitedAt),
			AcceptedAt: parseTimePtr(rec.AcceptedAt),
			RevokedAt:  parseTimePtr(rec.RevokedAt),
		}

		if err := tx.Create(&mem).Error; err != nil {
			zap.L().Warn("Failed to restore membership, skipping",
				zap.String("user_id", userID),
				zap.String("group_id", groupID),
				zap.Error(err))
			continue
		}

		restored++
	}

	return restored
}

func restoreCategories(tx *gorm.DB, categories []CategoryRecord) int {
	restored := 0

	for _, rec := range categories {
		var n int64
		err := tx.Model(&model.Category{}).
			Where("id = ? OR name = ?", rec.ID, rec.Name).
			Count(&n).
			Error
		if err != nil {
			zap.L().Warn("Failed to check for existing category, skipping",
				zap.String("backup_category_id", rec.ID),
				zap.Error(err))
			continue
		}
		if n > 0 {
			continue
		}

		c := model.Category{
			ID:          rec.ID,
			Name:        rec.Name,
			Slug:        rec.Slug,
			Description: rec.Description,
			CreatedAt:   parseTime(rec.CreatedAt),
		}

		if err := tx.Create(&c).Error; err != nil {
			zap.L().Warn("Failed to restore category, skipping",
				zap.String("backup_category_id", rec.ID),
				zap.Error(err))
			continue
		}

		restored++
	}

	return restored
}

func restoreTags(tx *gorm.DB, tags []TagRecord) int {
	restored := 0

	for _, rec := range tags {
		var n int64
		err := tx.Model(&model.Tag{}).
			Where("id = ? OR name = ?", rec.ID, rec.Name).
			Count(&n).
			Error
		if err != nil {
			zap.L().Warn("Failed to check for existing tag, skipping",
				zap.String("backup_tag_id", rec.ID),
				zap.Error(err))
			continue
		}
		if n > 0 {
			continue
		}

		t := model.Tag{
			ID:        rec.ID,
			Name:      rec.Name,
			Slug:      rec.Slug,
			CreatedAt: parseTime(rec.CreatedAt),
			UpdatedAt: parseTime(rec.UpdatedAt),
		}

		if err := tx.Create(&t).Error; err != nil {
			zap.L().Warn("Failed to restore tag, skipping",
				zap.String("backup_tag_id", rec.ID),
				zap.Error(err))
			continue
		}

		restored++
	}

	return restored
}

func (r *Restorer) restoreFiles(ctx context.Context, tx *gorm.DB, m *Manifest, workDir string, maps *idMaps) (restored, reattributed int, err error) {
	for i := range m.Files {
		// A canceled or timed-out job must roll back instead of committing
		// whatever subset happened to finish
		if err := ctx.Err(); err != nil {
			return restored, reattributed, err
		}

		rec := &m.Files[i]

		var n int64
		if err := tx.Model(&model.File{}).Where("id = ?", rec.ID).Count(&n).Error; err != nil {
			zap.L().Warn("Failed to check for existing file, skipping",
				zap.String("backup_file_id", rec.ID),
				zap.Error(err))
			continue
		}
		if n > 0 {
			maps.files[rec.ID] = rec.ID
			continue
		}

		// A user-scope archive may only restore files it recorded for its
		// own owner; records naming any other account are dropped
		if m.BackupType == ScopeUser && rec.OwnerID != m.UserID {
			zap.L().Warn("File owner is not the backup owner, skipping file",
				zap.String("backup_file_id", rec.ID),
				zap.String("owner_id", rec.OwnerID),
				zap.String("backup_owner_id", m.UserID))
			continue
		}

		ownerID, ok := maps.users[rec.OwnerID]
		if !ok {
			zap.L().Warn("File owner unresolved, skipping file",
				zap.String("backup_file_id", rec.ID),
				zap.String("owner_id", rec.OwnerID),
				zap.String("owner_username", rec.OwnerUsername))
			continue
		}

		if r.restoreSingleFile(ctx, tx, rec, workDir, ownerID) {
			maps.files[rec.ID] = rec.ID
			restored++

			if ownerID != rec.OwnerID {
				reattributed++
			}
		}
	}

	return restored, reattributed, nil
}

// restoreSingleFile uploads the file's blobs back to their recorded S3 keys
// and stages the row. The row is only created when the primary blob made it;
// thumbnail, preview and rendition failures just null the matching field.
func (r *Restorer) restoreSingleFile(ctx context.Context, tx *gorm.DB, rec *FileRecord, workDir, ownerID string) bool {
	primary := findLocalBlob(workDir,
		filepath.Join("files", fmt.Sprintf("%s_%s", rec.ID, rec.OriginalName)),
		rec.OriginalName, // bare-filename fallback for legacy archives
	)
	if primary == "" {
		zap.L().Warn("Primary blob missing from archive, skipping file",
			zap.String("backup_file_id", rec.ID),
			zap.String("original_name", rec.OriginalName))
		return false
	}

	if err := r.Store.UploadFile(ctx, primary, rec.FilePath, rec.MimeType); err != nil {
		zap.L().Warn("Failed to upload primary blob, skipping file",
			zap.String("backup_file_id", rec.ID),
			zap.Error(err))
		return false
	}

	thumbKey := ""
	if rec.ThumbnailPath != "" {
		p := findLocalBlob(workDir, filepath.Join("thumbnails", rec.ID+"_thumbnail.jpg"))
		if p != "" {
			if err := r.Store.UploadFile(ctx, p, rec.ThumbnailPath, "image/jpeg"); err == nil {
				thumbKey = rec.ThumbnailPath
			} else {
				zap.L().Warn("Failed to upload thumbnail",
					zap.String("backup_file_id", rec.ID),
					zap.Error(err))
			}
		}
	}

	previewKey := ""
	if rec.PreviewPath != "" {
		p := findLocalBlob(workDir, filepath.Join("previews", rec.ID+"_preview.jpg"))
		if p != "" {
			if err := r.Store.UploadFile(ctx, p, rec.PreviewPath, "image/jpeg"); err == nil {
				previewKey = rec.PreviewPath
			} else {
				zap.L().Warn("Failed to upload preview",
					zap.String("backup_file_id", rec.ID),
					zap.Error(err))
			}
		}
	}

	hlsKey := r.restoreRendition(ctx, rec, workDir, "hls", rec.HLSManifestPath, "master.m3u8")
	dashKey := r.restoreRendition(ctx, rec, workDir, "dash", rec.DashManifestPath, "manifest.mpd")

	status := rec.TranscodingStatus
	if status == "" {
		status = model.TranscodingNotStarted
	}

	categoryID := rec.CategoryID
	if categoryID != "" {
		var n int64
		err := tx.Model(&model.Category{}).Where("id = ?", categoryID).Count(&n).Error
		if err != nil {
			zap.L().Warn("Failed to check category, clearing it",
				zap.String("backup_file_id", rec.ID),
				zap.String("category_id", categoryID),
				zap.Error(err))
		}
		if err != nil || n == 0 {
			categoryID = ""
		}
	}

	f := model.File{
		ID:                rec.ID,
		OriginalName:      rec.OriginalName,
		MimeType:          rec.MimeType,
		FileKey:           rec.FilePath,
		ThumbnailKey:      thumbKey,
		PreviewKey:        previewKey,
		Size:              rec.Size,
		Description:       rec.Description,
		Tags:              model.StringSlice(rec.Tags),
		TranscodingStatus: status,
		HLSManifestKey:    hlsKey,
		DashManifestKey:   dashKey,
		Duration:          rec.Duration,
		OwnerID:           ownerID,
		CategoryID:        categoryID,
		CreatedAt:         parseTime(rec.CreatedAt),
		UpdatedAt:         parseTime(rec.UpdatedAt),
	}

	if err := tx.Create(&f).Error; err != nil {
		zap.L().Warn("Failed to stage file row, skipping",
			zap.String("backup_file_id", rec.ID),
			zap.Error(err))
		return false
	}

	return true
}

// restoreRendition re-uploads an extracted transcoded/<id>/<kind>/ tree to
// the rendition prefix recorded in the manifest and returns the restored
// manifest key, or "" when there was nothing to restore. Rendition failures
// never block restoring the base file.
func (r *Restorer) restoreRendition(ctx context.Context, rec *FileRecord, workDir, kind, recordedManifest, manifestName string) string {
	src := filepath.Join(workDir, "transcoded", rec.ID, kind)
	if _, err := os.Stat(src); err != nil {
		return ""
	}

	prefix := fmt.Sprintf("transcoded/%s/%s", rec.ID, kind)
	if recordedManifest != "" {
		if dir := path.Dir(recordedManifest); dir != "." && dir != "/" {
			prefix = dir
		}
	}

	uploaded := false

	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}

		key := prefix + "/" + filepath.ToSlash(rel)
		if err := r.Store.UploadFile(ctx, p, key, ""); err != nil {
			return err
		}

		uploaded = true
		return nil
	})
	if err != nil {
		zap.L().Warn("Failed to restore rendition",
			zap.String("backup_file_id", rec.ID),
			zap.String("kind", kind),
			zap.Error(err))
		return ""
	}

	if !uploaded {
		return ""
	}

	return prefix + "/" + manifestName
}

func restoreLinks(tx *gorm.DB, links []FileGroupLinkRecord, maps *idMaps) int {
	restored := 0

	for _, rec := range links {
		fileID, okF := maps.files[rec.FileID]
		groupID, okG := maps.groups[rec.GroupID]

		if !okF || !okG {
			zap.L().Warn("Link endpoint unresolved, skipping",
				zap.String("backup_file_id", rec.FileID),
				zap.String("backup_group_id", rec.GroupID))
			continue
		}

		var fileCount, groupCount int64
		errF := tx.Model(&model.File{}).Where("id = ?", fileID).Count(&fileCount).Error
		errG := tx.Model(&model.Group{}).Where("id = ?", groupID).Count(&groupCount).Error
		if errF != nil || errG != nil || fileCount == 0 || groupCount == 0 {
			zap.L().Warn("Link endpoint missing from database, skipping",
				zap.String("file_id", fileID),
				zap.String("group_id", groupID),
				zap.Error(errors.Join(errF, errG)))
			continue
		}

		var n int64
		err := tx.Model(&model.FileGroup{}).
			Where("file_id = ? AND group_id = ?", fileID, groupID).
			Count(&n).
			Error
		if err != nil {
			zap.L().Warn("Failed to check for existing link, skipping",
				zap.String("file_id", fileID),
				zap.String("group_id", groupID),
				zap.Error(err))
			continue
		}
		if n > 0 {
			continue
		}

		if err := tx.Create(&model.FileGroup{FileID: fileID, GroupID: groupID}).Error; err != nil {
			zap.L().Warn("Failed to restore link, skipping",
				zap.String("file_id", fileID),
				zap.String("group_id", groupID),
				zap.Error(err))
			continue
		}

		restored++
	}

	return restored
}

// findLocalBlob tries a set of conventional relative paths inside the
// working directory and returns the first that exists
func findLocalBlob(workDir string, candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}

		p := filepath.Join(workDir, c)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
