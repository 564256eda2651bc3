// Package backup implements snapshotting a user's (or the whole system's)
// entity graph plus its S3 blobs into a single ZIP container, and restoring
// such a container into a possibly different database instance.
package backup

import (
	"time"

	"mediavault/media-api/internal/model"
)

// Backup scopes. Full snapshots cover every user and are admin-only.
const (
	ScopeUser = "user"
	ScopeFull = "full"
)

// MetadataEntry is the name of the manifest entry inside the container.
// It's always written first so a reader can validate the archive before
// touching any blobs.
const MetadataEntry = "backup_metadata.json"

// TimeFormat is how timestamps are flattened in the manifest
const TimeFormat = time.RFC3339

// Manifest is the self-describing document stored at the top of every
// container. All IDs are canonical strings and all timestamps ISO-8601 so
// the document stays stable across schema changes.
type Manifest struct {
	BackupType string `json:"backup_type"`
	BackupDate string `json:"backup_date"`

	// Set for user-scope backups only
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`

	Users          []UserRecord          `json:"users,omitempty"`
	Files          []FileRecord          `json:"files"`
	Tags           []TagRecord           `json:"tags"`
	Categories     []CategoryRecord      `json:"categories"`
	Groups         []GroupRecord         `json:"groups"`
	GroupMembers   []GroupMemberRecord   `json:"group_members,omitempty"`
	FileGroupLinks []FileGroupLinkRecord `json:"file_group_links"`
}

type UserRecord struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password"`
	IsActive     bool   `json:"is_active"`
	IsAdmin      bool   `json:"is_admin"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type FileRecord struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	FilePath     string `json:"file_path"`
	Size         int64  `json:"size"`

	ThumbnailPath string   `json:"thumbnail_path,omitempty"`
	PreviewPath   string   `json:"preview_path,omitempty"`
	Description   string   `json:"description,omitempty"`
	Tags          []string `json:"tags"`
	CategoryID    string   `json:"category_id,omitempty"`

	OwnerID string `json:"owner_id"`
	// Denormalized on purpose: lets a restore cross-reference identities
	// when the target database has different primary keys than the source
	OwnerUsername string `json:"owner_username"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`

	TranscodingStatus string   `json:"transcoding_status,omitempty"`
	Duration          *float64 `json:"duration,omitempty"`
	HLSManifestPath   string   `json:"hls_manifest_path,omitempty"`
	DashManifestPath  string   `json:"dash_manifest_path,omitempty"`
}

type TagRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type CategoryRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type GroupRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatorID   string `json:"creator_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type GroupMemberRecord struct {
	UserID     string `json:"user_id"`
	GroupID    string `json:"group_id"`
	Role       string `json:"role"`
	InvitedBy  string `json:"invited_by,omitempty"`
	InvitedAt  string `json:"invited_at"`
	AcceptedAt string `json:"accepted_at,omitempty"`
	RevokedAt  string `json:"revoked_at,omitempty"`
}

type FileGroupLinkRecord struct {
	FileID  string `json:"file_id"`
	GroupID string `json:"group_id"`
}

func userRecord(u *model.User) UserRecord {
	return UserRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt.Format(TimeFormat),
		UpdatedAt:    u.UpdatedAt.Format(TimeFormat),
	}
}

func fileRecord(f *model.File, ownerUsername string) FileRecord {
	return FileRecord{
		ID:                f.ID,
		OriginalName:      f.OriginalName,
		MimeType:          f.MimeType,
		FilePath:          f.FileKey,
		Size:              f.Size,
		ThumbnailPath:     f.ThumbnailKey,
		PreviewPath:       f.PreviewKey,
		Description:       f.Description,
		Tags:              append([]string{}, f.Tags...),
		CategoryID:        f.CategoryID,
		OwnerID:           f.OwnerID,
		OwnerUsername:     ownerUsername,
		CreatedAt:         f.CreatedAt.Format(TimeFormat),
		UpdatedAt:         f.UpdatedAt.Format(TimeFormat),
		TranscodingStatus: f.TranscodingStatus,
		Duration:          f.Duration,
		HLSManifestPath:   f.HLSManifestKey,
		DashManifestPath:  f.DashManifestKey,
	}
}

func tagRecord(t *model.Tag) TagRecord {
	return TagRecord{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		CreatedAt: t.CreatedAt.Format(TimeFormat),
		UpdatedAt: t.UpdatedAt.Format(TimeFormat),
	}
}

func categoryRecord(c *model.Category) CategoryRecord {
	return CategoryRecord{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.Format(TimeFormat),
	}
}

func groupRecord(g *model.Group) GroupRecord {
	return GroupRecord{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatorID:   g.CreatorID,
		CreatedAt:   g.CreatedAt.Format(TimeFormat),
		UpdatedAt:   g.UpdatedAt.Format(TimeFormat),
	}
}

func memberRecord(m *model.GroupMember) GroupMemberRecord {
	rec := GroupMemberRecord{
		UserID:    m.UserID,
		GroupID:   m.GroupID,
		Role:      m.Role,
		InvitedBy: m.InvitedBy,
		InvitedAt: m.InvitedAt.Format(TimeFormat),
	}

	if m.AcceptedAt != nil {
		rec.AcceptedAt = m.AcceptedAt.Format(TimeFormat)
	}
	if m.RevokedAt != nil {
		rec.RevokedAt = m.RevokedAt.Format(TimeFormat)
	}

	return rec
}

// parseTime converts a manifest timestamp back. A zero time is returned for
// anything unparseable so gorm falls back to filling the column itself.
func parseTime(s string) time.Time {
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}
	}

	return t
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}

	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return nil
	}

	return &t
}
