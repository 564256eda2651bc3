package backup

import (
	"fmt"
	"time"

	"mediavault/media-api/internal/model"

	"gorm.io/gorm"
)

// Snapshot is an in-memory manifest plus the file rows whose blobs the
// codec still has to pull from S3.
type Snapshot struct {
	Manifest *Manifest
	Files    []model.File
}

// BuildSnapshot reads the entity graph for the requested scope and flattens
// it into a manifest. Nothing is written anywhere; a snapshot that fails
// partway is simply discarded.
func BuildSnapshot(db *gorm.DB, requester *model.User, scope string) (*Snapshot, error) {
	switch scope {
	case ScopeUser:
		return buildUserSnapshot(db, requester)
	case ScopeFull:
		if !requester.IsAdmin {
			return nil, ErrNotAdmin
		}

		return buildFullSnapshot(db)
	default:
		return nil, fmt.Errorf("invalid backup scope %q", scope)
	}
}

func buildUserSnapshot(db *gorm.DB, requester *model.User) (*Snapshot, error) {
	var files []model.File

	err := db.Where("owner_id = ?", requester.ID).Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query files, %w", err)
	}

	fileIDs := make([]string, 0, len(files))
	tagIDs := []string{}
	categoryIDs := []string{}

	for _, f := range files {
		fileIDs = append(fileIDs, f.ID)
		tagIDs = append(tagIDs, f.Tags...)

		if f.CategoryID != "" {
			categoryIDs = append(categoryIDs, f.CategoryID)
		}
	}

	var tags []model.Tag
	if len(tagIDs) > 0 {
		if err := db.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
			return nil, fmt.Errorf("failed to query tags, %w", err)
		}
	}

	var categories []model.Category
	if len(categoryIDs) > 0 {
		if err := db.Where("id IN ?", categoryIDs).Find(&categories).Error; err != nil {
			return nil, fmt.Errorf("failed to query categories, %w", err)
		}
	}

	var groups []model.Group
	var links []model.FileGroup

	if len(fileIDs) > 0 {
		err = db.
			Joins("JOIN file_groups ON file_groups.group_id = groups.id").
			Where("file_groups.file_id IN ?", fileIDs).
			Distinct("groups.*").
			Find(&groups).
			Error
		if err != nil {
			return nil, fmt.Errorf("failed to query groups, %w", err)
		}

		if err := db.Where("file_id IN ?", fileIDs).Find(&links).Error; err != nil {
			return nil, fmt.Errorf("failed to query file group links, %w", err)
		}
	}

	m := &Manifest{
		BackupType:     ScopeUser,
		BackupDate:     time.Now().UTC().Format(TimeFormat),
		UserID:         requester.ID,
		Username:       requester.Username,
		Files:          make([]FileRecord, 0, len(files)),
		Tags:           make([]TagRecord, 0, len(tags)),
		Categories:     make([]CategoryRecord, 0, len(categories)),
		Groups:         make([]GroupRecord, 0, len(groups)),
		FileGroupLinks: make([]FileGroupLinkRecord, 0, len(links)),
	}

	for i := range files {
		m.Files = append(m.Files, fileRecord(&files[i], requester.Username))
	}
	for i := range tags {
		m.Tags = append(m.Tags, tagRecord(&tags[i]))
	}
	for i := range categories {
		m.Categories = append(m.Categories, categoryRecord(&categories[i]))
	}
	for i := range groups {
		m.Groups = append(m.Groups, groupRecord(&groups[i]))
	}
	for _, l := range links {
		m.FileGroupLinks = append(m.FileGroupLinks, FileGroupLinkRecord{FileID: l.FileID, GroupID: l.GroupID})
	}

	return &Snapshot{Manifest: m, Files: files}, nil
}

func buildFullSnapshot(db *gorm.DB) (*Snapshot, error) {
	var (
		users      []model.User
		files      []model.File
		tags       []model.Tag
		categories []model.Category
		groups     []model.Group
		members    []model.GroupMember
		links      []model.FileGroup
	)

	for _, q := range []struct {
		dst  any
		what string
	}{
		{&users, "users"},
		{&files, "files"},
		{&tags, "tags"},
		{&categories, "categories"},
		{&groups, "groups"},
		{&members, "group members"},
		{&links, "file group links"},
	} {
		if err := db.Find(q.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to query %s, %w", q.what, err)
		}
	}

	usernames := make(map[string]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	m := &Manifest{
		BackupType:     ScopeFull,
		BackupDate:     time.Now().UTC().Format(TimeFormat),
		Users:          make([]UserRecord, 0, len(users)),
		Files:          make([]FileRecord, 0, len(files)),
		Tags:           make([]TagRecord, 0, len(tags)),
		Categories:     make([]CategoryRecord, 0, len(categories)),
		Groups:         make([]GroupRecord, 0, len(groups)),
		GroupMembers:   make([]GroupMemberRecord, 0, len(members)),
		FileGroupLinks: make([]FileGroupLinkRecord, 0, len(links)),
	}

	for i := range users {
		m.Users = append(m.Users, userRecord(&users[i]))
	}

	for i := range files {
		owner := usernames[files[i].OwnerID]
		if owner == "" {
			owner = "unknown"
		}

		m.Files = append(m.Files, fileRecord(&files[i], owner))
	}

	for i := range tags {
		m.Tags = append(m.Tags, tagRecord(&tags[i]))
	}
	for i := range categories {
		m.Categories = append(m.Categories, categoryRecord(&categories[i]))
	}
	for i := range groups {
		m.Groups = append(m.Groups, groupRecord(&groups[i]))
	}
	for i := range members {
		m.GroupMembers = append(m.GroupMembers, memberRecord(&members[i]))
	}
	for _, l := range links {
		m.FileGroupLinks = append(m.FileGroupLinks, FileGroupLinkRecord{FileID: l.FileID, GroupID: l.GroupID})
	}

	return &Snapshot{Manifest: m, Files: files}, nil
}
