package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediavault/media-api/internal/model"
)

func writeBlob(t *testing.T, workDir, rel string, body []byte) {
	t.Helper()

	p := filepath.Join(workDir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("failed to create blob directory: %v", err)
	}
	if err := os.WriteFile(p, body, 0o644); err != nil {
		t.Fatalf("failed to write blob: %v", err)
	}
}

func userManifest(ownerID string, files ...FileRecord) *Manifest {
	return &Manifest{
		BackupType: ScopeUser,
		BackupDate: "2026-01-02T03:04:05Z",
		UserID:     ownerID,
		Username:   "source-user",
		Files:      files,
	}
}

func TestRestoreUserScope(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	requester := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := db.Create(&requester).Error; err != nil {
		t.Fatalf("failed to seed requester: %v", err)
	}

	rec := FileRecord{
		ID:            "file-1",
		OriginalName:  "clip.mp4",
		MimeType:      "video/mp4",
		FilePath:      "uploads/file-1_clip.mp4",
		Size:          4,
		OwnerID:       "old-owner-id",
		OwnerUsername: "source-user",
		Tags:          []string{},
	}

	workDir := t.TempDir()
	writeBlob(t, workDir, filepath.Join("files", "file-1_clip.mp4"), []byte("blob"))

	r := &Restorer{DB: db, Store: store}

	sum, err := r.Restore(context.Background(), userManifest("old-owner-id", rec), workDir, &requester)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if sum.TotalFiles != 1 || sum.RestoredFiles != 1 {
		t.Fatalf("expected 1/1 files restored, got %d/%d", sum.RestoredFiles, sum.TotalFiles)
	}

	t.Run("reattributes foreign files to the requester", func(t *testing.T) {
		if sum.ReattributedFiles != 1 {
			t.Fatalf("expected 1 reattributed file, got %d", sum.ReattributedFiles)
		}

		var f model.File
		if err := db.Where("id = ?", "file-1").First(&f).Error; err != nil {
			t.Fatalf("restored file missing: %v", err)
		}
		if f.OwnerID != requester.ID {
			t.Fatalf("expected owner %q, got %q", requester.ID, f.OwnerID)
		}
	})

	t.Run("puts the blob back under its recorded key", func(t *testing.T) {
		if !store.has("uploads/file-1_clip.mp4") {
			t.Fatal("primary blob was not uploaded")
		}
	})

	t.Run("never creates accounts from a user-scope manifest", func(t *testing.T) {
		var n int64
		db.Model(&model.User{}).Count(&n)
		if n != 1 {
			t.Fatalf("expected 1 user, got %d", n)
		}
	})
}

func TestRestoreIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	requester := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := db.Create(&requester).Error; err != nil {
		t.Fatalf("failed to seed requester: %v", err)
	}

	rec := FileRecord{
		ID:           "file-1",
		OriginalName: "clip.mp4",
		MimeType:     "video/mp4",
		FilePath:     "uploads/file-1_clip.mp4",
		OwnerID:      requester.ID,
		Tags:         []string{},
	}

	workDir := t.TempDir()
	writeBlob(t, workDir, filepath.Join("files", "file-1_clip.mp4"), []byte("blob"))

	r := &Restorer{DB: db, Store: store}
	m := userManifest(requester.ID, rec)

	if _, err := r.Restore(context.Background(), m, workDir, &requester); err != nil {
		t.Fatalf("first restore failed: %v", err)
	}

	sum, err := r.Restore(context.Background(), m, workDir, &requester)
	if err != nil {
		t.Fatalf("second restore failed: %v", err)
	}

	if sum.RestoredFiles != 0 {
		t.Fatalf("second restore created %d files, expected 0", sum.RestoredFiles)
	}

	var n int64
	db.Model(&model.File{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected 1 file row after replay, got %d", n)
	}
}

func TestRestoreFullRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	requester := model.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	if err := db.Create(&requester).Error; err != nil {
		t.Fatalf("failed to seed requester: %v", err)
	}

	m := &Manifest{
		BackupType: ScopeFull,
		Users:      []UserRecord{{ID: "u1", Username: "eve", Email: "eve@example.com"}},
	}

	r := &Restorer{DB: db, Store: store}

	_, err := r.Restore(context.Background(), m, t.TempDir(), &requester)
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}

	var n int64
	db.Model(&model.User{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected no rows written, got %d users", n)
	}
}

func TestRestoreFullScope(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	admin := model.User{Username: "root", Email: "root@example.com", PasswordHash: "x", IsAdmin: true}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	m := &Manifest{
		BackupType: ScopeFull,
		Users: []UserRecord{
			{ID: "u1", Username: "eve", Email: "eve@example.com", PasswordHash: "h", IsActive: true},
		},
		Groups: []GroupRecord{
			{ID: "g1", Name: "team", CreatorID: "u1"},
			{ID: "g2", Name: "orphaned", CreatorID: "missing-user"},
		},
		GroupMembers: []GroupMemberRecord{
			{UserID: "u1", GroupID: "g1", Role: model.RoleAdmin, InvitedAt: "2026-01-02T03:04:05Z"},
		},
		Files: []FileRecord{
			{ID: "f1", OriginalName: "a.mp4", MimeType: "video/mp4", FilePath: "uploads/f1_a.mp4", OwnerID: "u1", Tags: []string{}},
		},
		FileGroupLinks: []FileGroupLinkRecord{
			{FileID: "f1", GroupID: "g1"},
			{FileID: "f1", GroupID: "g2"},
		},
	}

	workDir := t.TempDir()
	writeBlob(t, workDir, filepath.Join("files", "f1_a.mp4"), []byte("blob"))

	r := &Restorer{DB: db, Store: store}

	sum, err := r.Restore(context.Background(), m, workDir, &admin)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	t.Run("restores users with their original IDs", func(t *testing.T) {
		if sum.RestoredUsers != 1 {
			t.Fatalf("expected 1 restored user, got %d", sum.RestoredUsers)
		}

		var u model.User
		if err := db.Where("id = ?", "u1").First(&u).Error; err != nil {
			t.Fatalf("restored user missing: %v", err)
		}
	})

	t.Run("skips groups whose creator can't be resolved", func(t *testing.T) {
		if sum.RestoredGroups != 1 {
			t.Fatalf("expected 1 restored group, got %d", sum.RestoredGroups)
		}

		var n int64
		db.Model(&model.Group{}).Where("id = ?", "g2").Count(&n)
		if n != 0 {
			t.Fatal("orphaned group was restored")
		}
	})

	t.Run("restores memberships and links behind resolved endpoints", func(t *testing.T) {
		if sum.RestoredMembers != 1 {
			t.Fatalf("expected 1 restored member, got %d", sum.RestoredMembers)
		}

		// The g2 link must be dropped with its group
		if sum.RestoredLinks != 1 {
			t.Fatalf("expected 1 restored link, got %d", sum.RestoredLinks)
		}

		var n int64
		db.Model(&model.FileGroup{}).Count(&n)
		if n != 1 {
			t.Fatalf("expected 1 link row, got %d", n)
		}
	})

	t.Run("keeps files attributed to their original owners", func(t *testing.T) {
		if sum.ReattributedFiles != 0 {
			t.Fatalf("expected 0 reattributed files, got %d", sum.ReattributedFiles)
		}

		var f model.File
		if err := db.Where("id = ?", "f1").First(&f).Error; err != nil {
			t.Fatalf("restored file missing: %v", err)
		}
		if f.OwnerID != "u1" {
			t.Fatalf("expected owner u1, got %q", f.OwnerID)
		}
	})
}

func TestRestoreSkipsFilesWithMissingBlobs(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	requester := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := db.Create(&requester).Error; err != nil {
		t.Fatalf("failed to seed requester: %v", err)
	}

	recs := []FileRecord{
		{ID: "f1", OriginalName: "a.mp4", MimeType: "video/mp4", FilePath: "uploads/f1_a.mp4", OwnerID: requester.ID, Tags: []string{}},
		{ID: "f2", OriginalName: "b.mp4", MimeType: "video/mp4", FilePath: "uploads/f2_b.mp4", OwnerID: requester.ID, Tags: []string{}},
	}

	workDir := t.TempDir()
	writeBlob(t, workDir, filepath.Join("files", "f1_a.mp4"), []byte("blob"))
	// f2's blob is deliberately absent

	r := &Restorer{DB: db, Store: store}

	sum, err := r.Restore(context.Background(), userManifest(requester.ID, recs...), workDir, &requester)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if sum.TotalFiles != 2 || sum.RestoredFiles != 1 {
		t.Fatalf("expected 1/2 files restored, got %d/%d", sum.RestoredFiles, sum.TotalFiles)
	}

	var n int64
	db.Model(&model.File{}).Where("id = ?", "f2").Count(&n)
	if n != 0 {
		t.Fatal("file with missing blob was staged anyway")
	}
}

func TestRestoreClearsDanglingCategory(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	requester := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := db.Create(&requester).Error; err != nil {
		t.Fatalf("failed to seed requester: %v", err)
	}

	rec := FileRecord{
		ID:           "f1",
		OriginalName: "a.mp4",
		MimeType:     "video/mp4",
		FilePath:     "uploads/f1_a.mp4",
		OwnerID:      requester.ID,
		CategoryID:   "no-such-category",
		Tags:         []string{},
	}

	workDir := t.TempDir()
	writeBlob(t, workDir, filepath.Join("files", "f1_a.mp4"), []byte("blob"))

	r := &Restorer{DB: db, Store: store}

	if _, err := r.Restore(context.Background(), userManifest(requester.ID, rec), workDir, &requester); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	var f model.File
	if err := db.Where("id = ?", "f1").First(&f).Error; err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if f.CategoryID != "" {
		t.Fatalf("expected dangling category cleared, got %q", f.CategoryID)
	}
}

func TestRestoreUserScopeNeverWritesToOtherAccounts(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	alice := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	victim := model.User{Username: "victim", Email: "victim@example.com", PasswordHash: "x"}
	for _, u := range []*model.User{&alice, &victim} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
	}

	r := &Restorer{DB: db, Store: store}

	t.Run("drops records naming a different owner than the backup's", func(t *testing.T) {
		rec := FileRecord{
			ID:           "foreign-file",
			OriginalName: "clip.mp4",
			MimeType:     "video/mp4",
			FilePath:     "uploads/foreign-file_clip.mp4",
			OwnerID:      victim.ID, // crafted to point at another account
			Tags:         []string{},
		}

		workDir := t.TempDir()
		writeBlob(t, workDir, filepath.Join("files", "foreign-file_clip.mp4"), []byte("blob"))

		sum, err := r.Restore(context.Background(), userManifest("source-owner-id", rec), workDir, &alice)
		if err != nil {
			t.Fatalf("restore failed: %v", err)
		}

		if sum.RestoredFiles != 0 {
			t.Fatalf("expected the foreign-owner record dropped, restored %d", sum.RestoredFiles)
		}

		var n int64
		db.Model(&model.File{}).Count(&n)
		if n != 0 {
			t.Fatal("foreign-owner record produced a file row")
		}
	})

	t.Run("archives recorded for another account land on the requester", func(t *testing.T) {
		rec := FileRecord{
			ID:           "victim-file",
			OriginalName: "clip.mp4",
			MimeType:     "video/mp4",
			FilePath:     "uploads/victim-file_clip.mp4",
			OwnerID:      victim.ID,
			Tags:         []string{},
		}

		workDir := t.TempDir()
		writeBlob(t, workDir, filepath.Join("files", "victim-file_clip.mp4"), []byte("blob"))

		// The manifest itself claims the victim as its owner
		sum, err := r.Restore(context.Background(), userManifest(victim.ID, rec), workDir, &alice)
		if err != nil {
			t.Fatalf("restore failed: %v", err)
		}

		if sum.RestoredFiles != 1 || sum.ReattributedFiles != 1 {
			t.Fatalf("expected 1 reattributed file, got %d restored / %d reattributed",
				sum.RestoredFiles, sum.ReattributedFiles)
		}

		var f model.File
		if err := db.Where("id = ?", "victim-file").First(&f).Error; err != nil {
			t.Fatalf("restored file missing: %v", err)
		}
		if f.OwnerID != alice.ID {
			t.Fatalf("expected the requester as owner, got %q", f.OwnerID)
		}

		var n int64
		db.Model(&model.File{}).Where("owner_id = ?", victim.ID).Count(&n)
		if n != 0 {
			t.Fatal("user-scope restore created a file owned by another account")
		}
	})
}

func TestRestoreRollsBackOnCanceledContext(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	requester := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := db.Create(&requester).Error; err != nil {
		t.Fatalf("failed to seed requester: %v", err)
	}

	rec := FileRecord{
		ID:           "f1",
		OriginalName: "a.mp4",
		MimeType:     "video/mp4",
		FilePath:     "uploads/f1_a.mp4",
		OwnerID:      requester.ID,
		Tags:         []string{},
	}

	workDir := t.TempDir()
	writeBlob(t, workDir, filepath.Join("files", "f1_a.mp4"), []byte("blob"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Restorer{DB: db, Store: store}

	if _, err := r.Restore(ctx, userManifest(requester.ID, rec), workDir, &requester); err == nil {
		t.Fatal("expected a canceled restore to fail")
	}

	var n int64
	db.Model(&model.File{}).Count(&n)
	if n != 0 {
		t.Fatalf("canceled restore committed %d file rows", n)
	}
}

func TestRestoreSurvivesFailedCategoryLookup(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	requester := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := db.Create(&requester).Error; err != nil {
		t.Fatalf("failed to seed requester: %v", err)
	}

	// Make every category query error out instead of returning zero rows
	if err := db.Migrator().DropTable(&model.Category{}); err != nil {
		t.Fatalf("failed to drop categories: %v", err)
	}

	rec := FileRecord{
		ID:           "f1",
		OriginalName: "a.mp4",
		MimeType:     "video/mp4",
		FilePath:     "uploads/f1_a.mp4",
		OwnerID:      requester.ID,
		CategoryID:   "whatever",
		Tags:         []string{},
	}

	workDir := t.TempDir()
	writeBlob(t, workDir, filepath.Join("files", "f1_a.mp4"), []byte("blob"))

	r := &Restorer{DB: db, Store: store}

	sum, err := r.Restore(context.Background(), userManifest(requester.ID, rec), workDir, &requester)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if sum.RestoredFiles != 1 {
		t.Fatalf("expected the file restored despite the lookup failure, got %d", sum.RestoredFiles)
	}

	var f model.File
	if err := db.Where("id = ?", "f1").First(&f).Error; err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if f.CategoryID != "" {
		t.Fatalf("expected the unverifiable category cleared, got %q", f.CategoryID)
	}
}

func TestRestoreMatchesUsersByIdentity(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	admin := model.User{Username: "root", Email: "root@example.com", PasswordHash: "x", IsAdmin: true}
	existing := model.User{Username: "eve", Email: "eve@example.com", PasswordHash: "x"}
	for _, u := range []*model.User{&admin, &existing} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
	}

	// Same email, different ID than the local row
	m := &Manifest{
		BackupType: ScopeFull,
		Users: []UserRecord{
			{ID: "foreign-id", Username: "eve", Email: "eve@example.com", PasswordHash: "h"},
		},
		Files: []FileRecord{
			{ID: "f1", OriginalName: "a.mp4", MimeType: "video/mp4", FilePath: "uploads/f1_a.mp4", OwnerID: "foreign-id", Tags: []string{}},
		},
	}

	workDir := t.TempDir()
	writeBlob(t, workDir, filepath.Join("files", "f1_a.mp4"), []byte("blob"))

	r := &Restorer{DB: db, Store: store}

	sum, err := r.Restore(context.Background(), m, workDir, &admin)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if sum.RestoredUsers != 0 {
		t.Fatalf("expected no new users, got %d", sum.RestoredUsers)
	}

	var f model.File
	if err := db.Where("id = ?", "f1").First(&f).Error; err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if f.OwnerID != existing.ID {
		t.Fatalf("expected file remapped to existing user %q, got %q", existing.ID, f.OwnerID)
	}
}
