package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mediavault/media-api/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Tag{},
		&model.File{},
		&model.Group{},
		&model.GroupMember{},
		&model.FileGroup{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// fakeStore is an in-memory BlobStore. Individual keys can be poisoned to
// exercise the skip-and-log paths.
type fakeStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failGet    map[string]bool
	failUpload map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:    map[string][]byte{},
		failGet:    map[string]bool{},
		failUpload: map[string]bool{},
	}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failGet[key] {
		return nil, errors.New("injected get failure")
	}

	body, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key: " + key)
	}

	return body, nil
}

func (s *fakeStore) Put(_ context.Context, key string, body []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = append([]byte(nil), body...)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

func (s *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}

	return keys, nil
}

func (s *fakeStore) DownloadFile(ctx context.Context, key, localPath string) error {
	body, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	return os.WriteFile(localPath, body, 0o644)
}

func (s *fakeStore) UploadFile(_ context.Context, localPath, key, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpload[key] {
		return errors.New("injected upload failure")
	}

	body, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	s.objects[key] = body
	return nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.objects[key]
	return ok
}
