package backup

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediavault/media-api/internal/model"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	store.objects["uploads/f1_clip.mp4"] = []byte("primary")
	store.objects["thumbnails/f1.jpg"] = []byte("thumb")
	store.objects["transcoded/f1/hls/master.m3u8"] = []byte("#EXTM3U")
	store.objects["transcoded/f1/hls/seg0.ts"] = []byte("segment")

	snap := &Snapshot{
		Manifest: &Manifest{
			BackupType: ScopeUser,
			BackupDate: "2026-01-02T03:04:05Z",
			UserID:     "u1",
			Username:   "alice",
			Files: []FileRecord{
				{ID: "f1", OriginalName: "clip.mp4", FilePath: "uploads/f1_clip.mp4", OwnerID: "u1", Tags: []string{}},
			},
		},
		Files: []model.File{
			{
				ID:             "f1",
				OriginalName:   "clip.mp4",
				FileKey:        "uploads/f1_clip.mp4",
				ThumbnailKey:   "thumbnails/f1.jpg",
				HLSManifestKey: "transcoded/f1/hls/master.m3u8",
			},
		},
	}

	containerPath := filepath.Join(t.TempDir(), "container.zip")

	out, err := os.Create(containerPath)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}

	if err := Encode(ctx, snap, store, out); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out.Close()

	t.Run("manifest is the first entry", func(t *testing.T) {
		zr, err := zip.OpenReader(containerPath)
		if err != nil {
			t.Fatalf("failed to open container: %v", err)
		}
		defer zr.Close()

		if len(zr.File) == 0 || zr.File[0].Name != MetadataEntry {
			t.Fatalf("expected %s first, got %v", MetadataEntry, zr.File[0].Name)
		}
	})

	workDir := t.TempDir()

	m, err := Decode(containerPath, workDir)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if m.BackupType != ScopeUser || m.UserID != "u1" {
		t.Fatalf("manifest did not round-trip: %+v", m)
	}
	if len(m.Files) != 1 || m.Files[0].ID != "f1" {
		t.Fatalf("file records did not round-trip: %+v", m.Files)
	}

	for _, rel := range []string{
		filepath.Join("files", "f1_clip.mp4"),
		filepath.Join("thumbnails", "f1_thumbnail.jpg"),
		filepath.Join("transcoded", "f1", "hls", "master.m3u8"),
		filepath.Join("transcoded", "f1", "hls", "seg0.ts"),
	} {
		if _, err := os.Stat(filepath.Join(workDir, rel)); err != nil {
			t.Errorf("expected extracted blob %s: %v", rel, err)
		}
	}
}

func TestEncodeSkipsUnreadableBlobs(t *testing.T) {
	store := newFakeStore()
	store.objects["uploads/f1_a.mp4"] = []byte("ok")
	store.failGet["uploads/f2_b.mp4"] = true

	snap := &Snapshot{
		Manifest: &Manifest{BackupType: ScopeUser, UserID: "u1"},
		Files: []model.File{
			{ID: "f1", OriginalName: "a.mp4", FileKey: "uploads/f1_a.mp4"},
			{ID: "f2", OriginalName: "b.mp4", FileKey: "uploads/f2_b.mp4"},
		},
	}

	containerPath := filepath.Join(t.TempDir(), "container.zip")

	out, err := os.Create(containerPath)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer out.Close()

	if err := Encode(context.Background(), snap, store, out); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	workDir := t.TempDir()
	if _, err := Decode(containerPath, workDir); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(workDir, "files", "f1_a.mp4")); err != nil {
		t.Errorf("readable blob missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "files", "f2_b.mp4")); err == nil {
		t.Error("unreadable blob ended up in the container")
	}
}

func TestDecodeRejectsInvalidContainers(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "junk.zip")
		if err := os.WriteFile(p, []byte("not a zip at all"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := Decode(p, t.TempDir())
		if !errors.Is(err, ErrInvalidArchive) {
			t.Fatalf("expected ErrInvalidArchive, got %v", err)
		}
	})

	t.Run("missing metadata entry", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "empty.zip")

		out, err := os.Create(p)
		if err != nil {
			t.Fatal(err)
		}

		zw := zip.NewWriter(out)
		entry, _ := zw.Create("files/something.mp4")
		entry.Write([]byte("blob"))
		zw.Close()
		out.Close()

		_, err = Decode(p, t.TempDir())
		if !errors.Is(err, ErrInvalidArchive) {
			t.Fatalf("expected ErrInvalidArchive, got %v", err)
		}
	})

	t.Run("unknown backup type", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "weird.zip")

		out, err := os.Create(p)
		if err != nil {
			t.Fatal(err)
		}

		zw := zip.NewWriter(out)
		entry, _ := zw.Create(MetadataEntry)
		entry.Write([]byte(`{"backup_type":"mystery"}`))
		zw.Close()
		out.Close()

		_, err = Decode(p, t.TempDir())
		if !errors.Is(err, ErrInvalidArchive) {
			t.Fatalf("expected ErrInvalidArchive, got %v", err)
		}
	})

	t.Run("entry escaping the working directory", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "slip.zip")

		out, err := os.Create(p)
		if err != nil {
			t.Fatal(err)
		}

		zw := zip.NewWriter(out)
		entry, _ := zw.Create("../escape.txt")
		entry.Write([]byte("gotcha"))
		zw.Close()
		out.Close()

		_, err = Decode(p, t.TempDir())
		if !errors.Is(err, ErrInvalidArchive) {
			t.Fatalf("expected ErrInvalidArchive, got %v", err)
		}
	})
}
