package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mediavault/media-api/internal/model"

	"go.uber.org/zap"
)

// Encode writes the container to w: the manifest entry first, then one entry
// per reachable blob. A blob that fails to download is logged and skipped so
// a single inaccessible object can't lose the rest of the backup.
func Encode(ctx context.Context, snap *Snapshot, store BlobStore, w io.Writer) error {
	zw := zip.NewWriter(w)

	meta, err := json.MarshalIndent(snap.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest, %w", err)
	}

	entry, err := zw.Create(MetadataEntry)
	if err != nil {
		return fmt.Errorf("failed to create metadata entry, %w", err)
	}

	if _, err := entry.Write(meta); err != nil {
		return fmt.Errorf("failed to write metadata entry, %w", err)
	}

	for i := range snap.Files {
		encodeFileBlobs(ctx, zw, store, &snap.Files[i])
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive, %w", err)
	}

	return nil
}

func encodeFileBlobs(ctx context.Context, zw *zip.Writer, store BlobStore, f *model.File) {
	if f.FileKey != "" {
		copyBlob(ctx, zw, store, f.FileKey, fmt.Sprintf("files/%s_%s", f.ID, f.OriginalName))
	}
	if f.ThumbnailKey != "" {
		copyBlob(ctx, zw, store, f.ThumbnailKey, fmt.Sprintf("thumbnails/%s_thumbnail.jpg", f.ID))
	}
	if f.PreviewKey != "" {
		copyBlob(ctx, zw, store, f.PreviewKey, fmt.Sprintf("previews/%s_preview.jpg", f.ID))
	}

	if f.HLSManifestKey != "" {
		encodeRendition(ctx, zw, store, f.HLSManifestKey, fmt.Sprintf("transcoded/%s/hls", f.ID))
	}
	if f.DashManifestKey != "" {
		encodeRendition(ctx, zw, store, f.DashManifestKey, fmt.Sprintf("transcoded/%s/dash", f.ID))
	}
}

// encodeRendition stores every object below the rendition's key prefix,
// preserving its internal directory structure under root
func encodeRendition(ctx context.Context, zw *zip.Writer, store BlobStore, manifestKey, root string) {
	prefix := path.Dir(manifestKey)
	if prefix == "." || prefix == "/" {
		return
	}
	prefix += "/"

	keys, err := store.List(ctx, prefix)
	if err != nil {
		zap.L().Warn("Failed to list rendition objects, skipping",
			zap.String("prefix", prefix),
			zap.Error(err))
		return
	}

	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		if rel == "" {
			continue
		}

		copyBlob(ctx, zw, store, key, root+"/"+rel)
	}
}

func copyBlob(ctx context.Context, zw *zip.Writer, store BlobStore, key, entryName string) {
	body, err := store.Get(ctx, key)
	if err != nil {
		zap.L().Warn("Failed to download blob, skipping",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	entry, err := zw.Create(entryName)
	if err != nil {
		zap.L().Warn("Failed to create archive entry, skipping",
			zap.String("entry", entryName),
			zap.Error(err))
		return
	}

	if _, err := entry.Write(body); err != nil {
		zap.L().Warn("Failed to write archive entry",
			zap.String("entry", entryName),
			zap.Error(err))
	}
}

// Decode extracts every container entry into workDir, preserving relative
// paths, and returns the parsed manifest. A container without a metadata
// entry, or with one that doesn't parse, fails with ErrInvalidArchive.
func Decode(containerPath, workDir string) (*Manifest, error) {
	zr, err := zip.OpenReader(containerPath)
	if err != nil {
		return nil, fmt.Errorf("%w, %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if err := extractEntry(entry, workDir); err != nil {
			return nil, err
		}
	}

	metaPath := filepath.Join(workDir, MetadataEntry)

	meta, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("%w, metadata entry missing", ErrInvalidArchive)
	}

	var m Manifest
	if err := json.Unmarshal(meta, &m); err != nil {
		return nil, fmt.Errorf("%w, metadata doesn't parse, %v", ErrInvalidArchive, err)
	}

	if m.BackupType != ScopeUser && m.BackupType != ScopeFull {
		return nil, fmt.Errorf("%w, unknown backup type %q", ErrInvalidArchive, m.BackupType)
	}

	return &m, nil
}

func extractEntry(entry *zip.File, workDir string) error {
	// Entry names come from an untrusted archive, keep them inside workDir
	dst := filepath.Join(workDir, filepath.FromSlash(entry.Name))
	if !strings.HasPrefix(dst, filepath.Clean(workDir)+string(os.PathSeparator)) {
		return fmt.Errorf("%w, entry %q escapes the working directory", ErrInvalidArchive, entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(dst, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q, %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %q, %w", entry.Name, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %q, %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to extract %q, %w", entry.Name, err)
	}

	return nil
}
