package backup

import "context"

// BlobStore is the slice of the S3 gateway the backup engine needs.
// *aws.S3Client satisfies it; tests plug in an in-memory fake.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	DownloadFile(ctx context.Context, key, localPath string) error
	UploadFile(ctx context.Context, localPath, key, contentType string) error
}
