package types

import "context"

// FileUploaderType archives raw fingerprint scans in object storage.
type FileUploaderType interface {
	UploadFile(ctx context.Context, fileName string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, fileName string) (*string, error)
	DeleteFile(ctx context.Context, fileName string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
