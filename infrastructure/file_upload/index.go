package fileupload

import (
	"context"
	"os"
	"time"

	"fingerprint.gateman.io/infrastructure/file_upload/minio"
	"fingerprint.gateman.io/infrastructure/file_upload/types"
	"fingerprint.gateman.io/infrastructure/logger"
	minioClient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var FileUploader types.FileUploaderType

// InitialiseFileUploader connects to the scan archive. FileUploader stays
// nil when MINIO_ENDPOINT is unset.
func InitialiseFileUploader(ctx context.Context) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		logger.Info("scan archive disabled, MINIO_ENDPOINT not set")
		return
	}
	client, err := minioClient.New(endpoint, &minioClient.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
		Secure: os.Getenv("MINIO_USE_SSL") == "true",
	})
	if err != nil {
		logger.Error("could not create minio client", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return
	}
	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "fingerprint-scans"
	}
	service := &minio.MinioFileService{Client: client, Bucket: bucket, URLExpiry: 5 * time.Minute}
	if err := service.EnsureBucket(ctx); err != nil {
		logger.Error("scan archive bucket unavailable", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return
	}
	FileUploader = service
	logger.Info("scan archive ready", logger.LoggerOptions{Key: "bucket", Data: bucket})
}
