package minio

import (
	"bytes"
	"context"
	"net/url"
	"time"

	"fingerprint.gateman.io/infrastructure/logger"
	"github.com/minio/minio-go/v7"
)

type MinioFileService struct {
	Client *minio.Client
	Bucket string
	// URLExpiry bounds how long a presigned download stays valid.
	URLExpiry time.Duration
}

func isMissing(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *MinioFileService) EnsureBucket(ctx context.Context) error {
	exists, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.Client.MakeBucket(ctx, s.Bucket, minio.MakeBucketOptions{})
}

func (s *MinioFileService) UploadFile(ctx context.Context, fileName string, data []byte, contentType string) error {
	_, err := s.Client.PutObject(ctx, s.Bucket, fileName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		logger.Error("error uploading file to object storage", logger.LoggerOptions{
			Key:  "error",
			Data: err.Error(),
		}, logger.LoggerOptions{
			Key:  "file",
			Data: fileName,
		})
	}
	return err
}

func (s *MinioFileService) GenerateDownloadURL(ctx context.Context, fileName string) (*string, error) {
	expiry := s.URLExpiry
	if expiry == 0 {
		expiry = 5 * time.Minute
	}
	u, err := s.Client.PresignedGetObject(ctx, s.Bucket, fileName, expiry, url.Values{})
	if err != nil {
		logger.Error("error generating download url", logger.LoggerOptions{
			Key:  "error",
			Data: err.Error(),
		})
		return nil, err
	}
	link := u.String()
	return &link, nil
}

func (s *MinioFileService) DeleteFile(ctx context.Context, fileName string) error {
	err := s.Client.RemoveObject(ctx, s.Bucket, fileName, minio.RemoveObjectOptions{})
	if err != nil && !isMissing(err) {
		return err
	}
	return nil
}

// DeletePrefix removes every object under prefix and reports how many went.
func (s *MinioFileService) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	for obj := range s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return deleted, obj.Err
		}
		if err := s.DeleteFile(ctx, obj.Key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
