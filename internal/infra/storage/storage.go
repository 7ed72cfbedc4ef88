// Package storage issues presigned URLs so clients upload pet photos
// straight to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const DefaultPresignExpiration = 15 * time.Minute

var ErrStorageDisabled = errors.New("object storage is not configured")

type ObjectStorage interface {
	UploadURL(ctx context.Context, key, contentType string) (string, time.Time, error)
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Expires   time.Duration
}

type S3Storage struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	expiresIn time.Duration
	now       func() time.Time
}

func NewS3(cfg Config) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrStorageDisabled
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	expires := cfg.Expires
	if expires <= 0 {
		expires = DefaultPresignExpiration
	}

	return &S3Storage{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		expiresIn: expires,
		now:       time.Now,
	}, nil
}

func (s *S3Storage) UploadURL(ctx context.Context, key, contentType string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate upload URL: %w", err)
	}
	return req.URL, s.now().Add(s.expiresIn), nil
}

func (s *S3Storage) DownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, s.now().Add(s.expiresIn), nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PetPhotoKey namespaces photos per user and pet.
func PetPhotoKey(userID, petID uint, ext string) string {
	switch ext {
	case "jpg", "jpeg", "png", "webp", "heic":
	default:
		ext = "jpg"
	}
	return fmt.Sprintf("users/%d/pets/%d/%d.%s", userID, petID, time.Now().UnixNano(), ext)
}
