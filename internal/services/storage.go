package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/gorm"
)

// StoredObject describes a file written to object storage.
type StoredObject struct {
	Key      string
	URL      string
	MimeType string
	Size     int64
}

type Storage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (*StoredObject, error)
}

// S3Storage writes to any S3 compatible bucket (AWS, Cloudflare R2, MinIO).
type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Storage(ctx context.Context, cfg *config.Config) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(cfg.S3PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3BucketName, cfg.S3Region)
	}

	return &S3Storage{client: client, bucket: cfg.S3BucketName, publicURL: publicURL}, nil
}

func (s *S3Storage) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (*StoredObject, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}
	return &StoredObject{
		Key:      key,
		URL:      fmt.Sprintf("%s/%s", s.publicURL, key),
		MimeType: contentType,
		Size:     size,
	}, nil
}

const MaxUploadSize = 25 << 20

// AttachmentService uploads files and records their metadata.
type AttachmentService struct {
	db      *gorm.DB
	storage Storage
}

func NewAttachmentService(db *gorm.DB, storage Storage) *AttachmentService {
	return &AttachmentService{db: db, storage: storage}
}

// Upload stores fh under folder and creates the Attachment row.
func (s *AttachmentService) Upload(ctx context.Context, userID, folder string, criteria models.AttachmentCriteria, fh *multipart.FileHeader) (*models.Attachment, error) {
	if s.storage == nil {
		return nil, apperrors.NewAppError(503, "File storage is not configured")
	}
	if fh.Size > MaxUploadSize {
		return nil, apperrors.BadRequest(fmt.Sprintf("%s exceeds the %d MB upload limit", fh.Filename, MaxUploadSize>>20))
	}

	file, err := fh.Open()
	if err != nil {
		return nil, apperrors.BadRequest("Unable to read uploaded file")
	}
	defer file.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("%s/%s%s", folder, utils.GenerateID(), strings.ToLower(filepath.Ext(fh.Filename)))

	obj, err := s.storage.Put(ctx, key, contentType, file, fh.Size)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Upload failed")
		return nil, apperrors.Internal("Upload failed")
	}

	attachment := models.Attachment{
		UserID:   userID,
		Criteria: criteria,
		Type:     models.AttachmentTypeFor(contentType),
		URL:      obj.URL,
		Key:      obj.Key,
		Name:     fh.Filename,
		MimeType: contentType,
		Size:     obj.Size,
	}
	if err := s.db.WithContext(ctx).Create(&attachment).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}
