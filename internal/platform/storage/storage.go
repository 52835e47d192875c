// Package storage keeps leave attachments in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type FileInfo struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type Store interface {
	Save(ctx context.Context, key string, body io.Reader, contentType string) (FileInfo, error)
	Delete(ctx context.Context, key string) error
}

type Options struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	// PublicURL prefixes object keys in returned URLs. Without it URLs take
	// the s3://bucket/key form.
	PublicURL string
}

type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Store(ctx context.Context, opts Options) (*S3Store, error) {
	region := opts.Region
	if region == "" {
		region = "auto"
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

func (s *S3Store) Save(ctx context.Context, key string, body io.Reader, contentType string) (FileInfo, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return FileInfo{}, fmt.Errorf("s3 put object: %w", err)
	}
	return FileInfo{
		Key:         key,
		URL:         s.URL(key),
		FileName:    path.Base(key),
		ContentType: contentType,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

func (s *S3Store) URL(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.publicURL == "" {
		return "s3://" + s.bucket + "/" + key
	}
	return s.publicURL + "/" + key
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// AttachmentKey builds the object key for a leave attachment. The random
// segment keeps re-uploads from overwriting each other.
func AttachmentKey(tenantID string, leaveID int64, fileName string) string {
	name := unsafeChars.ReplaceAllString(path.Base(strings.ReplaceAll(fileName, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "attachment"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return fmt.Sprintf("tenants/%s/leave/%d/%s_%s", tenantID, leaveID, uuid.NewString()[:8], name)
}

// AllowedContentTypes are the sniffed types accepted for supporting documents.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}
