// internal/blobstore/s3.go
package blobstore

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appErrors "github.com/unclebandit/teamcast-backend/internal/errors"
)

// Key prefixes play the role of the two logical containers: one for image
// blobs, one for card payloads.
const (
	imagePrefix = "images/"
	cardPrefix  = "cards/"
)

// S3Config carries what we need to reach the bucket. Endpoint and
// ForcePathStyle support minio-style local stacks.
type S3Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// S3Store is the ObjectStore backed by an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Store) put(key, content string) error {
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(content),
	})
	if err != nil {
		return appErrors.NewStoreUnavailable("blob upload", err)
	}
	return nil
}

func (s *S3Store) get(key string) (string, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", appErrors.NewStoreUnavailable("blob download", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return "", appErrors.NewStoreUnavailable("blob download", err)
	}
	return string(content), nil
}

func (s *S3Store) UploadImage(name, base64Content string) (string, error) {
	if err := s.put(imagePrefix+name, base64Content); err != nil {
		return "", err
	}
	return name, nil
}

func (s *S3Store) DownloadImage(name string) (string, error) {
	return s.get(imagePrefix + name)
}

func (s *S3Store) CopyImage(src, dst string) error {
	_, err := s.client.CopyObject(context.Background(), &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(imagePrefix + dst),
		CopySource: aws.String(s.bucket + "/" + imagePrefix + src),
	})
	if err != nil {
		return appErrors.NewStoreUnavailable("blob copy", err)
	}
	return nil
}

func (s *S3Store) UploadCard(name, payload string) error {
	return s.put(cardPrefix+name, payload)
}

func (s *S3Store) DownloadCard(name string) (string, error) {
	return s.get(cardPrefix + name)
}

var _ ObjectStore = (*S3Store)(nil)
