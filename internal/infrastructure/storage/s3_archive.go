// Package storage archives document artifacts in S3-compatible object
// storage (AWS S3, MinIO, RustFS).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/infrastructure/config"
)

const (
	xmlContentType = "application/xml"
	defaultRegion  = "us-east-1"
)

// Artifact kinds
const (
	ArtifactSigned   = "signed"
	ArtifactResponse = "response"
)

// objectAPI is the subset of *s3.Client the archive calls
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Archive stores the signed XML and the authority response of finished
// documents
type S3Archive struct {
	client objectAPI
	bucket string
	logger *zap.Logger
}

// S3ArchiveOption configures an S3Archive
type S3ArchiveOption func(*S3Archive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ArchiveOption {
	return func(a *S3Archive) {
		a.logger = logger
	}
}

// NewS3Archive builds an archive from configuration. An empty endpoint
// uses the AWS default resolver.
func NewS3Archive(ctx context.Context, cfg *config.StorageConfig, opts ...S3ArchiveOption) (*S3Archive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("storage access key and secret key are required")
	}
	if cfg.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Archive(client, cfg.Bucket, opts...), nil
}

func newS3Archive(client objectAPI, bucket string, opts ...S3ArchiveOption) *S3Archive {
	a := &S3Archive{
		client: client,
		bucket: bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bucket returns the bucket name
func (a *S3Archive) Bucket() string {
	return a.bucket
}

// EnsureBucket creates the bucket when it does not exist yet
func (a *S3Archive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating artifact bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ArtifactKey returns the object key of one artifact of doc
func ArtifactKey(doc *document.ElectronicDocument, kind string) string {
	number := doc.DocumentNumber
	if number == "" {
		number = doc.ID.String()
	}
	return strings.Join([]string{
		strconv.FormatInt(doc.TenantID, 10),
		strconv.FormatInt(doc.CompanyID, 10),
		strings.ToLower(doc.Type.String()),
		number,
		kind + ".xml",
	}, "/")
}

// Archive uploads the signed XML and, when present, the authority response
func (a *S3Archive) Archive(ctx context.Context, doc *document.ElectronicDocument) error {
	if doc == nil {
		return errors.New("document is required")
	}
	artifacts := []struct {
		kind string
		body []byte
	}{
		{ArtifactSigned, doc.SignedXML},
		{ArtifactResponse, doc.ResponseXML},
	}

	for _, artifact := range artifacts {
		if len(artifact.body) == 0 {
			continue
		}
		key := ArtifactKey(doc, artifact.kind)
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(artifact.body),
			ContentType: aws.String(xmlContentType),
			Metadata: map[string]string{
				"document-id": doc.ID.String(),
				"status":      doc.Status.String(),
				"fingerprint": doc.Fingerprint,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s artifact: %w", artifact.kind, err)
		}
		a.logger.Debug("Artifact archived",
			zap.String("bucket", a.bucket),
			zap.String("key", key),
		)
	}
	return nil
}

// NopArchive discards artifacts, used when archival is disabled
type NopArchive struct{}

// Archive does nothing
func (NopArchive) Archive(context.Context, *document.ElectronicDocument) error {
	return nil
}
