package export

import (
	"bytes"
	"context"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/flexprice/tenantcore/internal/config"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
)

const presignExpiry = 30 * time.Minute

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error)
}

// PresignedRequest mirrors the fields of the SDK's presigned request we use
type PresignedRequest struct {
	URL string
}

type sdkPresigner struct {
	client *s3.PresignClient
}

func (p sdkPresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error) {
	req, err := p.client.PresignGetObject(ctx, in, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedRequest{URL: req.URL}, nil
}

// S3Sink writes exports as server-side encrypted JSON objects and hands out
// a short lived presigned download link
type S3Sink struct {
	objects   objectAPI
	presigner presignAPI
	bucket    string
	prefix    string
	logger    *logger.Logger
}

func NewS3Sink(ctx context.Context, cfg config.ExportConfig, log *logger.Logger) (*S3Sink, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ierr.NewError("export bucket not configured").
			WithHint("S3 bucket and region are required for exports").
			Mark(ierr.ErrValidation)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load AWS configuration").
			Mark(ierr.ErrSystem)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Sink{
		objects:   client,
		presigner: sdkPresigner{client: s3.NewPresignClient(client)},
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		logger:    log,
	}, nil
}

func (s *S3Sink) Key(tenantID, exportID string) string {
	return path.Join(s.prefix, "tenants", tenantID, "exports", exportID+".json")
}

func (s *S3Sink) Store(ctx context.Context, tenantID, exportID string, document []byte) (*Location, error) {
	key := s.Key(tenantID, exportID)

	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(document),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		s.logger.Errorw("failed to upload export", "tenant_id", tenantID, "key", key, "error", err)
		return nil, ierr.WithError(err).
			WithHint("Failed to store export").
			Mark(ierr.ErrSystem)
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to generate presigned URL").
			Mark(ierr.ErrInternal)
	}

	s.logger.Infow("export stored", "tenant_id", tenantID, "key", key, "bytes", len(document))

	return &Location{
		Key:       key,
		URL:       presigned.URL,
		ExpiresAt: time.Now().UTC().Add(presignExpiry),
	}, nil
}
