package storage

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/snapwall/snapwall/src/config"
	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/oops"
)

type S3 struct {
	Bucket    string
	UrlExpiry time.Duration

	client    *s3.Client
	presigner *s3.PresignClient
}

var _ Store = (*S3)(nil)

/*
NewS3 builds a client for the configured bucket. Static credentials are used
when both keys are set; otherwise the SDK's default credential chain applies.
A custom endpoint (such as `snapwall fakes3` or MinIO) switches the client to
path-style addressing.
*/
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, oops.New(err, "failed to load AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	expiry := cfg.UrlExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &S3{
		Bucket:    cfg.S3Bucket,
		UrlExpiry: expiry,
		client:    client,
		presigner: s3.NewPresignClient(client),
	}, nil
}

func (s *S3) Put(ctx context.Context, name string, content []byte, contentType string) error {
	if err := validateName(name); err != nil {
		return err
	}

	upload := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &s.Bucket,
			Key:         &name,
			Body:        bytes.NewReader(content),
			ContentType: &contentType,
		})
		return err
	}

	err := upload()
	if err != nil {
		if isAPIError(err, "NoSuchBucket") {
			logging.ExtractLogger(ctx).Warn().Str("bucket", s.Bucket).Msg("Bucket does not exist; creating it")
			_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
				Bucket: &s.Bucket,
			})
			if err != nil {
				return oops.New(err, "failed to create bucket %s", s.Bucket)
			}

			err = upload()
			if err != nil {
				return oops.New(err, "failed to upload %s", name)
			}
		} else {
			return oops.New(err, "failed to upload %s", name)
		}
	}
	return nil
}

func (s *S3) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.Bucket,
		Key:    &name,
	})
	if err != nil && !isAPIError(err, "NoSuchKey", "NotFound") {
		return oops.New(err, "failed to delete %s", name)
	}
	return nil
}

// Fetch does not contact the bucket; it hands back a presigned GET URL.
func (s *S3) Fetch(ctx context.Context, name string) (*Object, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.Bucket,
		Key:    &name,
	}, s3.WithPresignExpires(s.UrlExpiry))
	if err != nil {
		return nil, oops.New(err, "failed to presign %s", name)
	}
	return &Object{RedirectURL: req.URL}, nil
}

func isAPIError(err error, codes ...string) bool {
	var apiError smithy.APIError
	if !errors.As(err, &apiError) {
		return false
	}
	for _, code := range codes {
		if apiError.ErrorCode() == code {
			return true
		}
	}
	return false
}
