package calendar

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/insubria-survive/survive/internal/logging"
)

// LinkExpiry is the lifetime of the link returned by Export.
const LinkExpiry = 24 * time.Hour

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}

	presignGetObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return s3.NewPresignClient(c).PresignGetObject(ctx, in, optFns...)
	}
)

// Exporter publishes events and returns a link the user can open.
type Exporter interface {
	Export(ctx context.Context, events ...Event) (string, error)
}

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// S3Exporter uploads .ics files to an S3-compatible bucket.
type S3Exporter struct {
	cfg    S3Config
	logger logging.Logger
}

func NewS3Exporter(cfg S3Config, l logging.Logger) *S3Exporter {
	return &S3Exporter{cfg: cfg, logger: l.With("module", "calendar")}
}

func storageKey(t time.Time) string {
	return fmt.Sprintf("calendar/%d/%02d/%s.ics", t.Year(), t.Month(), uuid.New())
}

func (s *S3Exporter) client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.cfg.Region)}
	if s.cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Export uploads events as one calendar file and returns a presigned link
// valid for LinkExpiry.
func (s *S3Exporter) Export(ctx context.Context, events ...Event) (string, error) {
	if len(events) == 0 {
		return "", fmt.Errorf("nothing to export")
	}

	c, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	stamp := now()
	key := storageKey(stamp)
	body := RenderICS(stamp, events...)

	err = putObject(c, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/calendar; charset=utf-8"),
	})
	if err != nil {
		s.logger.Error(ctx, "calendar upload failed", "key", key, "error", err)
		return "", fmt.Errorf("failed to upload calendar: %w", err)
	}

	req, err := presignGetObject(c, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(LinkExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign calendar link: %w", err)
	}

	s.logger.Info(ctx, "calendar exported", "key", key, "events", len(events))
	return req.URL, nil
}
