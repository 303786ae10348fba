// Package artifactstore archives acquired export files to S3-compatible
// object storage.
package artifactstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/journalsync/internal/logging"
)

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
	PathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Archiver uploads artifacts under <prefix>/<journal>/<yyyy>/<mm>/<dd>/.
type S3Archiver struct {
	cfg    Config
	client objectPutter
	logger logging.Logger
	now    func() time.Time
}

func NewS3Archiver(ctx context.Context, cfg Config, logger logging.Logger) (*S3Archiver, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Archiver{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "artifactstore", "bucket", cfg.Bucket),
		now:    time.Now,
	}, nil
}

// Archive uploads the file at localPath and returns its s3:// location.
func (a *S3Archiver) Archive(ctx context.Context, journalName, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	key := a.objectKey(journalName, filepath.Base(localPath))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
		Metadata:    map[string]string{"journal": journalName},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", a.cfg.Bucket, key)
	a.logger.Info(ctx, "artifact archived", "journal", journalName, "location", location)
	return location, nil
}

var keyUnsafe = regexp.MustCompile(`[^a-z0-9._-]+`)

func (a *S3Archiver) objectKey(journalName, file string) string {
	d := a.now().UTC()
	journalPart := strings.Trim(keyUnsafe.ReplaceAllString(strings.ToLower(journalName), "-"), "-")
	name := fmt.Sprintf("%s-%s", uuid.NewString()[:8], keyUnsafe.ReplaceAllString(strings.ToLower(file), "-"))
	return path.Join(a.cfg.Prefix, journalPart, fmt.Sprintf("%04d/%02d/%02d", d.Year(), d.Month(), d.Day()), name)
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".zip":
		return "application/zip"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
