package artifactstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/journalsync/internal/logging"
)

type fakePutter struct {
	key         string
	bucket      string
	body        []byte
	contentType string
	metadata    map[string]string
	err         error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	f.metadata = in.Metadata
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func stubClient(t *testing.T, putter objectPutter, captured *s3.Options) {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		return aws.Config{Region: lo.Region, Credentials: lo.Credentials}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		for _, fn := range optFns {
			fn(captured)
		}
		return putter
	}
}

func TestArchive_UploadsFile(t *testing.T) {
	putter := &fakePutter{}
	var opts s3.Options
	stubClient(t, putter, &opts)

	a, err := NewS3Archiver(context.Background(), Config{
		Bucket:    "journals",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Prefix:    "exports",
		PathStyle: true,
	}, logging.Nop())
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC) }

	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	src := filepath.Join(t.TempDir(), "Blog Public.zip")
	require.NoError(t, os.WriteFile(src, []byte("PK-data"), 0o600))

	loc, err := a.Archive(context.Background(), "Blog Public", src)
	require.NoError(t, err)

	assert.Equal(t, "journals", putter.bucket)
	assert.Regexp(t, regexp.MustCompile(`^exports/blog-public/2024/03/01/[0-9a-f]{8}-blog-public\.zip$`), putter.key)
	assert.Equal(t, "s3://journals/"+putter.key, loc)
	assert.Equal(t, "PK-data", string(putter.body))
	assert.Equal(t, "application/zip", putter.contentType)
	assert.Equal(t, map[string]string{"journal": "Blog Public"}, putter.metadata)
}

func TestArchive_UploadError(t *testing.T) {
	stubClient(t, &fakePutter{err: errors.New("bucket missing")}, &s3.Options{})

	a, err := NewS3Archiver(context.Background(), Config{Bucket: "b", Region: "us-east-1"}, logging.Nop())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "x.json")
	require.NoError(t, os.WriteFile(src, []byte("{}"), 0o600))

	_, err = a.Archive(context.Background(), "Blog Public", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket missing")
}

func TestArchive_MissingFile(t *testing.T) {
	stubClient(t, &fakePutter{}, &s3.Options{})
	a, err := NewS3Archiver(context.Background(), Config{Bucket: "b", Region: "us-east-1"}, logging.Nop())
	require.NoError(t, err)

	_, err = a.Archive(context.Background(), "Blog Public", filepath.Join(t.TempDir(), "gone.zip"))
	require.Error(t, err)
}

func TestNewS3Archiver_ConfigLoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	defer func() { loadDefaultAWSConfig = orig }()
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := NewS3Archiver(context.Background(), Config{Bucket: "b"}, logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load-fail")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("a.JSON"))
	assert.Equal(t, "application/octet-stream", contentType("a"))
}
