package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.objects[*in.Bucket+"/"+*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func withFakeS3(t *testing.T, fake *fakeS3) *s3.Options {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	opts := &s3.Options{}
	loadDefaultAWSConfig = func(ctx context.Context, fns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, fns ...func(*s3.Options)) objectAPI {
		for _, fn := range fns {
			fn(opts)
		}
		return fake
	}
	return opts
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	opts := withFakeS3(t, fake)

	s, err := NewS3Store(context.Background(), S3Config{Bucket: "certs", BaseEndpoint: "http://minio:9000"})
	require.NoError(t, err)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "templates/template_a.png", []byte("png")))
	assert.Equal(t, []byte("png"), fake.objects["certs/templates/template_a.png"])

	b, err := s.Get(ctx, "templates/template_a.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(b))

	require.NoError(t, s.Delete(ctx, "templates/template_a.png"))
	_, err = s.Get(ctx, "templates/template_a.png")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Store_Errors(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, err: errors.New("network")}
	withFakeS3(t, fake)

	s, err := NewS3Store(context.Background(), S3Config{Bucket: "b"})
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.Put(ctx, "k", nil), common.ErrPersistence)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrPersistence)
	assert.ErrorIs(t, s.Delete(ctx, "k"), common.ErrPersistence)
	assert.ErrorIs(t, s.Put(ctx, "../k", nil), common.ErrValidation)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	withFakeS3(t, &fakeS3{})
	loadDefaultAWSConfig = func(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("bad config")
	}

	_, err := NewS3Store(context.Background(), S3Config{})
	assert.Error(t, err)
}
