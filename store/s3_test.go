package store

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3SourceLoad(t *testing.T) {
	objects := &fakeObjects{body: factsCSV}
	src, err := NewS3SourceWithClient(objects, S3Config{Bucket: "bi-data", Key: "exports/facts.csv"})
	require.NoError(t, err)

	rows, sch, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "bi-data", objects.bucket)
	assert.Equal(t, "exports/facts.csv", objects.key)
	assert.Len(t, rows, 2)
	assert.Equal(t, "exports/facts.csv", sch.Name)
	assert.Equal(t, "s3://bi-data/exports/facts.csv", src.Describe())
}

func TestS3SourceErrors(t *testing.T) {
	_, err := NewS3SourceWithClient(&fakeObjects{}, S3Config{Key: "facts.csv"})
	assert.Error(t, err)

	_, err = NewS3SourceWithClient(&fakeObjects{}, S3Config{Bucket: "b", Key: "facts.parquet"})
	assert.Error(t, err)

	src, err := NewS3SourceWithClient(&fakeObjects{err: errors.New("AccessDenied")}, S3Config{Bucket: "b", Key: "facts.csv"})
	require.NoError(t, err)
	_, _, err = src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}
