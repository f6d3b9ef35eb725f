package store

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
)

// ObjectGetter is the part of the S3 client the source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates the fact object.
type S3Config struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string // optional, for MinIO or LocalStack
	Sheet    string
}

// S3Source downloads a CSV or XLSX object on every load.
type S3Source struct {
	client ObjectGetter
	cfg    S3Config
	format Format
}

// NewS3Source builds a client from the default AWS credential chain.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3SourceWithClient(client, cfg)
}

// NewS3SourceWithClient uses an existing client.
func NewS3SourceWithClient(client ObjectGetter, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3 source needs a bucket and a key")
	}
	format, err := FormatFromName(cfg.Key)
	if err != nil {
		return nil, err
	}
	return &S3Source{client: client, cfg: cfg, format: format}, nil
}

// Load implements Source.
func (s *S3Source) Load(ctx context.Context) ([]engine.FactRow, *schema.Config, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("s3 get failed for %s: %w", s.Describe(), err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", s.Describe(), err)
	}
	rows, sch, err := parsePayload(data, s.format, s.cfg.Sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.Describe(), err)
	}
	sch.Name = s.cfg.Key
	return rows, sch, nil
}

// Describe implements Source.
func (s *S3Source) Describe() string {
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, s.cfg.Key)
}
