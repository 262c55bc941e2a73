package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"lianjia-rentals/utils"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads rendered charts to an S3 bucket.
type S3Publisher struct {
	client objectPutter
	bucket string
	prefix string
	logger *utils.Logger
}

// NewS3Publisher builds a publisher from the default AWS credential chain.
func NewS3Publisher(ctx context.Context, bucket, prefix string, logger *utils.Logger) (*S3Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: load aws config: %w", err)
	}
	return &S3Publisher{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Publish uploads every file as {prefix}{base name}. A failed upload is logged
// and the rest are still attempted. It returns the number of files uploaded.
func (p *S3Publisher) Publish(ctx context.Context, paths []string) int {
	uploaded := 0
	for _, path := range paths {
		key := p.prefix + filepath.Base(path)
		if err := p.upload(ctx, path, key); err != nil {
			p.logger.Error("[report] Upload of %s failed: %v", path, err)
			continue
		}
		p.logger.Debug("[report] Uploaded s3://%s/%s", p.bucket, key)
		uploaded++
	}

	p.logger.Info("[report] Uploaded %d/%d charts to s3://%s/%s", uploaded, len(paths), p.bucket, p.prefix)
	return uploaded
}

func (p *S3Publisher) upload(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("image/png"),
	})
	return err
}
