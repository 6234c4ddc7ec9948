package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the part of *s3.Client the artifact store needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArtifactRepository uploads screenshots and HTML snapshots to a bucket.
type ArtifactRepository struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewClient builds an S3 client with path-style addressing. A non-empty
// endpoint points it at an S3 compatible service such as MinIO.
func NewClient(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func NewArtifactRepository(client PutObjectAPI, bucket, prefix string) *ArtifactRepository {
	return &ArtifactRepository{client: client, bucket: bucket, prefix: prefix}
}

// Store uploads data and returns its s3:// URL.
func (r *ArtifactRepository) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if r.prefix != "" {
		key = path.Join(r.prefix, key)
	}
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, r.bucket, err)
	}
	return fmt.Sprintf("s3://%s/%s", r.bucket, key), nil
}
