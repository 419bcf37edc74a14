package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3PlanStore implements PlanStore backed by S3.

type S3PlanStore struct {
	bucket string
	key    string
	s3     *s3.Client
}

func NewS3PlanStore(s3Client *s3.Client, bucket, key string) *S3PlanStore {
	return &S3PlanStore{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (s *S3PlanStore) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get plan object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *S3PlanStore) Save(ctx context.Context, data []byte) error {
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put plan object to S3: %w", err)
	}
	return nil
}
