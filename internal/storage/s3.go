package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service archives transcripts to Amazon S3 (or compatible APIs).
type S3Service struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

func NewS3Service(client *s3.Client, bucket, keyPrefix string) *S3Service {
	return &S3Service{
		client:    client,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (s *S3Service) UploadTranscript(ctx context.Context, transcript Transcript) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("storage bucket is required")
	}

	body, err := json.Marshal(transcript)
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}

	key := fmt.Sprintf("user-%d/transcript-%s.json",
		transcript.UserID, time.Now().UTC().Format("20060102T150405Z"))
	if s.keyPrefix != "" {
		key = s.keyPrefix + "/" + key
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("upload transcript: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

var _ Service = (*S3Service)(nil)
