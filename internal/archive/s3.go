// Package archive writes the records a retention sweep is about to delete
// to S3, so a deletion can be audited or undone from the archive.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"job-collector/internal/logger"
	"job-collector/internal/store"
)

// S3Archiver uploads one JSON manifest per sweep.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewS3Archiver builds an archiver against the default AWS credential chain.
func NewS3Archiver(ctx context.Context, region, bucket, prefix string) (*S3Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Archiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		log:    logger.Get("archive"),
	}, nil
}

type manifest struct {
	Task       string            `json:"task"`
	ArchivedAt time.Time         `json:"archived_at"`
	Count      int               `json:"count"`
	Records    []store.RecordAge `json:"records"`
}

// Archive uploads the doomed records as a single JSON object keyed by task
// and timestamp.
func (a *S3Archiver) Archive(ctx context.Context, task string, records []store.RecordAge) error {
	if len(records) == 0 {
		return nil
	}
	m := manifest{
		Task:       task,
		ArchivedAt: time.Now().UTC(),
		Count:      len(records),
		Records:    records,
	}
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s.json", a.prefix, task, m.ArchivedAt.Format("20060102T150405Z"))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put archive object: %w", err)
	}
	a.log.Info().Str("task", task).Str("key", key).Int("records", len(records)).Msg("sweep archived")
	return nil
}
