package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Store persists mirrors as JSON objects in an S3 bucket, one object
// per endpoint. Suitable when several registry instances share state.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed store and verifies bucket access.
func NewS3Store(cfg StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "pushkit/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	ctx := context.Background()

	var awsCfg aws.Config
	var err error
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		// Custom endpoint for S3-compatible services.
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket '%s': %w", cfg.Bucket, err)
	}

	log.Printf("registry: S3 storage initialized: bucket=%s, region=%s, prefix=%s", cfg.Bucket, region, prefix)

	return &S3Store{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (s *S3Store) mirrorKey(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return s.prefix + "mirrors/" + hex.EncodeToString(sum[:]) + ".json"
}

func (s *S3Store) putJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode object: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to store object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Upsert(ctx context.Context, m *Mirror) error {
	existing, err := s.Get(ctx, m.Endpoint)
	if err != nil {
		return err
	}

	now := time.Now()
	if existing != nil {
		existing.Keys = m.Keys
		existing.LastSeenAt = now
		existing.Active = true
		if m.UserID != "" {
			existing.UserID = m.UserID
		}
		*m = *existing
	} else {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		m.CreatedAt = now
		m.LastSeenAt = now
		m.Active = true
	}
	return s.putJSON(ctx, s.mirrorKey(m.Endpoint), m)
}

func (s *S3Store) Get(ctx context.Context, endpoint string) (*Mirror, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.mirrorKey(endpoint)),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load mirror: %w", err)
	}
	defer func() {
		if err := out.Body.Close(); err != nil {
			log.Printf("Warning: failed to close S3 object body: %v", err)
		}
	}()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror object: %w", err)
	}
	var m Mirror
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode mirror object: %w", err)
	}
	return &m, nil
}

func (s *S3Store) List(ctx context.Context, activeOnly bool) ([]*Mirror, error) {
	var out []*Mirror

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "mirrors/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list mirrors: %w", err)
		}
		for _, obj := range page.Contents {
			res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				log.Printf("registry: skipping unreadable mirror object %s: %v", aws.ToString(obj.Key), err)
				continue
			}
			data, err := io.ReadAll(res.Body)
			_ = res.Body.Close()
			if err != nil {
				log.Printf("registry: skipping unreadable mirror object %s: %v", aws.ToString(obj.Key), err)
				continue
			}
			var m Mirror
			if err := json.Unmarshal(data, &m); err != nil {
				log.Printf("registry: skipping malformed mirror object %s: %v", aws.ToString(obj.Key), err)
				continue
			}
			if activeOnly && !m.Active {
				continue
			}
			out = append(out, &m)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *S3Store) MarkInactive(ctx context.Context, endpoint string) error {
	m, err := s.Get(ctx, endpoint)
	if err != nil || m == nil {
		return err
	}
	m.Active = false
	return s.putJSON(ctx, s.mirrorKey(endpoint), m)
}

func (s *S3Store) Delete(ctx context.Context, endpoint string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.mirrorKey(endpoint)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete mirror: %w", err)
	}
	return nil
}

func (s *S3Store) DeleteInactive(ctx context.Context) (int, error) {
	all, err := s.List(ctx, false)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range all {
		if m.Active {
			continue
		}
		if err := s.Delete(ctx, m.Endpoint); err != nil {
			log.Printf("registry: failed to delete inactive mirror %s: %v", m.Endpoint, err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *S3Store) RecordClose(ctx context.Context, notificationID string, ts time.Time) error {
	entry := closeEntry{NotificationID: notificationID, Timestamp: ts}
	key := fmt.Sprintf("%scloses/%s.json", s.prefix, uuid.New().String())
	return s.putJSON(ctx, key, entry)
}

func (s *S3Store) Close() error {
	return nil
}
