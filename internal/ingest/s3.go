// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"docket-scan/internal/observability"
	"docket-scan/internal/platform"
	"docket-scan/internal/resilience"
)

// S3Config carries the settings for reading batch inputs from S3.
// Empty credentials fall back to the default provider chain
// (environment, shared config, instance role).
type S3Config struct {
	Region    string
	AccessKey string
	SecretKey string
	TempDir   string
}

// S3Source stages s3:// inputs to local temp files so the readers can
// treat every input the same way. Listing carries its own retry and
// circuit breaker because it runs outside the worker pool; object
// fetches are retried by the pool that drives them.
type S3Source struct {
	client   *s3.Client
	tempDir  string
	observer *observability.StandardObserver
	breaker  *resilience.CircuitBreaker
}

// NewS3Source creates a new S3 input source
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	var awsCfg aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	src := &S3Source{
		client:  s3.NewFromConfig(awsCfg),
		tempDir: tempDir,
	}
	breakerCfg := resilience.DefaultCircuitBreakerConfig("s3_list")
	breakerCfg.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
		if src.observer != nil {
			src.observer.LogOperation(observability.StandardObservabilityData{
				Component: "s3_source",
				Operation: "breaker_state",
				Source:    name,
				Success:   to == resilience.StateClosed,
				Metadata: map[string]interface{}{
					"from": from.String(),
					"to":   to.String(),
				},
			})
		}
	}
	src.breaker = resilience.NewCircuitBreaker(breakerCfg)
	return src, nil
}

// SetObserver sets the observability component
func (s *S3Source) SetObserver(observer *observability.StandardObserver) {
	s.observer = observer
}

// IsS3URI reports whether the input names an S3 object or prefix
func IsS3URI(input string) bool {
	return strings.HasPrefix(input, "s3://")
}

// ParseS3URI splits s3://bucket/key into bucket and key. The key may
// be empty when the URI names a whole bucket.
func ParseS3URI(uri string) (string, string, error) {
	rest := strings.TrimPrefix(uri, "s3://")
	if rest == uri {
		return "", "", fmt.Errorf("not an S3 URI: %s", uri)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in S3 URI: %s", uri)
	}
	return bucket, key, nil
}

// List returns the object URIs under a prefix, in the lexicographic
// key order S3 serves them. Zero-byte directory markers are skipped.
func (s *S3Source) List(ctx context.Context, uri string) ([]string, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	var keys []string
	list := func(ctx context.Context) error {
		keys = keys[:0]
		var token *string
		for {
			out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(bucket),
				Prefix:            aws.String(prefix),
				ContinuationToken: token,
			})
			if err != nil {
				return fmt.Errorf("failed to list s3://%s/%s: %w", bucket, prefix, err)
			}
			for _, obj := range out.Contents {
				if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
					continue
				}
				keys = append(keys, fmt.Sprintf("s3://%s/%s", bucket, *obj.Key))
			}
			if out.IsTruncated == nil || !*out.IsTruncated {
				break
			}
			token = out.NextContinuationToken
		}
		return nil
	}

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.RetryWithBackoff(ctx, resilience.RemoteRetryConfig(), list)
	})
	if err != nil {
		return nil, err
	}

	if s.observer != nil {
		s.observer.LogOperation(observability.StandardObservabilityData{
			Component: "s3_source",
			Operation: "list_objects",
			Source:    uri,
			Success:   true,
			Metadata: map[string]interface{}{
				"object_count": len(keys),
			},
		})
	}
	return keys, nil
}

// Fetch downloads one object to a temp file and returns its path. The
// caller removes the file when done. The object key's extension is
// kept so reader routing still works on the staged copy.
func (s *S3Source) Fetch(ctx context.Context, uri string) (string, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return "", err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("S3 URI names a prefix, not an object: %s", uri)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	pattern := "docket-scan-*" + strings.ToLower(path.Ext(key))
	tmp, err := os.CreateTemp(s.tempDir, pattern)
	if err != nil {
		return "", platform.WrapFileError(err, s.tempDir, "create temp file")
	}
	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to stage s3://%s/%s: %w", bucket, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", platform.WrapFileError(err, tmp.Name(), "close")
	}

	if s.observer != nil {
		s.observer.LogOperation(observability.StandardObservabilityData{
			Component: "s3_source",
			Operation: "fetch_object",
			Source:    uri,
			Success:   true,
			Metadata: map[string]interface{}{
				"staged_path": tmp.Name(),
			},
		})
	}
	return tmp.Name(), nil
}
