// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://exports/2024/batch.json", "exports", "2024/batch.json", false},
		{"s3://exports/prefix/", "exports", "prefix/", false},
		{"s3://exports", "exports", "", false},
		{"s3://exports/", "exports", "", false},
		{"s3://", "", "", true},
		{"https://exports/batch.json", "", "", true},
		{"exports/batch.json", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestIsS3URI(t *testing.T) {
	assert.True(t, IsS3URI("s3://bucket/key"))
	assert.False(t, IsS3URI("/local/path"))
	assert.False(t, IsS3URI("https://bucket/key"))
}

func TestS3Source_FetchRejectsPrefix(t *testing.T) {
	// URI validation runs before any client call, so a zero source is
	// enough to exercise it.
	src := &S3Source{}

	_, err := src.Fetch(context.Background(), "s3://bucket/prefix/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefix")

	_, err = src.Fetch(context.Background(), "s3://bucket")
	require.Error(t, err)

	_, err = src.Fetch(context.Background(), "not-a-uri")
	require.Error(t, err)
}
