// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"docket-scan/internal/platform"
)

// Expand resolves raw input arguments into concrete file paths and
// object URIs: globs expand, directories walk, S3 prefixes list.
// Inputs expand concurrently (S3 listings dominate the wall time) but
// the result keeps argument order, with each argument's expansion
// sorted, so the downstream pipeline sees a deterministic batch.
func (m *Manager) Expand(ctx context.Context, inputs []string, recursive bool, maxParallel int) ([]string, error) {
	if maxParallel <= 0 {
		maxParallel = 4
	}

	expanded := make([][]string, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, input := range inputs {
		g.Go(func() error {
			paths, err := m.expandOne(gctx, input, recursive)
			if err != nil {
				return fmt.Errorf("input %s: %w", input, err)
			}
			expanded[i] = paths
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, paths := range expanded {
		for _, p := range paths {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Manager) expandOne(ctx context.Context, input string, recursive bool) ([]string, error) {
	if IsS3URI(input) {
		if m.s3 == nil {
			return nil, fmt.Errorf("no S3 source configured")
		}
		keys, err := m.s3.List(ctx, input)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, key := range keys {
			if m.ReaderFor(key) != nil {
				out = append(out, key)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no readable objects found")
		}
		return out, nil
	}

	if strings.ContainsAny(input, "*?[") {
		matches, err := filepath.Glob(input)
		if err != nil {
			return nil, fmt.Errorf("bad glob pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern")
		}
		sort.Strings(matches)
		var out []string
		for _, match := range matches {
			sub, err := m.expandLocal(match, recursive)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	}

	return m.expandLocal(input, recursive)
}

// expandLocal turns one local path into the files under it. Explicitly
// named files pass through even with an unclaimed extension; directory
// walks keep only files a reader claims and skip hidden entries.
func (m *Manager) expandLocal(input string, recursive bool) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, platform.WrapFileError(err, input, "stat")
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	var out []string
	if recursive {
		err = filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if p != input && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return nil
			}
			if m.ReaderFor(p) != nil {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(input)
		if err != nil {
			return nil, platform.WrapFileError(err, input, "read directory")
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			p := filepath.Join(input, entry.Name())
			if m.ReaderFor(p) != nil {
				out = append(out, p)
			}
		}
	}

	sort.Strings(out)
	return out, nil
}
