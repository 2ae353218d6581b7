// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"os"
	"path/filepath"
)

// unixPlatform covers Linux and macOS, where exports usually arrive via
// rsync or an S3 sync job. Defaults follow XDG conventions.
type unixPlatform struct{}

func (unixPlatform) ConfigDir() string {
	if dir := os.Getenv("DOCKET_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docket-scan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".docket-scan")
}

func (unixPlatform) TempDir() string {
	for _, env := range []string{"TMPDIR", "TMP"} {
		if dir := os.Getenv(env); dir != "" {
			return dir
		}
	}
	return "/tmp"
}

func (unixPlatform) NormalizePath(path string) string {
	return filepath.Clean(path)
}
