// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// windowsPlatform keeps configuration under APPDATA and preserves UNC
// prefixes, since firm file servers commonly expose tribunal exports as
// \\server\share paths.
type windowsPlatform struct{}

func (windowsPlatform) ConfigDir() string {
	if dir := os.Getenv("DOCKET_CONFIG_DIR"); dir != "" {
		return dir
	}
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "docket-scan")
	}
	if profile := os.Getenv("USERPROFILE"); profile != "" {
		return filepath.Join(profile, ".docket-scan")
	}
	return ".docket-scan"
}

func (windowsPlatform) TempDir() string {
	for _, env := range []string{"TEMP", "TMP"} {
		if dir := os.Getenv(env); dir != "" {
			return dir
		}
	}
	return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local", "Temp")
}

// NormalizePath cleans the path while restoring the double backslash of
// a UNC share, which filepath.Clean collapses on non-Windows builds.
func (windowsPlatform) NormalizePath(path string) string {
	normalized := filepath.Clean(path)
	if strings.HasPrefix(path, `\\`) && !strings.HasPrefix(normalized, `\\`) {
		normalized = `\\` + strings.TrimPrefix(normalized, `\`)
	}
	return normalized
}
