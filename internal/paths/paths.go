// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package paths locates the files docket-scan reads and writes outside
// the batch inputs themselves: the config file, the linkage overrides
// file, and the staging area for uploads and S3 downloads.
package paths

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"docket-scan/internal/platform"
)

// Windows NT path ceiling. The 260 character MAX_PATH default is a
// shell limit, not a filesystem one.
const windowsMaxPath = 32767

// GetConfigDir returns the directory holding config.yaml and the
// overrides file. DOCKET_CONFIG_DIR wins on every platform; otherwise
// the platform picks APPDATA or an XDG/home location.
func GetConfigDir() string {
	return platform.Current().ConfigDir()
}

// GetConfigFile returns the path of the main config file.
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetOverridesFile returns the path of the linkage overrides file.
func GetOverridesFile() string {
	return filepath.Join(GetConfigDir(), "docket-overrides.yaml")
}

// GetTempDir returns where upload copies and S3 downloads are staged.
func GetTempDir() string {
	return platform.Current().TempDir()
}

// NormalizePath cleans a path for the current platform, keeping UNC
// prefixes intact on Windows.
func NormalizePath(path string) string {
	return platform.Current().NormalizePath(path)
}

// ValidatePath rejects paths the current platform cannot store. Empty
// paths are valid; they mean "use the default".
func ValidatePath(path string) error {
	if path == "" {
		return nil
	}
	if platform.IsWindows() {
		return validateWindowsPath(path)
	}
	return validateUnixPath(path)
}

func validateWindowsPath(path string) error {
	if len(path) > windowsMaxPath {
		return &PathValidationError{
			Path:   path,
			Reason: fmt.Sprintf("longer than %d characters", windowsMaxPath),
		}
	}
	for i, r := range path {
		if r == ':' && i == 1 {
			continue // drive letter
		}
		if strings.ContainsRune(`<>:"|?*`, r) {
			return &PathValidationError{
				Path:   path,
				Reason: "contains reserved character " + strconv.Quote(string(r)),
			}
		}
	}
	return nil
}

func validateUnixPath(path string) error {
	if strings.ContainsRune(path, 0) {
		return &PathValidationError{Path: path, Reason: "contains a NUL byte"}
	}
	return nil
}

// PathValidationError reports a path a config file asked for that the
// platform cannot use.
type PathValidationError struct {
	Path   string
	Reason string
}

func (e *PathValidationError) Error() string {
	return "invalid path " + strconv.Quote(e.Path) + ": " + e.Reason
}
