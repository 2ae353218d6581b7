// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package platform resolves the operating system differences that matter
// to batch processing: where configuration and override files live, where
// temporary copies of uploads and S3 downloads go, and how file errors
// should be explained to the operator.
package platform

import "runtime"

// Platform answers the OS-specific questions the rest of the pipeline
// asks. Exactly one implementation is active per process.
type Platform interface {
	ConfigDir() string
	TempDir() string
	NormalizePath(path string) string
}

// Current selects the implementation for the running OS.
func Current() Platform {
	if runtime.GOOS == "windows" {
		return windowsPlatform{}
	}
	return unixPlatform{}
}

// IsWindows reports whether the process is running on Windows.
func IsWindows() bool {
	return runtime.GOOS == "windows"
}
