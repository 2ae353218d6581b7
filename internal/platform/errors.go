// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// Windows errno values that show up when exports live on NTFS or SMB
// shares. Mirrored here so the hints compile without a windows build tag.
const (
	errnoAccessDenied     = syscall.Errno(5)
	errnoSharingViolation = syscall.Errno(32)
	errnoLockViolation    = syscall.Errno(33)
	errnoNameTooLong      = syscall.Errno(206)
	errnoPrivilegeNotHeld = syscall.Errno(1314)
)

// FileError decorates a failed file operation with the path involved
// and, when the failure class is recognizable, a hint the operator can
// act on. Batch exports often sit on shared drives with restrictive
// ACLs, so the hint carries most of the support value.
type FileError struct {
	Op   string
	Path string
	Err  error
	Hint string
}

func (e *FileError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s %s: %v (%s)", e.Op, e.Path, e.Err, e.Hint)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// WrapFileError attaches path context and an operator hint to err.
// A nil err passes through untouched.
func WrapFileError(err error, path, op string) error {
	if err == nil {
		return nil
	}
	return &FileError{Op: op, Path: path, Err: err, Hint: hintFor(err, path)}
}

// hintFor classifies err into the failure modes operators actually hit.
// The errno comparisons only run on Windows: the same numeric values
// mean unrelated things on Unix (5 is EIO on Linux).
func hintFor(err error, path string) string {
	if !IsWindows() {
		if os.IsPermission(err) {
			return "permission denied; check ownership and mode of the export"
		}
		return ""
	}

	switch {
	case isAccessDenied(err):
		return "access denied; check the share ACL or run from an elevated prompt"
	case isPathTooLong(err):
		return fmt.Sprintf("path is %d characters; enable Win32 long paths or move the export closer to the drive root", len(path))
	case isFileInUse(err):
		return "the file is open in another program; close it and rerun"
	case strings.Contains(err.Error(), "network path was not found"):
		return "network share unreachable; check the connection to the file server"
	}
	return ""
}

func isAccessDenied(err error) bool {
	if os.IsPermission(err) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case errnoAccessDenied, errnoPrivilegeNotHeld:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "access is denied") ||
		strings.Contains(msg, "access denied")
}

func isPathTooLong(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == errnoNameTooLong {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "filename or extension is too long") ||
		strings.Contains(msg, "name is too long")
}

func isFileInUse(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case errnoSharingViolation, errnoLockViolation:
			return true
		}
	}
	return strings.Contains(err.Error(), "being used by another process")
}
