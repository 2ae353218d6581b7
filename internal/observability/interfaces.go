// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

// Observable names a pipeline component for log attribution. The
// grouper and resolver identify themselves through it, so operation
// records and engine debug output carry a stable component label.
type Observable interface {
	// GetComponentName returns the component identifier
	GetComponentName() string
}
