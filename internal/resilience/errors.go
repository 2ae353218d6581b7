// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package resilience classifies batch input failures and retries the
// transient ones. Registry exports arrive over flaky court mirrors and
// S3 buckets; a reconciliation run should ride out a throttled LIST or
// a dropped connection, and fail fast on bad credentials or a missing
// object.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType buckets input failures by how the pipeline should react.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransient covers dropped connections and DNS hiccups
	ErrorTypeTransient
	// ErrorTypePermanent covers credential and permission failures
	ErrorTypePermanent
	ErrorTypeTimeout
	// ErrorTypeRateLimit covers registry throttling and S3 SlowDown
	ErrorTypeRateLimit
	ErrorTypeServiceUnavailable
	// ErrorTypeNotFound covers missing objects, buckets, and files
	ErrorTypeNotFound
	ErrorTypeInvalidInput
)

// String returns the label used in logs
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeServiceUnavailable:
		return "service_unavailable"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an input failure with its bucket and retry
// decision.
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable reports whether the failure is worth another attempt
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError buckets an input failure. Unrecognized errors are not
// retried: an unknown failure repeated three times is three failures,
// not a recovery.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	if classified, ok := err.(*ClassifiedError); ok {
		return classified
	}

	if isNetworkError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("network error: %v", err),
			Retryable: true,
		}
	}

	if isTimeoutError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("timeout: %v", err),
			Retryable: true,
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	// S3 surfaces throttling as SlowDown; court mirrors as 429 text
	case strings.Contains(errStr, "slowdown") || strings.Contains(errStr, "slow down") ||
		strings.Contains(errStr, "throttl") || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeRateLimit,
			Message:   fmt.Sprintf("rate limited: %v", err),
			Retryable: true,
		}

	case strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeServiceUnavailable,
			Message:   fmt.Sprintf("source unavailable: %v", err),
			Retryable: true,
		}

	case strings.Contains(errStr, "access denied") || strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "invalidaccesskeyid") ||
		strings.Contains(errStr, "signaturedoesnotmatch"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypePermanent,
			Message:   fmt.Sprintf("credential or permission failure: %v", err),
			Retryable: false,
		}

	// A batch file that is not there will not appear on retry
	case strings.Contains(errStr, "no such key") || strings.Contains(errStr, "nosuchkey") ||
		strings.Contains(errStr, "no such bucket") || strings.Contains(errStr, "nosuchbucket") ||
		strings.Contains(errStr, "no such file") || strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "does not exist"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeNotFound,
			Message:   fmt.Sprintf("input not found: %v", err),
			Retryable: false,
		}

	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "malformed"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeInvalidInput,
			Message:   fmt.Sprintf("invalid input: %v", err),
			Retryable: false,
		}
	}

	return &ClassifiedError{
		Original:  err,
		Type:      ErrorTypeUnknown,
		Message:   fmt.Sprintf("unclassified error: %v", err),
		Retryable: false,
	}
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// NewTransientError wraps a failure that should be retried
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError wraps a failure that retrying cannot fix
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable reports whether an error should be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}
