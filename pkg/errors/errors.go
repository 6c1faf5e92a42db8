/*
 * Copyright 2025 The Notepair Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package errors provides structured errors with status and string codes.
// The codes are stable identifiers that cross the wire to clients, while the
// status classifies the failure for propagation decisions.
package errors

import (
	"errors"
)

// StatusError is an error carrying a status and a stable string code.
type StatusError interface {
	error
	Status() StatusCode
	Code() string
	WithCode(code string) StatusError
}

type statusError struct {
	err    error
	status StatusCode
	code   string
}

// Error returns the error message.
func (e statusError) Error() string {
	return e.err.Error()
}

// Status returns the status of this error.
func (e statusError) Status() StatusCode {
	return e.status
}

// Code returns the stable string code of this error.
func (e statusError) Code() string {
	return e.code
}

// Unwrap returns the underlying error.
func (e statusError) Unwrap() error {
	return e.err
}

// WithCode returns a copy of this error with the given code.
func (e statusError) WithCode(code string) StatusError {
	return statusError{
		err:    e.err,
		status: e.status,
		code:   code,
	}
}

func newStatusError(message string, status StatusCode) StatusError {
	return statusError{
		err:    errors.New(message),
		status: status,
	}
}

// NotFound creates an error for a resource that does not exist.
func NotFound(message string) StatusError {
	return newStatusError(message, ErrCodeNotFound)
}

// InvalidArgument creates an error for malformed client input.
func InvalidArgument(message string) StatusError {
	return newStatusError(message, ErrCodeInvalidArgument)
}

// AlreadyExists creates an error for a resource that already exists.
func AlreadyExists(message string) StatusError {
	return newStatusError(message, ErrCodeAlreadyExists)
}

// PermissionDenied creates an error for a caller lacking permission.
func PermissionDenied(message string) StatusError {
	return newStatusError(message, ErrCodePermissionDenied)
}

// FailedPrecond creates an error for an operation rejected by current state.
func FailedPrecond(message string) StatusError {
	return newStatusError(message, ErrCodeFailedPrecondition)
}

// Unauthenticated creates an error for missing or invalid credentials.
func Unauthenticated(message string) StatusError {
	return newStatusError(message, ErrCodeUnauthenticated)
}

// Internal creates an error for unexpected server-side failures.
func Internal(message string) StatusError {
	return newStatusError(message, ErrCodeInternal)
}

// Unavailable creates an error for temporarily unavailable resources.
func Unavailable(message string) StatusError {
	return newStatusError(message, ErrCodeUnavailable)
}

// StatusOf extracts the status from the given error, unwrapping as needed.
// It returns 0 when the error carries no status.
func StatusOf(err error) StatusCode {
	if err == nil {
		return 0
	}

	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status()
	}

	return 0
}

// CodeOf extracts the string code from the given error, unwrapping as
// needed. It returns "" when the error carries no code.
func CodeOf(err error) string {
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code()
	}

	return ""
}

// IsStatus checks whether the given error has the given status.
func IsStatus(err error, status StatusCode) bool {
	return StatusOf(err) == status
}
