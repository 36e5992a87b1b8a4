// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain error taxonomy. Handlers map these to HTTP codes in one place; the
// webhook surface additionally downgrades ConflictError to an acknowledgment
// so providers stop retrying.

type ValidationError struct {
	Message string
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Message }

type AuthenticationError struct {
	Message string
}

func NewAuthenticationError(format string, args ...interface{}) *AuthenticationError {
	return &AuthenticationError{Message: fmt.Sprintf(format, args...)}
}

func (e *AuthenticationError) Error() string { return e.Message }

type NotFoundError struct {
	Entity     string
	Identifier string
}

func NewNotFoundError(entity, identifier string) *NotFoundError {
	return &NotFoundError{Entity: entity, Identifier: identifier}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Identifier)
}

// ConflictError reports that an optimistic transition check lost, or that a
// webhook delivery was a duplicate.
type ConflictError struct {
	Message string
}

func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func (e *ConflictError) Error() string { return e.Message }

// UpstreamError wraps a telephony/storage/transcription provider failure.
type UpstreamError struct {
	Provider string
	Message  string
	Err      error
}

func NewUpstreamError(provider, message string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Message: message, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// HttpStatus maps a domain error to the response code of the internal API
// surface.
func HttpStatus(err error) int {
	var (
		validation *ValidationError
		authn      *AuthenticationError
		notFound   *NotFoundError
		conflict   *ConflictError
		upstream   *UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &authn):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}
