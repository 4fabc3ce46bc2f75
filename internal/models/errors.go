package models

import "errors"

var (
	// ErrValidation indicates a missing or malformed required input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates an issue, page, space or stored setting was not found.
	ErrNotFound = errors.New("not found")

	// ErrUploadFailure indicates a failure anywhere in the per-attachment
	// upload path. It never fails the batch.
	ErrUploadFailure = errors.New("attachment upload failed")

	// ErrLinkFormat indicates a wiki page URL without a numeric page id.
	ErrLinkFormat = errors.New("page id not present in the confluence link provided")
)
