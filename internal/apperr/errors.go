// Package apperr defines the sentinel errors shared across the wiki engine.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a url has no backing page file.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a page already exists at a url.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPathEscape is returned when a resolved path would leave the content
	// root. The operation aborts before any file is touched.
	ErrPathEscape = errors.New("path escapes content root")
	// ErrMalformedContent is returned for page files missing the blank line
	// between metadata header and body, or with unparseable header lines.
	ErrMalformedContent = errors.New("malformed content")
	// ErrRenderFailure is returned when the markup renderer rejects input.
	ErrRenderFailure = errors.New("render failure")
)
