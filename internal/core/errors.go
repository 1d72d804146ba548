package core

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes pipeline and search failures so callers (queues,
// retry endpoints, HTTP handlers) can branch without string matching.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindDownload          ErrorKind = "download"
	KindExtraction        ErrorKind = "extraction"
	KindExtractionTimeout ErrorKind = "extraction_timeout"
	KindEmptyContent      ErrorKind = "empty_content"
	KindPersistence       ErrorKind = "persistence"
	KindEmbedding         ErrorKind = "embedding"
)

// Error is a categorized pipeline error. It wraps an underlying cause and
// carries the kind a caller should branch on.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a categorized error wrapping cause (which may be nil).
func Errorf(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the kind from err, or "" if err is not a categorized error.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsKind reports whether err is a categorized error of the given kind.
// Extraction timeouts also count as extraction errors.
func IsKind(err error, kind ErrorKind) bool {
	k := KindOf(err)
	if k == kind {
		return true
	}
	return kind == KindExtraction && k == KindExtractionTimeout
}
