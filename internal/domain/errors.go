package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrEnrichmentFailed  = errors.New("enrichment failed")
)

// ParseErrorKind classifies why a release was rejected.
type ParseErrorKind string

const (
	KindBlacklisted ParseErrorKind = "blacklisted"
	KindStale       ParseErrorKind = "stale"
	KindMalformed   ParseErrorKind = "malformed"
	KindNoStoreLink ParseErrorKind = "no_store_link"
)

// ParseError marks a release that is skipped on purpose. It never aborts a run.
type ParseError struct {
	Kind    ParseErrorKind
	Dirname string
	Reason  string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.Dirname, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Dirname, e.Kind, e.Reason)
}

// ErrorKind implements the error classifier contract used by log fields.
func (e *ParseError) ErrorKind() string {
	return string(e.Kind)
}

// IsParseError reports whether err is a ParseError, optionally of one of kinds.
func IsParseError(err error, kinds ...ParseErrorKind) bool {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, kind := range kinds {
		if parseErr.Kind == kind {
			return true
		}
	}
	return false
}

// Wrap tags err with marker so callers can classify it with errors.Is.
func Wrap(marker error, operation string, err error) error {
	operation = strings.TrimSpace(operation)
	if err == nil {
		if operation == "" {
			return marker
		}
		return fmt.Errorf("%w: %s", marker, operation)
	}
	if operation == "" {
		return fmt.Errorf("%w: %w", marker, err)
	}
	return fmt.Errorf("%w: %s: %w", marker, operation, err)
}
