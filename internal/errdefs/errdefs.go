package errdefs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes errors crossing component boundaries, so the API layer
// can map them to HTTP statuses without string matching.
type Kind string

const (
	KindInvalidIdentifier   Kind = "invalid_identifier"
	KindInvalidSegmentIndex Kind = "invalid_segment_index"
	KindUpstream            Kind = "upstream_error"
	KindNoSuitableFormat    Kind = "no_suitable_format"
	KindTranscode           Kind = "transcode_error"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidIdentifier(id string) error {
	return &Error{
		Kind:    KindInvalidIdentifier,
		Message: fmt.Sprintf("invalid video identifier %q", id),
	}
}

func InvalidSegmentIndex(raw string) error {
	return &Error{
		Kind:    KindInvalidSegmentIndex,
		Message: fmt.Sprintf("invalid segment index %q", raw),
	}
}

func Upstream(message string, err error) error {
	return &Error{
		Kind:    KindUpstream,
		Message: message,
		Err:     err,
	}
}

func NoSuitableFormat(quality string) error {
	return &Error{
		Kind:    KindNoSuitableFormat,
		Message: fmt.Sprintf("no suitable format for %q", quality),
	}
}

func Transcode(err error) error {
	return &Error{
		Kind:    KindTranscode,
		Message: "transcode failed",
		Err:     err,
	}
}

func GetKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := GetKind(err)
	return ok && k == kind
}

func IsInvalidIdentifier(err error) bool {
	return IsKind(err, KindInvalidIdentifier)
}

func IsInvalidSegmentIndex(err error) bool {
	return IsKind(err, KindInvalidSegmentIndex)
}

func IsUpstream(err error) bool {
	return IsKind(err, KindUpstream)
}

func IsNoSuitableFormat(err error) bool {
	return IsKind(err, KindNoSuitableFormat)
}

func IsTranscode(err error) bool {
	return IsKind(err, KindTranscode)
}

// HTTPStatus maps an error to the status code returned by the API layer.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch kind, _ := GetKind(err); kind {
	case KindInvalidIdentifier, KindInvalidSegmentIndex:
		return http.StatusBadRequest
	case KindNoSuitableFormat:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
