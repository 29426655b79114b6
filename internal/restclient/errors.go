package restclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-mesh/internal/util"
)

// ParseErrorMarker tags the payload of responses whose body is not JSON.
const ParseErrorMarker = "Error while parsing json"

// Kind classifies a failed CMS call.
type Kind string

const (
	KindTransport   Kind = "transport"
	KindParse       Kind = "parse"
	KindApplication Kind = "application"
	// KindRequest marks calls rejected before anything was sent, such as a
	// uuid that does not fit in one path segment.
	KindRequest Kind = "request"
)

// Error is the response-shaped failure returned by every client operation.
// Status is the HTTP status of the CMS response, or 500 when the request
// never produced one. Data carries the CMS error payload for application
// errors and a parse description for parse errors.
type Error struct {
	Status int
	Kind   Kind
	Data   any
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Err != nil:
		return fmt.Sprintf("mesh %s error (status %d): %v", e.Kind, e.Status, e.Err)
	case e.Data != nil:
		return fmt.Sprintf("mesh %s error (status %d): %v", e.Kind, e.Status, e.Data)
	default:
		return fmt.Sprintf("mesh %s error (status %d)", e.Kind, e.Status)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ParseFailure is the Data of a KindParse error.
type ParseFailure struct {
	ParseError string `json:"parseError"`
	Message    string `json:"message"`
	URL        string `json:"url"`
}

// AsError extracts a client error from err.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	if clientErr, ok := AsError(err); ok && clientErr.Status > 0 {
		return clientErr.Status
	}
	return util.StatusError
}

func transportError(err error) *Error {
	return &Error{Status: util.StatusError, Kind: KindTransport, Data: err.Error(), Err: err}
}

func requestError(err error) *Error {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return &Error{Status: http.StatusBadRequest, Kind: KindRequest, Data: err.Error(), Err: err}
}
