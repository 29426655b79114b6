package restclient

import (
	"io"
	"net/http"
)

// Result is a successful CMS response. For binary responses IsBinary is set,
// Data is the zero value and Stream holds the unread body, which the caller
// must close.
type Result[T any] struct {
	Status   int
	Data     T
	IsBinary bool
	Stream   io.ReadCloser
	Header   http.Header
}

// Close releases the binary stream, if any.
func (r *Result[T]) Close() error {
	if r == nil || r.Stream == nil {
		return nil
	}
	return r.Stream.Close()
}
