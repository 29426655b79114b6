package restclient

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-mesh/internal/auth"
	"github.com/goliatone/go-mesh/internal/runtimeconfig"
)

// Request describes one outbound CMS call. A Request is built per call and
// never reused.
type Request struct {
	URL         string
	Method      string
	Body        any
	Params      *Params
	Credentials auth.Credentials
	Logging     runtimeconfig.LoggingConfig
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// Target returns the URL including the encoded query string.
func (r *Request) Target() string {
	return r.URL + r.Params.Encode()
}

func (r *Request) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.URL, validation.Required),
		validation.Field(&r.Method, validation.In(
			"", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch,
			"get", "post", "put", "delete", "patch",
		)),
	)
}
