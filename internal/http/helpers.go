package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func decodeJSON(r *http.Request, target any) error {
	if r == nil || r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

// localRedirect accepts only same-site absolute paths.
func localRedirect(target string) (string, bool) {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return "", false
	}
	return target, true
}

// copyHeaders copies the CMS response headers worth forwarding for a binary
// download.
func copyHeaders(dst, src http.Header) {
	for _, key := range forwardedHeaders {
		if values := src.Values(key); len(values) > 0 {
			dst[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
	}
}

var forwardedHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Disposition",
	"Cache-Control",
	"ETag",
	"Last-Modified",
}
