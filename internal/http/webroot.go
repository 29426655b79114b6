package http

import (
	"io"
	"net/http"

	"github.com/goliatone/go-mesh/internal/restclient"
)

// Webroot resolves the request path against the CMS webroot. The visitor's
// query is forwarded to the CMS, except lang which only switches the session
// language. Binary nodes are streamed with their headers, other nodes are
// rendered. CMS statuses of 400 and above, and failed calls, end in the error
// path.
func (s *Server) Webroot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.WithContext(ctx)

	result, err := s.content.GetWebrootNode(ctx, r.URL.Path, webrootParams(r))
	if err != nil {
		status := restclient.StatusOf(err)
		logger.Warn("webroot lookup failed", "path", r.URL.Path, "status", status, "error", err)
		s.renderer.RenderError(w, r, status, err)
		return
	}
	defer result.Close()

	if result.Status >= http.StatusBadRequest {
		s.renderer.RenderError(w, r, result.Status, &restclient.Error{
			Status: result.Status,
			Kind:   restclient.KindApplication,
			Data:   result.Data,
		})
		return
	}

	if result.IsBinary {
		copyHeaders(w.Header(), result.Header)
		w.WriteHeader(result.Status)
		if r.Method == http.MethodHead || result.Stream == nil {
			return
		}
		if _, err := io.Copy(w, result.Stream); err != nil {
			logger.Warn("binary stream interrupted", "path", r.URL.Path, "error", err)
		}
		return
	}
	s.renderer.RenderNode(w, r, result.Data)
}

func webrootParams(r *http.Request) *restclient.Params {
	query := r.URL.Query()
	query.Del(restclient.ParamLang)
	return restclient.FromQuery(query)
}
