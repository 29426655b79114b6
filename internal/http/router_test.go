package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goliatone/go-mesh/internal/languages"
	"github.com/goliatone/go-mesh/internal/nodes"
	"github.com/goliatone/go-mesh/internal/restclient"
	"github.com/goliatone/go-mesh/internal/runtimeconfig"
	"github.com/goliatone/go-mesh/internal/session"
)

type stubContent struct {
	result *restclient.Result[*nodes.Node]
	err    error
	paths  []string
	params []*restclient.Params
}

func (s *stubContent) GetWebrootNode(_ context.Context, path string, params *restclient.Params) (*restclient.Result[*nodes.Node], error) {
	s.paths = append(s.paths, path)
	s.params = append(s.params, params)
	return s.result, s.err
}

type stubRenderer struct {
	node   *nodes.Node
	status int
	cause  error
	lang   string
}

func (s *stubRenderer) RenderNode(w http.ResponseWriter, r *http.Request, node *nodes.Node) {
	s.node = node
	if sess := session.FromContext(r.Context()); sess != nil {
		s.lang, _ = sess.Get(languages.SessionKey)
	}
	_, _ = io.WriteString(w, "node:"+node.UUID)
}

func (s *stubRenderer) RenderError(w http.ResponseWriter, _ *http.Request, status int, cause error) {
	s.status = status
	s.cause = cause
	w.WriteHeader(status)
}

type stubAuth struct {
	accept    bool
	username  string
	password  string
	loggedOut bool
}

func (s *stubAuth) Login(_ context.Context, username, password string) bool {
	s.username, s.password = username, password
	return s.accept
}

func (s *stubAuth) Logout(context.Context) bool {
	s.loggedOut = true
	return true
}

func newTestRouter(content *stubContent, renderer *stubRenderer, auth *stubAuth) http.Handler {
	opts := Options{
		Content:   content,
		Renderer:  renderer,
		Languages: languages.New(runtimeconfig.DefaultConfig()),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "metrics")
		}),
	}
	if auth != nil {
		opts.Auth = auth
	}
	return NewRouter(opts)
}

func TestWebrootRendersNode(t *testing.T) {
	content := &stubContent{result: &restclient.Result[*nodes.Node]{
		Status: http.StatusOK,
		Data:   &nodes.Node{UUID: "n1", Schema: &nodes.Ref{Name: "page"}},
	}}
	renderer := &stubRenderer{}
	rec := httptest.NewRecorder()

	newTestRouter(content, renderer, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/news/article.html?lang=en", nil))

	if rec.Body.String() != "node:n1" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if len(content.paths) != 1 || content.paths[0] != "/news/article.html" {
		t.Fatalf("unexpected webroot paths %v", content.paths)
	}
	if renderer.lang != "en" {
		t.Fatalf("expected ?lang= to set the active language, got %q", renderer.lang)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestWebrootForwardsQueryWithoutLang(t *testing.T) {
	content := &stubContent{result: &restclient.Result[*nodes.Node]{
		Status: http.StatusOK,
		Data:   &nodes.Node{UUID: "n1", Schema: &nodes.Ref{Name: "list"}},
	}}

	req := httptest.NewRequest(http.MethodGet, "/list.html?perPage=5&page=2&lang=en&expand=teaser", nil)
	newTestRouter(content, &stubRenderer{}, nil).ServeHTTP(httptest.NewRecorder(), req)

	if len(content.params) != 1 {
		t.Fatalf("expected one webroot lookup, got %d", len(content.params))
	}
	if got := content.params[0].Encode(); got != "?expand=teaser&page=2&perPage=5" {
		t.Fatalf("expected forwarded query, got %q", got)
	}
}

func TestWebrootStreamsBinary(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Type", "image/png")
	header.Set("Content-Disposition", `inline; filename="logo.png"`)
	header.Set("Set-Cookie", "mesh.session=secret")
	content := &stubContent{result: &restclient.Result[*nodes.Node]{
		Status:   http.StatusOK,
		IsBinary: true,
		Stream:   io.NopCloser(strings.NewReader("PNGDATA")),
		Header:   header,
	}}
	renderer := &stubRenderer{}
	rec := httptest.NewRecorder()

	newTestRouter(content, renderer, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logo.png", nil))

	if rec.Body.String() != "PNGDATA" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/png" || rec.Header().Get("Content-Disposition") == "" {
		t.Fatalf("expected binary headers to be forwarded, got %v", rec.Header())
	}
	if strings.Contains(strings.Join(rec.Header().Values("Set-Cookie"), ";"), "mesh.session") {
		t.Fatalf("expected CMS cookies to stay private")
	}
	if renderer.node != nil {
		t.Fatalf("expected binary responses to skip rendering")
	}
}

func TestWebrootErrorStatus(t *testing.T) {
	content := &stubContent{result: &restclient.Result[*nodes.Node]{Status: http.StatusNotFound}}
	renderer := &stubRenderer{}
	rec := httptest.NewRecorder()

	newTestRouter(content, renderer, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if renderer.status != http.StatusNotFound || rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 error path, got %d / %d", renderer.status, rec.Code)
	}
	if restclient.StatusOf(renderer.cause) != http.StatusNotFound {
		t.Fatalf("expected cause to carry the CMS status, got %v", renderer.cause)
	}
}

func TestWebrootClientFailure(t *testing.T) {
	content := &stubContent{err: &restclient.Error{Status: 500, Kind: restclient.KindTransport, Err: errors.New("dial failed")}}
	renderer := &stubRenderer{}

	newTestRouter(content, renderer, nil).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if renderer.status != http.StatusInternalServerError {
		t.Fatalf("expected 500 error path, got %d", renderer.status)
	}
	if len(content.paths) != 1 || content.paths[0] != "/" {
		t.Fatalf("expected root path lookup, got %v", content.paths)
	}
}

func TestLoginForm(t *testing.T) {
	auth := &stubAuth{accept: true}
	form := url.Values{"username": {"editor"}, "password": {"secret"}, "redirect": {"/welcome"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	newTestRouter(&stubContent{}, &stubRenderer{}, auth).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/welcome" {
		t.Fatalf("expected redirect, got %d %v", rec.Code, rec.Header())
	}
	if auth.username != "editor" || auth.password != "secret" {
		t.Fatalf("unexpected credentials %+v", auth)
	}
}

func TestLoginJSONRejected(t *testing.T) {
	auth := &stubAuth{accept: false}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"editor","password":"wrong","redirect":"https://evil.example"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newTestRouter(&stubContent{}, &stubRenderer{}, auth).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"loggedin":false`) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestLoginRequiresUsername(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newTestRouter(&stubContent{}, &stubRenderer{}, &stubAuth{accept: true}).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	auth := &stubAuth{}
	rec := httptest.NewRecorder()

	newTestRouter(&stubContent{}, &stubRenderer{}, auth).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logout?redirect=/", nil))

	if !auth.loggedOut {
		t.Fatalf("expected logout")
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
}

func TestMetricsAndHealthRoutes(t *testing.T) {
	content := &stubContent{}
	router := newTestRouter(content, &stubRenderer{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Body.String() != "metrics" {
		t.Fatalf("unexpected metrics body %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK || len(content.paths) != 0 {
		t.Fatalf("expected health route to bypass the webroot")
	}
}

func TestRequestIDReusesHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get(RequestIDHeader) != "abc-123" || seen != "abc-123" {
		t.Fatalf("expected incoming request id to be reused")
	}
}

func TestLocalRedirect(t *testing.T) {
	cases := map[string]bool{
		"/home":                true,
		"//evil.example":       false,
		"https://evil.example": false,
		"":                     false,
		"/\\evil":              false,
	}
	for target, want := range cases {
		if _, ok := localRedirect(target); ok != want {
			t.Fatalf("redirect %q: expected %v", target, want)
		}
	}
}
