package mesh_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"maps"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	mesh "github.com/goliatone/go-mesh"
	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/session"
	"github.com/goliatone/go-mesh/pkg/interfaces"
)

type silentProvider struct{}

func (silentProvider) GetLogger(string) interfaces.Logger { return logging.NoOp() }

type cmsBackend struct {
	mu      sync.Mutex
	auths   map[string]string
	queries map[string]string
}

func (b *cmsBackend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auths[r.URL.Path] = r.Header.Get("Authorization")
	b.queries[r.URL.Path] = r.URL.RawQuery
}

func (b *cmsBackend) query(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[path]
}

func (b *cmsBackend) auth(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.auths[path]
}

func basic(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func newCMS(t *testing.T) (*httptest.Server, *cmsBackend) {
	t.Helper()
	backend := &cmsBackend{auths: map[string]string{}, queries: map[string]string{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backend.record(r)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/auth/login"):
			if r.Header.Get("Authorization") != basic("editor", "secret") {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"bad credentials"}`)
				return
			}
			w.Header().Set("Set-Cookie", "mesh.session=editor-cookie; Path=/")
			_, _ = io.WriteString(w, `{"message":"ok"}`)
		case strings.HasSuffix(r.URL.Path, "/auth/logout"):
			_, _ = io.WriteString(w, `{"message":"bye"}`)
		case strings.HasSuffix(r.URL.Path, "/webroot/missing.html"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not found"}`)
		case strings.Contains(r.URL.Path, "/webroot/"):
			_, _ = io.WriteString(w, `{
				"uuid": "n1",
				"language": "en",
				"availableLanguages": ["en"],
				"languagePaths": {"en": "/page.html"},
				"schema": {"name": "page"},
				"fields": {
					"title": "Hello",
					"teaser": {"microschema": {"name": "teaser"}, "fields": {"text": "nested"}}
				}
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	t.Cleanup(server.Close)
	return server, backend
}

func newModule(t *testing.T, backendURL string) *mesh.Module {
	t.Helper()
	return newModuleWith(t, backendURL, nil)
}

func newModuleWith(t *testing.T, backendURL string, overrides map[string]string, opts ...mesh.Option) *mesh.Module {
	t.Helper()
	views := t.TempDir()
	files := map[string]string{
		"page":   `{{.Node.Fields.title}}|{{.Node.Fields.teaser}}|{{.RenderInformation.Username}}|{{.Meta.extra}}`,
		"teaser": `<i>{{.Fields.text}}</i>`,
		"404":    `missing`,
		"error":  `error`,
	}
	maps.Copy(files, overrides)
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(views, name+".html"), []byte(content), 0o644); err != nil {
			t.Fatalf("write view: %v", err)
		}
	}
	cfg := mesh.DefaultConfig()
	cfg.BackendURL = backendURL
	cfg.ViewDirectory = views
	cfg.Client.Breaker.Enabled = false

	module, err := mesh.New(cfg, append([]mesh.Option{mesh.WithLoggerProvider(silentProvider{})}, opts...)...)
	if err != nil {
		t.Fatalf("mesh.New: %v", err)
	}
	return module
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServeWebrootAsPublicUser(t *testing.T) {
	cms, backend := newCMS(t)
	module := newModule(t, cms.URL)
	module.RegisterViewHandler(func(_ context.Context, data *mesh.RenderData) (*mesh.RenderData, error) {
		data.Meta["extra"] = "view"
		return data, nil
	})
	site := httptest.NewServer(module.Handler())
	defer site.Close()

	status, body := get(t, newBrowser(t), site.URL+"/page.html")

	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, body)
	}
	if body != "Hello|<i>nested</i>|admin|view" {
		t.Fatalf("unexpected body %q", body)
	}
	if got := backend.auth("/api/v1/demo/webroot/page.html"); got != basic("admin", "admin") {
		t.Fatalf("expected public user credentials, got %q", got)
	}
}

func TestServeWebrootTranslatesIntoVisitorLanguage(t *testing.T) {
	cms, backend := newCMS(t)
	module := newModuleWith(t, cms.URL, map[string]string{
		"page":   `{{translate "hello"}}|{{.RenderInformation.ActiveLanguage}}|{{.Node.Fields.teaser}}`,
		"teaser": `<i>{{translate "hello"}}</i>`,
	}, mesh.WithTranslations(map[string]map[string]string{
		"de": {"hello": "Hallo"},
		"en": {"hello": "Hello"},
	}))
	site := httptest.NewServer(module.Handler())
	defer site.Close()

	status, body := get(t, newBrowser(t), site.URL+"/page.html?lang=en&page=2&perPage=5")

	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, body)
	}
	if body != "Hello|en|<i>Hello</i>" {
		t.Fatalf("expected english translations, got %q", body)
	}
	if got := backend.query("/api/v1/demo/webroot/page.html"); !strings.Contains(got, "page=2") || !strings.Contains(got, "perPage=5") {
		t.Fatalf("expected visitor query forwarded to the CMS, got %q", got)
	}
}

func TestLoginThenFetchActsAsUser(t *testing.T) {
	cms, backend := newCMS(t)
	module := newModule(t, cms.URL)
	site := httptest.NewServer(module.Handler())
	defer site.Close()
	browser := newBrowser(t)

	resp, err := browser.Post(site.URL+"/login", "application/json", strings.NewReader(`{"username":"editor","password":"secret"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login to succeed, got %d", resp.StatusCode)
	}

	status, body := get(t, browser, site.URL+"/page.html")
	if status != http.StatusOK || !strings.Contains(body, "|editor|") {
		t.Fatalf("expected page rendered for editor, got %d %q", status, body)
	}
	if got := backend.auth("/api/v1/demo/webroot/page.html"); got != basic("editor", "secret") {
		t.Fatalf("expected editor credentials, got %q", got)
	}
	if cookie, ok := module.Container().Client().Cookies().Get(mesh.Credentials{Username: "editor", Password: "secret"}); !ok || cookie != "mesh.session=editor-cookie" {
		t.Fatalf("expected editor cookie to be cached, got %q", cookie)
	}

	status, _ = get(t, browser, site.URL+"/logout")
	if status != http.StatusOK {
		t.Fatalf("expected logout, got %d", status)
	}
	_, body = get(t, browser, site.URL+"/page.html")
	if !strings.Contains(body, "|admin|") {
		t.Fatalf("expected public user after logout, got %q", body)
	}
}

func TestLoginRejected(t *testing.T) {
	cms, _ := newCMS(t)
	module := newModule(t, cms.URL)

	ctx := session.WithSession(context.Background(), session.New())
	if module.Login(ctx, "editor", "wrong") {
		t.Fatalf("expected login to fail")
	}
	if _, ok := session.FromContext(ctx).Get("meshusername"); ok {
		t.Fatalf("expected no credentials in session")
	}
}

func TestServeWebrootErrorStatus(t *testing.T) {
	cms, _ := newCMS(t)
	module := newModule(t, cms.URL)
	site := httptest.NewServer(module.Handler())
	defer site.Close()

	status, body := get(t, newBrowser(t), site.URL+"/missing.html")
	if status != http.StatusNotFound || body != "missing" {
		t.Fatalf("expected 404 view, got %d %q", status, body)
	}
}

func TestRegisteredErrorHandlerOwnsResponse(t *testing.T) {
	cms, _ := newCMS(t)
	module := newModule(t, cms.URL)
	reason := errors.New("handler rejected")
	module.RegisterSchemaHandler("page", func(context.Context, *mesh.Node) (*mesh.Node, error) {
		return nil, reason
	})
	var cause error
	module.RegisterErrorHandler(http.StatusInternalServerError, func(w http.ResponseWriter, _ *http.Request, status int, err error) error {
		cause = err
		w.WriteHeader(status)
		_, _ = io.WriteString(w, "custom")
		return nil
	})
	site := httptest.NewServer(module.Handler())
	defer site.Close()

	status, body := get(t, newBrowser(t), site.URL+"/page.html")
	if status != http.StatusInternalServerError || body != "custom" {
		t.Fatalf("expected custom error response, got %d %q", status, body)
	}
	if cause != reason {
		t.Fatalf("expected handler rejection as cause, got %v", cause)
	}

	if !module.UnregisterErrorHandler(http.StatusInternalServerError) {
		t.Fatalf("expected error handler to be removed")
	}
	status, body = get(t, newBrowser(t), site.URL+"/page.html")
	if status != http.StatusInternalServerError || body != "error" {
		t.Fatalf("expected default error view, got %d %q", status, body)
	}
}

func TestUnregisterSchemaHandler(t *testing.T) {
	module := newModule(t, "http://localhost:8080")
	id := module.RegisterSchemaHandler("page", func(_ context.Context, node *mesh.Node) (*mesh.Node, error) {
		return node, nil
	})
	if !module.UnregisterSchemaHandler("page", id) || module.UnregisterSchemaHandler("page", id) {
		t.Fatalf("expected a single successful unregister")
	}
	viewID := module.RegisterViewHandler(func(_ context.Context, data *mesh.RenderData) (*mesh.RenderData, error) {
		return data, nil
	})
	if !module.UnregisterViewHandler(viewID) {
		t.Fatalf("expected view handler to be removed")
	}
}

type filterRecorder struct{ names []string }

func (f *filterRecorder) RegisterFilter(name string, _ func(any, any) (any, error)) error {
	f.names = append(f.names, name)
	return nil
}

func TestRegisterTemplateFilters(t *testing.T) {
	module := newModule(t, "http://localhost:8080")
	recorder := &filterRecorder{}
	if err := module.RegisterTemplateFilters(recorder); err != nil {
		t.Fatalf("register filters: %v", err)
	}
	if len(recorder.names) != 5 {
		t.Fatalf("expected five filters, got %v", recorder.names)
	}
}

func TestMetricsRoute(t *testing.T) {
	cms, _ := newCMS(t)
	module := newModule(t, cms.URL)
	site := httptest.NewServer(module.Handler())
	defer site.Close()

	get(t, newBrowser(t), site.URL+"/page.html")
	status, body := get(t, newBrowser(t), site.URL+"/metrics")
	if status != http.StatusOK || !strings.Contains(body, "mesh_cms_requests_total") {
		t.Fatalf("expected CMS request metrics, got %d", status)
	}
}
