package di_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mesh/internal/di"
	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/runtimeconfig"
	"github.com/goliatone/go-mesh/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
)

type noopProvider struct{}

func (noopProvider) GetLogger(string) interfaces.Logger { return logging.NoOp() }

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.BackendURL = "not a url"

	if _, err := di.NewContainer(cfg); err == nil || !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestContainerWiresTemplatesFiltersAndRenderer(t *testing.T) {
	views := t.TempDir()
	if err := os.WriteFile(filepath.Join(views, "page.html"), []byte(`{{translate "hello"}}|{{slugify "Hello World"}}`), 0o644); err != nil {
		t.Fatalf("write view: %v", err)
	}
	cfg := runtimeconfig.DefaultConfig()
	cfg.ViewDirectory = views

	container, err := di.NewContainer(cfg,
		di.WithLoggerProvider(noopProvider{}),
		di.WithTranslations(map[string]map[string]string{"de": {"hello": "Hallo"}}),
		di.WithMetricsRegistry(prometheus.NewRegistry()),
	)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	container.Renderer().RenderView(rec, httptest.NewRequest(http.MethodGet, "/", nil), "page", nil)
	if got := rec.Body.String(); got != "Hallo|hello-world" {
		t.Fatalf("unexpected body %q", got)
	}

	if container.Resolver().Public().Username != cfg.PublicUser.Username {
		t.Fatalf("expected public user to come from config")
	}
	if container.Client() == nil || container.Sessions() == nil || container.Metrics() == nil {
		t.Fatalf("expected client, session store and metrics to be wired")
	}
}

func TestContainerClientUsesInjectedHTTPClient(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uuid":"n1","schema":{"name":"page"}}`))
	}))
	defer server.Close()

	cfg := runtimeconfig.DefaultConfig()
	cfg.BackendURL = server.URL
	container, err := di.NewContainer(cfg, di.WithLoggerProvider(noopProvider{}), di.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	result, err := container.Client().GetNode(context.Background(), "n1", nil)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if calls != 1 || result.Data == nil || result.Data.SchemaKey() != "page" {
		t.Fatalf("unexpected result %+v after %d calls", result.Data, calls)
	}
}
