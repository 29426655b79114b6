package di

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-mesh/internal/auth"
	"github.com/goliatone/go-mesh/internal/filters"
	"github.com/goliatone/go-mesh/internal/handlers"
	"github.com/goliatone/go-mesh/internal/languages"
	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/logging/gologger"
	"github.com/goliatone/go-mesh/internal/metrics"
	"github.com/goliatone/go-mesh/internal/renderer"
	"github.com/goliatone/go-mesh/internal/restclient"
	"github.com/goliatone/go-mesh/internal/runtimeconfig"
	"github.com/goliatone/go-mesh/internal/session"
	"github.com/goliatone/go-mesh/internal/templates"
	"github.com/goliatone/go-mesh/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
)

// Container wires the frontend runtime: one REST client, one renderer with
// its handler stores, the language service and the template engine.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	registry       *prometheus.Registry
	metrics        *metrics.Collector
	httpClient     *http.Client
	catalog        map[string]map[string]string

	templates renderer.Templates
	languages *languages.Service
	filters   *filters.Set
	client    *restclient.Client
	renderer  *renderer.Renderer
	sessions  *session.Store
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected by the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithTemplate replaces the html/template engine over the view directory.
func WithTemplate(tpl renderer.Templates) Option {
	return func(c *Container) {
		c.templates = tpl
	}
}

// WithHTTPClient overrides the HTTP client used for CMS calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Container) {
		c.httpClient = client
	}
}

// WithMetricsRegistry registers the collectors on reg instead of a private
// registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(c *Container) {
		c.registry = reg
	}
}

// WithTranslations seeds the translation catalog, keyed by language code.
func WithTranslations(catalog map[string]map[string]string) Option {
	return func(c *Container) {
		c.catalog = catalog
	}
}

// WithSessionStore replaces the in-memory visitor session store.
func WithSessionStore(store *session.Store) Option {
	return func(c *Container) {
		c.sessions = store
	}
}

// NewContainer validates cfg and builds every service.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{Config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.loggerProvider == nil {
		provider, err := newLoggerProvider(cfg.Logging)
		if err != nil {
			return nil, err
		}
		c.loggerProvider = provider
	}
	c.metrics = metrics.New(c.registry)

	langOpts := []languages.Option{languages.WithLogger(logging.LanguagesLogger(c.loggerProvider))}
	if c.catalog != nil {
		langOpts = append(langOpts, languages.WithCatalog(c.catalog))
	}
	c.languages = languages.New(cfg, langOpts...)
	if cfg.LanguageDirectory != "" {
		if err := c.languages.Load(context.Background()); err != nil {
			logging.LanguagesLogger(c.loggerProvider).Warn("language files not loaded", "error", err)
		}
	}

	if c.templates == nil {
		c.templates = templates.New(cfg.ViewDirectory,
			templates.WithExtension(cfg.Rendering.TemplateExtension),
			templates.WithReload(cfg.Development),
		)
	}
	c.filters = filters.NewSet(
		filters.WithTranslator(c.languages),
		filters.WithLanguage(cfg.DefaultLanguage()),
	)
	if err := c.filters.Register(c.templates); err != nil {
		return nil, err
	}

	c.client = restclient.New(cfg,
		restclient.WithHTTPClient(c.httpClient),
		restclient.WithLogger(logging.ClientLogger(c.loggerProvider)),
		restclient.WithLanguages(c.languages),
		restclient.WithObserver(c.metrics),
	)

	rnd, err := renderer.New(cfg, renderer.Dependencies{
		Schemas:   handlers.NewSchemaStore(),
		Views:     handlers.NewViewStore[*renderer.RenderData](),
		Errors:    handlers.NewErrorStore(),
		Templates: c.templates,
		Languages: c.languages,
		Auth:      c.client.Resolver(),
		Logger:    logging.RendererLogger(c.loggerProvider),
		Metrics:   c.metrics,
	})
	if err != nil {
		return nil, err
	}
	c.renderer = rnd

	if c.sessions == nil {
		c.sessions = session.NewStore(cfg.Session.CookieName, session.WithSecureCookie(cfg.Session.Secure))
	}
	return c, nil
}

func newLoggerProvider(cfg runtimeconfig.LoggingConfig) (interfaces.LoggerProvider, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Provider), "noop") {
		return logging.NoOpProvider(), nil
	}
	return gologger.NewProvider(gologger.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		Focus:     cfg.Focus,
	})
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

func (c *Container) Metrics() *metrics.Collector { return c.metrics }

func (c *Container) Templates() renderer.Templates { return c.templates }

func (c *Container) Languages() *languages.Service { return c.languages }

func (c *Container) Filters() *filters.Set { return c.filters }

func (c *Container) Client() *restclient.Client { return c.client }

func (c *Container) Renderer() *renderer.Renderer { return c.renderer }

func (c *Container) Sessions() *session.Store { return c.sessions }

// Resolver returns the credential resolver shared by client and renderer.
func (c *Container) Resolver() auth.Resolver { return c.client.Resolver() }
