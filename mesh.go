package mesh

import (
	"context"
	"net/http"

	"github.com/goliatone/go-mesh/internal/auth"
	"github.com/goliatone/go-mesh/internal/di"
	"github.com/goliatone/go-mesh/internal/handlers"
	meshhttp "github.com/goliatone/go-mesh/internal/http"
	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/nodes"
	"github.com/goliatone/go-mesh/internal/renderer"
	"github.com/goliatone/go-mesh/internal/restclient"
	"github.com/goliatone/go-mesh/internal/session"
	"github.com/goliatone/go-mesh/pkg/interfaces"
)

// Node exports the CMS content node.
type Node = nodes.Node

// Ref exports schema, user and tag family references.
type Ref = nodes.Ref

// Nav exports a navigation tree.
type Nav = nodes.Nav

// NavElement exports one navigation entry.
type NavElement = nodes.NavElement

// Tag exports a CMS tag.
type Tag = nodes.Tag

// TagFamily exports a CMS tag family.
type TagFamily = nodes.TagFamily

// SearchQuery exports the search request body.
type SearchQuery = nodes.SearchQuery

// NodeList exports a paged list of nodes.
type NodeList = nodes.ListResponse[*nodes.Node]

// Params exports the ordered CMS query parameters.
type Params = restclient.Params

// ClientError exports the failure returned by every CMS call.
type ClientError = restclient.Error

// Credentials exports a CMS username and password.
type Credentials = auth.Credentials

// RenderData exports the data handed to view handlers and templates.
type RenderData = renderer.RenderData

// RenderInformation exports the visitor state of a render.
type RenderInformation = renderer.RenderInformation

// HandlerID identifies a schema or view handler registration.
type HandlerID = handlers.HandlerID

// SchemaHandler runs before nodes of its schema are rendered.
type SchemaHandler = handlers.SchemaHandler

// ViewHandler runs before every view is rendered.
type ViewHandler = handlers.Func[*renderer.RenderData]

// ErrorHandler produces the response for an error status.
type ErrorHandler = handlers.ErrorHandler

// Option customises the module container.
type Option = di.Option

var (
	WithLoggerProvider  = di.WithLoggerProvider
	WithTemplate        = di.WithTemplate
	WithHTTPClient      = di.WithHTTPClient
	WithMetricsRegistry = di.WithMetricsRegistry
	WithTranslations    = di.WithTranslations
	WithSessionStore    = di.WithSessionStore
)

// ErrNoErrorHandler is reported when no error handler matches a status.
var ErrNoErrorHandler = handlers.ErrNoErrorHandler

// NewParams returns empty query parameters.
func NewParams() *Params {
	return restclient.NewParams()
}

// Module represents the top level mesh runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a mesh module using the provided configuration and optional overrides.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Config returns the validated configuration.
func (m *Module) Config() Config {
	return m.container.Config
}

func (m *Module) RegisterSchemaHandler(schema string, handler SchemaHandler) HandlerID {
	return m.container.Renderer().Schemas().Register(schema, handler)
}

func (m *Module) UnregisterSchemaHandler(schema string, id HandlerID) bool {
	return m.container.Renderer().Schemas().Unregister(schema, id)
}

func (m *Module) RegisterViewHandler(handler ViewHandler) HandlerID {
	return m.container.Renderer().Views().Register(handler)
}

func (m *Module) UnregisterViewHandler(id HandlerID) bool {
	return m.container.Renderer().Views().Unregister(id)
}

// RegisterErrorHandler sets the handler for status, replacing any previous
// one.
func (m *Module) RegisterErrorHandler(status int, handler ErrorHandler) {
	m.container.Renderer().Errors().Register(status, handler)
}

func (m *Module) UnregisterErrorHandler(status int) bool {
	return m.container.Renderer().Errors().Unregister(status)
}

// RenderNode renders node as the response to r.
func (m *Module) RenderNode(w http.ResponseWriter, r *http.Request, node *Node) {
	m.container.Renderer().RenderNode(w, r, node)
}

// RenderView renders the named view with data after the view handlers ran.
func (m *Module) RenderView(w http.ResponseWriter, r *http.Request, view string, data *RenderData) {
	m.container.Renderer().RenderView(w, r, view, data)
}

// RenderError answers r with an error response for status.
func (m *Module) RenderError(w http.ResponseWriter, r *http.Request, status int, cause error) {
	m.container.Renderer().RenderError(w, r, status, cause)
}

// RenderData builds the render data for node from the request state.
func (m *Module) RenderData(ctx context.Context, node *Node) *RenderData {
	return m.container.Renderer().RenderData(ctx, node)
}

// Login checks the credentials against the CMS and, on success, stores them in
// the session of ctx so later calls act as that user.
func (m *Module) Login(ctx context.Context, username, password string) bool {
	creds := Credentials{Username: username, Password: password}
	if !m.container.Client().Login(ctx, creds) {
		return false
	}
	sess := session.FromContext(ctx)
	if sess == nil {
		logging.ClientLogger(m.container.LoggerProvider()).Warn("login without session, credentials not kept", "username", username)
		return true
	}
	auth.Store(sess, creds)
	return true
}

// Logout ends the CMS session and removes the stored credentials. The
// session acts as the public user afterwards even if the CMS call failed.
func (m *Module) Logout(ctx context.Context) bool {
	loggedOut := m.container.Client().Logout(ctx)
	auth.Clear(session.FromContext(ctx))
	return loggedOut
}

// SearchNodes runs a search query.
func (m *Module) SearchNodes(ctx context.Context, query SearchQuery, params *Params) (*restclient.Result[NodeList], error) {
	return m.container.Client().Search(ctx, query, params)
}

// GetChildren lists the children of uuid in language.
func (m *Module) GetChildren(ctx context.Context, uuid, language string, params *Params) (*restclient.Result[NodeList], error) {
	return m.container.Client().GetChildren(ctx, uuid, language, params)
}

func (m *Module) GetNode(ctx context.Context, uuid string, params *Params) (*restclient.Result[*Node], error) {
	return m.container.Client().GetNode(ctx, uuid, params)
}

func (m *Module) GetWebrootNode(ctx context.Context, path string, params *Params) (*restclient.Result[*Node], error) {
	return m.container.Client().GetWebrootNode(ctx, path, params)
}

func (m *Module) GetNavigationByPath(ctx context.Context, path string, params *Params) (*restclient.Result[*Nav], error) {
	return m.container.Client().GetNavigationByPath(ctx, path, params)
}

func (m *Module) GetNavigationByUUID(ctx context.Context, uuid string, params *Params) (*restclient.Result[*Nav], error) {
	return m.container.Client().GetNavigationByUUID(ctx, uuid, params)
}

func (m *Module) GetTagFamilies(ctx context.Context, params *Params) (*restclient.Result[nodes.ListResponse[*TagFamily]], error) {
	return m.container.Client().GetTagFamilies(ctx, params)
}

func (m *Module) GetTagsOfTagFamily(ctx context.Context, uuid string, params *Params) (*restclient.Result[nodes.ListResponse[*Tag]], error) {
	return m.container.Client().GetTagsOfTagFamily(ctx, uuid, params)
}

// Get performs an authenticated GET against any CMS endpoint.
func (m *Module) Get(ctx context.Context, url string, params *Params) (*restclient.Result[any], error) {
	return m.container.Client().Get(ctx, url, params)
}

// Request performs an authenticated call against any CMS endpoint.
func (m *Module) Request(ctx context.Context, method, url string, params *Params, body any) (*restclient.Result[any], error) {
	return restclient.SimpleRequest[any](ctx, m.container.Client(), method, url, params, body)
}

// SetLanguage switches the active language of the session in ctx.
func (m *Module) SetLanguage(ctx context.Context, code string) bool {
	return m.container.Languages().SetLanguage(ctx, code)
}

// Translate looks key up for locale.
func (m *Module) Translate(locale, key string, args ...any) (string, error) {
	return m.container.Languages().Translate(locale, key, args...)
}

// WatchLanguages reloads the language files whenever they change, until ctx
// is done.
func (m *Module) WatchLanguages(ctx context.Context) error {
	return m.container.Languages().Watch(ctx)
}

// RegisterTemplateFilters installs the translate, youtube, moment, markdown
// and slugify filters into another template engine.
func (m *Module) RegisterTemplateFilters(registrar interfaces.FilterRegistrar) error {
	return m.container.Filters().Register(registrar)
}

// Handler serves the CMS webroot with sessions, ?lang= handling, login and
// logout routes and /metrics.
func (m *Module) Handler() http.Handler {
	return meshhttp.NewRouter(meshhttp.Options{
		Content:   m.container.Client(),
		Renderer:  m.container.Renderer(),
		Auth:      m,
		Languages: m.container.Languages(),
		Sessions:  m.container.Sessions(),
		Metrics:   m.container.Metrics().Handler(),
		Logger:    logging.HTTPLogger(m.container.LoggerProvider()),
	})
}
