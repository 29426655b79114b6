package renderer

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mesh/internal/auth"
	"github.com/goliatone/go-mesh/internal/handlers"
	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/metrics"
	"github.com/goliatone/go-mesh/internal/nodes"
	"github.com/goliatone/go-mesh/internal/runtimeconfig"
	"github.com/goliatone/go-mesh/internal/util"
	"github.com/goliatone/go-mesh/pkg/interfaces"
)

const (
	schemaMissingCode = "MESH_SCHEMA_MISSING"
	renderCycleCode   = "MESH_RENDER_CYCLE"
	renderDepthCode   = "MESH_RENDER_DEPTH"
)

// Render kinds reported to metrics.
const (
	kindNode     = "node"
	kindView     = "view"
	kindError    = "error"
	kindFragment = "fragment"
)

var (
	ErrSchemaMissing = errors.New("renderer: no schema found")
	ErrRenderCycle   = errors.New("renderer: node references itself")
	ErrRenderDepth   = errors.New("renderer: nested nodes exceed max depth")

	errTemplatesRequired = errors.New("renderer: template renderer is required")
	errLanguagesRequired = errors.New("renderer: language service is required")
)

// Templates is the template collaborator: rendering plus the existence check
// used for view selection.
type Templates interface {
	interfaces.TemplateRenderer
	interfaces.ViewLocator
}

// Dependencies lists the collaborators of a Renderer.
type Dependencies struct {
	Schemas   *handlers.SchemaStore
	Views     *handlers.ViewStore[*RenderData]
	Errors    *handlers.ErrorStore
	Templates Templates
	Languages interfaces.LanguageService
	Auth      auth.Resolver
	Logger    interfaces.Logger
	Metrics   *metrics.Collector
}

// Renderer turns CMS nodes into HTML responses. Nested micro-nodes are
// rendered to fragments first, then schema handlers, view selection and view
// handlers run before the template is emitted.
type Renderer struct {
	cfg       runtimeconfig.Config
	schemas   *handlers.SchemaStore
	views     *handlers.ViewStore[*RenderData]
	errs      *handlers.ErrorStore
	templates Templates
	languages interfaces.LanguageService
	auth      auth.Resolver
	logger    interfaces.Logger
	metrics   *metrics.Collector
	now       func() time.Time
}

func New(cfg runtimeconfig.Config, deps Dependencies) (*Renderer, error) {
	if deps.Templates == nil {
		return nil, errTemplatesRequired
	}
	if deps.Languages == nil {
		return nil, errLanguagesRequired
	}
	r := &Renderer{
		cfg:       cfg,
		schemas:   deps.Schemas,
		views:     deps.Views,
		errs:      deps.Errors,
		templates: deps.Templates,
		languages: deps.Languages,
		auth:      deps.Auth,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
	if r.schemas == nil {
		r.schemas = handlers.NewSchemaStore()
	}
	if r.views == nil {
		r.views = handlers.NewViewStore[*RenderData]()
	}
	if r.errs == nil {
		r.errs = handlers.NewErrorStore()
	}
	if r.logger == nil {
		r.logger = logging.NoOp()
	}
	return r, nil
}

func (r *Renderer) Schemas() *handlers.SchemaStore { return r.schemas }

func (r *Renderer) Views() *handlers.ViewStore[*RenderData] { return r.views }

func (r *Renderer) Errors() *handlers.ErrorStore { return r.errs }

// RenderNode renders node as the response to req. The schema key picks both
// the handler chain and the template; a missing template falls back to the
// default view. The node language becomes the active language before nested
// nodes are expanded. Failures before the view is selected go to RenderError
// with status 500.
func (r *Renderer) RenderNode(w http.ResponseWriter, req *http.Request, node *nodes.Node) {
	start := r.now()
	ctx := withRequest(req.Context(), req)

	key := node.SchemaKey()
	if key == "" {
		uuid := ""
		if node != nil {
			uuid = node.UUID
		}
		r.metrics.ObserveRender(kindNode, metrics.OutcomeError, r.now().Sub(start))
		r.RenderError(w, req, util.StatusError, schemaMissing(uuid))
		return
	}
	logger := logging.WithRenderContext(r.logger, key, "", node.UUID).WithContext(ctx)
	if node.Language != "" {
		r.languages.SetLanguage(ctx, node.Language)
	}

	resolved, err := r.expandFields(ctx, node.Clone(), trail{}.with(node.UUID), 0)
	if err == nil {
		resolved, err = r.schemas.Run(ctx, key, resolved)
	}
	if err != nil {
		logger.Error("schema handlers failed", "error", err)
		r.metrics.ObserveRender(kindNode, metrics.OutcomeError, r.now().Sub(start))
		r.RenderError(w, req, util.StatusError, err)
		return
	}

	data := r.RenderData(ctx, resolved)
	view, outcome := key, metrics.OutcomeSuccess
	if !r.templates.Exists(key) {
		logger.Warn("template for schema not found, using default", "default_view", r.cfg.DefaultView)
		view, outcome = r.cfg.DefaultView, metrics.OutcomeFallback
	}
	r.metrics.ObserveRender(kindNode, outcome, r.now().Sub(start))
	r.RenderView(w, req, view, data)
}

// RenderView runs the view handlers over data and renders the view name. When
// a handler fails the untouched data is rendered with Meta["error"] = true.
func (r *Renderer) RenderView(w http.ResponseWriter, req *http.Request, name string, data *RenderData) {
	start := r.now()
	ctx := withRequest(req.Context(), req)
	logger := logging.WithRenderContext(r.logger, "", name, "").WithContext(ctx)
	if data == nil {
		data = NewRenderData()
	}
	if data.Meta == nil {
		data.Meta = map[string]any{}
	}

	outcome := metrics.OutcomeSuccess
	handled, err := r.views.Run(ctx, data.Clone())
	if err != nil {
		logger.Error("view handler failed", "error", err)
		handled = data
		handled.Meta[MetaError] = true
		outcome = metrics.OutcomeFallback
	}
	if handled == nil {
		handled = data
	}
	r.dumpRenderData(logger, handled)

	if err := r.emit(w, name, handled, 0); err != nil {
		logger.Error("view render failed", "error", err)
		outcome = metrics.OutcomeError
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
	r.metrics.ObserveRender(kindView, outcome, r.now().Sub(start))
}

// RenderError answers req with an error response. A handler registered for
// status produces the response on its own; without one, or when it fails,
// the view named after status or the default error view is rendered with
// the cause in Meta["error"]. View handlers do not run on this path.
func (r *Renderer) RenderError(w http.ResponseWriter, req *http.Request, status int, cause error) {
	start := r.now()
	ctx := withRequest(req.Context(), req)
	logger := r.logger.WithContext(ctx)

	err := r.errs.Run(w, req.WithContext(ctx), status, cause)
	if err == nil {
		r.metrics.ObserveRender(kindError, metrics.OutcomeSuccess, r.now().Sub(start))
		return
	}
	if errors.Is(err, handlers.ErrNoErrorHandler) {
		logger.Debug("no error handler registered", "status", status)
	} else {
		logger.Error("error handler failed", "status", status, "error", err)
	}
	logger.Error("rendering error view", "status", status, "error", cause)

	view := strconv.Itoa(status)
	if !r.templates.Exists(view) {
		view = r.cfg.DefaultErrorView
	}
	data := NewRenderData()
	data.RenderInformation = r.RenderInformation(ctx, nil)
	data.Meta[MetaError] = cause
	r.dumpRenderData(logger, data)

	outcome := metrics.OutcomeFallback
	if err := r.emit(w, view, data, status); err != nil {
		logger.Error("error view render failed", "view", view, "error", err)
		outcome = metrics.OutcomeError
		http.Error(w, http.StatusText(status), status)
	}
	r.metrics.ObserveRender(kindError, outcome, r.now().Sub(start))
}

// emit renders name completely before anything is written to w, so a failing
// template leaves the response untouched.
func (r *Renderer) emit(w http.ResponseWriter, name string, data *RenderData, status int) error {
	out, err := r.templates.Render(name, data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status > 0 {
		w.WriteHeader(status)
	}
	if _, err := io.WriteString(w, out); err != nil {
		r.logger.Warn("writing response failed", "view", name, "error", err)
	}
	return nil
}

func (r *Renderer) dumpRenderData(logger interfaces.Logger, data *RenderData) {
	if !r.cfg.Logging.RenderData {
		return
	}
	raw, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		logger.Warn("render data not serialisable", "error", err)
		return
	}
	logger.Info("render data", "data", string(raw))
}

func schemaMissing(uuid string) error {
	return goerrors.Wrap(fmt.Errorf("%w for node %q", ErrSchemaMissing, uuid), goerrors.CategoryValidation, "No schema found").
		WithTextCode(schemaMissingCode)
}
