package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/nodes"
	"github.com/goliatone/go-mesh/internal/restclient"
	"github.com/goliatone/go-mesh/internal/session"
	"github.com/goliatone/go-mesh/pkg/interfaces"
)

// Content fetches webroot nodes from the CMS.
type Content interface {
	GetWebrootNode(ctx context.Context, path string, params *restclient.Params) (*restclient.Result[*nodes.Node], error)
}

// Renderer produces node and error responses.
type Renderer interface {
	RenderNode(w http.ResponseWriter, r *http.Request, node *nodes.Node)
	RenderError(w http.ResponseWriter, r *http.Request, status int, cause error)
}

// Authenticator logs the visitor session in and out of the CMS.
type Authenticator interface {
	Login(ctx context.Context, username, password string) bool
	Logout(ctx context.Context) bool
}

// LanguageSetter switches the active language of a request.
type LanguageSetter interface {
	SetLanguage(ctx context.Context, code string) bool
}

// Options wires the router. Content and Renderer are required; the session
// routes are mounted only with an Authenticator and /metrics only with a
// Metrics handler.
type Options struct {
	Content   Content
	Renderer  Renderer
	Auth      Authenticator
	Languages LanguageSetter
	Sessions  *session.Store
	Metrics   http.Handler
	Logger    interfaces.Logger
}

// Server holds the route handlers.
type Server struct {
	content  Content
	renderer Renderer
	auth     Authenticator
	logger   interfaces.Logger
}

// NewRouter builds the chi router serving the CMS webroot.
func NewRouter(opts Options) chi.Router {
	srv := &Server{
		content:  opts.Content,
		renderer: opts.Renderer,
		auth:     opts.Auth,
		logger:   opts.Logger,
	}
	if srv.logger == nil {
		srv.logger = logging.NoOp()
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(Sessions(opts.Sessions))
	r.Use(Language(opts.Languages))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if srv.auth != nil {
		r.Post("/login", srv.Login)
		r.Get("/logout", srv.Logout)
		r.Post("/logout", srv.Logout)
	}
	r.Get("/*", srv.Webroot)
	r.Head("/*", srv.Webroot)
	return r
}
