package restclient

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	urlkit "github.com/goliatone/go-urlkit"

	"github.com/goliatone/go-mesh/internal/runtimeconfig"
)

// ErrInvalidPathSegment reports a uuid or path segment that cannot be sent to
// the CMS as a single path segment.
var ErrInvalidPathSegment = errors.New("restclient: invalid path segment")

const (
	apiGroup     = "mesh"
	projectGroup = "project"

	routeSearch      = "search"
	routeLogin       = "login"
	routeLogout      = "logout"
	routeNode        = "node"
	routeNavigation  = "navigation"
	routeTagFamilies = "tagFamilies"
	routeTags        = "tags"
	routeWebroot     = "webroot"
	routeNavroot     = "navroot"

	uuidParam = "uuid"
)

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9._~-]+$`)

// routes resolves CMS endpoints through a go-urlkit route manager. API routes
// live under the configured base, project routes under base + project.
type routes struct {
	api     *urlkit.Group
	project *urlkit.Group
	err     error
}

func newRoutes(cfg runtimeconfig.Config) *routes {
	manager := urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    apiGroup,
				BaseURL: strings.TrimSuffix(cfg.BackendURL, "/"),
				Path:    rootPath(cfg.Base),
				Paths: map[string]string{
					routeSearch: "/search/nodes",
					routeLogin:  "/auth/login",
					routeLogout: "/auth/logout",
				},
				Groups: []urlkit.GroupConfig{
					{
						Name: projectGroup,
						Path: "/" + url.PathEscape(strings.Trim(cfg.Project, "/")),
						Paths: map[string]string{
							routeNode:        "/nodes/:uuid",
							routeNavigation:  "/nodes/:uuid/navigation",
							routeTagFamilies: "/tagFamilies",
							routeTags:        "/tagFamilies/:uuid/tags",
							routeWebroot:     rootPath(cfg.Webroot),
							routeNavroot:     rootPath(cfg.Navroot),
						},
					},
				},
			},
		},
	})

	r := &routes{}
	r.api, r.err = lookupGroup(manager, apiGroup)
	if r.err == nil {
		r.project, r.err = lookupChildGroup(r.api, projectGroup)
	}
	return r
}

// API builds an endpoint relative to the base, such as auth/login.
func (r *routes) API(route string) (string, error) {
	if r.err != nil {
		return "", requestError(r.err)
	}
	return build(r.api, route, nil)
}

// Project builds a project endpoint. A non-empty uuid fills the :uuid
// parameter and must be a single unreserved segment.
func (r *routes) Project(route, uuid string) (string, error) {
	if r.err != nil {
		return "", requestError(r.err)
	}
	var params map[string]string
	if route == routeNode || route == routeNavigation || route == routeTags {
		if !segmentPattern.MatchString(uuid) || uuid == "." || uuid == ".." {
			return "", requestError(fmt.Errorf("%w: uuid %q", ErrInvalidPathSegment, uuid))
		}
		params = map[string]string{uuidParam: uuid}
	}
	return build(r.project, route, params)
}

// Under builds a webroot or navroot URL for path. Each segment of path is
// escaped on its own so "?" and "#" stay part of the node path.
func (r *routes) Under(route, path string) (string, error) {
	root, err := r.Project(route, "")
	if err != nil {
		return "", err
	}
	escaped, err := escapePath(path)
	if err != nil {
		return "", requestError(err)
	}
	return root + escaped, nil
}

func build(group *urlkit.Group, route string, params map[string]string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = requestError(fmt.Errorf("restclient: route %q: %v", route, rec))
		}
	}()
	builder := group.Builder(route)
	for key, value := range params {
		builder.WithParam(key, value)
	}
	out, err = builder.Build()
	if err != nil {
		return "", requestError(fmt.Errorf("restclient: route %q: %w", route, err))
	}
	return out, nil
}

func escapePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, segment := range segments {
		if segment == "." || segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPathSegment, path)
		}
		segments[i] = url.PathEscape(segment)
	}
	return "/" + strings.Join(segments, "/"), nil
}

func rootPath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

func lookupGroup(manager *urlkit.RouteManager, name string) (group *urlkit.Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("restclient: route group %q not found", name)
		}
	}()
	return manager.Group(name), nil
}

func lookupChildGroup(parent *urlkit.Group, name string) (group *urlkit.Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("restclient: route group %q not found", name)
		}
	}()
	return parent.Group(name), nil
}
