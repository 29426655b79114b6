package restclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-mesh/internal/auth"
	"github.com/goliatone/go-mesh/internal/nodes"
)

const (
	defaultNavigationDepth = 10
	resolveLinksShort      = "short"
)

// GetNode fetches a node by uuid.
func (c *Client) GetNode(ctx context.Context, uuid string, params *Params) (*Result[*nodes.Node], error) {
	url, err := c.routes.Project(routeNode, uuid)
	if err != nil {
		return nil, err
	}
	result, err := SimpleRequest[*nodes.Node](ctx, c, http.MethodGet, url, params, nil)
	if err != nil {
		return nil, err
	}
	c.checkPublished(result)
	return result, nil
}

// GetWebrootNode fetches the node published under path. An empty or root
// path resolves to the configured index. A query string on path is moved to
// the parameters, where params win on conflicts.
func (c *Client) GetWebrootNode(ctx context.Context, path string, params *Params) (*Result[*nodes.Node], error) {
	path, params = splitQuery(path, params)
	if path == "" || path == "/" {
		path = c.cfg.Index
	}
	url, err := c.routes.Under(routeWebroot, path)
	if err != nil {
		return nil, err
	}
	result, err := SimpleRequest[*nodes.Node](ctx, c, http.MethodGet, url, params, nil)
	if err != nil {
		return nil, err
	}
	c.checkPublished(result)
	return result, nil
}

func (c *Client) checkPublished(result *Result[*nodes.Node]) {
	if !c.cfg.CheckPublished || result.IsBinary {
		return
	}
	if result.Data == nil || !result.Data.Published {
		result.Status = http.StatusNotFound
	}
}

// GetChildren lists the children of uuid in language through a filtered
// search. The orderBy parameter picks the sort field, "created" otherwise.
func (c *Client) GetChildren(ctx context.Context, uuid, language string, params *Params) (*Result[nodes.ListResponse[*nodes.Node]], error) {
	query := nodes.ChildrenQuery(uuid, language, params.Get(ParamOrderBy))
	return c.Search(ctx, query, params)
}

// Search posts query to the search endpoint.
func (c *Client) Search(ctx context.Context, query nodes.SearchQuery, params *Params) (*Result[nodes.ListResponse[*nodes.Node]], error) {
	url, err := c.routes.API(routeSearch)
	if err != nil {
		return nil, err
	}
	req := c.NewRequest(ctx, http.MethodPost, url)
	req.Params = params.Clone()
	req.Params.Set(ParamResolveLinks, resolveLinksShort)
	if languages := c.preferredLanguages(ctx); len(languages) > 0 {
		req.Params.Set(ParamLang, strings.Join(languages, ","))
	}
	req.Body = query
	return Do[nodes.ListResponse[*nodes.Node]](ctx, c, req)
}

// GetNavigationByPath loads the navigation tree below path.
func (c *Client) GetNavigationByPath(ctx context.Context, path string, params *Params) (*Result[*nodes.Nav], error) {
	url, err := c.routes.Under(routeNavroot, path)
	if err != nil {
		return nil, err
	}
	return SimpleRequest[*nodes.Nav](ctx, c, http.MethodGet, url, withNavigationDepth(params), nil)
}

// GetNavigationByUUID loads the navigation tree rooted at uuid.
func (c *Client) GetNavigationByUUID(ctx context.Context, uuid string, params *Params) (*Result[*nodes.Nav], error) {
	url, err := c.routes.Project(routeNavigation, uuid)
	if err != nil {
		return nil, err
	}
	return SimpleRequest[*nodes.Nav](ctx, c, http.MethodGet, url, withNavigationDepth(params), nil)
}

func splitQuery(path string, params *Params) (string, *Params) {
	path, rawQuery, found := strings.Cut(path, "?")
	if !found || rawQuery == "" {
		return path, params
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return path, params
	}
	out := FromQuery(query)
	if params != nil {
		for _, key := range params.keys {
			out.Set(key, params.values[key])
		}
	}
	return path, out
}

func withNavigationDepth(params *Params) *Params {
	out := params.Clone()
	if out.Get(ParamMaxDepth) == "" || out.Get(ParamMaxDepth) == "0" {
		out.MaxDepth(defaultNavigationDepth)
	}
	return out
}

func (c *Client) GetTagFamilies(ctx context.Context, params *Params) (*Result[nodes.ListResponse[*nodes.TagFamily]], error) {
	url, err := c.routes.Project(routeTagFamilies, "")
	if err != nil {
		return nil, err
	}
	return SimpleRequest[nodes.ListResponse[*nodes.TagFamily]](ctx, c, http.MethodGet, url, params, nil)
}

func (c *Client) GetTagsOfTagFamily(ctx context.Context, uuid string, params *Params) (*Result[nodes.ListResponse[*nodes.Tag]], error) {
	url, err := c.routes.Project(routeTags, uuid)
	if err != nil {
		return nil, err
	}
	return SimpleRequest[nodes.ListResponse[*nodes.Tag]](ctx, c, http.MethodGet, url, params, nil)
}

// Login checks creds against the CMS. The call authenticates as creds so the
// session cookie the CMS hands out is cached for them. Any failure yields
// false.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) bool {
	url, err := c.routes.API(routeLogin)
	if err != nil {
		c.logger.WithContext(ctx).Warn("cms.login.failed", "username", creds.Username, "error", err)
		return false
	}
	req := c.NewRequest(ctx, http.MethodPost, url)
	req.Credentials = creds
	req.Body = map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	}
	result, err := Do[any](ctx, c, req)
	if err != nil {
		c.logger.WithContext(ctx).Warn("cms.login.failed", "username", creds.Username, "error", err)
		return false
	}
	return result.Status == http.StatusOK
}

// Logout ends the CMS session of the credentials resolved for ctx and drops
// their cached cookie. Any failure yields false.
func (c *Client) Logout(ctx context.Context) bool {
	url, err := c.routes.API(routeLogout)
	if err != nil {
		c.logger.WithContext(ctx).Warn("cms.logout.failed", "error", err)
		return false
	}
	req := c.NewRequest(ctx, http.MethodPost, url)
	result, err := Do[any](ctx, c, req)
	if err != nil {
		c.logger.WithContext(ctx).Warn("cms.logout.failed", "username", req.Credentials.Username, "error", err)
		return false
	}
	if result.Status != http.StatusOK {
		return false
	}
	if req.Credentials != c.resolver.Public() {
		c.cookies.Delete(req.Credentials)
	}
	return true
}

// SimpleRequest performs an authenticated call against any CMS endpoint.
// Relative URLs are prefixed with the configured base and backend. The
// resolveLinks parameter is forced to "short" and the preferred languages are
// sent unless params already name a language.
func SimpleRequest[T any](ctx context.Context, c *Client, method, url string, params *Params, body any) (*Result[T], error) {
	req := c.NewRequest(ctx, method, c.absoluteURL(url))
	req.Params = params.Clone()
	req.Params.Set(ParamResolveLinks, resolveLinksShort)
	if !req.Params.Has(ParamLang) {
		if languages := c.preferredLanguages(ctx); len(languages) > 0 {
			req.Params.Set(ParamLang, strings.Join(languages, ","))
		}
	}
	req.Body = body
	return Do[T](ctx, c, req)
}

// Get is SimpleRequest with GET and an untyped payload.
func (c *Client) Get(ctx context.Context, url string, params *Params) (*Result[any], error) {
	return SimpleRequest[any](ctx, c, http.MethodGet, url, params, nil)
}

func (c *Client) absoluteURL(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, c.cfg.Base) {
		url = strings.TrimSuffix(c.cfg.Base, "/") + "/" + strings.TrimPrefix(url, "/")
	}
	if !strings.Contains(url, c.cfg.BackendURL) {
		url = c.cfg.BackendURL + url
	}
	return url
}

func (c *Client) preferredLanguages(ctx context.Context) []string {
	if c.languages == nil {
		return nil
	}
	return c.languages.PreferredLanguageOrder(ctx)
}
