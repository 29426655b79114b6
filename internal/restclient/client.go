package restclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/goliatone/go-mesh/internal/auth"
	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/metrics"
	"github.com/goliatone/go-mesh/internal/runtimeconfig"
	"github.com/goliatone/go-mesh/internal/util"
	"github.com/goliatone/go-mesh/pkg/interfaces"
	gobreaker "github.com/sony/gobreaker/v2"
)

// LanguagePreferences supplies the ordered language list appended to CMS
// calls as the lang parameter.
type LanguagePreferences interface {
	PreferredLanguageOrder(ctx context.Context) []string
}

// Observer receives request metrics. *metrics.Collector implements it.
type Observer interface {
	ObserveRequest(method string, status int, outcome string, elapsed time.Duration)
	BreakerTransition(name, from, to string)
	SetCookieStoreSize(size int)
}

// Client talks to the CMS REST API on behalf of the current request.
type Client struct {
	cfg       runtimeconfig.Config
	http      *http.Client
	resolver  auth.Resolver
	cookies   *CookieStore
	routes    *routes
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	languages LanguagePreferences
	logger    interfaces.Logger
	observer  Observer
	now       func() time.Time
}

// Option customises a Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithLanguages(languages LanguagePreferences) Option {
	return func(c *Client) {
		c.languages = languages
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func WithCookieStore(store *CookieStore) Option {
	return func(c *Client) {
		if store != nil {
			c.cookies = store
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func New(cfg runtimeconfig.Config, opts ...Option) *Client {
	client := &Client{
		cfg:     cfg,
		cookies: NewCookieStore(),
		routes:  newRoutes(cfg),
		logger:  logging.NoOp(),
		now:     time.Now,
		resolver: auth.NewResolver(auth.Credentials{
			Username: cfg.PublicUser.Username,
			Password: cfg.PublicUser.Password,
		}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.http == nil {
		client.http = NewHTTPClient(cfg.Client.IdleTimeout)
	}
	if client.observer != nil {
		observer := client.observer
		client.cookies.onChange = observer.SetCookieStoreSize
	}
	client.breaker = newBreaker(cfg.Client.Breaker, client.onBreakerChange)
	return client
}

func (c *Client) Config() runtimeconfig.Config {
	return c.cfg
}

func (c *Client) Cookies() *CookieStore {
	return c.cookies
}

func (c *Client) Resolver() auth.Resolver {
	return c.resolver
}

// NewRequest prepares a Request authenticated for ctx.
func (c *Client) NewRequest(ctx context.Context, method, url string) *Request {
	return &Request{
		URL:         url,
		Method:      method,
		Params:      NewParams(),
		Credentials: c.resolver.Resolve(ctx),
		Logging:     c.cfg.Logging,
	}
}

func (c *Client) onBreakerChange(from, to string) {
	c.logger.Warn("cms.breaker.state", "from", from, "to", to)
	if c.observer != nil {
		c.observer.BreakerTransition(breakerName, from, to)
	}
}

// Do sends req and decodes a JSON response into T.
func Do[T any](ctx context.Context, c *Client, req *Request) (*Result[T], error) {
	raw, err := c.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	result := &Result[T]{
		Status:   raw.status,
		IsBinary: raw.binary,
		Stream:   raw.stream,
		Header:   raw.header,
	}
	if raw.binary {
		return result, nil
	}
	if err := json.Unmarshal(raw.body, &result.Data); err != nil {
		return nil, c.parseError(req, raw.status, err)
	}
	return result, nil
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
	binary bool
	stream io.ReadCloser
}

// envelope holds the status fields of a decoded CMS response.
type envelope struct {
	Error   any
	Success any
}

func (c *Client) execute(ctx context.Context, req *Request) (*rawResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, transportError(errors.New("restclient: request is nil"))
	}
	if err := req.Validate(); err != nil {
		return nil, transportError(fmt.Errorf("restclient: invalid request: %w", err))
	}

	method := req.method()
	target := req.Target()
	logger := c.logger.WithContext(ctx)

	var payload io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, transportError(fmt.Errorf("restclient: encode body: %w", err))
		}
		payload = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, transportError(err)
	}
	httpReq.Header.Set("Accept", "*/*")
	httpReq.Header.Set("Authorization", req.Credentials.Header())
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if cookie, ok := c.cookies.Get(req.Credentials); ok {
		httpReq.Header.Set("Cookie", cookie)
	}

	started := c.now()
	resp, err := c.send(httpReq)
	if err != nil {
		var clientErr *Error
		if isRejection(err) {
			clientErr = rejectedError(err)
			c.observe(method, clientErr.Status, metrics.OutcomeRejected, started)
		} else {
			clientErr = transportError(err)
			c.observe(method, clientErr.Status, metrics.OutcomeTransport, started)
		}
		logger.Error("cms.request.failed", "method", method, "url", target, "error", err)
		return nil, clientErr
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		logger.Error("cms.request.unauthorized", "status", resp.StatusCode, "url", target, "hint", "check your mesh user")
	}
	c.cookies.Capture(req.Credentials, resp.Header)

	if resp.Header.Get("Content-Disposition") != "" {
		c.observe(method, resp.StatusCode, metrics.OutcomeSuccess, started)
		return &rawResponse{status: resp.StatusCode, header: resp.Header, binary: true, stream: resp.Body}, nil
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(method, util.StatusError, metrics.OutcomeTransport, started)
		logger.Error("cms.response.read_failed", "url", target, "error", err)
		return nil, transportError(err)
	}

	if req.Logging.Timing {
		logger.Info("cms.request.timing", "method", method, "url", target, "duration_ms", c.now().Sub(started).Milliseconds())
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.observe(method, resp.StatusCode, metrics.OutcomeParse, started)
		return nil, c.parseError(req, resp.StatusCode, err)
	}
	if req.Logging.Data {
		logger.Debug("cms.response.data", "url", target, "data", decoded)
	}

	if object, ok := decoded.(map[string]any); ok {
		env := envelope{Error: object["error"], Success: object["success"]}
		if failed, data := env.failure(); failed {
			c.observe(method, resp.StatusCode, metrics.OutcomeApplication, started)
			return nil, &Error{Status: resp.StatusCode, Kind: KindApplication, Data: data}
		}
	}

	c.observe(method, resp.StatusCode, metrics.OutcomeSuccess, started)
	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}
	return c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
}

func (c *Client) parseError(req *Request, status int, err error) *Error {
	c.logger.Error("cms.response.parse_failed", "url", req.Target(), "status", status, "error", err)
	return &Error{
		Status: status,
		Kind:   KindParse,
		Data: ParseFailure{
			ParseError: ParseErrorMarker,
			Message:    err.Error(),
			URL:        req.Target(),
		},
		Err: err,
	}
}

func (c *Client) observe(method string, status int, outcome string, started time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(method, status, outcome, c.now().Sub(started))
}

// failure reports whether the envelope signals a CMS error: an error field
// that is set, or success equal to 0.
func (e envelope) failure() (bool, any) {
	if truthy(e.Error) {
		return true, e.Error
	}
	if isZero(e.Success) {
		return true, "Unknown error"
	}
	return false, nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}

func isZero(value any) bool {
	switch v := value.(type) {
	case float64:
		return v == 0
	case bool:
		return !v
	case string:
		return strings.TrimSpace(v) == "0" || v == ""
	default:
		return false
	}
}
