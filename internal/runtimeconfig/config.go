package runtimeconfig

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

var ErrLoggingProviderUnknown = errors.New("mesh config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("mesh config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("mesh config: logging format is invalid")
var ErrDefaultLanguageMissing = errors.New("mesh config: at least one language is required")

const configInvalidCode = "MESH_CONFIG_INVALID"

var templateExtensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)

// Config carries everything the client and renderer need to talk to the CMS
// and to pick templates.
type Config struct {
	BackendURL        string          `yaml:"backend_url"`
	Base              string          `yaml:"base"`
	Webroot           string          `yaml:"webroot"`
	Navroot           string          `yaml:"navroot"`
	Project           string          `yaml:"project"`
	CheckPublished    bool            `yaml:"check_published"`
	PublicUser        UserConfig      `yaml:"public_user"`
	Index             string          `yaml:"index"`
	DefaultView       string          `yaml:"default_view"`
	DefaultErrorView  string          `yaml:"default_error_view"`
	Languages         []string        `yaml:"languages"`
	LanguageDirectory string          `yaml:"language_directory"`
	ViewDirectory     string          `yaml:"view_directory"`
	Development       bool            `yaml:"development"`
	Logging           LoggingConfig   `yaml:"logging"`
	Client            ClientConfig    `yaml:"client"`
	Rendering         RenderingConfig `yaml:"rendering"`
	Session           SessionConfig   `yaml:"session"`
	HTTP              HTTPConfig      `yaml:"http"`
}

// UserConfig holds the credentials used when a visitor is not logged in.
type UserConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoggingConfig combines the CMS debug switches with provider options.
// Provider is "gologger" (the default) or "noop".
//
//   - Data dumps every decoded CMS response.
//   - Timing logs the duration of each CMS request.
//   - RenderData dumps the data handed to templates.
type LoggingConfig struct {
	Data       bool     `yaml:"data"`
	Timing     bool     `yaml:"timing"`
	RenderData bool     `yaml:"render_data"`
	Provider   string   `yaml:"provider"`
	Level      string   `yaml:"level"`
	Format     string   `yaml:"format"`
	AddSource  bool     `yaml:"add_source"`
	Focus      []string `yaml:"focus"`
}

// ClientConfig tunes the outbound HTTP transport.
type ClientConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker guarding CMS calls.
type BreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
}

// RenderingConfig bounds nested node rendering and names template files.
type RenderingConfig struct {
	MaxDepth          int    `yaml:"max_depth"`
	TemplateExtension string `yaml:"template_extension"`
}

// SessionConfig configures the visitor session cookie.
type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	Secure     bool   `yaml:"secure"`
}

// HTTPConfig holds the bundled server settings.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// DefaultConfig returns the frontend defaults together with the
// transport and rendering knobs.
func DefaultConfig() Config {
	return Config{
		BackendURL:       "http://localhost:8080",
		Base:             "/api/v1/",
		Webroot:          "/webroot",
		Navroot:          "/navroot",
		Project:          "demo",
		CheckPublished:   false,
		PublicUser:       UserConfig{Username: "admin", Password: "admin"},
		Index:            "/index.html",
		DefaultView:      "default",
		DefaultErrorView: "error",
		Languages:        []string{"de", "en"},
		ViewDirectory:    "public",
		Development:      true,
		Logging: LoggingConfig{
			Timing:   true,
			Provider: "gologger",
			Level:    "info",
			Format:   "console",
		},
		Client: ClientConfig{
			IdleTimeout: 30 * time.Second,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Rendering: RenderingConfig{
			MaxDepth:          8,
			TemplateExtension: ".html",
		},
		Session: SessionConfig{
			CookieName: "mesh.frontend",
		},
		HTTP: HTTPConfig{
			Address: ":3000",
		},
	}
}

// ProjectURL returns backend + base + project, the prefix of every
// project-scoped endpoint.
func (cfg Config) ProjectURL() string {
	return cfg.BackendURL + cfg.Base + cfg.Project
}

// APIURL joins backend, base and an API-relative endpoint such as
// "search/nodes".
func (cfg Config) APIURL(endpoint string) string {
	return cfg.BackendURL + cfg.Base + strings.TrimPrefix(endpoint, "/")
}

// DefaultLanguage is the first configured language.
func (cfg Config) DefaultLanguage() string {
	if len(cfg.Languages) == 0 {
		return ""
	}
	return cfg.Languages[0]
}

// Validate checks the structural fields with ozzo-validation and the logging
// options against the supported providers.
func (cfg Config) Validate() error {
	if len(cfg.Languages) == 0 {
		return ErrDefaultLanguageMissing
	}

	err := validation.ValidateStruct(&cfg,
		validation.Field(&cfg.BackendURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&cfg.Base, validation.Required),
		validation.Field(&cfg.Project, validation.Required),
		validation.Field(&cfg.DefaultView, validation.Required),
		validation.Field(&cfg.DefaultErrorView, validation.Required),
		validation.Field(&cfg.PublicUser),
		validation.Field(&cfg.Rendering),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "mesh config invalid").
			WithTextCode(configInvalidCode)
	}

	provider := normalizeProvider(cfg.Logging.Provider)
	if provider != "" && !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider != "noop" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

// Validate requires a public user; every anonymous CMS call authenticates
// with it.
func (u UserConfig) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Username, validation.Required),
	)
}

func (r RenderingConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MaxDepth, validation.Min(0)),
		validation.Field(&r.TemplateExtension, validation.Required, validation.Match(templateExtensionPattern)),
	)
}

func absoluteURL(value any) error {
	raw, _ := value.(string)
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "gologger", "noop":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
