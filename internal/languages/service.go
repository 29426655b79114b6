package languages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/runtimeconfig"
	"github.com/goliatone/go-mesh/internal/session"
	"github.com/goliatone/go-mesh/pkg/interfaces"
)

// SessionKey holds the active language of a visitor.
const SessionKey = "language"

const (
	filePrefix = "lang-"
	fileSuffix = ".json"
)

// Service tracks the active language per visitor session and serves
// translations read from lang-<code>.json files.
type Service struct {
	languages []string
	dir       string
	logger    interfaces.Logger

	mu      sync.RWMutex
	catalog map[string]map[string]string
}

var _ interfaces.LanguageService = (*Service)(nil)

// Option customises a Service.
type Option func(*Service)

func WithLogger(logger interfaces.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCatalog(catalog map[string]map[string]string) Option {
	return func(s *Service) {
		s.catalog = catalog
	}
}

func New(cfg runtimeconfig.Config, opts ...Option) *Service {
	svc := &Service{
		languages: slices.Clone(cfg.Languages),
		dir:       cfg.LanguageDirectory,
		logger:    logging.NoOp(),
		catalog:   map[string]map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Languages returns the configured language codes.
func (s *Service) Languages() []string {
	return slices.Clone(s.languages)
}

func (s *Service) defaultLanguage() string {
	if len(s.languages) == 0 {
		return ""
	}
	return s.languages[0]
}

func (s *Service) isConfigured(code string) bool {
	return slices.Contains(s.languages, code)
}

// CurrentLanguage returns the language stored in the session, else the first
// configured language.
func (s *Service) CurrentLanguage(ctx context.Context) string {
	if sess := session.FromContext(ctx); sess != nil {
		if code, ok := sess.Get(SessionKey); ok && code != "" {
			return code
		}
	}
	return s.defaultLanguage()
}

// SetLanguage stores code as the active language. Codes that are not
// configured, or requests without a session, are ignored.
func (s *Service) SetLanguage(ctx context.Context, code string) bool {
	if !s.isConfigured(code) {
		return false
	}
	sess := session.FromContext(ctx)
	if sess == nil {
		return false
	}
	sess.Set(SessionKey, code)
	return true
}

// PreferredLanguageOrder returns the configured languages with the active
// one moved to the front.
func (s *Service) PreferredLanguageOrder(ctx context.Context) []string {
	active := s.CurrentLanguage(ctx)
	out := make([]string, 0, len(s.languages))
	if s.isConfigured(active) {
		out = append(out, active)
	}
	for _, code := range s.languages {
		if code != active {
			out = append(out, code)
		}
	}
	return out
}

// Translate looks key up in the catalog of locale, defaulting to the first
// configured language. Unknown keys translate to themselves, unformatted.
// Arguments are applied with fmt.Sprintf to catalog entries only.
func (s *Service) Translate(locale, key string, args ...any) (string, error) {
	if locale == "" {
		locale = s.defaultLanguage()
	}
	s.mu.RLock()
	value, ok := s.catalog[locale][key]
	s.mu.RUnlock()
	if !ok {
		return key, nil
	}
	if len(args) > 0 {
		return fmt.Sprintf(value, args...), nil
	}
	return value, nil
}

// Load reads the language files of every configured language, replacing the
// catalog. A language whose file is missing or invalid is skipped and
// reported in the returned error.
func (s *Service) Load(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	catalog := make(map[string]map[string]string, len(s.languages))
	var errs []error
	for _, code := range s.languages {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := readLanguageFile(s.languageFile(code))
		if err != nil {
			s.logger.Error("languages.load_failed", "language", code, "error", err)
			errs = append(errs, fmt.Errorf("languages: %s: %w", code, err))
			continue
		}
		catalog[code] = entries
	}

	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()
	s.logger.Debug("languages.loaded", "languages", len(catalog))
	return errors.Join(errs...)
}

func (s *Service) languageFile(code string) string {
	return filepath.Join(s.dir, filePrefix+code+fileSuffix)
}

func readLanguageFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	entries := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			entries[key] = v
		case nil:
		default:
			entries[key] = fmt.Sprint(v)
		}
	}
	return entries, nil
}
