package filters

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"regexp"

	"github.com/goliatone/go-mesh/pkg/interfaces"
	"github.com/goliatone/go-slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Filter names as seen by templates.
const (
	TranslateKey = "translate"
	YoutubeKey   = "youtube"
	MomentKey    = "moment"
	MarkdownKey  = "markdown"
	SlugifyKey   = "slugify"
)

// Filter is the template filter signature: the piped input and an optional
// parameter.
type Filter func(input any, param any) (any, error)

// Set holds the filters installed into a template renderer.
type Set struct {
	translator interfaces.Translator
	language   string
	markdown   goldmark.Markdown
}

// Option customises a Set.
type Option func(*Set)

// WithTranslator backs the translate filter.
func WithTranslator(translator interfaces.Translator) Option {
	return func(s *Set) {
		s.translator = translator
	}
}

// WithLanguage sets the language used when a filter call names none.
func WithLanguage(code string) Option {
	return func(s *Set) {
		s.language = code
	}
}

func NewSet(opts ...Option) *Set {
	set := &Set{
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Linkify)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(set)
		}
	}
	return set
}

// Filters returns the filters by name.
func (s *Set) Filters() map[string]Filter {
	return map[string]Filter{
		TranslateKey: s.Translate,
		YoutubeKey:   Youtube,
		MomentKey:    s.Moment,
		MarkdownKey:  s.Markdown,
		SlugifyKey:   Slugify,
	}
}

// Register installs every filter into registrar. When registrar supports
// scoped filters, translate is bound per render to the language of the data
// being rendered.
func (s *Set) Register(registrar interfaces.FilterRegistrar) error {
	if registrar == nil {
		return errors.New("filters: registrar is required")
	}
	scoped, _ := registrar.(interfaces.ScopedFilterRegistrar)
	for _, name := range []string{TranslateKey, YoutubeKey, MomentKey, MarkdownKey, SlugifyKey} {
		var err error
		if name == TranslateKey && scoped != nil {
			err = scoped.RegisterScopedFilter(name, s.TranslateFor)
		} else {
			err = registrar.RegisterFilter(name, s.Filters()[name])
		}
		if err != nil {
			return fmt.Errorf("filters: register %s: %w", name, err)
		}
	}
	return nil
}

// Translate replaces input with its translation in the language named by
// param, or the default language. Unknown keys are returned unchanged.
func (s *Set) Translate(input any, param any) (any, error) {
	return s.translate(s.language, input, param)
}

// TranslateFor returns the translate filter for a render of data. Without a
// language argument it translates into the locale of data, or the default
// language when data carries none.
func (s *Set) TranslateFor(data any) func(input any, param any) (any, error) {
	language := s.language
	if localized, ok := data.(interfaces.Localized); ok {
		if code := localized.Locale(); code != "" {
			language = code
		}
	}
	return func(input any, param any) (any, error) {
		return s.translate(language, input, param)
	}
}

func (s *Set) translate(language string, input any, param any) (any, error) {
	key, ok := input.(string)
	if !ok || key == "" || s.translator == nil {
		return input, nil
	}
	if code, ok := param.(string); ok && code != "" {
		language = code
	}
	return s.translator.Translate(language, key)
}

var youtubePattern = regexp.MustCompile(`^.*(youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)

const youtubeIDLength = 11

// Youtube extracts the 11 character video id from a YouTube URL. Anything
// else is returned unchanged.
func Youtube(input any, _ any) (any, error) {
	raw, ok := input.(string)
	if !ok {
		return input, nil
	}
	match := youtubePattern.FindStringSubmatch(raw)
	if len(match) > 2 && len(match[2]) == youtubeIDLength {
		return match[2], nil
	}
	return raw, nil
}

// Markdown renders input as HTML.
func (s *Set) Markdown(input any, _ any) (any, error) {
	var source string
	switch v := input.(type) {
	case nil:
		return template.HTML(""), nil
	case string:
		source = v
	case template.HTML:
		source = string(v)
	default:
		source = fmt.Sprint(v)
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source), &buf); err != nil {
		return nil, fmt.Errorf("filters: markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Slugify normalises input into a URL slug.
func Slugify(input any, _ any) (any, error) {
	raw, ok := input.(string)
	if !ok {
		raw = fmt.Sprint(input)
	}
	return slug.Normalize(raw)
}
