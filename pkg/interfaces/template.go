package interfaces

import (
	"io"
)

// TemplateRenderer renders named views. Render writes the full page for a
// response, RenderTemplate is used for fragments (nested micro-nodes). Both
// return the markup when no writer is supplied.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}

// ViewLocator reports whether a named view is available. The renderer uses it
// to decide between schema-named templates and the configured fallbacks.
type ViewLocator interface {
	Exists(name string) bool
}

// FilterRegistrar is the subset of TemplateRenderer needed to install filters.
type FilterRegistrar interface {
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
}

// Localized is implemented by render data that knows the language it is
// rendered in.
type Localized interface {
	Locale() string
}

// ScopedFilterRegistrar installs filters rebuilt for every render from the
// data being rendered, such as a translate filter that follows the visitor's
// language.
type ScopedFilterRegistrar interface {
	RegisterScopedFilter(name string, bind func(data any) func(input any, param any) (any, error)) error
}
