package templates

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goliatone/go-mesh/pkg/interfaces"
)

var ErrTemplateNotFound = errors.New("templates: template not found")

const defaultExtension = ".html"

// Engine renders html/template views stored as <dir>/<name><ext>. Template
// names are slash separated paths relative to dir, without extension.
type Engine struct {
	dir       string
	ext       string
	reload    bool
	mu        sync.RWMutex
	funcs     template.FuncMap
	scoped    map[string]func(data any) func(input any, param any) (any, error)
	globals   any
	compiled  *template.Template
	compileMu sync.Mutex
}

var (
	_ interfaces.TemplateRenderer      = (*Engine)(nil)
	_ interfaces.ViewLocator           = (*Engine)(nil)
	_ interfaces.ScopedFilterRegistrar = (*Engine)(nil)
)

// Option customises an Engine.
type Option func(*Engine)

// WithReload parses the view directory on every render, so template edits
// show up without a restart.
func WithReload(reload bool) Option {
	return func(e *Engine) {
		e.reload = reload
	}
}

func WithExtension(ext string) Option {
	return func(e *Engine) {
		if ext != "" {
			e.ext = ext
		}
	}
}

func New(dir string, opts ...Option) *Engine {
	engine := &Engine{
		dir:    dir,
		ext:    defaultExtension,
		scoped: map[string]func(data any) func(input any, param any) (any, error){},
	}
	engine.funcs = template.FuncMap{
		"safeHTML": toHTML,
		"global":   engine.global,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine
}

// Exists reports whether a view file named name is readable.
func (e *Engine) Exists(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	info, err := os.Stat(e.path(name))
	return err == nil && !info.IsDir()
}

func (e *Engine) path(name string) string {
	return filepath.Join(e.dir, filepath.FromSlash(name)+e.ext)
}

// RegisterFilter exposes fn to templates as name. Templates call it as
// {{ name input }} or {{ name input param }}.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if err := checkFilter(name, fn); err != nil {
		return err
	}
	e.mu.Lock()
	e.funcs[name] = filterFunc(fn)
	delete(e.scoped, name)
	e.compiled = nil
	e.mu.Unlock()
	return nil
}

// RegisterScopedFilter exposes a filter that bind rebuilds from the data of
// every render. Outside a render, such as while parsing, bind(nil) is used.
func (e *Engine) RegisterScopedFilter(name string, bind func(data any) func(input any, param any) (any, error)) error {
	if bind == nil {
		return fmt.Errorf("templates: filter %q is nil", name)
	}
	if err := checkFilter(name, bind(nil)); err != nil {
		return err
	}
	e.mu.Lock()
	e.funcs[name] = filterFunc(bind(nil))
	e.scoped[name] = bind
	e.compiled = nil
	e.mu.Unlock()
	return nil
}

func checkFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("templates: filter name is required")
	}
	if fn == nil {
		return fmt.Errorf("templates: filter %q is nil", name)
	}
	return nil
}

func filterFunc(fn func(input any, param any) (any, error)) func(input any, params ...any) (any, error) {
	return func(input any, params ...any) (any, error) {
		var param any
		if len(params) > 0 {
			param = params[0]
		}
		return fn(input, param)
	}
}

// boundFuncs returns the scoped filters bound to data.
func (e *Engine) boundFuncs(data any) template.FuncMap {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.scoped) == 0 {
		return nil
	}
	bound := make(template.FuncMap, len(e.scoped))
	for name, bind := range e.scoped {
		bound[name] = filterFunc(bind(data))
	}
	return bound
}

// RegisterFunc exposes an arbitrary template function.
func (e *Engine) RegisterFunc(name string, fn any) {
	e.mu.Lock()
	e.funcs[name] = fn
	delete(e.scoped, name)
	e.compiled = nil
	e.mu.Unlock()
}

// GlobalContext sets the value returned by the "global" template function.
func (e *Engine) GlobalContext(data any) error {
	e.mu.Lock()
	e.globals = data
	e.mu.Unlock()
	return nil
}

func (e *Engine) global() any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.globals
}

// Render renders a full page view.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate renders name into a buffer and copies it to out[0] only on
// success, so a failing template never leaves a partial response behind.
// With scoped filters registered the parsed set is cloned and the clone is
// executed, so the shared set is never executed and stays cloneable.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	tpl, err := e.templates()
	if err != nil {
		return "", err
	}
	if tpl.Lookup(name) == nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if bound := e.boundFuncs(data); bound != nil {
		if tpl, err = tpl.Clone(); err != nil {
			return "", err
		}
		tpl.Funcs(bound)
	}

	var buffer bytes.Buffer
	if err := tpl.ExecuteTemplate(&buffer, name, data); err != nil {
		return "", err
	}
	return emit(&buffer, out)
}

// RenderString parses and renders an inline template.
func (e *Engine) RenderString(content string, data any, out ...io.Writer) (string, error) {
	e.mu.RLock()
	funcs := maps.Clone(e.funcs)
	e.mu.RUnlock()
	maps.Copy(funcs, e.boundFuncs(data))

	tpl, err := template.New("inline").Funcs(funcs).Parse(content)
	if err != nil {
		return "", err
	}
	var buffer bytes.Buffer
	if err := tpl.Execute(&buffer, data); err != nil {
		return "", err
	}
	return emit(&buffer, out)
}

func emit(buffer *bytes.Buffer, out []io.Writer) (string, error) {
	if len(out) > 0 && out[0] != nil {
		if _, err := buffer.WriteTo(out[0]); err != nil {
			return "", err
		}
		return "", nil
	}
	return buffer.String(), nil
}

func (e *Engine) templates() (*template.Template, error) {
	e.mu.RLock()
	compiled := e.compiled
	e.mu.RUnlock()
	if compiled != nil && !e.reload {
		return compiled, nil
	}

	e.compileMu.Lock()
	defer e.compileMu.Unlock()

	e.mu.RLock()
	compiled = e.compiled
	funcs := maps.Clone(e.funcs)
	e.mu.RUnlock()
	if compiled != nil && !e.reload {
		return compiled, nil
	}

	tpl, err := e.parse(funcs)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.compiled = tpl
	e.mu.Unlock()
	return tpl, nil
}

func (e *Engine) parse(funcs template.FuncMap) (*template.Template, error) {
	root := template.New("").Funcs(funcs)
	err := filepath.WalkDir(e.dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), e.ext) {
			return nil
		}
		rel, err := filepath.Rel(e.dir, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := root.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("templates: parse %s: %w", rel, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

func toHTML(value any) template.HTML {
	switch v := value.(type) {
	case template.HTML:
		return v
	case string:
		return template.HTML(v)
	case nil:
		return ""
	default:
		return template.HTML(fmt.Sprint(v))
	}
}
