package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-mesh/pkg/interfaces"
)

const (
	rootModule      = "mesh"
	clientModule    = "mesh.client"
	rendererModule  = "mesh.renderer"
	languagesModule = "mesh.languages"
	httpModule      = "mesh.http"
)

const (
	fieldSchema = "schema"
	fieldView   = "view"
	fieldNode   = "node"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is
// attached as a structured field so entries can be filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// ClientLogger returns the logger namespace reserved for the REST client.
func ClientLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, clientModule)
}

// RendererLogger returns the logger namespace reserved for node rendering.
func RendererLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, rendererModule)
}

// LanguagesLogger returns the logger namespace reserved for translations.
func LanguagesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, languagesModule)
}

// HTTPLogger returns the logger namespace reserved for the HTTP layer.
func HTTPLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, httpModule)
}

// WithRenderContext enriches the logger with the schema key, view name and
// node uuid being rendered. Empty values are ignored.
func WithRenderContext(logger interfaces.Logger, schema, view, node string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(schema); trimmed != "" {
		fields[fieldSchema] = trimmed
	}
	if trimmed := strings.TrimSpace(view); trimmed != "" {
		fields[fieldView] = trimmed
	}
	if trimmed := strings.TrimSpace(node); trimmed != "" {
		fields[fieldNode] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOpProvider hands out NoOp loggers for every module.
func NoOpProvider() interfaces.LoggerProvider {
	return noopProvider{}
}

type noopProvider struct{}

func (noopProvider) GetLogger(string) interfaces.Logger { return noopLogger{} }

// NoOp returns a logger that drops every log entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
