package renderer

import (
	"context"
	"maps"
	"slices"

	"github.com/goliatone/go-mesh/internal/nodes"
)

// MetaError is the render metadata key carrying the error flag or value.
const MetaError = "error"

// RenderInformation describes the visitor state a view is rendered for.
type RenderInformation struct {
	ActiveLanguage     string            `json:"activeLanguage"`
	AvailableLanguages []string          `json:"availableLanguages"`
	LanguageURLs       map[string]string `json:"languageURLs"`
	Username           string            `json:"username"`
	LoggedIn           bool              `json:"loggedin"`
}

// RenderData is the value handed to view handlers and templates. It is
// created per render call and never shared between requests.
type RenderData struct {
	Node              *nodes.Node        `json:"node,omitempty"`
	Nodes             []*nodes.Node      `json:"nodes,omitempty"`
	RenderInformation *RenderInformation `json:"renderInformation,omitempty"`
	Meta              map[string]any     `json:"meta"`
}

func NewRenderData() *RenderData {
	return &RenderData{Meta: map[string]any{}}
}

// Clone copies d deep enough that a view handler may modify the copy without
// touching d.
func (d *RenderData) Clone() *RenderData {
	if d == nil {
		return nil
	}
	out := *d
	out.Node = d.Node.Clone()
	out.Nodes = slices.Clone(d.Nodes)
	out.Meta = maps.Clone(d.Meta)
	if out.Meta == nil {
		out.Meta = map[string]any{}
	}
	if d.RenderInformation != nil {
		info := *d.RenderInformation
		info.AvailableLanguages = slices.Clone(info.AvailableLanguages)
		info.LanguageURLs = maps.Clone(info.LanguageURLs)
		out.RenderInformation = &info
	}
	return &out
}

// Locale returns the active language of the render, falling back to the
// language of the node.
func (d *RenderData) Locale() string {
	if d == nil {
		return ""
	}
	if d.RenderInformation != nil && d.RenderInformation.ActiveLanguage != "" {
		return d.RenderInformation.ActiveLanguage
	}
	if d.Node != nil {
		return d.Node.Language
	}
	return ""
}

// Error returns the value stored under MetaError.
func (d *RenderData) Error() (any, bool) {
	if d == nil || d.Meta == nil {
		return nil, false
	}
	value, ok := d.Meta[MetaError]
	return value, ok
}

// RenderInformation builds the visitor state for node. Without a node the
// configured languages are offered through ?lang= links.
func (r *Renderer) RenderInformation(ctx context.Context, node *nodes.Node) *RenderInformation {
	info := &RenderInformation{
		ActiveLanguage: r.languages.CurrentLanguage(ctx),
		LanguageURLs:   map[string]string{},
		Username:       r.auth.Username(ctx),
		LoggedIn:       r.auth.LoggedIn(ctx),
	}
	if node != nil {
		info.AvailableLanguages = slices.Clone(node.AvailableLanguages)
		for _, code := range info.AvailableLanguages {
			info.LanguageURLs[code] = node.LanguagePaths[code]
		}
		return info
	}
	info.AvailableLanguages = slices.Clone(r.languages.Languages())
	for _, code := range info.AvailableLanguages {
		info.LanguageURLs[code] = "?lang=" + code
	}
	return info
}

// RenderData assembles the render data for node. The language of the node
// becomes the active language of the request.
func (r *Renderer) RenderData(ctx context.Context, node *nodes.Node) *RenderData {
	if node != nil && node.Language != "" {
		r.languages.SetLanguage(ctx, node.Language)
	}
	data := NewRenderData()
	data.Node = node
	data.RenderInformation = r.RenderInformation(ctx, node)
	return data
}
