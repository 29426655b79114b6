package restclient

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query parameter names understood by the CMS list and detail endpoints.
const (
	ParamExpand       = "expand"
	ParamExpandAll    = "expandAll"
	ParamPage         = "page"
	ParamPerPage      = "perPage"
	ParamOrderBy      = "orderBy"
	ParamLang         = "lang"
	ParamResolveLinks = "resolveLinks"
	ParamMaxDepth     = "maxDepth"
	ParamIncludeAll   = "includeAll"
)

// Params is an insertion ordered set of query parameters. The zero value is
// ready to use. A nil *Params reads as empty: Get, Has, Len, Del, Clone and
// Encode accept it, while Set and the builder helpers need a non-nil value.
type Params struct {
	keys   []string
	values map[string]string
}

func NewParams() *Params {
	return &Params{values: map[string]string{}}
}

// FromQuery copies url.Values into Params. Keys are added in sorted order and
// only the first value of each key is kept.
func FromQuery(values url.Values) *Params {
	params := NewParams()
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if vs := values[key]; len(vs) > 0 {
			params.Set(key, vs[0])
		}
	}
	return params
}

// Set stores value under key. Re-setting a key keeps its original position.
func (p *Params) Set(key string, value any) *Params {
	if p.values == nil {
		p.values = map[string]string{}
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = stringify(value)
	return p
}

func (p *Params) Get(key string) string {
	if p == nil {
		return ""
	}
	return p.values[key]
}

func (p *Params) Has(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[key]
	return ok
}

func (p *Params) Del(key string) {
	if p == nil || !p.Has(key) {
		return
	}
	delete(p.values, key)
	for i, candidate := range p.keys {
		if candidate == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (p *Params) Clone() *Params {
	out := NewParams()
	if p == nil {
		return out
	}
	for _, key := range p.keys {
		out.Set(key, p.values[key])
	}
	return out
}

// Encode renders "?k=v&k2=v2". Values are percent-encoded (spaces as %20),
// keys are written as given. An empty set encodes to "".
func (p *Params) Encode() string {
	if p.Len() == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('?')
	for i, key := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(escapeValue(p.values[key]))
	}
	return b.String()
}

func (p *Params) String() string {
	return p.Encode()
}

func (p *Params) Expand(fields ...string) *Params {
	return p.Set(ParamExpand, strings.Join(fields, ","))
}

func (p *Params) Page(page int) *Params {
	return p.Set(ParamPage, page)
}

func (p *Params) PerPage(perPage int) *Params {
	return p.Set(ParamPerPage, perPage)
}

func (p *Params) OrderBy(field string) *Params {
	return p.Set(ParamOrderBy, field)
}

func (p *Params) Lang(codes ...string) *Params {
	return p.Set(ParamLang, strings.Join(codes, ","))
}

func (p *Params) MaxDepth(depth int) *Params {
	return p.Set(ParamMaxDepth, depth)
}

func (p *Params) IncludeAll(include bool) *Params {
	return p.Set(ParamIncludeAll, include)
}

// escapeValue matches encodeURIComponent: unreserved characters and
// !'()* stay literal, everything else is percent-encoded.
func escapeValue(value string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
	return componentReplacer.Replace(escaped)
}

var componentReplacer = strings.NewReplacer(
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
