package nodes

import (
	"bytes"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Permission is one of the CRUD permissions the CMS reports per object.
type Permission string

const (
	PermissionCreate Permission = "create"
	PermissionRead   Permission = "read"
	PermissionUpdate Permission = "update"
	PermissionDelete Permission = "delete"
)

// Ref references a CMS object by name and/or uuid.
type Ref struct {
	Name string `json:"name,omitempty"`
	UUID string `json:"uuid,omitempty"`
}

// Key returns the name, falling back to the uuid.
func (r *Ref) Key() string {
	if r == nil {
		return ""
	}
	if r.Name != "" {
		return r.Name
	}
	return r.UUID
}

// NodeRef references a node, typically the parent.
type NodeRef struct {
	DisplayName string `json:"displayName,omitempty"`
	UUID        string `json:"uuid"`
	Schema      *Ref   `json:"schema,omitempty"`
}

// Timestamp accepts both the numeric (unix seconds) and the RFC3339 forms the
// CMS has used for created/edited dates.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	seconds, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	t.Time = time.Unix(int64(seconds), 0).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// TagGroup holds the tags of one tag family on a node.
type TagGroup struct {
	UUID  string `json:"uuid"`
	Items []Ref  `json:"items"`
}

// Tags maps tag family names to the node's tags in that family.
type Tags map[string]TagGroup

// BinaryProperties describes the binary payload of a binary node.
type BinaryProperties struct {
	SHA512Sum string `json:"sha512sum"`
	FileSize  int64  `json:"fileSize"`
	MimeType  string `json:"mimeType"`
}

// Node is a content node. Fields is open; its shape is defined by the schema
// of the node.
type Node struct {
	UUID               string            `json:"uuid"`
	Creator            *Ref              `json:"creator,omitempty"`
	Created            Timestamp         `json:"created"`
	Editor             *Ref              `json:"editor,omitempty"`
	Edited             Timestamp         `json:"edited"`
	Permissions        []Permission      `json:"permissions,omitempty"`
	Language           string            `json:"language,omitempty"`
	AvailableLanguages []string          `json:"availableLanguages,omitempty"`
	Path               string            `json:"path,omitempty"`
	LanguagePaths      map[string]string `json:"languagePaths,omitempty"`
	ParentNode         *NodeRef          `json:"parentNode,omitempty"`
	Tags               Tags              `json:"tags,omitempty"`
	ChildrenInfo       map[string]any    `json:"childrenInfo,omitempty"`
	Schema             *Ref              `json:"schema,omitempty"`
	Microschema        *Ref              `json:"microschema,omitempty"`
	Published          bool              `json:"published"`
	DisplayField       string            `json:"displayField,omitempty"`
	Fields             map[string]any    `json:"fields,omitempty"`
	URL                string            `json:"url,omitempty"`
	Container          bool              `json:"container"`
	BinaryProperties   *BinaryProperties `json:"binaryProperties,omitempty"`
	FileName           string            `json:"fileName,omitempty"`
}

// SchemaKey returns schema.name, else schema.uuid. Only top level nodes carry
// a schema.
func (n *Node) SchemaKey() string {
	if n == nil {
		return ""
	}
	return n.Schema.Key()
}

// ReferenceKey returns the schema key, falling back to the microschema key
// for embedded micro-nodes.
func (n *Node) ReferenceKey() string {
	if n == nil {
		return ""
	}
	if n.Schema != nil {
		return n.Schema.Key()
	}
	return n.Microschema.Key()
}

// Locale returns the node language.
func (n *Node) Locale() string {
	if n == nil {
		return ""
	}
	return n.Language
}

// HasPermission reports whether p is in the node permission set.
func (n *Node) HasPermission(p Permission) bool {
	if n == nil {
		return false
	}
	for _, candidate := range n.Permissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// Field returns a field value.
func (n *Node) Field(name string) (any, bool) {
	if n == nil || n.Fields == nil {
		return nil, false
	}
	value, ok := n.Fields[name]
	return value, ok
}

// Clone returns a copy whose field map may be modified without touching n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Fields != nil {
		out.Fields = make(map[string]any, len(n.Fields))
		for key, value := range n.Fields {
			out.Fields[key] = value
		}
	}
	return &out
}

// NavElement is one entry of a navigation tree.
type NavElement struct {
	UUID     string        `json:"uuid"`
	Node     *Node         `json:"node,omitempty"`
	Children []*NavElement `json:"children,omitempty"`
}

// Nav is a navigation tree rooted at a container node.
type Nav struct {
	Root *NavElement `json:"root"`
}

// Walk visits every element depth first. Returning false stops the walk.
func (n *Nav) Walk(fn func(el *NavElement, depth int) bool) {
	if n == nil || n.Root == nil || fn == nil {
		return
	}
	walkNav(n.Root, 0, fn)
}

func walkNav(el *NavElement, depth int, fn func(*NavElement, int) bool) bool {
	if !fn(el, depth) {
		return false
	}
	for _, child := range el.Children {
		if child == nil {
			continue
		}
		if !walkNav(child, depth+1, fn) {
			return false
		}
	}
	return true
}

// TagFamily groups tags.
type TagFamily struct {
	UUID        string       `json:"uuid"`
	Name        string       `json:"name"`
	Creator     *Ref         `json:"creator,omitempty"`
	Created     Timestamp    `json:"created"`
	Editor      *Ref         `json:"editor,omitempty"`
	Edited      Timestamp    `json:"edited"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// TagFields carries the value of a tag.
type TagFields struct {
	Name string `json:"name"`
}

// Tag is a single tag inside a family.
type Tag struct {
	UUID        string       `json:"uuid"`
	TagFamily   *Ref         `json:"tagFamily,omitempty"`
	Fields      TagFields    `json:"fields"`
	Creator     *Ref         `json:"creator,omitempty"`
	Created     Timestamp    `json:"created"`
	Editor      *Ref         `json:"editor,omitempty"`
	Edited      Timestamp    `json:"edited"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// MetaInfo is the paging block of list responses.
type MetaInfo struct {
	CurrentPage int `json:"currentPage"`
	PageCount   int `json:"pageCount"`
	PerPage     int `json:"perPage"`
	TotalCount  int `json:"totalCount"`
}

// ListResponse is a page of CMS objects.
type ListResponse[T any] struct {
	MetaInfo MetaInfo `json:"_metainfo"`
	Data     []T      `json:"data"`
}

// SearchQuery is the body of a search request.
type SearchQuery struct {
	Sort   any `json:"sort,omitempty"`
	Query  any `json:"query,omitempty"`
	Filter any `json:"filter,omitempty"`
}

// ChildrenQuery builds the search that lists the children of parent in
// language, sorted ascending by orderBy (default "created").
func ChildrenQuery(parent, language, orderBy string) SearchQuery {
	if orderBy == "" {
		orderBy = "created"
	}
	return SearchQuery{
		Filter: map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"term": map[string]any{"parentNode.uuid": parent}},
					map[string]any{"term": map[string]any{"language": language}},
				},
				"_cache": true,
			},
		},
		Sort: map[string]any{
			orderBy: map[string]any{"order": "asc"},
		},
	}
}
