package renderer

import (
	"context"
	"fmt"
	"html/template"
	"slices"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/metrics"
	"github.com/goliatone/go-mesh/internal/nodes"
	"golang.org/x/sync/errgroup"
)

// trail holds the uuids of the nodes on the current nesting branch.
type trail []string

func (t trail) has(uuid string) bool {
	return uuid != "" && slices.Contains(t, uuid)
}

func (t trail) with(uuid string) trail {
	if uuid == "" {
		return t
	}
	return append(slices.Clone(t), uuid)
}

// expandFields replaces every node-like field of node, and every node-like
// element of a list field, with the rendered fragment of that nested node.
// Other values are kept. Fields are resolved concurrently; node is modified
// only once all of them succeeded.
func (r *Renderer) expandFields(ctx context.Context, node *nodes.Node, path trail, depth int) (*nodes.Node, error) {
	if node == nil || len(node.Fields) == 0 {
		return node, nil
	}
	keys := make([]string, 0, len(node.Fields))
	for key := range node.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	resolved := make([]any, len(keys))
	group, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		value := node.Fields[key]
		group.Go(func() error {
			out, err := r.resolveField(gctx, value, path, depth)
			if err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			resolved[i] = out
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	for i, key := range keys {
		node.Fields[key] = resolved[i]
	}
	return node, nil
}

func (r *Renderer) resolveField(ctx context.Context, value any, path trail, depth int) (any, error) {
	if list, ok := value.([]any); ok {
		out := make([]any, len(list))
		group, gctx := errgroup.WithContext(ctx)
		for i, item := range list {
			if !nodes.IsNodeLike(item) {
				out[i] = item
				continue
			}
			group.Go(func() error {
				fragment, err := r.renderFragment(gctx, item, path, depth+1)
				if err != nil {
					return err
				}
				out[i] = fragment
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}
	if nodes.IsNodeLike(value) {
		return r.renderFragment(ctx, value, path, depth+1)
	}
	return value, nil
}

// renderFragment renders a nested node with the template named after its
// schema or microschema. Micro-nodes without a language take the active one.
// A missing or failing template yields an empty fragment; a failing schema
// handler fails the whole render.
func (r *Renderer) renderFragment(ctx context.Context, value any, path trail, depth int) (template.HTML, error) {
	start := r.now()
	child, err := nodes.AsNode(value)
	if err != nil {
		return "", err
	}
	key := child.ReferenceKey()
	if key == "" {
		return "", schemaMissing(child.UUID)
	}
	if limit := r.cfg.Rendering.MaxDepth; limit > 0 && depth > limit {
		return "", goerrors.Wrap(fmt.Errorf("%w: %d", ErrRenderDepth, limit), goerrors.CategoryInternal, "nested nodes too deep").
			WithTextCode(renderDepthCode)
	}
	if path.has(child.UUID) {
		return "", goerrors.Wrap(fmt.Errorf("%w: %s", ErrRenderCycle, child.UUID), goerrors.CategoryInternal, "node reference cycle").
			WithTextCode(renderCycleCode)
	}
	logger := logging.WithRenderContext(r.logger, key, key, child.UUID).WithContext(ctx)

	child = child.Clone()
	if child.Language == "" {
		child.Language = r.languages.CurrentLanguage(ctx)
	}
	child, err = r.expandFields(ctx, child, path.with(child.UUID), depth)
	if err == nil {
		child, err = r.schemas.Run(ctx, key, child)
	}
	if err != nil {
		logger.Error("schema handlers failed for nested node", "error", err)
		r.metrics.ObserveRender(kindFragment, metrics.OutcomeError, r.now().Sub(start))
		return "", err
	}

	if !r.templates.Exists(key) {
		logger.Warn("template for schema not found, using blank")
		r.metrics.ObserveRender(kindFragment, metrics.OutcomeFallback, r.now().Sub(start))
		return "", nil
	}
	out, err := r.templates.RenderTemplate(key, child)
	if err != nil {
		logger.Error("nested template failed", "error", err)
		r.metrics.ObserveRender(kindFragment, metrics.OutcomeError, r.now().Sub(start))
		return "", nil
	}
	r.metrics.ObserveRender(kindFragment, metrics.OutcomeSuccess, r.now().Sub(start))
	return template.HTML(out), nil
}
