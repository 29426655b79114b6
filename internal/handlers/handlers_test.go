package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mesh/internal/nodes"
)

func TestSchemaStoreWithoutHandlersReturnsSameNode(t *testing.T) {
	store := NewSchemaStore()
	node := &nodes.Node{UUID: "n1"}

	got, err := store.Run(context.Background(), "product", node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != node {
		t.Fatalf("expected the same node reference")
	}
}

func TestSchemaStoreRunsInRegistrationOrder(t *testing.T) {
	store := NewSchemaStore()
	var order []string

	store.Register("product", func(_ context.Context, node *nodes.Node) (*nodes.Node, error) {
		order = append(order, "first")
		out := node.Clone()
		out.Fields = map[string]any{"step": 1}
		return out, nil
	})
	store.Register("product", func(_ context.Context, node *nodes.Node) (*nodes.Node, error) {
		order = append(order, "second")
		if node.Fields["step"] != 1 {
			t.Fatalf("expected output of the first handler, got %v", node.Fields)
		}
		return nil, nil
	})
	store.Register("article", func(_ context.Context, node *nodes.Node) (*nodes.Node, error) {
		order = append(order, "article")
		return node, nil
	})

	got, err := store.Run(context.Background(), "product", &nodes.Node{UUID: "n1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected order %v", order)
	}
	if got.Fields["step"] != 1 {
		t.Fatalf("expected nil result to keep the previous node, got %+v", got)
	}
	if schemas := store.Schemas(); len(schemas) != 2 || schemas[0] != "product" {
		t.Fatalf("unexpected schemas %v", schemas)
	}
}

func TestSchemaStoreStopsOnFirstFailure(t *testing.T) {
	store := NewSchemaStore()
	boom := errors.New("boom")
	calls := 0

	for i := 0; i < 4; i++ {
		i := i
		store.Register("product", func(_ context.Context, node *nodes.Node) (*nodes.Node, error) {
			calls++
			if i == 1 {
				return nil, boom
			}
			return node, nil
		})
	}

	_, err := store.Run(context.Background(), "product", &nodes.Node{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected handlers after the failure not to run, got %d calls", calls)
	}
}

func TestSchemaStoreUnregisterRemovesOneEntry(t *testing.T) {
	store := NewSchemaStore()
	noop := func(_ context.Context, node *nodes.Node) (*nodes.Node, error) { return node, nil }

	first := store.Register("product", noop)
	store.Register("product", noop)

	if !store.Unregister("product", first) {
		t.Fatalf("expected unregister to succeed")
	}
	if store.Unregister("product", first) {
		t.Fatalf("expected second unregister to report false")
	}
	if store.Len("product") != 1 {
		t.Fatalf("expected one remaining handler, got %d", store.Len("product"))
	}
}

func TestSchemaStoreRegistrationDuringRunDoesNotAffectChain(t *testing.T) {
	store := NewSchemaStore()
	calls := 0
	store.Register("product", func(_ context.Context, node *nodes.Node) (*nodes.Node, error) {
		calls++
		store.Register("product", func(_ context.Context, node *nodes.Node) (*nodes.Node, error) {
			calls += 100
			return node, nil
		})
		return node, nil
	})

	if _, err := store.Run(context.Background(), "product", &nodes.Node{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected handler added mid-run to wait for the next run, got %d", calls)
	}
}

func TestChainRecoversPanics(t *testing.T) {
	_, err := Run(context.Background(), 1, func(context.Context, int) (int, error) {
		panic("kaboom")
	})
	if !goerrors.IsCategory(err, goerrors.CategoryInternal) {
		t.Fatalf("expected internal error from panic, got %v", err)
	}
}

type renderData struct {
	Meta map[string]any
}

func TestViewStore(t *testing.T) {
	store := NewViewStore[*renderData]()
	id := store.Register(func(_ context.Context, data *renderData) (*renderData, error) {
		data.Meta["seen"] = true
		return data, nil
	})

	data := &renderData{Meta: map[string]any{}}
	got, err := store.Run(context.Background(), data)
	if err != nil || got.Meta["seen"] != true {
		t.Fatalf("unexpected result %+v %v", got, err)
	}

	store.Unregister(id)
	if store.Len() != 0 {
		t.Fatalf("expected empty store")
	}
	boom := errors.New("view failed")
	store.Register(func(context.Context, *renderData) (*renderData, error) { return nil, boom })
	if _, err := store.Run(context.Background(), data); !errors.Is(err, boom) {
		t.Fatalf("expected view failure, got %v", err)
	}
}

func TestErrorStoreReplacesHandler(t *testing.T) {
	store := NewErrorStore()
	var ran []string
	store.Register(404, func(http.ResponseWriter, *http.Request, int, error) error {
		ran = append(ran, "first")
		return nil
	})
	store.Register(404, func(http.ResponseWriter, *http.Request, int, error) error {
		ran = append(ran, "second")
		return nil
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	if err := store.Run(rec, req, 404, errors.New("not found")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ran) != 1 || ran[0] != "second" {
		t.Fatalf("expected only the latest handler, got %v", ran)
	}
	if statuses := store.Statuses(); len(statuses) != 1 || statuses[0] != 404 {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestErrorStoreMissingAndPanickingHandlers(t *testing.T) {
	store := NewErrorStore()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if err := store.Run(rec, req, 500, nil); !errors.Is(err, ErrNoErrorHandler) {
		t.Fatalf("expected ErrNoErrorHandler, got %v", err)
	}

	store.Register(500, func(http.ResponseWriter, *http.Request, int, error) error {
		panic("broken")
	})
	err := store.Run(rec, req, 500, nil)
	if err == nil || errors.Is(err, ErrNoErrorHandler) {
		t.Fatalf("expected panic error, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryInternal) {
		t.Fatalf("expected internal category, got %v", err)
	}

	if !store.Unregister(500) || store.Unregister(500) {
		t.Fatalf("unexpected unregister results")
	}
}
