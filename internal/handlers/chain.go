package handlers

import (
	"context"
	"fmt"
	"sync/atomic"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mesh/internal/util"
)

const handlerPanicCode = "MESH_HANDLER_PANIC"

// HandlerID identifies one registration so it can be removed later.
type HandlerID uint64

var lastID atomic.Uint64

func nextID() HandlerID {
	return HandlerID(lastID.Add(1))
}

// Func transforms a value as one step of a chain.
type Func[T any] func(ctx context.Context, value T) (T, error)

type entry[T any] struct {
	id HandlerID
	fn Func[T]
}

// Run calls each handler in order, passing the result of one to the next.
// The first error aborts the chain and is returned; later handlers do not
// run. A handler returning a nil value leaves the current value unchanged.
func Run[T any](ctx context.Context, value T, chain ...Func[T]) (T, error) {
	current := value
	err := util.Sequence(ctx, chain, func(ctx context.Context, index int, fn Func[T]) error {
		if fn == nil {
			return nil
		}
		next, err := call(ctx, index, fn, current)
		if err != nil {
			return err
		}
		if util.IsDefined(next) {
			current = next
		}
		return nil
	})
	if err != nil {
		return current, err
	}
	return current, nil
}

func call[T any](ctx context.Context, index int, fn Func[T], value T) (next T, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = goerrors.Wrap(fmt.Errorf("handler %d panicked: %v", index, recovered), goerrors.CategoryInternal, "handler panicked").
				WithTextCode(handlerPanicCode)
		}
	}()
	return fn(ctx, value)
}

func funcs[T any](entries []entry[T]) []Func[T] {
	out := make([]Func[T], len(entries))
	for i, e := range entries {
		out[i] = e.fn
	}
	return out
}

func without[T any](entries []entry[T], id HandlerID) ([]entry[T], bool) {
	for i, e := range entries {
		if e.id == id {
			out := make([]entry[T], 0, len(entries)-1)
			out = append(out, entries[:i]...)
			return append(out, entries[i+1:]...), true
		}
	}
	return entries, false
}
