package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// ErrNoErrorHandler reports that no handler is registered for a status. The
// renderer falls back to error templates on this error exactly as it does
// when a handler fails.
var ErrNoErrorHandler = errors.New("handlers: no error handler registered for status")

const errorHandlerPanicCode = "MESH_ERROR_HANDLER_PANIC"

// ErrorHandler produces the whole response for a failed request. Returning an
// error hands the response back to the default error rendering.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, status int, cause error) error

// ErrorStore holds at most one handler per status code.
type ErrorStore struct {
	mu       sync.RWMutex
	order    []int
	handlers map[int]ErrorHandler
}

func NewErrorStore() *ErrorStore {
	return &ErrorStore{handlers: map[int]ErrorHandler{}}
}

// Register sets the handler for status, replacing any previous one.
func (s *ErrorStore) Register(status int, handler ErrorHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[status]; !ok {
		s.order = append(s.order, status)
	}
	s.handlers[status] = handler
}

func (s *ErrorStore) Unregister(status int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[status]; !ok {
		return false
	}
	delete(s.handlers, status)
	s.order = slices.DeleteFunc(s.order, func(code int) bool { return code == status })
	return true
}

// Statuses lists the registered status codes in registration order.
func (s *ErrorStore) Statuses() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Run invokes the handler for status. It returns ErrNoErrorHandler when none
// is registered and converts a panic into an error.
func (s *ErrorStore) Run(w http.ResponseWriter, r *http.Request, status int, cause error) (err error) {
	s.mu.RLock()
	handler, ok := s.handlers[status]
	s.mu.RUnlock()
	if !ok || handler == nil {
		return fmt.Errorf("%w: %d", ErrNoErrorHandler, status)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = goerrors.Wrap(fmt.Errorf("error handler for %d panicked: %v", status, recovered), goerrors.CategoryInternal, "error handler panicked").
				WithTextCode(errorHandlerPanicCode)
		}
	}()
	return handler(w, r, status, cause)
}
