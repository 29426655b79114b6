package util

import (
	"context"
	"net/url"
	"reflect"
)

// StatusError is the status reported for failures that carry no HTTP status
// of their own.
const StatusError = 500

// FirstNonEmpty returns the first non-empty string in values.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// IsDefined reports whether value holds something other than nil or a typed
// nil pointer, map, slice, interface or func.
func IsDefined(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	default:
		return true
	}
}

// GetPath returns the path component of raw. Unparseable input is returned
// unchanged.
func GetPath(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return parsed.Path
}

// Sequence calls fn for every item in order, waiting for each call to return
// before starting the next. The first error stops the iteration.
func Sequence[T any](ctx context.Context, items []T, fn func(ctx context.Context, index int, item T) error) error {
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, i, item); err != nil {
			return err
		}
	}
	return nil
}

// CloneAnyMap returns a shallow copy of supported raw map types.
// Unsupported inputs yield an empty map.
func CloneAnyMap(raw any) map[string]any {
	result := make(map[string]any)
	switch values := raw.(type) {
	case map[string]any:
		for k, v := range values {
			result[k] = v
		}
	case map[string]string:
		for k, v := range values {
			result[k] = v
		}
	}
	return result
}
