package restclient

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mesh/internal/runtimeconfig"
	"github.com/goliatone/go-mesh/internal/util"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	breakerName            = "mesh-cms"
	backendUnavailableCode = "MESH_BACKEND_UNAVAILABLE"
)

// newBreaker builds the circuit breaker guarding CMS calls. Only transport
// failures count against it; CMS error responses are successful round trips.
func newBreaker(cfg runtimeconfig.BreakerConfig, onChange func(from, to string)) *gobreaker.CircuitBreaker[*http.Response] {
	if !cfg.Enabled {
		return nil
	}
	minRequests := cfg.MinRequests
	ratio := cfg.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if onChange != nil {
				onChange(from.String(), to.String())
			}
		},
	})
}

// rejectedError reports a call the breaker refused to send.
func rejectedError(err error) *Error {
	wrapped := goerrors.Wrap(err, goerrors.CategoryExternal, "mesh backend unavailable").
		WithTextCode(backendUnavailableCode)
	return &Error{Status: util.StatusError, Kind: KindTransport, Data: err.Error(), Err: wrapped}
}

func isRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
