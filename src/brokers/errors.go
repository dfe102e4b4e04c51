package brokers

import (
	"errors"
	"fmt"
)

// ErrUnsupported marks a capability an adapter does not implement for its
// provider. Detect it with errors.Is; it is a support signal, not a
// failure.
var ErrUnsupported = errors.New("operation not supported")

// Unsupported wraps ErrUnsupported with the broker and operation names.
func Unsupported(broker, op string) error {
	return fmt.Errorf("%s: %s: %w", broker, op, ErrUnsupported)
}

// RequestError is a transport or availability failure: a network error, a
// 5xx, or provider throttling that survived the executor's retry bound.
// It carries the final HTTP status and raw body for diagnostics.
type RequestError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// BusinessError is a provider's 4xx rejection of the request itself:
// invalid symbol, insufficient buying power, malformed parameters. It is
// never retried and carries the provider's raw error payload.
type BusinessError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("%s: rejected with status %d: %s", e.Op, e.StatusCode, e.Body)
}
