package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/DoyleJ11/arena-client/internal/gateway"
)

type Kind int

const (
	KindTransport Kind = iota + 1
	KindUnauthorized
	KindRejected
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	case KindRejected:
		return "rejected"
	case KindRateLimited:
		return "rate_limited"
	}
	return "unknown"
}

var ErrTransport = errors.New("api: transport failure")
var ErrUnauthorized = errors.New("api: unauthorized")
var ErrRateLimited = errors.New("api: rate limited")
var ErrRejected = errors.New("api: rejected")

// Error is a failed call. Message is the server's text when it sent one and
// is empty otherwise; transport failures carry the localized fallback.
type Error struct {
	Kind          Kind
	Status        int
	Message       string
	Code          string
	RetryAfter    time.Duration
	HasRetryAfter bool
	Raw           json.RawMessage
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s (%d)", e.Kind, e.Status)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrRejected:
		return e.Kind == KindRejected
	}
	return false
}

// Decode unmarshals the failure body, e.g. the login conflict details.
func (e *Error) Decode(v any) error {
	if len(e.Raw) == 0 {
		return gateway.ErrNoPayload
	}
	return json.Unmarshal(e.Raw, v)
}

// AsError unwraps err to *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func fromResult(res gateway.Result) *Error {
	e := &Error{
		Status:        res.Status,
		Message:       res.Payload.Message,
		Code:          res.Payload.Code,
		RetryAfter:    res.Payload.RetryAfter,
		HasRetryAfter: res.Payload.HasRetryAfter,
		Raw:           res.Payload.Raw,
	}
	// The status decides 401 and 429 even when the body was not JSON
	// (a proxy login page, a plain-text limiter reply).
	switch {
	case res.Unauthorized():
		e.Kind = KindUnauthorized
	case res.RateLimited():
		e.Kind = KindRateLimited
	case res.Payload.Synthetic || res.Status == 0:
		e.Kind = KindTransport
	default:
		e.Kind = KindRejected
	}
	if res.Payload.Synthetic && e.Kind != KindTransport {
		// The synthetic text describes a parse failure, not this rejection.
		e.Message = ""
	}
	return e
}
