package llm

import (
	"context"
	"io"
	"net"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Kind is the class of a completion failure
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindRateLimit
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindTransient:
		return "transient_network"
	default:
		return "unknown"
	}
}

// Marks attached to classified completion errors. Test with errors.Is from github.com/cockroachdb/errors.
var (
	ErrAuth      = errors.New("authentication failed")
	ErrRateLimit = errors.New("rate limit exceeded")
	ErrTransient = errors.New("transient network failure")
	ErrUnknown   = errors.New("unexpected completion failure")
)

// KindOf returns the class of a completion error. Unclassified errors are KindUnknown.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrRateLimit):
		return KindRateLimit
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindUnknown
	}
}

// Classify marks err with its Kind and attaches a user-facing hint. statusCode is the HTTP status returned by the
// service, or 0 if no response was received.
func Classify(err error, statusCode int) error {
	if err == nil {
		return nil
	}

	switch kindFor(err, statusCode) {
	case KindAuth:
		err = errors.Mark(err, ErrAuth)
		return errors.WithHint(err, "Check your API key, and run /security for credential guidance.")
	case KindRateLimit:
		err = errors.Mark(err, ErrRateLimit)
		return errors.WithHint(err, "Please wait a moment and try again.")
	case KindTransient:
		err = errors.Mark(err, ErrTransient)
		return errors.WithHint(err, "Check your network connection and try again.")
	default:
		return errors.Mark(err, ErrUnknown)
	}
}

func kindFor(err error, statusCode int) Kind {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return KindAuth
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimit
	case statusCode == http.StatusRequestTimeout || statusCode >= http.StatusInternalServerError:
		return KindTransient
	case statusCode != 0:
		return KindUnknown
	}

	var netErr net.Error
	switch {
	case errors.As(err, &netErr):
		return KindTransient
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return KindTransient
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTransient
	}
	return KindUnknown
}
