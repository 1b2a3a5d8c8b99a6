// Package apierr turns any error from a resource call into the one shape the
// console and CLI render inline.
package apierr

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"qbadmin/internal/gateway"
)

type Kind int

const (
	Unknown Kind = iota
	Network
	API
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case API:
		return "api"
	default:
		return "unknown"
	}
}

const (
	networkMessage = "could not reach the QuickBee API; check your connection and try again"
	fallback       = "failed"
)

// Error is the normalised form: exactly one Kind, a status for API errors and
// a message that is never empty.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e Error) Error() string { return e.Message }
func (e Error) Unwrap() error { return e.Err }

// Normalize classifies err. It returns the zero Error for nil.
func Normalize(err error) Error {
	if err == nil {
		return Error{}
	}
	var ae *gateway.APIError
	if errors.As(err, &ae) {
		msg := strings.TrimSpace(ae.Message)
		if msg == "" {
			msg = strings.TrimSpace(ae.Error())
		}
		return Error{Kind: API, Status: ae.StatusCode, Message: orFallback(msg), Err: err}
	}
	if isNetwork(err) {
		return Error{Kind: Network, Message: networkMessage, Err: err}
	}
	return Error{Kind: Unknown, Message: orFallback(strings.TrimSpace(err.Error())), Err: err}
}

// Message is shorthand for Normalize(err).Message; "" for nil.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return Normalize(err).Message
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func orFallback(msg string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
