package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrRejected       = errors.New("payment service rejected the request")
	ErrUnreachable    = errors.New("payment service unreachable")
	ErrInvalidRequest = errors.New("invalid payment request")
)

type Kind int

const (
	KindRejected Kind = iota + 1
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Error carries the service-provided message, when there is one, along with the
// failure class. It matches ErrRejected or ErrUnreachable with errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("payment service %s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("payment service %s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("payment service %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("payment service %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	}
	return false
}

// Message returns the message reported by the payment service, or "" when the
// error did not come from the service.
func Message(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	return ""
}

func rejected(msg string) *Error {
	return &Error{Kind: KindRejected, Message: msg}
}

func unreachable(msg string, err error) *Error {
	return &Error{Kind: KindUnreachable, Message: msg, Err: err}
}
