package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"syscall"
)

// ErrorCode classifies transport failures.
type ErrorCode string

const (
	CodeTimeout ErrorCode = "timeout"
	CodeAuth    ErrorCode = "auth"
	CodeSocket  ErrorCode = "socket"
	CodeUnknown ErrorCode = "unknown"
)

var (
	// ErrSendFailed is matched by every SendError.
	ErrSendFailed = errors.New("mail send failed")
	// ErrNoEndpoints is returned when a Sender has nothing to send through.
	ErrNoEndpoints = errors.New("no mail endpoints configured")
)

// TransportError is a single failed send through one endpoint.
type TransportError struct {
	Code     ErrorCode
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("smtp %s (%s): %v", e.Endpoint, e.Code, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SendError aggregates every failure of a send that exhausted its retries.
type SendError struct {
	Attempts  int
	Endpoints int
	Errs      []error
}

func (e *SendError) Error() string {
	msg := fmt.Sprintf("send failed after %d attempts across %d configurations", e.Attempts, e.Endpoints)
	if len(e.Errs) > 0 {
		msg += ": " + e.Errs[len(e.Errs)-1].Error()
	}
	return msg
}

func (e *SendError) Unwrap() []error {
	return append([]error{ErrSendFailed}, e.Errs...)
}

func classify(endpoint string, err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Code: codeOf(err), Endpoint: endpoint, Err: err}
}

func codeOf(err error) ErrorCode {
	var netErr net.Error
	var protoErr *textproto.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	case errors.As(err, &protoErr) && (protoErr.Code == 530 || protoErr.Code == 534 || protoErr.Code == 535):
		return CodeAuth
	case errors.Is(err, io.EOF), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED):
		return CodeSocket
	case errors.As(err, &netErr):
		return CodeSocket
	}
	return CodeUnknown
}
