package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// Kind classifies a store failure.
type Kind int

const (
	// KindInternal is an unclassified database failure.
	KindInternal Kind = iota
	// KindConflict is a constraint violation (duplicate email, broken FK).
	KindConflict
	// KindUnavailable is a connectivity failure.
	KindUnavailable
)

// Error wraps a database failure with the operation that produced it.
// Details never reach clients; PublicMessage is deliberately opaque.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status this error maps to.
func (e *Error) StatusCode() int { return 500 }

// PublicMessage returns the client-facing message.
func (e *Error) PublicMessage() string { return "an internal error occurred" }

// wrap classifies err and wraps it as a store *Error.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity constraint violation
			return KindConflict
		case "08": // connection exception
			return KindUnavailable
		}
		return KindInternal
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return KindUnavailable
	}
	return KindInternal
}
