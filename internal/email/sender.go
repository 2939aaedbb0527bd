// Package email delivers transactional and broadcast email through an
// external transport. Two backends exist: a Postmark-wire HTTP client and
// AWS SES. Neither retries; retry policy, if any, belongs to the caller.
package email

import (
	"context"
	"fmt"

	"github.com/ignite/newsletter/internal/domain"
)

// Sender delivers a single email to a single recipient.
type Sender interface {
	Send(ctx context.Context, recipient domain.SubscriberEmail, subject, htmlBody, textBody string) error
}

// TransportError reports a failed or timed-out delivery attempt.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status this error maps to.
func (e *TransportError) StatusCode() int { return 500 }

// PublicMessage returns the client-facing message.
func (e *TransportError) PublicMessage() string { return "an internal error occurred" }
