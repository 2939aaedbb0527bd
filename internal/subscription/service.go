// Package subscription implements the subscription and confirmation
// workflows: validated intake, atomic subscriber+token persistence, and the
// token-gated pending→confirmed transition.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/email"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/store"
	"github.com/ignite/newsletter/internal/token"
)

// confirmPath is the route a confirmation link points at.
const confirmPath = "/subscriptions/confirm"

// UnknownTokenError reports a confirmation attempt with a token that was
// never issued (or has expired). It is an authorization failure, not a
// lookup miss: the token is the credential.
type UnknownTokenError struct{}

func (e *UnknownTokenError) Error() string {
	return "there is no subscriber associated with the provided token"
}

// StatusCode returns the HTTP status this error maps to.
func (e *UnknownTokenError) StatusCode() int { return 401 }

// PublicMessage returns the client-facing message.
func (e *UnknownTokenError) PublicMessage() string { return e.Error() }

// Service orchestrates the subscription lifecycle. It holds no per-request
// state; every call constructs fresh value objects and discards them.
type Service struct {
	store   *store.Store
	sender  email.Sender
	baseURL string
}

// NewService wires the subscription workflows. baseURL is the externally
// visible address confirmation links are built from.
func NewService(st *store.Store, sender email.Sender, baseURL string) *Service {
	return &Service{
		store:   st,
		sender:  sender,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Subscribe validates the raw (name, email) pair, durably persists a pending
// subscriber together with a fresh confirmation token, and sends the
// confirmation email.
//
// The transaction is the commit point: on validation or store failure
// nothing is persisted. A failed confirmation email fails the call as a
// whole, but the subscriber stays durably pending_confirmation; the token
// can still reach them through another channel.
func (s *Service) Subscribe(ctx context.Context, name, rawEmail string) error {
	sub, err := domain.ParseNewSubscriber(name, rawEmail)
	if err != nil {
		return err
	}

	confirmationToken, err := token.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate a confirmation token: %w", err)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to open a subscription transaction: %w", err)
	}
	defer tx.Rollback()

	subscriberID, err := s.store.InsertSubscriber(ctx, tx, sub)
	if err != nil {
		var serr *store.Error
		if errors.As(err, &serr) && serr.Kind == store.KindConflict {
			subscribeConflicts.Inc()
		}
		return fmt.Errorf("failed to insert subscriber: %w", err)
	}
	if err := s.store.InsertToken(ctx, tx, subscriberID, confirmationToken); err != nil {
		return fmt.Errorf("failed to store the confirmation token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit the subscription transaction: %w", err)
	}

	logger.Info("subscriber persisted pending confirmation",
		"subscriber_id", subscriberID,
		"subscriber_email", sub.Email.String())

	if err := s.sendConfirmationEmail(ctx, sub, confirmationToken); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

func (s *Service) sendConfirmationEmail(ctx context.Context, sub domain.NewSubscriber, confirmationToken string) error {
	link := s.confirmationLink(confirmationToken)
	htmlBody := fmt.Sprintf(
		"Welcome to our newsletter! We're glad to have you.<br />"+
			"Click <a href=\"%s\">here</a> to confirm your subscription.", link)
	textBody := fmt.Sprintf(
		"Welcome to our newsletter! We're glad to have you.\n"+
			"Visit %s to confirm your subscription.", link)

	return s.sender.Send(ctx, sub.Email, "Welcome!", htmlBody, textBody)
}

func (s *Service) confirmationLink(confirmationToken string) string {
	return fmt.Sprintf("%s%s?subscription_token=%s",
		s.baseURL, confirmPath, url.QueryEscape(confirmationToken))
}

// Confirm resolves a confirmation token and marks its subscriber confirmed.
// Confirming an already-confirmed subscriber succeeds silently; confirmed is
// terminal.
func (s *Service) Confirm(ctx context.Context, confirmationToken string) error {
	subscriberID, found, err := s.store.FindSubscriberIDByToken(ctx, confirmationToken)
	if err != nil {
		return fmt.Errorf("failed to retrieve the subscriber id associated with the provided token: %w", err)
	}
	if !found {
		return &UnknownTokenError{}
	}
	if err := s.store.MarkConfirmed(ctx, subscriberID); err != nil {
		return fmt.Errorf("failed to update the subscriber status to confirmed: %w", err)
	}
	logger.Info("subscriber confirmed", "subscriber_id", subscriberID)
	return nil
}
