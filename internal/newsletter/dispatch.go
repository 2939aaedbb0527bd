// Package newsletter fans a newsletter issue out to every confirmed
// subscriber, isolating each recipient's failure from the rest of the batch.
package newsletter

import (
	"context"
	"fmt"

	"github.com/ignite/newsletter/internal/email"
	"github.com/ignite/newsletter/internal/pkg/distlock"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/store"
)

// LockKey names the distributed lock that guards dispatch runs across
// processes.
const LockKey = "newsletter:dispatch"

// Issue is a title plus HTML/plain-text content broadcast to all confirmed
// subscribers.
type Issue struct {
	Title   string       `json:"title"`
	Content IssueContent `json:"content"`
}

// IssueContent carries both renderings of an issue body.
type IssueContent struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// DispatchInProgressError reports that another dispatch run holds the lock.
type DispatchInProgressError struct{}

func (e *DispatchInProgressError) Error() string {
	return "a newsletter dispatch is already in progress"
}

// StatusCode returns the HTTP status this error maps to.
func (e *DispatchInProgressError) StatusCode() int { return 409 }

// PublicMessage returns the client-facing message.
func (e *DispatchInProgressError) PublicMessage() string { return e.Error() }

// Outcome summarizes one dispatch run. It is internal observability only;
// the HTTP contract reports plain success once the batch is traversed.
type Outcome struct {
	Delivered      int
	Failed         int
	SkippedInvalid int
}

// Dispatcher runs the newsletter dispatch workflow.
type Dispatcher struct {
	store   *store.Store
	sender  email.Sender
	newLock func() distlock.DistLock
	metrics *Metrics
}

// NewDispatcher wires a dispatcher. newLock builds a fresh lock per run
// (lock instances are single-use); metrics may be nil.
func NewDispatcher(st *store.Store, sender email.Sender, newLock func() distlock.DistLock, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		store:   st,
		sender:  sender,
		newLock: newLock,
		metrics: metrics,
	}
}

// Dispatch sends issue to every confirmed subscriber, sequentially. A
// recipient whose stored email fails validation is skipped; a recipient
// whose delivery fails is recorded and skipped. Neither aborts the batch.
// Only a store failure (the sequence itself breaking) fails the run.
func (d *Dispatcher) Dispatch(ctx context.Context, issue Issue) (Outcome, error) {
	lock := d.newLock()
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		// A broken lock backend must not take newsletter delivery down.
		logger.Warn("dispatch lock unavailable, proceeding unguarded", "err", err.Error())
	} else if !acquired {
		return Outcome{}, &DispatchInProgressError{}
	} else {
		defer lock.Release(ctx)
	}

	emails, err := d.store.ConfirmedEmails(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load confirmed subscribers: %w", err)
	}
	defer emails.Close()

	var out Outcome
	for emails.Next() {
		recipient, err := emails.Email()
		if err != nil {
			out.SkippedInvalid++
			d.metrics.skippedInvalid()
			logger.Warn("skipping a confirmed subscriber, their stored contact details are invalid",
				"err", err.Error())
			continue
		}

		if err := d.sender.Send(ctx, recipient, issue.Title, issue.Content.HTML, issue.Content.Text); err != nil {
			out.Failed++
			d.metrics.deliveryFailed()
			logger.Error("failed to send newsletter issue",
				"recipient", recipient.String(),
				"err", err.Error())
			continue
		}
		out.Delivered++
		d.metrics.delivered()
	}
	if err := emails.Err(); err != nil {
		return out, fmt.Errorf("failed to read confirmed subscribers: %w", err)
	}

	d.metrics.dispatched()
	logger.Info("newsletter dispatch completed",
		"title", issue.Title,
		"delivered", out.Delivered,
		"failed", out.Failed,
		"skipped_invalid", out.SkippedInvalid)
	return out, nil
}
