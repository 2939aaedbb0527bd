// Package store provides transactional Postgres persistence for subscribers
// and their confirmation tokens.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
)

// Store persists subscriber records and confirmation tokens.
// It is safe for concurrent use; the underlying *sql.DB pool is the only
// shared resource.
type Store struct {
	db *sql.DB

	// tokenTTL bounds confirmation-token lifetime. Zero means tokens
	// never expire.
	tokenTTL time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTokenTTL sets the confirmation-token lifetime. Tokens older than ttl
// are treated as unknown. Zero keeps tokens valid forever.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Store) { s.tokenTTL = ttl }
}

// NewStore creates a subscription store backed by db.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Tx is the unit of work that subscription writes run through. No partial
// subscriber/token pair is visible before Commit.
type Tx struct {
	tx *sql.Tx
}

// Commit finalizes the transaction.
func (t *Tx) Commit() error {
	return wrap("commit transaction", t.tx.Commit())
}

// Rollback aborts the transaction. Rolling back after a successful commit
// is a no-op.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return wrap("roll back transaction", err)
}

// BeginTx opens the unit of work that subscription writes run through.
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("begin transaction", err)
	}
	return &Tx{tx: tx}, nil
}

// InsertSubscriber inserts a pending subscriber inside tx and returns the
// generated id. The subscribed_at timestamp is server-assigned.
func (s *Store) InsertSubscriber(ctx context.Context, tx *Tx, sub domain.NewSubscriber) (uuid.UUID, error) {
	id := uuid.New()
	query := `INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, now(), $4)`

	_, err := tx.tx.ExecContext(ctx, query, id, sub.Email.String(), sub.Name.String(), domain.SubscriberPendingConfirmation)
	if err != nil {
		return uuid.Nil, wrap("insert subscriber", err)
	}
	return id, nil
}

// InsertToken binds a confirmation token to a subscriber inside tx.
func (s *Store) InsertToken(ctx context.Context, tx *Tx, subscriberID uuid.UUID, token string) error {
	query := `INSERT INTO subscription_tokens (subscription_token, subscriber_id, created_at)
		VALUES ($1, $2, now())`

	if _, err := tx.tx.ExecContext(ctx, query, token, subscriberID); err != nil {
		return wrap("insert subscription token", err)
	}
	return nil
}

// FindSubscriberIDByToken resolves a confirmation token to its subscriber.
// A missing or expired token yields found=false, not an error.
func (s *Store) FindSubscriberIDByToken(ctx context.Context, token string) (id uuid.UUID, found bool, err error) {
	query := `SELECT subscriber_id, created_at FROM subscription_tokens
		WHERE subscription_token = $1`

	var createdAt time.Time
	err = s.db.QueryRowContext(ctx, query, token).Scan(&id, &createdAt)
	if err == sql.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, wrap("look up subscription token", err)
	}
	if s.tokenTTL > 0 && s.now().Sub(createdAt) > s.tokenTTL {
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

// MarkConfirmed transitions a subscriber to confirmed. Confirming an
// already-confirmed subscriber is a no-op.
func (s *Store) MarkConfirmed(ctx context.Context, subscriberID uuid.UUID) error {
	query := `UPDATE subscriptions SET status = $1 WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, domain.SubscriberConfirmed, subscriberID); err != nil {
		return wrap("mark subscriber confirmed", err)
	}
	return nil
}

// ConfirmedEmails starts a lazy scan over the stored emails of confirmed
// subscribers. The caller must Close the returned iterator.
func (s *Store) ConfirmedEmails(ctx context.Context) (*ConfirmedEmails, error) {
	query := `SELECT email FROM subscriptions WHERE status = $1`

	rows, err := s.db.QueryContext(ctx, query, domain.SubscriberConfirmed)
	if err != nil {
		return nil, wrap("list confirmed subscribers", err)
	}
	return &ConfirmedEmails{rows: rows}, nil
}

// ConfirmedEmails iterates the confirmed-subscriber emails of a single,
// non-restartable scan. Rows whose stored email no longer passes domain
// validation surface as a per-row error from Email, not as an iteration
// failure, so callers can skip a bad row and keep going.
type ConfirmedEmails struct {
	rows    *sql.Rows
	current string
	scanErr error
}

// Next advances to the next row. It returns false when the scan is
// exhausted or failed; check Err afterwards.
func (c *ConfirmedEmails) Next() bool {
	if !c.rows.Next() {
		return false
	}
	c.scanErr = c.rows.Scan(&c.current)
	return c.scanErr == nil
}

// Email validates and returns the current row's address.
func (c *ConfirmedEmails) Email() (domain.SubscriberEmail, error) {
	return domain.ParseEmail(c.current)
}

// Err reports any failure that terminated the scan early.
func (c *ConfirmedEmails) Err() error {
	if c.scanErr != nil {
		return wrap("scan confirmed subscriber", c.scanErr)
	}
	if err := c.rows.Err(); err != nil {
		return wrap("list confirmed subscribers", err)
	}
	return nil
}

// Close releases the underlying rows.
func (c *ConfirmedEmails) Close() error { return c.rows.Close() }
