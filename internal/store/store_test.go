package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func newSubscriber(t *testing.T) domain.NewSubscriber {
	t.Helper()
	sub, err := domain.ParseNewSubscriber("vic ji", "vic_ji_i@gmail.com")
	require.NoError(t, err)
	return sub
}

func TestInsertSubscriberAndToken(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO subscriptions`)).
		WithArgs(sqlmock.AnyArg(), "vic_ji_i@gmail.com", "vic ji", string(domain.SubscriberPendingConfirmation)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO subscription_tokens`)).
		WithArgs("tok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewStore(db)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)

	id, err := s.InsertSubscriber(ctx, tx, newSubscriber(t))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	require.NoError(t, s.InsertToken(ctx, tx, id, "tok"))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSubscriberConflict(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO subscriptions`)).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	s := NewStore(db)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = s.InsertSubscriber(ctx, tx, newSubscriber(t))
	require.Error(t, err)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindConflict, serr.Kind)
	assert.Equal(t, 500, serr.StatusCode())
	assert.Equal(t, "an internal error occurred", serr.PublicMessage())
}

func TestFindSubscriberIDByToken(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT subscriber_id, created_at FROM subscription_tokens`)).
		WithArgs("known-token").
		WillReturnRows(sqlmock.NewRows([]string{"subscriber_id", "created_at"}).AddRow(id, time.Now()))

	s := NewStore(db)
	got, found, err := s.FindSubscriberIDByToken(context.Background(), "known-token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got)
}

func TestFindSubscriberIDByTokenNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT subscriber_id, created_at FROM subscription_tokens`)).
		WithArgs("missing-token").
		WillReturnError(sql.ErrNoRows)

	s := NewStore(db)
	_, found, err := s.FindSubscriberIDByToken(context.Background(), "missing-token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindSubscriberIDByTokenExpired(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT subscriber_id, created_at FROM subscription_tokens`)).
		WithArgs("stale-token").
		WillReturnRows(sqlmock.NewRows([]string{"subscriber_id", "created_at"}).AddRow(uuid.New(), issued))

	s := NewStore(db, WithTokenTTL(24*time.Hour))
	s.now = func() time.Time { return issued.Add(25 * time.Hour) }

	_, found, err := s.FindSubscriberIDByToken(context.Background(), "stale-token")
	require.NoError(t, err)
	assert.False(t, found, "expired token must behave like an unknown token")
}

func TestFindSubscriberIDByTokenWithinTTL(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT subscriber_id, created_at FROM subscription_tokens`)).
		WithArgs("fresh-token").
		WillReturnRows(sqlmock.NewRows([]string{"subscriber_id", "created_at"}).AddRow(id, issued))

	s := NewStore(db, WithTokenTTL(24*time.Hour))
	s.now = func() time.Time { return issued.Add(time.Hour) }

	got, found, err := s.FindSubscriberIDByToken(context.Background(), "fresh-token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got)
}

func TestMarkConfirmed(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	id := uuid.New()
	// Two identical updates: confirming twice is a no-op, never an error.
	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE subscriptions SET status`)).
			WithArgs(string(domain.SubscriberConfirmed), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	s := NewStore(db)
	require.NoError(t, s.MarkConfirmed(context.Background(), id))
	require.NoError(t, s.MarkConfirmed(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmedEmailsSurfacesBadRowsIndividually(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"email"}).
		AddRow("first@example.com").
		AddRow("not-an-email").
		AddRow("second@example.com")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT email FROM subscriptions WHERE status`)).
		WithArgs(string(domain.SubscriberConfirmed)).
		WillReturnRows(rows)

	s := NewStore(db)
	it, err := s.ConfirmedEmails(context.Background())
	require.NoError(t, err)
	defer it.Close()

	var valid []string
	var invalid int
	for it.Next() {
		email, err := it.Email()
		if err != nil {
			invalid++
			continue
		}
		valid = append(valid, email.String())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, valid)
	assert.Equal(t, 1, invalid)
}

func TestConfirmedEmailsQueryError(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT email FROM subscriptions WHERE status`)).
		WillReturnError(errors.New("connection reset"))

	s := NewStore(db)
	_, err := s.ConfirmedEmails(context.Background())
	var serr *Error
	require.ErrorAs(t, err, &serr)
}
