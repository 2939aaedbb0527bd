package subscription

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/store"
)

// sentEmail records one delivery through the fake sender.
type sentEmail struct {
	recipient string
	subject   string
	htmlBody  string
	textBody  string
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeSender) Send(ctx context.Context, recipient domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{recipient.String(), subject, htmlBody, textBody})
	return nil
}

func setupService(t *testing.T, sender *fakeSender) (*Service, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	svc := NewService(store.NewStore(db), sender, "https://newsletter.example.com")
	return svc, mock, func() { db.Close() }
}

func expectSubscriptionInsert(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO subscriptions`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO subscription_tokens`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

var linkRegex = regexp.MustCompile(`https://newsletter\.example\.com/subscriptions/confirm\?subscription_token=([A-Za-z0-9]+)`)

func TestSubscribePersistsAndSendsConfirmationEmail(t *testing.T) {
	sender := &fakeSender{}
	svc, mock, cleanup := setupService(t, sender)
	defer cleanup()

	expectSubscriptionInsert(mock)

	err := svc.Subscribe(context.Background(), "vic ji", "vic_ji_i@gmail.com")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, "vic_ji_i@gmail.com", sent.recipient)
	assert.Equal(t, "Welcome!", sent.subject)

	htmlLink := linkRegex.FindStringSubmatch(sent.htmlBody)
	textLink := linkRegex.FindStringSubmatch(sent.textBody)
	require.NotNil(t, htmlLink, "html body must contain a confirmation link")
	require.NotNil(t, textLink, "text body must contain a confirmation link")
	assert.Equal(t, htmlLink[0], textLink[0], "html and text links must match")
	assert.Len(t, htmlLink[1], 25, "confirmation token must be 25 characters")
}

func TestSubscribeRejectsInvalidInputWithoutTouchingTheStore(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		email string
	}{
		{"empty name", "", "vic_ji_i@gmail.com"},
		{"name with slash", "vic/ji", "vic_ji_i@gmail.com"},
		{"empty email", "vic ji", ""},
		{"malformed email", "vic ji", "a-invalid-email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			svc, mock, cleanup := setupService(t, sender)
			defer cleanup()

			err := svc.Subscribe(context.Background(), tt.raw, tt.email)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Empty(t, sender.sent)
			// No transaction, no writes.
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubscribeRollsBackWhenTheInsertFails(t *testing.T) {
	sender := &fakeSender{}
	svc, mock, cleanup := setupService(t, sender)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO subscriptions`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := svc.Subscribe(context.Background(), "vic ji", "vic_ji_i@gmail.com")

	var serr *store.Error
	require.ErrorAs(t, err, &serr)
	assert.Empty(t, sender.sent, "no email may be sent for a rolled-back subscription")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribeRollsBackWhenTheTokenInsertFails(t *testing.T) {
	sender := &fakeSender{}
	svc, mock, cleanup := setupService(t, sender)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO subscriptions`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO subscription_tokens`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := svc.Subscribe(context.Background(), "vic ji", "vic_ji_i@gmail.com")
	require.Error(t, err)
	assert.Empty(t, sender.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribeFailsButStaysPersistedWhenTheEmailFails(t *testing.T) {
	sender := &fakeSender{err: errors.New("email API returned status 500")}
	svc, mock, cleanup := setupService(t, sender)
	defer cleanup()

	// The full transaction commits before the send is attempted.
	expectSubscriptionInsert(mock)

	err := svc.Subscribe(context.Background(), "vic ji", "vic_ji_i@gmail.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send confirmation email")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmMarksTheSubscriberConfirmed(t *testing.T) {
	svc, mock, cleanup := setupService(t, &fakeSender{})
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT subscriber_id, created_at FROM subscription_tokens`)).
		WithArgs("valid-token").
		WillReturnRows(sqlmock.NewRows([]string{"subscriber_id", "created_at"}).AddRow(id, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE subscriptions SET status`)).
		WithArgs(string(domain.SubscriberConfirmed), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Confirm(context.Background(), "valid-token")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmUnknownToken(t *testing.T) {
	svc, mock, cleanup := setupService(t, &fakeSender{})
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT subscriber_id, created_at FROM subscription_tokens`)).
		WithArgs("never-issued").
		WillReturnError(sql.ErrNoRows)

	err := svc.Confirm(context.Background(), "never-issued")

	var uerr *UnknownTokenError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, 401, uerr.StatusCode())
}

func TestConfirmSurfacesStoreErrors(t *testing.T) {
	svc, mock, cleanup := setupService(t, &fakeSender{})
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT subscriber_id, created_at FROM subscription_tokens`)).
		WillReturnError(errors.New("connection reset"))

	err := svc.Confirm(context.Background(), "any-token")

	var serr *store.Error
	require.ErrorAs(t, err, &serr)
}
