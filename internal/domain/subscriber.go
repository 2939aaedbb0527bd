package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
)

// SubscriberStatus enumerates the states a subscriber can be in.
type SubscriberStatus string

const (
	SubscriberPendingConfirmation SubscriberStatus = "pending_confirmation"
	SubscriberConfirmed           SubscriberStatus = "confirmed"
)

// Subscriber is the persisted subscriber record.
type Subscriber struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Email        string           `json:"email" db:"email"`
	Name         string           `json:"name" db:"name"`
	Status       SubscriberStatus `json:"status" db:"status"`
	SubscribedAt time.Time        `json:"subscribed_at" db:"subscribed_at"`
}

// NameMaxGraphemes bounds the length of a subscriber display name.
const NameMaxGraphemes = 256

// forbiddenNameChars are rejected in display names. They have no place in a
// name and are the usual suspects in injection payloads.
const forbiddenNameChars = `/()"<>\{}`

// SubscriberName is a validated display name. The zero value is invalid;
// construct via ParseName.
type SubscriberName struct {
	s string
}

// ParseName validates raw as a subscriber display name.
// valid: non-empty after trimming, at most NameMaxGraphemes grapheme
// clusters, and free of forbidden characters. The original string (including
// surrounding whitespace) is preserved on success.
func ParseName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if uniseg.GraphemeClusterCount(raw) > NameMaxGraphemes {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "must be at most 256 characters"}
	}
	if strings.ContainsAny(raw, forbiddenNameChars) {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "contains a forbidden character"}
	}
	return SubscriberName{s: raw}, nil
}

// String returns the validated name.
func (n SubscriberName) String() string { return n.s }

// SubscriberEmail is a validated email address. The zero value is invalid;
// construct via ParseEmail.
type SubscriberEmail struct {
	s string
}

// ParseEmail validates raw as an email address.
func ParseEmail(raw string) (SubscriberEmail, error) {
	if raw == "" {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	if !validEmail(raw) {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "is not a valid email address"}
	}
	return SubscriberEmail{s: raw}, nil
}

// String returns the validated address.
func (e SubscriberEmail) String() string { return e.s }

// validEmail applies RFC-5322-style syntax checks: a single @, bounded
// local/domain parts, and a dotted domain.
func validEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}

	local, domain := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return false
	}
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	if !strings.Contains(domain, ".") {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}

	_, err := url.Parse("mailto:" + email)
	return err == nil
}

// NewSubscriber is the only way a subscriber enters the store: a pair of
// already-validated values that exists transiently between validation and
// persistence.
type NewSubscriber struct {
	Name  SubscriberName
	Email SubscriberEmail
}

// ParseNewSubscriber validates an untrusted (name, email) pair.
// Name is checked before email; the first failure wins.
func ParseNewSubscriber(name, email string) (NewSubscriber, error) {
	n, err := ParseName(name)
	if err != nil {
		return NewSubscriber{}, err
	}
	e, err := ParseEmail(email)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Name: n, Email: e}, nil
}
