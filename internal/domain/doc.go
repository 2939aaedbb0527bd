// Package domain holds the validated value types of the newsletter service:
// subscriber names and emails, the subscriber record, and its status enum.
//
// Everything here is a pure value. No database handles, no HTTP types, no
// imports from other internal packages. A SubscriberName or SubscriberEmail
// that exists was parsed successfully, so the rest of the codebase never
// re-validates.
package domain
