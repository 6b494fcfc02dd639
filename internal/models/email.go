package models

import "time"

// MaxBodyLength is the hard cap on CanonicalEmail.Body. Bodies are silently
// truncated to bound the payload handed to the downstream analysis layer.
const MaxBodyLength = 2000

// DefaultSubject is substituted when a provider message carries no subject.
const DefaultSubject = "(No Subject)"

// ErrorPlaceholder is the sentinel value written into Subject and Snippet of
// a CanonicalEmail that stands in for a message that could not be retrieved
// or decoded.
const ErrorPlaceholder = "error retrieving email"

// CanonicalEmail is the provider-agnostic email record consumed downstream.
// Every field is always present: consumers never branch on absence.
type CanonicalEmail struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"threadId"`
	OccurredAt time.Time `json:"date"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet"`
	Body       string    `json:"body"`
}

// IsSentinel reports whether the record is an error placeholder produced by
// the normalization pipeline for an unretrievable message.
func (e CanonicalEmail) IsSentinel() bool {
	return e.Subject == ErrorPlaceholder && e.Body == ""
}

// EmailsResponse is the payload returned by the mailbox endpoints.
type EmailsResponse struct {
	Success bool             `json:"success"`
	Emails  []CanonicalEmail `json:"emails"`
}

// MeResponse describes the authenticated identity to the frontend.
type MeResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Method  string `json:"auth_method"`
}

// ErrorResponse is the uniform error payload of the API.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
