// Package provider implements mailbox adapters for the supported upstream APIs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mailmind/backend/internal/models"
)

// ErrProviderUnavailable is returned when an upstream API call fails or
// times out at batch level. Gmail per-message failures are recovered into
// RawMessage.Err instead and never surface as this error.
var ErrProviderUnavailable = errors.New("provider unavailable")

// DefaultLookback is how far back messages are listed when the caller does
// not pass an explicit window.
func DefaultLookback(now time.Time) time.Time {
	return now.AddDate(0, -2, 0)
}

// RawMessage is the provider-shaped intermediate record handed to the
// normalization pipeline. When Err is set the message could not be retrieved
// or decoded; ID and Date are still filled in when known.
type RawMessage struct {
	ID       string
	ThreadID string
	Date     time.Time
	From     string
	To       string
	Subject  string
	Snippet  string
	Body     string
	Err      error
}

// Adapter lists recent messages from one upstream mailbox API.
type Adapter interface {
	Kind() models.ProviderKind

	// ListRecentMessages returns messages received at or after since,
	// most recent first. The returned slice may contain entries with Err
	// set; an empty slice is a valid result.
	ListRecentMessages(ctx context.Context, cred models.ProviderCredential, since time.Time) ([]RawMessage, error)
}

// FormatAddress renders a display string from a name and an address,
// falling back to whichever is present.
func FormatAddress(name, address string) string {
	switch {
	case name != "" && address != "":
		return fmt.Sprintf("%s <%s>", name, address)
	case address != "":
		return address
	default:
		return name
	}
}

// TruncateBody caps a body at the canonical limit with no truncation marker.
// The cap bounds the payload handed to the downstream analysis layer.
// Truncation is rune-aware so a multibyte character is never split.
func TruncateBody(body string) string {
	if utf8.RuneCountInString(body) <= models.MaxBodyLength {
		return body
	}
	return string([]rune(body)[:models.MaxBodyLength])
}
