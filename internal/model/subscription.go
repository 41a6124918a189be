package model

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxUserAgentLength is the number of characters kept from a device's User-Agent.
const MaxUserAgentLength = 140

// Subscription is a browser push endpoint registered by a user.
// There is at most one row per endpoint; dead endpoints are deactivated, never deleted.
type Subscription struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user"`
	Endpoint  string    `db:"endpoint" json:"endpoint"`
	P256dhKey string    `db:"p256dh_key" json:"-"` // key material stays server-side
	AuthKey   string    `db:"auth_key" json:"-"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubscriptionKeys is the "keys" object of a browser PushSubscription.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// SubscriptionRequest is the PushSubscription.toJSON() shape sent by the browser.
// A "user" property may be present but is never trusted; see UpsertRequest.
type SubscriptionRequest struct {
	Endpoint       string           `json:"endpoint"`
	ExpirationTime *int64           `json:"expirationTime,omitempty"`
	Keys           SubscriptionKeys `json:"keys"`
	User           string           `json:"user,omitempty"`
}

// ParseSubscriptionRequest decodes a subscription payload. The payload can be the
// subscription object itself or a JSON string holding it (form-encoded clients
// double encode).
func ParseSubscriptionRequest(raw []byte) (*SubscriptionRequest, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, NewValidationError("Subscription data is required")
	}

	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			return nil, NewValidationError("Invalid subscription data")
		}
		trimmed = strings.TrimSpace(inner)
	}

	var req SubscriptionRequest
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
		return nil, NewValidationError("Invalid subscription data")
	}
	return &req, nil
}

// UpsertRequest is what the registry persists. UserID always comes from the
// authenticated caller, never from the client payload.
type UpsertRequest struct {
	UserID    string
	Endpoint  string
	P256dhKey string
	AuthKey   string
	UserAgent string
}

// Normalize trims whitespace and truncates the user agent.
func (r *UpsertRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.Endpoint = strings.TrimSpace(r.Endpoint)
	r.P256dhKey = strings.TrimSpace(r.P256dhKey)
	r.AuthKey = strings.TrimSpace(r.AuthKey)
	r.UserAgent = TruncateUserAgent(strings.TrimSpace(strings.ToValidUTF8(r.UserAgent, "")))
}

// Validate reports the first missing required field as a validation error.
func (r *UpsertRequest) Validate() error {
	switch {
	case r.Endpoint == "":
		return NewValidationError("endpoint is required")
	case r.P256dhKey == "":
		return NewValidationError("keys.p256dh is required")
	case r.AuthKey == "":
		return NewValidationError("keys.auth is required")
	case r.UserID == "":
		return NewValidationError("user is required")
	}
	return nil
}

// UpsertResult tells the caller whether the endpoint was new.
type UpsertResult struct {
	Subscription *Subscription
	Created      bool
}

// SubscribeResponse is the body of POST /api/method/push.
type SubscribeResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	SubscriptionName string `json:"subscription_name,omitempty"`
}

// TruncateUserAgent keeps at most MaxUserAgentLength characters.
func TruncateUserAgent(ua string) string {
	if utf8.RuneCountInString(ua) <= MaxUserAgentLength {
		return ua
	}
	runes := []rune(ua)
	return string(runes[:MaxUserAgentLength])
}
