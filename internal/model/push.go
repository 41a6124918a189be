package model

import (
	"strings"
	"time"
)

// VAPIDKeys is the application server identity used to sign push requests.
type VAPIDKeys struct {
	PublicKey  string    `db:"vapid_public_key" json:"vapid_public_key"`
	PrivateKey string    `db:"vapid_private_key" json:"-"`
	Email      string    `db:"vapid_email" json:"vapid_email"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Validate returns a config error naming what is missing.
func (k VAPIDKeys) Validate() error {
	if k.PublicKey == "" || k.PrivateKey == "" {
		return NewConfigError("VAPID keys not configured. Generate keys with `pushsvc vapid generate`")
	}
	if k.Email == "" {
		return NewConfigError("VAPID email not configured. Set VAPID_EMAIL or pass --email to `pushsvc vapid generate`")
	}
	return nil
}

// Subscriber is the VAPID "sub" contact, without the mailto: scheme
// (webpush-go adds it).
func (k VAPIDKeys) Subscriber() string {
	return strings.TrimPrefix(k.Email, "mailto:")
}

// PushPayload is the JSON document the service worker receives.
type PushPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data"`
	Icon  string                 `json:"icon"`
	Badge string                 `json:"badge"`
}

// DispatchResult aggregates one dispatch pass over a user's subscriptions.
// Success + Failed always equals Total.
type DispatchResult struct {
	Success     int `json:"success_count"`
	Failed      int `json:"failed_count"`
	Total       int `json:"total"`
	Deactivated int `json:"deactivated_count"`
}

// SendPushRequest is the body of POST /api/method/send_push_notification.
type SendPushRequest struct {
	User  string                 `json:"user"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// SendResult is the caller-facing outcome of a dispatch. It is always returned,
// even when the dispatch could not run.
type SendResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	SentCount   int    `json:"sent_count"`
	FailedCount int    `json:"failed_count"`
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	User string
	// CanWriteAny allows managing subscriptions owned by other users.
	CanWriteAny bool
}

// Guest reports whether the caller is unauthenticated.
func (c Caller) Guest() bool {
	return c.User == ""
}

// RolePushManager grants CanWriteAny.
const RolePushManager = "push_manager"
