package model

import "fmt"

// NotificationEvent is raised by the notification pipeline when a notification
// record is created. Broadcast notifications carry no ForUser.
type NotificationEvent struct {
	Name         string `json:"name"` // notification record id
	ForUser      string `json:"for_user"`
	Subject      string `json:"subject"`
	EmailContent string `json:"email_content,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
}

// Personal reports whether the event targets a single user with a subject.
func (e NotificationEvent) Personal() bool {
	return e.ForUser != "" && e.Subject != ""
}

// PushBody is the notification text, falling back to the subject.
func (e NotificationEvent) PushBody() string {
	if e.EmailContent != "" {
		return e.EmailContent
	}
	return e.Subject
}

// PushData carries what a service worker needs to route a tap-through.
func (e NotificationEvent) PushData() map[string]interface{} {
	return map[string]interface{}{
		"document_type":    e.DocumentType,
		"document_name":    e.DocumentName,
		"notification_log": e.Name,
		"url":              fmt.Sprintf("/app/notification-log/%s", e.Name),
	}
}
