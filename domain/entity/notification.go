package entity

import "time"

// NotificationKind identifies why a notification was sent
type NotificationKind string

const (
	NotifyApprovalRequired NotificationKind = "approval_required"
	NotifyApprovalProgress NotificationKind = "approval_progress"
	NotifyManagersApproved NotificationKind = "managers_approved"
	NotifyRequestApproved  NotificationKind = "request_approved"
	NotifyRequestRejected  NotificationKind = "request_rejected"
	NotifyPOCRejected      NotificationKind = "poc_rejected"
	NotifyLogistics        NotificationKind = "logistics_updated"
	NotifyMessagePosted    NotificationKind = "message_posted"
)

// Notification is a message addressed to one person about one request.
type Notification struct {
	ID        string           `json:"id"`
	Recipient string           `json:"recipient"`
	RequestID string           `json:"request_id"`
	Kind      NotificationKind `json:"kind"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification creates an unread notification
func NewNotification(id, recipient, requestID string, kind NotificationKind, subject, body string, now time.Time) *Notification {
	return &Notification{
		ID:        id,
		Recipient: NormalizeEmail(recipient),
		RequestID: requestID,
		Kind:      kind,
		Subject:   subject,
		Body:      body,
		CreatedAt: now,
	}
}
