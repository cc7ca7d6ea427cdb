package entity

import (
	"strings"
	"time"

	apperror "github.com/tripdesk/tripdesk/domain/error"
)

// MaxMessageLength bounds a single conversation message body.
const MaxMessageLength = 2000

// AuthorRole represents the role of a conversation message author
type AuthorRole string

const (
	AuthorSystem   AuthorRole = "system"
	AuthorEmployee AuthorRole = "employee"
	AuthorManager  AuthorRole = "manager"
	AuthorPOC      AuthorRole = "poc"
	AuthorVendor   AuthorRole = "vendor"
)

// ConversationMessage is one entry in a request's conversation log. System
// messages form the audit trail of decisions.
type ConversationMessage struct {
	ID          string     `json:"id"`
	RequestID   string     `json:"request_id"`
	AuthorEmail string     `json:"author_email"`
	AuthorName  string     `json:"author_name,omitempty"`
	Role        AuthorRole `json:"role"`
	Body        string     `json:"body"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewConversationMessage creates a message authored by a person.
func NewConversationMessage(id, requestID, authorEmail, authorName string, role AuthorRole, body string, now time.Time) (*ConversationMessage, error) {
	msg := &ConversationMessage{
		ID:          id,
		RequestID:   requestID,
		AuthorEmail: NormalizeEmail(authorEmail),
		AuthorName:  authorName,
		Role:        role,
		Body:        strings.TrimSpace(body),
		CreatedAt:   now,
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// NewSystemMessage creates an audit entry.
func NewSystemMessage(id, requestID, body string, now time.Time) *ConversationMessage {
	return &ConversationMessage{
		ID:          id,
		RequestID:   requestID,
		AuthorEmail: SystemActor,
		AuthorName:  "System",
		Role:        AuthorSystem,
		Body:        body,
		CreatedAt:   now,
	}
}

// Validate checks the message fields
func (m *ConversationMessage) Validate() error {
	if m.RequestID == "" {
		return apperror.ErrMissingField("request_id")
	}
	if m.AuthorEmail == "" {
		return apperror.ErrMissingField("author_email")
	}
	if m.Body == "" {
		return apperror.ErrMissingField("body")
	}
	if len([]rune(m.Body)) > MaxMessageLength {
		return apperror.ErrInvalidRequest("message body exceeds 2000 characters")
	}
	switch m.Role {
	case AuthorSystem, AuthorEmployee, AuthorManager, AuthorPOC, AuthorVendor:
	default:
		return apperror.ErrInvalidRequest("invalid author role")
	}
	return nil
}

// AuthorRoleFor derives how actor appears in req's conversation.
func AuthorRoleFor(req *TravelRequest, email, role string, poc bool) AuthorRole {
	switch {
	case SameEmail(email, req.OriginatorEmail):
		return AuthorEmployee
	case req.ApprovalChain.Contains(email):
		return AuthorManager
	case poc:
		return AuthorPOC
	case role == RoleVendor:
		return AuthorVendor
	}
	return AuthorEmployee
}
