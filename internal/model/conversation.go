package model

import "time"

// Conversation is one email thread between a tenant and the system.
// Threading state is owned by the conversation-persistence collaborator;
// the pipeline reads prior turns and appends outcomes.
type Conversation struct {
	ID          string    `json:"id"`
	CommunityID string    `json:"community_id"`
	ThreadID    string    `json:"thread_id,omitempty"` // Provider thread identifier from the mail service
	Subject     string    `json:"subject"`
	SenderEmail string    `json:"sender_email"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
