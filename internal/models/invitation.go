package models

import "time"

// InvitationStatus tracks the lifecycle of an invitation
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation bridges an invitee email to community membership.
// It is keyed by a single-use token.
type Invitation struct {
	Token       string           `json:"token"`
	CommunityID string           `json:"communityId"`
	Email       string           `json:"email"`
	MemberID    string           `json:"memberId,omitempty"`
	Role        Role             `json:"role"`
	Status      InvitationStatus `json:"status"`
	InvitedBy   string           `json:"invitedBy"`
	InviterName string           `json:"inviterName,omitempty"` // Populated via JOIN
	CreatedAt   time.Time        `json:"createdAt"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	AcceptedBy  string           `json:"acceptedBy,omitempty"`
	AcceptedAt  *time.Time       `json:"acceptedAt,omitempty"`
}

// IsExpired checks the expiry time against now
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsUsable reports whether the invitation can still be accepted
func (i *Invitation) IsUsable(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}
