package models

import "time"

// Settings are the per-community tier boundaries and currency symbol
type Settings struct {
	Tier1Age int    `json:"tier1Age"`
	Tier2Age int    `json:"tier2Age"`
	Currency string `json:"currency"`
}

// DefaultSettings returns the settings a new community starts with
func DefaultSettings() Settings {
	return Settings{Tier1Age: 18, Tier2Age: 25, Currency: "$"}
}

// Community owns its members, families, settings and contribution templates
type Community struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Role is a user's permission level inside one community
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePatriarch Role = "patriarch"
	RoleMember    Role = "member"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePatriarch, RoleMember:
		return true
	}
	return false
}

// CommunityUser links a user account to a community, optionally to the
// member record that represents them.
type CommunityUser struct {
	CommunityID string    `json:"communityId"`
	UserID      string    `json:"userId"`
	Role        Role      `json:"role"`
	MemberID    string    `json:"memberId,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// CommunityWithRole is a community as seen by one of its users
type CommunityWithRole struct {
	Community
	Role     Role   `json:"role"`
	MemberID string `json:"memberId,omitempty"`
}
