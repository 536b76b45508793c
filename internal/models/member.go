package models

import "time"

// Member is one person on a community roster.
// Age, Tier and Contribution are derived when the member is written and are
// only refreshed by an update or a tier recalculation sweep.
type Member struct {
	ID           string    `json:"id"`
	CommunityID  string    `json:"communityId"`
	FirstName    string    `json:"firstName"`
	MiddleName   string    `json:"middleName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	FullName     string    `json:"fullName"`
	YearOfBirth  int       `json:"yearOfBirth"`
	FamilyID     string    `json:"familyId,omitempty"`
	Family       string    `json:"family,omitempty"` // read through FamilyID
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	IsPatriarch  bool      `json:"isPatriarch"`
	Age          int       `json:"age"`
	Tier         string    `json:"tier"`
	Contribution float64   `json:"contribution"`
	Payments     []Payment `json:"payments"`
	JoinedAt     time.Time `json:"joinedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Payment is an amount paid by a member toward one contribution template
type Payment struct {
	ID             string    `json:"id"`
	MemberID       string    `json:"memberId"`
	ContributionID string    `json:"contributionId"`
	Amount         float64   `json:"amount"`
	Date           string    `json:"date"`            // YYYY-MM-DD
	Month          *int      `json:"month,omitempty"` // 0-based, monthly contributions only
	CreatedAt      time.Time `json:"createdAt"`
}
