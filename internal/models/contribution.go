package models

import (
	"slices"
	"time"
)

// Frequency says how often a contribution template is owed
type Frequency string

const (
	FrequencyOneTime Frequency = "one-time"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	return f == FrequencyOneTime || f == FrequencyMonthly
}

// CustomContribution is a reusable due template applied to members by tier
type CustomContribution struct {
	ID          string    `json:"id"`
	CommunityID string    `json:"communityId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"`
	Frequency   Frequency `json:"frequency"`
	Tiers       []string  `json:"tiers"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AppliesTo reports whether the template lists the tier label
func (c CustomContribution) AppliesTo(tier string) bool {
	return slices.Contains(c.Tiers, tier)
}
