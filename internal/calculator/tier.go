package calculator

import (
	"fmt"
	"strings"
	"time"

	"mmanyinorie/internal/models"
)

// Age returns the age a person born in yearOfBirth reaches this calendar year
func Age(yearOfBirth int, now time.Time) int {
	return now.Year() - yearOfBirth
}

// YouthTier is the label of the youngest tier. It does not follow Tier1Age.
const YouthTier = "Under 18"

// Tier maps an age to one of the three tier labels defined by settings.
// The two group labels are regenerated from the boundaries, so changing the
// settings changes their text.
func Tier(age int, settings models.Settings) string {
	switch {
	case age < settings.Tier1Age:
		return YouthTier
	case age < settings.Tier2Age:
		return fmt.Sprintf("Group 1 (%d-%d)", settings.Tier1Age, settings.Tier2Age-1)
	default:
		return fmt.Sprintf("Group 2 (%d+)", settings.Tier2Age)
	}
}

// TierLabels returns the three tier labels for settings, youngest first
func TierLabels(settings models.Settings) []string {
	return []string{
		Tier(settings.Tier1Age-1, settings),
		Tier(settings.Tier1Age, settings),
		Tier(settings.Tier2Age, settings),
	}
}

// FullName joins the non-empty name parts with single spaces
func FullName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
