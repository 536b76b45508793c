package calculator

import (
	"time"

	"mmanyinorie/internal/models"
)

// ElapsedMonths counts calendar months from the join month through the
// current month inclusive, using 0-based month indexes. A join date in the
// future yields zero or less; callers clamp with max(0, n).
func ElapsedMonths(joinedAt, now time.Time) int {
	joinYear, joinMonth := joinedAt.Year(), MonthIndex(joinedAt)
	curYear, curMonth := now.Year(), MonthIndex(now)

	if joinYear == curYear {
		return curMonth - joinMonth + 1
	}
	return (curYear-joinYear-1)*12 + (12 - joinMonth) + (curMonth + 1)
}

// MonthIndex returns the 0-based month of t (January is 0)
func MonthIndex(t time.Time) int {
	return int(t.Month()) - 1
}

// Contribution sums the templates that apply to tier.
// One-time templates owe their amount once, monthly templates owe the amount
// for every elapsed month since joinedAt.
func Contribution(tier string, joinedAt time.Time, templates []models.CustomContribution, now time.Time) float64 {
	total := 0.0
	for _, c := range templates {
		if !c.AppliesTo(tier) {
			continue
		}
		switch c.Frequency {
		case models.FrequencyMonthly:
			total += c.Amount * float64(max(0, ElapsedMonths(joinedAt, now)))
		default:
			total += c.Amount
		}
	}
	return total
}

// Derived holds the values computed for a member at write time
type Derived struct {
	Age          int
	Tier         string
	Contribution float64
}

// Derive computes age, tier and contribution for a member
func Derive(yearOfBirth int, joinedAt time.Time, settings models.Settings, templates []models.CustomContribution, now time.Time) Derived {
	age := Age(yearOfBirth, now)
	tier := Tier(age, settings)
	return Derived{
		Age:          age,
		Tier:         tier,
		Contribution: Contribution(tier, joinedAt, templates, now),
	}
}
