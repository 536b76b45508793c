package calculator

import (
	"time"

	"mmanyinorie/internal/models"
)

// PaymentMonth returns the month a payment counts toward: the explicit
// month when set, otherwise the month of its date. ok is false when neither
// is available.
func PaymentMonth(p models.Payment) (month int, ok bool) {
	if p.Month != nil {
		return *p.Month, true
	}
	d, err := time.Parse(time.DateOnly, p.Date)
	if err != nil {
		return 0, false
	}
	return MonthIndex(d), true
}

// PaymentPeriod returns the year and month a payment counts toward. The year
// always comes from the payment date; the month is the explicit month when set.
// ok is false when the date does not parse.
func PaymentPeriod(p models.Payment) (year, month int, ok bool) {
	d, err := time.Parse(time.DateOnly, p.Date)
	if err != nil {
		return 0, 0, false
	}
	if p.Month != nil {
		return d.Year(), *p.Month, true
	}
	return d.Year(), MonthIndex(d), true
}

func paidInPeriod(payments []models.Payment, contributionID string, year, month int) float64 {
	total := 0.0
	for _, p := range payments {
		if p.ContributionID != contributionID {
			continue
		}
		if y, m, ok := PaymentPeriod(p); ok && y == year && m == month {
			total += p.Amount
		}
	}
	return total
}

// PaidForContribution sums payments toward contributionID.
// When month is non-nil only payments for that month are counted.
func PaidForContribution(payments []models.Payment, contributionID string, month *int) float64 {
	total := 0.0
	for _, p := range payments {
		if p.ContributionID != contributionID {
			continue
		}
		if month != nil {
			m, ok := PaymentMonth(p)
			if !ok || m != *month {
				continue
			}
		}
		total += p.Amount
	}
	return total
}

// BalanceForContribution is the template amount minus what was paid toward it.
// For monthly templates this is the balance of a single month, not of the
// prorated total.
func BalanceForContribution(payments []models.Payment, contribution models.CustomContribution, month *int) float64 {
	return contribution.Amount - PaidForContribution(payments, contribution.ID, month)
}

// TotalPaid sums every payment
func TotalPaid(payments []models.Payment) float64 {
	total := 0.0
	for _, p := range payments {
		total += p.Amount
	}
	return total
}

// TotalBalance is the stored contribution snapshot minus all payments
func TotalBalance(contribution float64, payments []models.Payment) float64 {
	return contribution - TotalPaid(payments)
}

// MonthStatus is the paid and outstanding amount of one month of a monthly template
type MonthStatus struct {
	Year    int     `json:"year"`
	Month   int     `json:"month"`
	Paid    float64 `json:"paid"`
	Balance float64 `json:"balance"`
}

// MonthlyBreakdown lists every month from the member's join month through
// now with what was paid toward contribution in that month.
// Payments are matched on both year and month, so summing the rows agrees
// with the ledger totals.
func MonthlyBreakdown(member models.Member, contribution models.CustomContribution, now time.Time) []MonthStatus {
	n := max(0, ElapsedMonths(member.JoinedAt, now))
	out := make([]MonthStatus, 0, n)

	start := time.Date(member.JoinedAt.Year(), member.JoinedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		t := start.AddDate(0, i, 0)
		m := MonthIndex(t)
		paid := paidInPeriod(member.Payments, contribution.ID, t.Year(), m)
		out = append(out, MonthStatus{
			Year:    t.Year(),
			Month:   m,
			Paid:    paid,
			Balance: contribution.Amount - paid,
		})
	}
	return out
}

// LedgerLine summarizes a member's standing against one template
type LedgerLine struct {
	ContributionID string        `json:"contributionId"`
	Name           string        `json:"name"`
	Frequency      string        `json:"frequency"`
	Amount         float64       `json:"amount"`
	Expected       float64       `json:"expected"`
	Paid           float64       `json:"paid"`
	Balance        float64       `json:"balance"`
	Months         []MonthStatus `json:"months,omitempty"`
}

// Ledger builds a line for every template that applies to the member's tier
func Ledger(member models.Member, templates []models.CustomContribution, now time.Time) []LedgerLine {
	lines := make([]LedgerLine, 0, len(templates))
	for _, c := range templates {
		if !c.AppliesTo(member.Tier) {
			continue
		}
		line := LedgerLine{
			ContributionID: c.ID,
			Name:           c.Name,
			Frequency:      string(c.Frequency),
			Amount:         c.Amount,
			Paid:           PaidForContribution(member.Payments, c.ID, nil),
		}
		if c.Frequency == models.FrequencyMonthly {
			line.Expected = c.Amount * float64(max(0, ElapsedMonths(member.JoinedAt, now)))
			line.Months = MonthlyBreakdown(member, c, now)
		} else {
			line.Expected = c.Amount
		}
		line.Balance = line.Expected - line.Paid
		lines = append(lines, line)
	}
	return lines
}
