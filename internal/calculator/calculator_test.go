package calculator

import (
	"math"
	"testing"
	"time"

	"mmanyinorie/internal/models"
)

func intPtr(v int) *int { return &v }

func TestTier(t *testing.T) {
	settings := models.Settings{Tier1Age: 18, Tier2Age: 25}

	tests := []struct {
		age  int
		want string
	}{
		{age: 0, want: "Under 18"},
		{age: 17, want: "Under 18"},
		{age: 18, want: "Group 1 (18-24)"},
		{age: 24, want: "Group 1 (18-24)"},
		{age: 25, want: "Group 2 (25+)"},
		{age: 90, want: "Group 2 (25+)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Tier(tt.age, settings); got != tt.want {
				t.Errorf("Tier(%d) = %q, want %q", tt.age, got, tt.want)
			}
		})
	}
}

func TestTierAlwaysOneOfLabels(t *testing.T) {
	settings := models.Settings{Tier1Age: 16, Tier2Age: 30}
	labels := TierLabels(settings)
	if len(labels) != 3 {
		t.Fatalf("TierLabels() returned %d labels", len(labels))
	}

	for age := -5; age < 120; age++ {
		got := Tier(age, settings)
		found := false
		for _, l := range labels {
			if l == got {
				found = true
			}
		}
		if !found {
			t.Fatalf("Tier(%d) = %q is not one of %v", age, got, labels)
		}
	}
}

func TestTierLabelsFollowSettings(t *testing.T) {
	got := TierLabels(models.Settings{Tier1Age: 21, Tier2Age: 40})
	want := []string{"Under 18", "Group 1 (21-39)", "Group 2 (40+)"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestYouthTierLabelIsFixed(t *testing.T) {
	tests := []struct {
		name     string
		settings models.Settings
		age      int
		want     string
	}{
		{name: "lower boundary", settings: models.Settings{Tier1Age: 16, Tier2Age: 30}, age: 10, want: "Under 18"},
		{name: "raised boundary", settings: models.Settings{Tier1Age: 21, Tier2Age: 40}, age: 20, want: "Under 18"},
		{name: "group 1 still follows boundaries", settings: models.Settings{Tier1Age: 16, Tier2Age: 30}, age: 16, want: "Group 1 (16-29)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tier(tt.age, tt.settings); got != tt.want {
				t.Errorf("Tier(%d) = %q, want %q", tt.age, got, tt.want)
			}
		})
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	if got := Age(2000, now); got != 26 {
		t.Errorf("Age(2000) = %d, want 26", got)
	}
}

func TestFullName(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{name: "all parts", parts: []string{"Ada", "Nkem", "Obi"}, want: "Ada Nkem Obi"},
		{name: "missing middle", parts: []string{"Ada", "", "Obi"}, want: "Ada Obi"},
		{name: "whitespace trimmed", parts: []string{"  Ada ", "   ", " Obi"}, want: "Ada Obi"},
		{name: "nothing", parts: []string{"", ""}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FullName(tt.parts...); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestElapsedMonths(t *testing.T) {
	now := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		joined time.Time
		want   int
	}{
		{name: "joined this month", joined: time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC), want: 1},
		{name: "three months ago same year", joined: time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC), want: 4},
		{name: "previous year", joined: time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC), want: 6},
		{name: "two years back", joined: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), want: 28},
		{name: "future join", joined: time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), want: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElapsedMonths(tt.joined, now); got != tt.want {
				t.Errorf("ElapsedMonths() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestContribution(t *testing.T) {
	now := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)
	adult := "Group 2 (25+)"

	building := models.CustomContribution{ID: "b", Amount: 100, Frequency: models.FrequencyOneTime, Tiers: []string{adult}}
	dues := models.CustomContribution{ID: "d", Amount: 10, Frequency: models.FrequencyMonthly, Tiers: []string{adult}}
	youth := models.CustomContribution{ID: "y", Amount: 5, Frequency: models.FrequencyMonthly, Tiers: []string{"Under 18"}}

	tests := []struct {
		name      string
		tier      string
		joined    time.Time
		templates []models.CustomContribution
		want      float64
	}{
		{name: "no templates", tier: adult, joined: now, want: 0},
		{name: "one-time", tier: adult, joined: now, templates: []models.CustomContribution{building}, want: 100},
		{name: "monthly joined this month", tier: adult, joined: now, templates: []models.CustomContribution{dues}, want: 10},
		{
			name:      "monthly joined three months ago",
			tier:      adult,
			joined:    time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC),
			templates: []models.CustomContribution{dues},
			want:      40,
		},
		{
			name:      "mixed ignores other tiers",
			tier:      adult,
			joined:    now,
			templates: []models.CustomContribution{building, dues, youth},
			want:      110,
		},
		{
			name:      "future join owes nothing monthly",
			tier:      adult,
			joined:    time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
			templates: []models.CustomContribution{dues},
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Contribution(tt.tier, tt.joined, tt.templates, now)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Contribution() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDerive(t *testing.T) {
	now := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)
	settings := models.DefaultSettings()
	templates := []models.CustomContribution{
		{ID: "g1", Amount: 20, Frequency: models.FrequencyOneTime, Tiers: []string{"Group 1 (18-24)"}},
	}

	d := Derive(2006, now, settings, templates, now)
	if d.Age != 20 || d.Tier != "Group 1 (18-24)" || d.Contribution != 20 {
		t.Errorf("Derive() = %+v", d)
	}
}

func TestOneTimeBalance(t *testing.T) {
	c := models.CustomContribution{ID: "levy", Amount: 50, Frequency: models.FrequencyOneTime}

	if got := BalanceForContribution(nil, c, nil); got != 50 {
		t.Fatalf("balance with no payments = %v, want 50", got)
	}

	payments := []models.Payment{{ID: "p1", ContributionID: "levy", Amount: 50, Date: "2026-04-01"}}
	if got := BalanceForContribution(payments, c, nil); got != 0 {
		t.Errorf("balance after full payment = %v, want 0", got)
	}
}

func TestPaidForContribution(t *testing.T) {
	payments := []models.Payment{
		{ID: "1", ContributionID: "dues", Amount: 10, Date: "2026-01-05"},
		{ID: "2", ContributionID: "dues", Amount: 10, Date: "2026-03-05", Month: intPtr(1)},
		{ID: "3", ContributionID: "dues", Amount: 7, Date: "2026-03-09"},
		{ID: "4", ContributionID: "levy", Amount: 99, Date: "2026-03-09"},
		{ID: "5", ContributionID: "dues", Amount: 3, Date: "not-a-date"},
	}

	tests := []struct {
		name  string
		id    string
		month *int
		want  float64
	}{
		{name: "all months", id: "dues", want: 30},
		{name: "january by date", id: "dues", month: intPtr(0), want: 10},
		{name: "february by explicit month", id: "dues", month: intPtr(1), want: 10},
		{name: "march by date only", id: "dues", month: intPtr(2), want: 7},
		{name: "other contribution", id: "levy", want: 99},
		{name: "unknown contribution", id: "nope", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PaidForContribution(payments, tt.id, tt.month); got != tt.want {
				t.Errorf("PaidForContribution() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyBalanceIsPerMonth(t *testing.T) {
	c := models.CustomContribution{ID: "dues", Amount: 10, Frequency: models.FrequencyMonthly}
	payments := []models.Payment{{ContributionID: "dues", Amount: 4, Date: "2026-02-11"}}

	if got := BalanceForContribution(payments, c, intPtr(1)); got != 6 {
		t.Errorf("february balance = %v, want 6", got)
	}
	if got := BalanceForContribution(payments, c, intPtr(2)); got != 10 {
		t.Errorf("march balance = %v, want 10", got)
	}
}

func TestTotals(t *testing.T) {
	payments := []models.Payment{{Amount: 12.5}, {Amount: 7.5}}
	if got := TotalPaid(payments); got != 20 {
		t.Errorf("TotalPaid() = %v, want 20", got)
	}
	if got := TotalBalance(100, payments); got != 80 {
		t.Errorf("TotalBalance() = %v, want 80", got)
	}
}

func TestMonthlyBreakdown(t *testing.T) {
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	member := models.Member{
		JoinedAt: time.Date(2025, time.December, 3, 0, 0, 0, 0, time.UTC),
		Payments: []models.Payment{
			{ContributionID: "dues", Amount: 10, Date: "2025-12-20"},
			{ContributionID: "dues", Amount: 5, Date: "2026-02-01"},
		},
	}
	c := models.CustomContribution{ID: "dues", Amount: 10, Frequency: models.FrequencyMonthly}

	got := MonthlyBreakdown(member, c, now)
	want := []MonthStatus{
		{Year: 2025, Month: 11, Paid: 10, Balance: 0},
		{Year: 2026, Month: 0, Paid: 0, Balance: 10},
		{Year: 2026, Month: 1, Paid: 5, Balance: 5},
	}
	if len(got) != len(want) {
		t.Fatalf("MonthlyBreakdown() returned %d months, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("month %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMonthlyBreakdownAcrossYears(t *testing.T) {
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	jan := 0
	member := models.Member{
		Tier:     "Group 2 (25+)",
		JoinedAt: time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC),
		Payments: []models.Payment{
			{ContributionID: "dues", Amount: 10, Date: "2025-01-20"},
			{ContributionID: "dues", Amount: 4, Date: "2026-02-03", Month: &jan},
		},
	}
	c := models.CustomContribution{ID: "dues", Amount: 10, Frequency: models.FrequencyMonthly, Tiers: []string{"Group 2 (25+)"}}

	months := MonthlyBreakdown(member, c, now)
	if len(months) != 14 {
		t.Fatalf("MonthlyBreakdown() returned %d months, want 14", len(months))
	}

	tests := []struct {
		name  string
		index int
		want  MonthStatus
	}{
		{name: "join month", index: 0, want: MonthStatus{Year: 2025, Month: 0, Paid: 10, Balance: 0}},
		{name: "same month next year", index: 12, want: MonthStatus{Year: 2026, Month: 0, Paid: 4, Balance: 6}},
		{name: "current month", index: 13, want: MonthStatus{Year: 2026, Month: 1, Paid: 0, Balance: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := months[tt.index]; got != tt.want {
				t.Errorf("month %d = %+v, want %+v", tt.index, got, tt.want)
			}
		})
	}

	paid, balance := 0.0, 0.0
	for _, m := range months {
		paid += m.Paid
		balance += m.Balance
	}
	line := Ledger(member, []models.CustomContribution{c}, now)[0]
	if paid != line.Paid || balance != line.Balance {
		t.Errorf("breakdown sums paid=%v balance=%v, ledger line paid=%v balance=%v", paid, balance, line.Paid, line.Balance)
	}
}

func TestLedger(t *testing.T) {
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	member := models.Member{
		Tier:     "Group 2 (25+)",
		JoinedAt: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		Payments: []models.Payment{{ContributionID: "dues", Amount: 10, Date: "2026-02-02"}},
	}
	templates := []models.CustomContribution{
		{ID: "dues", Name: "Dues", Amount: 10, Frequency: models.FrequencyMonthly, Tiers: []string{"Group 2 (25+)"}},
		{ID: "youth", Name: "Youth", Amount: 5, Frequency: models.FrequencyOneTime, Tiers: []string{"Under 18"}},
	}

	lines := Ledger(member, templates, now)
	if len(lines) != 1 {
		t.Fatalf("Ledger() returned %d lines, want 1", len(lines))
	}
	line := lines[0]
	if line.Expected != 20 || line.Paid != 10 || line.Balance != 10 {
		t.Errorf("ledger line = %+v", line)
	}
	if len(line.Months) != 2 {
		t.Errorf("expected 2 months of breakdown, got %d", len(line.Months))
	}
}
