package service

import (
	"context"
	"sort"
	"time"

	"mmanyinorie/internal/calculator"
	"mmanyinorie/internal/database"
	"mmanyinorie/internal/models"
	"mmanyinorie/internal/repository"
)

// GroupTotal aggregates expected, paid and outstanding amounts for a group of members
type GroupTotal struct {
	Name     string  `json:"name"`
	Members  int     `json:"members"`
	Expected float64 `json:"expected"`
	Paid     float64 `json:"paid"`
	Balance  float64 `json:"balance"`
}

func (g *GroupTotal) add(m models.Member) {
	paid := calculator.TotalPaid(m.Payments)
	g.Members++
	g.Expected += m.Contribution
	g.Paid += paid
	g.Balance += m.Contribution - paid
}

// ContributionTotal aggregates one template across the members it applies to
type ContributionTotal struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Frequency models.Frequency `json:"frequency"`
	Amount    float64          `json:"amount"`
	Members   int              `json:"members"`
	Expected  float64          `json:"expected"`
	Paid      float64          `json:"paid"`
	Balance   float64          `json:"balance"`
}

// Summary is the financial overview of a community
type Summary struct {
	CommunityID   string              `json:"communityId"`
	Currency      string              `json:"currency"`
	GeneratedAt   time.Time           `json:"generatedAt"`
	Total         GroupTotal          `json:"total"`
	Families      []GroupTotal        `json:"families"`
	Tiers         []GroupTotal        `json:"tiers"`
	Contributions []ContributionTotal `json:"contributions"`
}

// MemberLedger is one member's standing against every template of their tier
type MemberLedger struct {
	Member       models.Member           `json:"member"`
	Currency     string                  `json:"currency"`
	Lines        []calculator.LedgerLine `json:"lines"`
	TotalPaid    float64                 `json:"totalPaid"`
	TotalBalance float64                 `json:"totalBalance"`
}

// ReportService derives read-only reports from stored members and payments
type ReportService struct {
	communities   *repository.CommunityRepository
	members       *repository.MemberRepository
	contributions *repository.ContributionRepository
	now           func() time.Time
}

// NewReportService creates a report service
func NewReportService(db *database.DB) *ReportService {
	return &ReportService{
		communities:   repository.NewCommunityRepository(db),
		members:       repository.NewMemberRepository(db),
		contributions: repository.NewContributionRepository(db),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Summary totals the stored contribution snapshots and payments of a
// community, broken down by family, tier and template. Members without a
// family are grouped under an empty name.
func (s *ReportService) Summary(ctx context.Context, communityID string) (*Summary, error) {
	settings, err := s.communities.GetSettings(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, ErrNotFound
	}
	members, err := s.members.List(ctx, communityID)
	if err != nil {
		return nil, err
	}
	templates, err := s.contributions.List(ctx, communityID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &Summary{
		CommunityID: communityID,
		Currency:    settings.Currency,
		GeneratedAt: now,
		Total:       GroupTotal{Name: "all"},
	}

	families := map[string]*GroupTotal{}
	tiers := map[string]*GroupTotal{}
	for _, label := range calculator.TierLabels(*settings) {
		tiers[label] = &GroupTotal{Name: label}
	}

	for _, m := range members {
		summary.Total.add(m)

		f, ok := families[m.Family]
		if !ok {
			f = &GroupTotal{Name: m.Family}
			families[m.Family] = f
		}
		f.add(m)

		t, ok := tiers[m.Tier]
		if !ok {
			// stale label from before a settings change
			t = &GroupTotal{Name: m.Tier}
			tiers[m.Tier] = t
		}
		t.add(m)
	}

	summary.Families = sortedGroups(families)
	summary.Tiers = orderedTiers(tiers, calculator.TierLabels(*settings))

	for _, c := range templates {
		total := ContributionTotal{ID: c.ID, Name: c.Name, Frequency: c.Frequency, Amount: c.Amount}
		for _, m := range members {
			paid := calculator.PaidForContribution(m.Payments, c.ID, nil)
			total.Paid += paid
			if !c.AppliesTo(m.Tier) {
				continue
			}
			total.Members++
			expected := c.Amount
			if c.Frequency == models.FrequencyMonthly {
				expected = c.Amount * float64(max(0, calculator.ElapsedMonths(m.JoinedAt, now)))
			}
			total.Expected += expected
		}
		total.Balance = total.Expected - total.Paid
		summary.Contributions = append(summary.Contributions, total)
	}
	if summary.Contributions == nil {
		summary.Contributions = []ContributionTotal{}
	}

	return summary, nil
}

func sortedGroups(groups map[string]*GroupTotal) []GroupTotal {
	out := make([]GroupTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func orderedTiers(groups map[string]*GroupTotal, labels []string) []GroupTotal {
	out := make([]GroupTotal, 0, len(groups))
	seen := map[string]bool{}
	for _, l := range labels {
		out = append(out, *groups[l])
		seen[l] = true
	}
	var rest []GroupTotal
	for name, g := range groups {
		if !seen[name] {
			rest = append(rest, *g)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Name < rest[j].Name })
	return append(out, rest...)
}

// Ledger returns the per-template standing of one member
func (s *ReportService) Ledger(ctx context.Context, communityID, memberID string) (*MemberLedger, error) {
	settings, err := s.communities.GetSettings(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, ErrNotFound
	}
	m, err := s.members.GetByID(ctx, communityID, memberID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}
	templates, err := s.contributions.List(ctx, communityID)
	if err != nil {
		return nil, err
	}

	return &MemberLedger{
		Member:       *m,
		Currency:     settings.Currency,
		Lines:        calculator.Ledger(*m, templates, s.now()),
		TotalPaid:    calculator.TotalPaid(m.Payments),
		TotalBalance: calculator.TotalBalance(m.Contribution, m.Payments),
	}, nil
}
