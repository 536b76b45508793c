package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mmanyinorie/internal/calculator"
	"mmanyinorie/internal/database"
	"mmanyinorie/internal/live"
	"mmanyinorie/internal/metrics"
	"mmanyinorie/internal/models"
	"mmanyinorie/internal/repository"
	"mmanyinorie/internal/validation"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrFamilyExists = errors.New("a family with that name already exists")
	ErrFamilyInUse  = errors.New("family still has members")
)

// MemberNotifier sends the new-member notification
type MemberNotifier interface {
	SendNewMemberNotification(ctx context.Context, toEmail, memberName, communityName, tier string) error
}

// MemberInput holds the editable fields of a member
type MemberInput struct {
	FirstName   string `json:"firstName"`
	MiddleName  string `json:"middleName"`
	LastName    string `json:"lastName"`
	YearOfBirth int    `json:"yearOfBirth"`
	Family      string `json:"family"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	IsPatriarch bool   `json:"isPatriarch"`
}

// ContributionInput holds the fields of a contribution template
type ContributionInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Amount      float64          `json:"amount"`
	Frequency   models.Frequency `json:"frequency"`
	Tiers       []string         `json:"tiers"`
}

// PaymentInput holds the fields of a payment
type PaymentInput struct {
	ContributionID string  `json:"contributionId"`
	Amount         float64 `json:"amount"`
	Date           string  `json:"date"`
	Month          *int    `json:"month,omitempty"`
}

// CommunityService owns every write to a community's members, families,
// templates, settings and payments, and keeps derived member fields in step.
type CommunityService struct {
	db            *database.DB
	communities   *repository.CommunityRepository
	members       *repository.MemberRepository
	families      *repository.FamilyRepository
	contributions *repository.ContributionRepository
	hub           *live.Hub
	metrics       *metrics.Metrics
	notifier      MemberNotifier
	now           func() time.Time
}

// NewCommunityService creates a community service. hub, m and notifier may be nil.
func NewCommunityService(db *database.DB, hub *live.Hub, m *metrics.Metrics, notifier MemberNotifier) *CommunityService {
	return &CommunityService{
		db:            db,
		communities:   repository.NewCommunityRepository(db),
		members:       repository.NewMemberRepository(db),
		families:      repository.NewFamilyRepository(db),
		contributions: repository.NewContributionRepository(db),
		hub:           hub,
		metrics:       m,
		notifier:      notifier,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *CommunityService) publish(communityID string, collection live.Collection, action, id string) {
	s.metrics.Mutation(string(collection), action)
	if s.hub != nil {
		s.hub.Publish(live.Event{CommunityID: communityID, Collection: collection, Action: action, ID: id})
	}
}

// CreateCommunity creates a community with default settings and makes the
// owner its admin.
func (s *CommunityService) CreateCommunity(ctx context.Context, ownerID, name string) (*models.Community, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateRequired("name", name); err != nil {
		return nil, err
	}

	var community *models.Community
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		community, err = repository.NewCommunityRepository(tx).Create(ctx, name, ownerID, models.DefaultSettings())
		if err != nil {
			return err
		}
		return repository.NewCommunityRepository(tx).AddUser(ctx, models.CommunityUser{
			CommunityID: community.ID,
			UserID:      ownerID,
			Role:        models.RoleAdmin,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create community: %w", err)
	}

	slog.Info("Community created", "community_id", community.ID, "owner_id", ownerID)
	return community, nil
}

// ListCommunities returns the communities a user belongs to
func (s *CommunityService) ListCommunities(ctx context.Context, userID string) ([]models.CommunityWithRole, error) {
	list, err := s.communities.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.CommunityWithRole{}
	}
	return list, nil
}

// GetCommunity returns a community or ErrNotFound
func (s *CommunityService) GetCommunity(ctx context.Context, communityID string) (*models.Community, error) {
	c, err := s.communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// Membership returns the caller's link to the community or ErrForbidden
func (s *CommunityService) Membership(ctx context.Context, communityID, userID string) (*models.CommunityUser, error) {
	cu, err := s.communities.GetUser(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if cu == nil {
		return nil, ErrForbidden
	}
	return cu, nil
}

// RequireAdmin returns ErrForbidden unless cu is an admin
func RequireAdmin(cu *models.CommunityUser) error {
	if cu == nil || cu.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanManageFamily reports whether cu may add or edit members of the named
// family. Admins manage every family, patriarchs only their own.
func (s *CommunityService) CanManageFamily(ctx context.Context, cu *models.CommunityUser, family string) error {
	if cu == nil {
		return ErrForbidden
	}
	switch cu.Role {
	case models.RoleAdmin:
		return nil
	case models.RolePatriarch:
		own, err := s.patriarchFamily(ctx, cu)
		if err != nil {
			return err
		}
		if own == "" || own != family {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

func (s *CommunityService) patriarchFamily(ctx context.Context, cu *models.CommunityUser) (string, error) {
	if cu.MemberID == "" {
		return "", nil
	}
	m, err := s.members.GetByID(ctx, cu.CommunityID, cu.MemberID)
	if err != nil || m == nil {
		return "", err
	}
	return m.Family, nil
}

// GetSettings returns a community's settings
func (s *CommunityService) GetSettings(ctx context.Context, communityID string) (*models.Settings, error) {
	settings, err := s.communities.GetSettings(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, ErrNotFound
	}
	return settings, nil
}

// UpdateSettings replaces the tier boundaries and currency, then recalculates
// every member so tiers follow the new boundaries. It returns the number of
// members rewritten.
func (s *CommunityService) UpdateSettings(ctx context.Context, communityID string, settings models.Settings) (int, error) {
	if err := validation.ValidateTierAges(settings.Tier1Age, settings.Tier2Age); err != nil {
		return 0, err
	}
	settings.Currency = strings.TrimSpace(settings.Currency)
	if err := validation.ValidateRequired("currency", settings.Currency); err != nil {
		return 0, err
	}
	if _, err := s.GetSettings(ctx, communityID); err != nil {
		return 0, err
	}

	if err := s.communities.UpdateSettings(ctx, communityID, settings); err != nil {
		return 0, err
	}
	s.publish(communityID, live.Settings, "updated", communityID)

	return s.RecalculateTiers(ctx, communityID)
}

func (s *CommunityService) derivationInputs(ctx context.Context, communityID string) (models.Settings, []models.CustomContribution, error) {
	settings, err := s.GetSettings(ctx, communityID)
	if err != nil {
		return models.Settings{}, nil, err
	}
	templates, err := s.contributions.List(ctx, communityID)
	if err != nil {
		return models.Settings{}, nil, err
	}
	return *settings, templates, nil
}

func validateMember(in *MemberInput, now time.Time) error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.MiddleName = strings.TrimSpace(in.MiddleName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Family = strings.TrimSpace(in.Family)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := validation.ValidateRequired("firstName", in.FirstName); err != nil {
		return err
	}
	if err := validation.ValidateYearOfBirth(in.YearOfBirth, now); err != nil {
		return err
	}
	return validation.ValidateOptionalEmail(in.Email)
}

// resolveFamily returns the id of the named family, creating it when it
// does not exist yet. An empty name means no family.
func resolveFamily(ctx context.Context, families *repository.FamilyRepository, communityID, name string) (id string, created bool, err error) {
	if name == "" {
		return "", false, nil
	}
	f, err := families.GetByName(ctx, communityID, name)
	if err != nil {
		return "", false, err
	}
	if f != nil {
		return f.ID, false, nil
	}
	f, err = families.Create(ctx, communityID, name)
	if err != nil {
		return "", false, err
	}
	return f.ID, true, nil
}

func applyInput(m *models.Member, in MemberInput, familyID string) {
	m.FirstName = in.FirstName
	m.MiddleName = in.MiddleName
	m.LastName = in.LastName
	m.FullName = calculator.FullName(in.FirstName, in.MiddleName, in.LastName)
	m.YearOfBirth = in.YearOfBirth
	m.FamilyID = familyID
	m.Family = in.Family
	m.Email = in.Email
	m.Phone = in.Phone
	m.IsPatriarch = in.IsPatriarch
}

// AddMember derives age, tier, full name and contribution and stores a new
// member joined now. A family name that does not exist yet is created first.
func (s *CommunityService) AddMember(ctx context.Context, communityID string, in MemberInput) (*models.Member, error) {
	now := s.now()
	if err := validateMember(&in, now); err != nil {
		return nil, err
	}
	settings, templates, err := s.derivationInputs(ctx, communityID)
	if err != nil {
		return nil, err
	}

	m := &models.Member{CommunityID: communityID, JoinedAt: now, Payments: []models.Payment{}}
	var familyCreated bool
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		familyID, created, err := resolveFamily(ctx, repository.NewFamilyRepository(tx), communityID, in.Family)
		if err != nil {
			return err
		}
		familyCreated = created

		applyInput(m, in, familyID)
		d := calculator.Derive(m.YearOfBirth, m.JoinedAt, settings, templates, now)
		m.Age, m.Tier, m.Contribution = d.Age, d.Tier, d.Contribution

		return repository.NewMemberRepository(tx).Create(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if familyCreated {
		s.publish(communityID, live.Families, "created", m.FamilyID)
	}
	s.publish(communityID, live.Members, "created", m.ID)
	slog.Info("Member added", "community_id", communityID, "member_id", m.ID, "tier", m.Tier)

	s.notifyNewMember(ctx, communityID, m)
	return m, nil
}

func (s *CommunityService) notifyNewMember(ctx context.Context, communityID string, m *models.Member) {
	if s.notifier == nil || m.Email == "" {
		return
	}
	communityName := ""
	if c, err := s.communities.GetByID(ctx, communityID); err == nil && c != nil {
		communityName = c.Name
	}
	if err := s.notifier.SendNewMemberNotification(ctx, m.Email, m.FullName, communityName, m.Tier); err != nil {
		slog.Warn("Failed to send new member notification", "member_id", m.ID, "error", err)
	}
}

// UpdateMember replaces a member's editable fields and recomputes age, tier,
// full name and contribution from them. The join date and payments are kept.
func (s *CommunityService) UpdateMember(ctx context.Context, communityID, memberID string, in MemberInput) (*models.Member, error) {
	now := s.now()
	if err := validateMember(&in, now); err != nil {
		return nil, err
	}
	settings, templates, err := s.derivationInputs(ctx, communityID)
	if err != nil {
		return nil, err
	}

	var m *models.Member
	var familyCreated bool
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		members := repository.NewMemberRepository(tx)
		var err error
		m, err = members.GetByID(ctx, communityID, memberID)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrNotFound
		}

		familyID, created, err := resolveFamily(ctx, repository.NewFamilyRepository(tx), communityID, in.Family)
		if err != nil {
			return err
		}
		familyCreated = created

		applyInput(m, in, familyID)
		d := calculator.Derive(m.YearOfBirth, m.JoinedAt, settings, templates, now)
		m.Age, m.Tier, m.Contribution = d.Age, d.Tier, d.Contribution

		return members.Update(ctx, m)
	})
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	if familyCreated {
		s.publish(communityID, live.Families, "created", m.FamilyID)
	}
	s.publish(communityID, live.Members, "updated", m.ID)
	return m, nil
}

// DeleteMember removes a member and its payments
func (s *CommunityService) DeleteMember(ctx context.Context, communityID, memberID string) error {
	if _, err := s.GetMember(ctx, communityID, memberID); err != nil {
		return err
	}
	if err := s.members.Delete(ctx, communityID, memberID); err != nil {
		return err
	}
	s.publish(communityID, live.Members, "deleted", memberID)
	return nil
}

// GetMember returns a member with payments or ErrNotFound
func (s *CommunityService) GetMember(ctx context.Context, communityID, memberID string) (*models.Member, error) {
	m, err := s.members.GetByID(ctx, communityID, memberID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

// ListMembers returns every member of a community with payments
func (s *CommunityService) ListMembers(ctx context.Context, communityID string) ([]models.Member, error) {
	return s.members.List(ctx, communityID)
}

// ListFamilies returns every family of a community
func (s *CommunityService) ListFamilies(ctx context.Context, communityID string) ([]models.Family, error) {
	return s.families.List(ctx, communityID)
}

// AddFamily creates a family. Names are unique and case-sensitive.
func (s *CommunityService) AddFamily(ctx context.Context, communityID, name string) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateRequired("name", name); err != nil {
		return nil, err
	}
	if _, err := s.GetSettings(ctx, communityID); err != nil {
		return nil, err
	}

	existing, err := s.families.GetByName(ctx, communityID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrFamilyExists
	}

	f, err := s.families.Create(ctx, communityID, name)
	if err != nil {
		return nil, err
	}
	s.publish(communityID, live.Families, "created", f.ID)
	return f, nil
}

// UpdateFamily renames a family. Members reference families by id, so every
// member shows the new name once the single row is updated.
func (s *CommunityService) UpdateFamily(ctx context.Context, communityID, familyID, newName string) (*models.Family, error) {
	newName = strings.TrimSpace(newName)
	if err := validation.ValidateRequired("name", newName); err != nil {
		return nil, err
	}

	var family *models.Family
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		families := repository.NewFamilyRepository(tx)
		var err error
		family, err = families.GetByID(ctx, communityID, familyID)
		if err != nil {
			return err
		}
		if family == nil {
			return ErrNotFound
		}
		if family.Name == newName {
			return nil
		}

		clash, err := families.GetByName(ctx, communityID, newName)
		if err != nil {
			return err
		}
		if clash != nil {
			return ErrFamilyExists
		}
		if err := families.Rename(ctx, communityID, familyID, newName); err != nil {
			return err
		}
		family.Name = newName
		return nil
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrFamilyExists) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rename family: %w", err)
	}

	s.publish(communityID, live.Families, "updated", familyID)
	s.publish(communityID, live.Members, "updated", "")
	return family, nil
}

// DeleteFamily removes a family that no member references
func (s *CommunityService) DeleteFamily(ctx context.Context, communityID, familyID string) error {
	family, err := s.families.GetByID(ctx, communityID, familyID)
	if err != nil {
		return err
	}
	if family == nil {
		return ErrNotFound
	}

	n, err := s.families.CountMembers(ctx, familyID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrFamilyInUse
	}

	if err := s.families.Delete(ctx, communityID, familyID); err != nil {
		return err
	}
	s.publish(communityID, live.Families, "deleted", familyID)
	return nil
}

// RecalculateTiers recomputes age, tier and contribution of every member from
// the current settings and templates, writing only members whose values
// changed. It returns the number of members written.
func (s *CommunityService) RecalculateTiers(ctx context.Context, communityID string) (int, error) {
	settings, templates, err := s.derivationInputs(ctx, communityID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var members []models.Member
	written := 0
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := repository.NewMemberRepository(tx)
		members, err = repo.List(ctx, communityID)
		if err != nil {
			return err
		}
		for _, m := range members {
			d := calculator.Derive(m.YearOfBirth, m.JoinedAt, settings, templates, now)
			if d.Age == m.Age && d.Tier == m.Tier && d.Contribution == m.Contribution {
				continue
			}
			ok, err := repo.UpdateDerived(ctx, m.ID, m.YearOfBirth, d.Age, d.Tier, d.Contribution)
			if err != nil {
				return err
			}
			if ok {
				written++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to recalculate tiers: %w", err)
	}

	s.metrics.Recalculated(written)
	if written > 0 {
		s.publish(communityID, live.Members, "updated", "")
	}
	slog.Info("Recalculated tiers", "community_id", communityID, "members", len(members), "written", written)
	return written, nil
}

func validateContribution(in *ContributionInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.ValidateRequired("name", in.Name); err != nil {
		return err
	}
	if err := validation.ValidateAmount("amount", in.Amount); err != nil {
		return err
	}
	if !in.Frequency.Valid() {
		return validation.ValidationError{Field: "frequency", Message: "frequency must be one-time or monthly"}
	}
	if len(in.Tiers) == 0 {
		return validation.ValidationError{Field: "tiers", Message: "select at least one tier"}
	}
	return nil
}

// ListContributions returns the templates of a community
func (s *CommunityService) ListContributions(ctx context.Context, communityID string) ([]models.CustomContribution, error) {
	return s.contributions.List(ctx, communityID)
}

// AddCustomContribution stores a template and recalculates every member
func (s *CommunityService) AddCustomContribution(ctx context.Context, communityID string, in ContributionInput) (*models.CustomContribution, error) {
	if err := validateContribution(&in); err != nil {
		return nil, err
	}
	if _, err := s.GetSettings(ctx, communityID); err != nil {
		return nil, err
	}

	c := &models.CustomContribution{
		CommunityID: communityID,
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.Amount,
		Frequency:   in.Frequency,
		Tiers:       in.Tiers,
	}
	if err := s.contributions.Create(ctx, c); err != nil {
		return nil, err
	}
	s.publish(communityID, live.Contributions, "created", c.ID)

	if _, err := s.RecalculateTiers(ctx, communityID); err != nil {
		return c, err
	}
	return c, nil
}

// UpdateCustomContribution replaces a template and recalculates every member
func (s *CommunityService) UpdateCustomContribution(ctx context.Context, communityID, contributionID string, in ContributionInput) (*models.CustomContribution, error) {
	if err := validateContribution(&in); err != nil {
		return nil, err
	}

	c := &models.CustomContribution{
		ID:          contributionID,
		CommunityID: communityID,
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.Amount,
		Frequency:   in.Frequency,
		Tiers:       in.Tiers,
	}
	ok, err := s.contributions.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	s.publish(communityID, live.Contributions, "updated", c.ID)

	if _, err := s.RecalculateTiers(ctx, communityID); err != nil {
		return c, err
	}
	return s.contributions.GetByID(ctx, communityID, contributionID)
}

// DeleteCustomContribution removes a template and recalculates every member.
// Payments recorded toward it are kept.
func (s *CommunityService) DeleteCustomContribution(ctx context.Context, communityID, contributionID string) error {
	ok, err := s.contributions.Delete(ctx, communityID, contributionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.publish(communityID, live.Contributions, "deleted", contributionID)

	_, err = s.RecalculateTiers(ctx, communityID)
	return err
}

func (s *CommunityService) validatePayment(ctx context.Context, communityID string, in PaymentInput) error {
	if err := validation.ValidateRequired("contributionId", in.ContributionID); err != nil {
		return err
	}
	if err := validation.ValidateAmount("amount", in.Amount); err != nil {
		return err
	}
	if err := validation.ValidateISODate("date", in.Date); err != nil {
		return err
	}
	if err := validation.ValidateMonth(in.Month); err != nil {
		return err
	}

	c, err := s.contributions.GetByID(ctx, communityID, in.ContributionID)
	if err != nil {
		return err
	}
	if c == nil {
		return validation.ValidationError{Field: "contributionId", Message: "unknown contribution"}
	}
	if in.Month != nil && c.Frequency != models.FrequencyMonthly {
		return validation.ValidationError{Field: "month", Message: "month only applies to monthly contributions"}
	}
	return nil
}

// RecordPayment appends a payment with a new id to a member
func (s *CommunityService) RecordPayment(ctx context.Context, communityID, memberID string, in PaymentInput) (*models.Payment, error) {
	if _, err := s.GetMember(ctx, communityID, memberID); err != nil {
		return nil, err
	}
	if err := s.validatePayment(ctx, communityID, in); err != nil {
		return nil, err
	}

	p := &models.Payment{
		MemberID:       memberID,
		ContributionID: in.ContributionID,
		Amount:         in.Amount,
		Date:           in.Date,
		Month:          in.Month,
	}
	if err := s.members.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	s.publish(communityID, live.Members, "updated", memberID)
	return p, nil
}

// UpdatePayment replaces a payment of a member
func (s *CommunityService) UpdatePayment(ctx context.Context, communityID, memberID, paymentID string, in PaymentInput) (*models.Payment, error) {
	if _, err := s.GetMember(ctx, communityID, memberID); err != nil {
		return nil, err
	}
	if err := s.validatePayment(ctx, communityID, in); err != nil {
		return nil, err
	}

	p := &models.Payment{
		ID:             paymentID,
		MemberID:       memberID,
		ContributionID: in.ContributionID,
		Amount:         in.Amount,
		Date:           in.Date,
		Month:          in.Month,
	}
	ok, err := s.members.UpdatePayment(ctx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	s.publish(communityID, live.Members, "updated", memberID)
	return p, nil
}

// DeletePayment removes a payment of a member
func (s *CommunityService) DeletePayment(ctx context.Context, communityID, memberID, paymentID string) error {
	if _, err := s.GetMember(ctx, communityID, memberID); err != nil {
		return err
	}
	ok, err := s.members.DeletePayment(ctx, memberID, paymentID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.publish(communityID, live.Members, "updated", memberID)
	return nil
}
