package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mmanyinorie/internal/database"
	"mmanyinorie/internal/live"
	"mmanyinorie/internal/metrics"
	"mmanyinorie/internal/models"
	"mmanyinorie/internal/repository"
	"mmanyinorie/internal/validation"
)

var (
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationUsed       = errors.New("invitation has already been used")
	ErrInvitationExpired    = errors.New("invitation has expired")
	ErrInvitationRevoked    = errors.New("invitation has been revoked")
	ErrInvitationNotPending = errors.New("invitation is no longer pending")
)

// InvitationMailer sends invitation emails
type InvitationMailer interface {
	SendInvitation(ctx context.Context, toEmail, communityName, inviterName, token string, expiresAt time.Time) error
}

// InvitationService issues and consumes single-use invitation tokens
type InvitationService struct {
	db          *database.DB
	invitations *repository.InvitationRepository
	communities *repository.CommunityRepository
	members     *repository.MemberRepository
	users       *repository.UserRepository
	mailer      InvitationMailer
	hub         *live.Hub
	metrics     *metrics.Metrics
	ttl         time.Duration
	now         func() time.Time
}

// NewInvitationService creates an invitation service. mailer, hub and m may be nil.
func NewInvitationService(db *database.DB, mailer InvitationMailer, hub *live.Hub, m *metrics.Metrics, ttl time.Duration) *InvitationService {
	return &InvitationService{
		db:          db,
		invitations: repository.NewInvitationRepository(db),
		communities: repository.NewCommunityRepository(db),
		members:     repository.NewMemberRepository(db),
		users:       repository.NewUserRepository(db),
		mailer:      mailer,
		hub:         hub,
		metrics:     m,
		ttl:         ttl,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *InvitationService) publish(communityID, action, token string) {
	s.metrics.Mutation(string(live.Invitations), action)
	if s.hub != nil {
		s.hub.Publish(live.Event{CommunityID: communityID, Collection: live.Invitations, Action: action, ID: token})
	}
}

// InviteInput describes who is invited and with what access
type InviteInput struct {
	Email    string      `json:"email"`
	MemberID string      `json:"memberId"`
	Role     models.Role `json:"role"`
}

// Invite creates a pending invitation and emails its accept link.
// Admins may invite anyone with any role. Patriarchs may only invite for a
// member of their own family, as a plain member.
func (s *InvitationService) Invite(ctx context.Context, communityID, inviterID string, in InviteInput) (*models.Invitation, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleMember
	}
	if !in.Role.Valid() {
		return nil, validation.ValidationError{Field: "role", Message: "role must be admin, patriarch or member"}
	}

	community, err := s.communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community == nil {
		return nil, ErrNotFound
	}
	inviter, err := s.communities.GetUser(ctx, communityID, inviterID)
	if err != nil {
		return nil, err
	}

	var target *models.Member
	if in.MemberID != "" {
		target, err = s.members.GetByID(ctx, communityID, in.MemberID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, validation.ValidationError{Field: "memberId", Message: "unknown member"}
		}
	}

	if err := s.authorizeInvite(ctx, inviter, target, in.Role); err != nil {
		return nil, err
	}

	inv := &models.Invitation{
		CommunityID: communityID,
		Email:       in.Email,
		MemberID:    in.MemberID,
		Role:        in.Role,
		InvitedBy:   inviterID,
		ExpiresAt:   s.now().Add(s.ttl),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}
	s.publish(communityID, "created", inv.Token)

	if s.mailer != nil {
		inviterName := ""
		if u, err := s.users.GetUserByID(ctx, inviterID); err == nil && u != nil {
			inviterName = u.Name
		}
		inv.InviterName = inviterName
		if err := s.mailer.SendInvitation(ctx, inv.Email, community.Name, inviterName, inv.Token, inv.ExpiresAt); err != nil {
			// the invitation stays valid; the link can be shared by hand
			slog.Warn("Failed to send invitation email", "community_id", communityID, "email", inv.Email, "error", err)
		}
	}

	slog.Info("Invitation created", "community_id", communityID, "role", inv.Role, "expires_at", inv.ExpiresAt)
	return inv, nil
}

func (s *InvitationService) authorizeInvite(ctx context.Context, inviter *models.CommunityUser, target *models.Member, role models.Role) error {
	if inviter == nil {
		return ErrForbidden
	}
	switch inviter.Role {
	case models.RoleAdmin:
		return nil
	case models.RolePatriarch:
		if target == nil || role != models.RoleMember || inviter.MemberID == "" {
			return ErrForbidden
		}
		own, err := s.members.GetByID(ctx, inviter.CommunityID, inviter.MemberID)
		if err != nil {
			return err
		}
		if own == nil || own.FamilyID == "" || own.FamilyID != target.FamilyID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// Get returns an invitation, marking it expired when it is past its expiry
func (s *InvitationService) Get(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInvitationNotFound
	}

	if inv.Status == models.InvitationPending && inv.IsExpired(s.now()) {
		if _, err := s.invitations.SetStatus(ctx, token, models.InvitationPending, models.InvitationExpired); err != nil {
			return nil, err
		}
		inv.Status = models.InvitationExpired
		s.publish(inv.CommunityID, "updated", token)
	}
	return inv, nil
}

func statusError(status models.InvitationStatus) error {
	switch status {
	case models.InvitationAccepted:
		return ErrInvitationUsed
	case models.InvitationRevoked:
		return ErrInvitationRevoked
	case models.InvitationExpired:
		return ErrInvitationExpired
	}
	return nil
}

// consumedError explains why a pending invitation could not be marked
// accepted: it was accepted, revoked or expired after it was read.
func consumedError(ctx context.Context, invitations *repository.InvitationRepository, token string) error {
	inv, err := invitations.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if inv == nil {
		return ErrInvitationNotFound
	}
	if err := statusError(inv.Status); err != nil {
		return err
	}
	return ErrInvitationUsed
}

// Accept consumes a pending invitation and links userID to its community
// with the invitation's role and member. An invitation is accepted at most once.
func (s *InvitationService) Accept(ctx context.Context, token, userID string) (*models.CommunityUser, error) {
	inv, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := statusError(inv.Status); err != nil {
		return nil, err
	}

	cu := &models.CommunityUser{
		CommunityID: inv.CommunityID,
		UserID:      userID,
		Role:        inv.Role,
		MemberID:    inv.MemberID,
		JoinedAt:    s.now(),
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		invitations := repository.NewInvitationRepository(tx)
		ok, err := invitations.MarkAccepted(ctx, token, userID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return consumedError(ctx, invitations, token)
		}

		communities := repository.NewCommunityRepository(tx)
		existing, err := communities.GetUser(ctx, cu.CommunityID, userID)
		if err != nil {
			return err
		}
		// never downgrade an existing admin
		if existing != nil && existing.Role == models.RoleAdmin {
			cu.Role = models.RoleAdmin
		}
		if existing != nil && cu.MemberID == "" {
			cu.MemberID = existing.MemberID
		}
		return communities.AddUser(ctx, *cu)
	})
	if errors.Is(err, ErrInvitationUsed) || errors.Is(err, ErrInvitationRevoked) ||
		errors.Is(err, ErrInvitationExpired) || errors.Is(err, ErrInvitationNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.publish(inv.CommunityID, "updated", token)
	slog.Info("Invitation accepted", "community_id", inv.CommunityID, "user_id", userID, "role", inv.Role)
	return cu, nil
}

// Revoke cancels a pending invitation of a community
func (s *InvitationService) Revoke(ctx context.Context, communityID, token string) error {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if inv == nil || inv.CommunityID != communityID {
		return ErrInvitationNotFound
	}

	ok, err := s.invitations.SetStatus(ctx, token, models.InvitationPending, models.InvitationRevoked)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvitationNotPending
	}
	s.publish(communityID, "updated", token)
	return nil
}

// ListForCommunity returns a community's invitations. Pending invitations
// past their expiry are reported as expired.
func (s *InvitationService) ListForCommunity(ctx context.Context, communityID string) ([]models.Invitation, error) {
	list, err := s.invitations.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range list {
		if list[i].Status == models.InvitationPending && list[i].IsExpired(now) {
			list[i].Status = models.InvitationExpired
		}
	}
	return list, nil
}

// ExpireStale marks every overdue pending invitation as expired
func (s *InvitationService) ExpireStale(ctx context.Context) (int64, error) {
	return s.invitations.ExpirePending(ctx, s.now())
}
