package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mmanyinorie/internal/models"
	"mmanyinorie/internal/repository"
)

type fakeInvitationMailer struct {
	sent []string
	fail error
}

func (f *fakeInvitationMailer) SendInvitation(_ context.Context, toEmail, _, _, token string, _ time.Time) error {
	f.sent = append(f.sent, toEmail+" "+token)
	return f.fail
}

func newInvitationFixture(t *testing.T) (*fixture, *InvitationService, *fakeInvitationMailer) {
	t.Helper()
	f := newFixture(t, april2026)
	mailer := &fakeInvitationMailer{}
	inv := NewInvitationService(f.db, mailer, f.hub, nil, 7*24*time.Hour)
	inv.now = fixedClock(april2026)
	return f, inv, mailer
}

func TestInviteAndAcceptOnce(t *testing.T) {
	f, svc, mailer := newInvitationFixture(t)
	ctx := context.Background()

	inv, err := svc.Invite(ctx, f.community.ID, f.owner.ID, InviteInput{Email: " Guest@Example.org ", Role: models.RolePatriarch})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	if len(inv.Token) != 32 {
		t.Errorf("token length = %d, want 32", len(inv.Token))
	}
	if inv.Email != "guest@example.org" || inv.Status != models.InvitationPending {
		t.Errorf("invitation = %+v", inv)
	}
	if !inv.ExpiresAt.Equal(april2026.Add(7 * 24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", inv.ExpiresAt)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mailer.sent))
	}

	guest := createUser(t, f.db, "guest@example.org")
	cu, err := svc.Accept(ctx, inv.Token, guest.ID)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if cu.Role != models.RolePatriarch {
		t.Errorf("role = %s, want patriarch", cu.Role)
	}

	got, err := svc.Get(ctx, inv.Token)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != models.InvitationAccepted || got.AcceptedBy != guest.ID {
		t.Errorf("after accept status=%s acceptedBy=%q", got.Status, got.AcceptedBy)
	}

	other := createUser(t, f.db, "other@example.org")
	if _, err := svc.Accept(ctx, inv.Token, other.ID); !errors.Is(err, ErrInvitationUsed) {
		t.Errorf("second Accept() error = %v, want ErrInvitationUsed", err)
	}
	if _, err := svc.Accept(ctx, "0123456789abcdef0123456789abcdef", other.ID); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("Accept(unknown) error = %v, want ErrInvitationNotFound", err)
	}
}

func TestInviteEmailFailureKeepsInvitation(t *testing.T) {
	f, svc, mailer := newInvitationFixture(t)
	mailer.fail = errors.New("ses throttled")

	inv, err := svc.Invite(context.Background(), f.community.ID, f.owner.ID, InviteInput{Email: "guest@example.org"})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	if inv.Role != models.RoleMember {
		t.Errorf("default role = %s, want member", inv.Role)
	}
	if _, err := svc.Get(context.Background(), inv.Token); err != nil {
		t.Errorf("invitation should be stored: %v", err)
	}
}

func TestAcceptExpiredInvitation(t *testing.T) {
	f, svc, _ := newInvitationFixture(t)
	ctx := context.Background()

	inv, err := svc.Invite(ctx, f.community.ID, f.owner.ID, InviteInput{Email: "late@example.org"})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}

	svc.now = fixedClock(april2026.Add(8 * 24 * time.Hour))
	guest := createUser(t, f.db, "late@example.org")
	if _, err := svc.Accept(ctx, inv.Token, guest.ID); !errors.Is(err, ErrInvitationExpired) {
		t.Errorf("Accept() error = %v, want ErrInvitationExpired", err)
	}

	got, err := svc.Get(ctx, inv.Token)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != models.InvitationExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}
	if _, err := f.svc.Membership(ctx, f.community.ID, guest.ID); !errors.Is(err, ErrForbidden) {
		t.Error("expired invitation must not grant membership")
	}
}

func TestRevokeInvitation(t *testing.T) {
	f, svc, _ := newInvitationFixture(t)
	ctx := context.Background()

	inv, err := svc.Invite(ctx, f.community.ID, f.owner.ID, InviteInput{Email: "guest@example.org"})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}

	if err := svc.Revoke(ctx, "other-community", inv.Token); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("Revoke(wrong community) error = %v, want ErrInvitationNotFound", err)
	}
	if err := svc.Revoke(ctx, f.community.ID, inv.Token); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if err := svc.Revoke(ctx, f.community.ID, inv.Token); !errors.Is(err, ErrInvitationNotPending) {
		t.Errorf("second Revoke() error = %v, want ErrInvitationNotPending", err)
	}

	guest := createUser(t, f.db, "guest@example.org")
	if _, err := svc.Accept(ctx, inv.Token, guest.ID); !errors.Is(err, ErrInvitationRevoked) {
		t.Errorf("Accept(revoked) error = %v, want ErrInvitationRevoked", err)
	}
}

func TestConsumedErrorReportsCurrentStatus(t *testing.T) {
	f, svc, _ := newInvitationFixture(t)
	ctx := context.Background()
	repo := repository.NewInvitationRepository(f.db)

	tests := []struct {
		name   string
		status models.InvitationStatus
		want   error
	}{
		{name: "revoked", status: models.InvitationRevoked, want: ErrInvitationRevoked},
		{name: "expired", status: models.InvitationExpired, want: ErrInvitationExpired},
		{name: "accepted", status: models.InvitationAccepted, want: ErrInvitationUsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := svc.Invite(ctx, f.community.ID, f.owner.ID, InviteInput{Email: tt.name + "@example.org"})
			if err != nil {
				t.Fatalf("Invite() error = %v", err)
			}
			if _, err := repo.SetStatus(ctx, inv.Token, models.InvitationPending, tt.status); err != nil {
				t.Fatalf("SetStatus() error = %v", err)
			}
			if err := consumedError(ctx, repo, inv.Token); !errors.Is(err, tt.want) {
				t.Errorf("consumedError() = %v, want %v", err, tt.want)
			}
		})
	}

	if err := consumedError(ctx, repo, "missing"); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("consumedError(missing) = %v, want ErrInvitationNotFound", err)
	}
}

func TestAcceptKeepsAdminRole(t *testing.T) {
	f, svc, _ := newInvitationFixture(t)
	ctx := context.Background()

	inv, err := svc.Invite(ctx, f.community.ID, f.owner.ID, InviteInput{Email: "owner@example.org", Role: models.RoleMember})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	cu, err := svc.Accept(ctx, inv.Token, f.owner.ID)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if cu.Role != models.RoleAdmin {
		t.Errorf("role = %s, admin must not be downgraded", cu.Role)
	}
}

func TestPatriarchInvitations(t *testing.T) {
	f, svc, _ := newInvitationFixture(t)
	ctx := context.Background()

	head, err := f.svc.AddMember(ctx, f.community.ID, MemberInput{FirstName: "Eze", YearOfBirth: 1960, Family: "Okafor", IsPatriarch: true})
	if err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	son, err := f.svc.AddMember(ctx, f.community.ID, MemberInput{FirstName: "Obi", YearOfBirth: 1995, Family: "Okafor"})
	if err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	outsider, err := f.svc.AddMember(ctx, f.community.ID, MemberInput{FirstName: "Ada", YearOfBirth: 1995, Family: "Eze"})
	if err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	// the patriarch joins through an admin invitation linked to their member record
	patriarchUser := createUser(t, f.db, "eze@example.org")
	inv, err := svc.Invite(ctx, f.community.ID, f.owner.ID, InviteInput{Email: "eze@example.org", MemberID: head.ID, Role: models.RolePatriarch})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	if _, err := svc.Accept(ctx, inv.Token, patriarchUser.ID); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	memberUser := createUser(t, f.db, "plain@example.org")
	inv, err = svc.Invite(ctx, f.community.ID, f.owner.ID, InviteInput{Email: "plain@example.org"})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	if _, err := svc.Accept(ctx, inv.Token, memberUser.ID); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	tests := []struct {
		name    string
		inviter string
		in      InviteInput
		wantErr error
	}{
		{name: "own family member", inviter: patriarchUser.ID, in: InviteInput{Email: "obi@example.org", MemberID: son.ID}},
		{name: "other family", inviter: patriarchUser.ID, in: InviteInput{Email: "ada@example.org", MemberID: outsider.ID}, wantErr: ErrForbidden},
		{name: "no member", inviter: patriarchUser.ID, in: InviteInput{Email: "x@example.org"}, wantErr: ErrForbidden},
		{name: "elevated role", inviter: patriarchUser.ID, in: InviteInput{Email: "obi@example.org", MemberID: son.ID, Role: models.RoleAdmin}, wantErr: ErrForbidden},
		{name: "plain member", inviter: memberUser.ID, in: InviteInput{Email: "obi@example.org", MemberID: son.ID}, wantErr: ErrForbidden},
		{name: "outsider", inviter: "nobody", in: InviteInput{Email: "obi@example.org"}, wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Invite(ctx, f.community.ID, tt.inviter, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Invite() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListAndExpireStale(t *testing.T) {
	f, svc, _ := newInvitationFixture(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.org", "b@example.org"} {
		if _, err := svc.Invite(ctx, f.community.ID, f.owner.ID, InviteInput{Email: email}); err != nil {
			t.Fatalf("Invite() error = %v", err)
		}
	}

	svc.now = fixedClock(april2026.Add(30 * 24 * time.Hour))
	list, err := svc.ListForCommunity(ctx, f.community.ID)
	if err != nil {
		t.Fatalf("ListForCommunity() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d invitations, want 2", len(list))
	}
	for _, inv := range list {
		if inv.Status != models.InvitationExpired {
			t.Errorf("status = %s, want expired", inv.Status)
		}
	}

	n, err := svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("ExpireStale() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ExpireStale() = %d, want 2", n)
	}
}
