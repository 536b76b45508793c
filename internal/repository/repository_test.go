package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mmanyinorie/internal/database"
	"mmanyinorie/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedCommunity(t *testing.T, db *database.DB) (*models.User, *models.Community) {
	t.Helper()
	ctx := context.Background()
	user, err := NewUserRepository(db).CreateUser(ctx, "owner@example.org", "hash", "Owner")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	community, err := NewCommunityRepository(db).Create(ctx, "Umuahia Union", user.ID, models.DefaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return user, community
}

func TestUserAndSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	user, err := repo.CreateUser(ctx, "ada@example.org", "hash", "Ada")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := repo.GetUserByEmail(ctx, "ada@example.org")
	if err != nil || got == nil || got.ID != user.ID {
		t.Fatalf("GetUserByEmail() = %+v, %v", got, err)
	}

	missing, err := repo.GetUserByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetUserByID(missing) = %+v, %v; want nil, nil", missing, err)
	}

	if err := repo.LinkOAuthProvider(ctx, user.ID, "google", "sub-1"); err != nil {
		t.Fatalf("LinkOAuthProvider() error = %v", err)
	}
	if err := repo.LinkOAuthProvider(ctx, user.ID, "google", "sub-2"); err == nil {
		t.Error("linking a second provider should fail")
	}
	byOAuth, err := repo.GetUserByOAuth(ctx, "google", "sub-1")
	if err != nil || byOAuth == nil || byOAuth.ID != user.ID {
		t.Errorf("GetUserByOAuth() = %+v, %v", byOAuth, err)
	}

	if _, err := repo.CreateSession(ctx, "live", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := repo.CreateSession(ctx, "stale", user.ID, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	n, err := repo.DeleteExpiredSessions(ctx, time.Now())
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredSessions() = %d, %v; want 1", n, err)
	}
	if s, _ := repo.GetSession(ctx, "live"); s == nil {
		t.Error("live session should remain")
	}
	if s, _ := repo.GetSession(ctx, "stale"); s != nil {
		t.Error("stale session should be gone")
	}
}

func TestCommunityUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user, community := seedCommunity(t, db)
	repo := NewCommunityRepository(db)

	if err := repo.AddUser(ctx, models.CommunityUser{CommunityID: community.ID, UserID: user.ID, Role: models.RoleMember}); err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	if err := repo.AddUser(ctx, models.CommunityUser{CommunityID: community.ID, UserID: user.ID, Role: models.RoleAdmin}); err != nil {
		t.Fatalf("AddUser() replace error = %v", err)
	}

	cu, err := repo.GetUser(ctx, community.ID, user.ID)
	if err != nil || cu == nil || cu.Role != models.RoleAdmin {
		t.Fatalf("GetUser() = %+v, %v; want admin", cu, err)
	}

	list, err := repo.ListForUser(ctx, user.ID)
	if err != nil || len(list) != 1 || list[0].Settings.Tier2Age != 25 {
		t.Errorf("ListForUser() = %+v, %v", list, err)
	}

	if err := repo.UpdateSettings(ctx, community.ID, models.Settings{Tier1Age: 16, Tier2Age: 30, Currency: "₦"}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	s, err := repo.GetSettings(ctx, community.ID)
	if err != nil || s.Tier1Age != 16 || s.Currency != "₦" {
		t.Errorf("GetSettings() = %+v, %v", s, err)
	}
}

func TestMemberFamilyJoinAndPayments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_, community := seedCommunity(t, db)

	families := NewFamilyRepository(db)
	members := NewMemberRepository(db)

	family, err := families.Create(ctx, community.ID, "Okafor")
	if err != nil {
		t.Fatalf("Create family error = %v", err)
	}

	m := &models.Member{
		CommunityID: community.ID,
		FirstName:   "Chidi",
		FullName:    "Chidi",
		YearOfBirth: 1990,
		FamilyID:    family.ID,
		Age:         36,
		Tier:        "Group 2 (25+)",
	}
	if err := members.Create(ctx, m); err != nil {
		t.Fatalf("Create member error = %v", err)
	}

	month := 2
	p := &models.Payment{MemberID: m.ID, ContributionID: "dues", Amount: 10, Date: "2026-03-01", Month: &month}
	if err := members.CreatePayment(ctx, p); err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}

	if err := families.Rename(ctx, community.ID, family.ID, "Okafor-Eze"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	got, err := members.GetByID(ctx, community.ID, m.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %+v, %v", got, err)
	}
	if got.Family != "Okafor-Eze" {
		t.Errorf("member family = %q, want renamed family", got.Family)
	}
	if len(got.Payments) != 1 || got.Payments[0].Month == nil || *got.Payments[0].Month != 2 {
		t.Errorf("payments = %+v", got.Payments)
	}

	n, err := families.CountMembers(ctx, family.ID)
	if err != nil || n != 1 {
		t.Errorf("CountMembers() = %d, %v; want 1", n, err)
	}

	p.Amount = 15
	p.Month = nil
	if ok, err := members.UpdatePayment(ctx, p); err != nil || !ok {
		t.Fatalf("UpdatePayment() = %v, %v", ok, err)
	}
	list, err := members.List(ctx, community.ID)
	if err != nil || len(list) != 1 || list[0].Payments[0].Amount != 15 || list[0].Payments[0].Month != nil {
		t.Fatalf("List() = %+v, %v", list, err)
	}

	if ok, _ := members.DeletePayment(ctx, m.ID, "missing"); ok {
		t.Error("deleting an unknown payment should report false")
	}
	if err := members.Delete(ctx, community.ID, m.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := members.GetByID(ctx, community.ID, m.ID); got != nil {
		t.Error("member should be deleted")
	}
}

func TestUpdateDerivedSkipsChangedYearOfBirth(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_, community := seedCommunity(t, db)
	members := NewMemberRepository(db)

	m := &models.Member{
		CommunityID: community.ID,
		FirstName:   "Ngozi",
		FullName:    "Ngozi",
		YearOfBirth: 2000,
		Age:         26,
		Tier:        "Group 2 (25+)",
	}
	if err := members.Create(ctx, m); err != nil {
		t.Fatalf("Create member error = %v", err)
	}

	// the member was edited after the derived values were computed
	m.YearOfBirth = 2010
	m.Age = 16
	m.Tier = "Under 18"
	if err := members.Update(ctx, m); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	ok, err := members.UpdateDerived(ctx, m.ID, 2000, 26, "Group 2 (25+)", 40)
	if err != nil {
		t.Fatalf("UpdateDerived() error = %v", err)
	}
	if ok {
		t.Error("UpdateDerived() with a stale year of birth should not write")
	}
	got, _ := members.GetByID(ctx, community.ID, m.ID)
	if got.Age != 16 || got.Tier != "Under 18" || got.YearOfBirth != 2010 {
		t.Errorf("member after stale update = age %d tier %q yob %d", got.Age, got.Tier, got.YearOfBirth)
	}

	ok, err = members.UpdateDerived(ctx, m.ID, 2010, 16, "Under 18", 5)
	if err != nil || !ok {
		t.Fatalf("UpdateDerived() = %v, %v; want true", ok, err)
	}
	if got, _ := members.GetByID(ctx, community.ID, m.ID); got.Contribution != 5 {
		t.Errorf("contribution = %v, want 5", got.Contribution)
	}
}

func TestContributionTiersRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_, community := seedCommunity(t, db)
	repo := NewContributionRepository(db)

	c := &models.CustomContribution{
		CommunityID: community.ID,
		Name:        "Building levy",
		Amount:      100,
		Frequency:   models.FrequencyOneTime,
		Tiers:       []string{"Group 1 (18-24)", "Group 2 (25+)"},
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, community.ID, c.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %+v, %v", got, err)
	}
	if len(got.Tiers) != 2 || got.Tiers[1] != "Group 2 (25+)" {
		t.Errorf("tiers = %v", got.Tiers)
	}

	if ok, err := repo.Update(ctx, &models.CustomContribution{ID: "missing", CommunityID: community.ID}); err != nil || ok {
		t.Errorf("Update(missing) = %v, %v; want false", ok, err)
	}
}

func TestInvitationAcceptOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user, community := seedCommunity(t, db)
	repo := NewInvitationRepository(db)

	inv := &models.Invitation{
		CommunityID: community.ID,
		Email:       "guest@example.org",
		Role:        models.RoleMember,
		InvitedBy:   user.ID,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(inv.Token) != 32 {
		t.Errorf("token length = %d, want 32", len(inv.Token))
	}

	ok, err := repo.MarkAccepted(ctx, inv.Token, user.ID, time.Now())
	if err != nil || !ok {
		t.Fatalf("first MarkAccepted() = %v, %v", ok, err)
	}
	ok, err = repo.MarkAccepted(ctx, inv.Token, user.ID, time.Now())
	if err != nil || ok {
		t.Errorf("second MarkAccepted() = %v, %v; want false", ok, err)
	}

	got, err := repo.GetByToken(ctx, inv.Token)
	if err != nil || got.Status != models.InvitationAccepted || got.AcceptedAt == nil || got.InviterName != "Owner" {
		t.Errorf("GetByToken() = %+v, %v", got, err)
	}
}

func TestExpirePending(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user, community := seedCommunity(t, db)
	repo := NewInvitationRepository(db)

	stale := &models.Invitation{CommunityID: community.ID, Email: "a@example.org", Role: models.RoleMember, InvitedBy: user.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	fresh := &models.Invitation{CommunityID: community.ID, Email: "b@example.org", Role: models.RoleMember, InvitedBy: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	for _, inv := range []*models.Invitation{stale, fresh} {
		if err := repo.Create(ctx, inv); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	n, err := repo.ExpirePending(ctx, time.Now())
	if err != nil || n != 1 {
		t.Fatalf("ExpirePending() = %d, %v; want 1", n, err)
	}

	list, err := repo.ListByCommunity(ctx, community.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByCommunity() = %+v, %v", list, err)
	}
	for _, inv := range list {
		want := models.InvitationPending
		if inv.Token == stale.Token {
			want = models.InvitationExpired
		}
		if inv.Status != want {
			t.Errorf("invitation %s status = %s, want %s", inv.Email, inv.Status, want)
		}
	}
}
