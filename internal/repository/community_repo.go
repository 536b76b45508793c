package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mmanyinorie/internal/database"
	"mmanyinorie/internal/models"
)

// CommunityRepository handles communities, their settings and their users
type CommunityRepository struct {
	db database.DBTX
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db database.DBTX) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// Create inserts a community owned by ownerID
func (r *CommunityRepository) Create(ctx context.Context, name, ownerID string, settings models.Settings) (*models.Community, error) {
	now := time.Now().UTC()
	c := &models.Community{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO communities (id, name, owner_id, tier1_age, tier2_age, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, name, ownerID,
		settings.Tier1Age, settings.Tier2Age, settings.Currency, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create community: %w", err)
	}
	return c, nil
}

// GetByID retrieves a community with its settings
func (r *CommunityRepository) GetByID(ctx context.Context, id string) (*models.Community, error) {
	query := `
		SELECT id, name, owner_id, tier1_age, tier2_age, currency, created_at, updated_at
		FROM communities
		WHERE id = ?
	`
	c := &models.Community{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.OwnerID,
		&c.Settings.Tier1Age, &c.Settings.Tier2Age, &c.Settings.Currency,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get community: %w", err)
	}
	return c, nil
}

// GetSettings returns only the settings of a community
func (r *CommunityRepository) GetSettings(ctx context.Context, communityID string) (*models.Settings, error) {
	query := `SELECT tier1_age, tier2_age, currency FROM communities WHERE id = ?`
	s := &models.Settings{}
	err := r.db.QueryRowContext(ctx, query, communityID).Scan(&s.Tier1Age, &s.Tier2Age, &s.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return s, nil
}

// UpdateSettings replaces the tier boundaries and currency of a community
func (r *CommunityRepository) UpdateSettings(ctx context.Context, communityID string, s models.Settings) error {
	query := `
		UPDATE communities
		SET tier1_age = ?, tier2_age = ?, currency = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, s.Tier1Age, s.Tier2Age, s.Currency, time.Now().UTC(), communityID); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

// ListForUser returns every community the user belongs to with their role
func (r *CommunityRepository) ListForUser(ctx context.Context, userID string) ([]models.CommunityWithRole, error) {
	query := `
		SELECT c.id, c.name, c.owner_id, c.tier1_age, c.tier2_age, c.currency, c.created_at, c.updated_at,
		       cu.role, cu.member_id
		FROM communities c
		JOIN community_users cu ON cu.community_id = c.id
		WHERE cu.user_id = ?
		ORDER BY c.name
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query communities: %w", err)
	}
	defer rows.Close()

	var communities []models.CommunityWithRole
	for rows.Next() {
		var c models.CommunityWithRole
		if err := rows.Scan(
			&c.ID, &c.Name, &c.OwnerID,
			&c.Settings.Tier1Age, &c.Settings.Tier2Age, &c.Settings.Currency,
			&c.CreatedAt, &c.UpdatedAt,
			&c.Role, &c.MemberID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan community: %w", err)
		}
		communities = append(communities, c)
	}
	return communities, rows.Err()
}

// AddUser links a user to a community. An existing link is replaced.
func (r *CommunityRepository) AddUser(ctx context.Context, cu models.CommunityUser) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM community_users WHERE community_id = ? AND user_id = ?`,
		cu.CommunityID, cu.UserID,
	); err != nil {
		return fmt.Errorf("failed to replace community user: %w", err)
	}

	query := `
		INSERT INTO community_users (community_id, user_id, role, member_id, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, cu.CommunityID, cu.UserID, cu.Role, cu.MemberID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to add community user: %w", err)
	}
	return nil
}

// GetUser returns the membership of userID in communityID
func (r *CommunityRepository) GetUser(ctx context.Context, communityID, userID string) (*models.CommunityUser, error) {
	query := `
		SELECT community_id, user_id, role, member_id, joined_at
		FROM community_users
		WHERE community_id = ? AND user_id = ?
	`
	cu := &models.CommunityUser{}
	err := r.db.QueryRowContext(ctx, query, communityID, userID).Scan(
		&cu.CommunityID, &cu.UserID, &cu.Role, &cu.MemberID, &cu.JoinedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get community user: %w", err)
	}
	return cu, nil
}

// ListUsers returns all user links of a community
func (r *CommunityRepository) ListUsers(ctx context.Context, communityID string) ([]models.CommunityUser, error) {
	query := `
		SELECT community_id, user_id, role, member_id, joined_at
		FROM community_users
		WHERE community_id = ?
		ORDER BY joined_at
	`
	rows, err := r.db.QueryContext(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query community users: %w", err)
	}
	defer rows.Close()

	var users []models.CommunityUser
	for rows.Next() {
		var cu models.CommunityUser
		if err := rows.Scan(&cu.CommunityID, &cu.UserID, &cu.Role, &cu.MemberID, &cu.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan community user: %w", err)
		}
		users = append(users, cu)
	}
	return users, rows.Err()
}
