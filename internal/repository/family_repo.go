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

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// Create inserts a family in a community
func (r *FamilyRepository) Create(ctx context.Context, communityID, name string) (*models.Family, error) {
	now := time.Now().UTC()
	f := &models.Family{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		Name:        name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO families (id, community_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, f.ID, communityID, name, now, now); err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}
	return f, nil
}

func (r *FamilyRepository) getOne(ctx context.Context, where string, args ...any) (*models.Family, error) {
	query := `SELECT id, community_id, name, created_at, updated_at FROM families WHERE ` + where
	f := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&f.ID, &f.CommunityID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return f, nil
}

// GetByID retrieves a family of a community by ID
func (r *FamilyRepository) GetByID(ctx context.Context, communityID, id string) (*models.Family, error) {
	return r.getOne(ctx, "community_id = ? AND id = ?", communityID, id)
}

// GetByName retrieves a family by its exact, case-sensitive name
func (r *FamilyRepository) GetByName(ctx context.Context, communityID, name string) (*models.Family, error) {
	return r.getOne(ctx, "community_id = ? AND name = ?", communityID, name)
}

// List returns the families of a community ordered by name
func (r *FamilyRepository) List(ctx context.Context, communityID string) ([]models.Family, error) {
	query := `
		SELECT id, community_id, name, created_at, updated_at
		FROM families
		WHERE community_id = ?
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	families := []models.Family{}
	for rows.Next() {
		var f models.Family
		if err := rows.Scan(&f.ID, &f.CommunityID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

// Rename changes a family's name
func (r *FamilyRepository) Rename(ctx context.Context, communityID, id, name string) error {
	query := `UPDATE families SET name = ?, updated_at = ? WHERE community_id = ? AND id = ?`
	if _, err := r.db.ExecContext(ctx, query, name, time.Now().UTC(), communityID, id); err != nil {
		return fmt.Errorf("failed to rename family: %w", err)
	}
	return nil
}

// Delete removes a family
func (r *FamilyRepository) Delete(ctx context.Context, communityID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM families WHERE community_id = ? AND id = ?`, communityID, id); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}

// CountMembers returns how many members reference the family
func (r *FamilyRepository) CountMembers(ctx context.Context, familyID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members WHERE family_id = ?`, familyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count family members: %w", err)
	}
	return n, nil
}
