package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mmanyinorie/internal/database"
	"mmanyinorie/internal/models"
)

// ContributionRepository handles custom contribution templates
type ContributionRepository struct {
	db database.DBTX
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(db database.DBTX) *ContributionRepository {
	return &ContributionRepository{db: db}
}

func encodeTiers(tiers []string) (string, error) {
	if tiers == nil {
		tiers = []string{}
	}
	b, err := json.Marshal(tiers)
	if err != nil {
		return "", fmt.Errorf("failed to encode tiers: %w", err)
	}
	return string(b), nil
}

func scanContribution(row interface{ Scan(...any) error }) (*models.CustomContribution, error) {
	c := &models.CustomContribution{}
	var tiers string
	if err := row.Scan(&c.ID, &c.CommunityID, &c.Name, &c.Description, &c.Amount, &c.Frequency, &tiers, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Tiers = []string{}
	if tiers != "" {
		if err := json.Unmarshal([]byte(tiers), &c.Tiers); err != nil {
			return nil, fmt.Errorf("failed to decode tiers of contribution %s: %w", c.ID, err)
		}
	}
	return c, nil
}

const contributionColumns = `id, community_id, name, description, amount, frequency, tiers, created_at, updated_at`

// Create inserts a contribution template
func (r *ContributionRepository) Create(ctx context.Context, c *models.CustomContribution) error {
	tiers, err := encodeTiers(c.Tiers)
	if err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	query := `INSERT INTO contributions (` + contributionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, c.ID, c.CommunityID, c.Name, c.Description, c.Amount, c.Frequency, tiers, now, now)
	if err != nil {
		return fmt.Errorf("failed to create contribution: %w", err)
	}
	return nil
}

// Update replaces a contribution template. It returns false when the
// template does not exist in the community.
func (r *ContributionRepository) Update(ctx context.Context, c *models.CustomContribution) (bool, error) {
	tiers, err := encodeTiers(c.Tiers)
	if err != nil {
		return false, err
	}
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE contributions
		SET name = ?, description = ?, amount = ?, frequency = ?, tiers = ?, updated_at = ?
		WHERE community_id = ? AND id = ?
	`
	result, err := r.db.ExecContext(ctx, query, c.Name, c.Description, c.Amount, c.Frequency, tiers, c.UpdatedAt, c.CommunityID, c.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update contribution: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// Delete removes a contribution template. Payments toward it are kept.
func (r *ContributionRepository) Delete(ctx context.Context, communityID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contributions WHERE community_id = ? AND id = ?`, communityID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete contribution: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

// GetByID retrieves a contribution template
func (r *ContributionRepository) GetByID(ctx context.Context, communityID, id string) (*models.CustomContribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE community_id = ? AND id = ?`
	c, err := scanContribution(r.db.QueryRowContext(ctx, query, communityID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return c, nil
}

// List returns the contribution templates of a community
func (r *ContributionRepository) List(ctx context.Context, communityID string) ([]models.CustomContribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE community_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer rows.Close()

	contributions := []models.CustomContribution{}
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, *c)
	}
	return contributions, rows.Err()
}
