package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"mmanyinorie/internal/database"
	"mmanyinorie/internal/models"
)

// InvitationRepository handles invitation tokens
type InvitationRepository struct {
	db database.DBTX
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// GenerateToken generates a random 32 character hex token
func GenerateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Create inserts a pending invitation with a fresh token
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	token, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate invitation token: %w", err)
	}
	inv.Token = token
	inv.Status = models.InvitationPending
	inv.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO invitations (token, community_id, email, member_id, role, status, invited_by, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		inv.Token, inv.CommunityID, inv.Email, inv.MemberID, inv.Role, inv.Status,
		inv.InvitedBy, inv.CreatedAt, inv.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

const invitationSelect = `
	SELECT i.token, i.community_id, i.email, i.member_id, i.role, i.status, i.invited_by,
	       COALESCE(u.name, ''), i.created_at, i.expires_at, i.accepted_by, i.accepted_at
	FROM invitations i
	LEFT JOIN users u ON i.invited_by = u.id
`

func scanInvitation(row interface{ Scan(...any) error }) (*models.Invitation, error) {
	var inv models.Invitation
	var acceptedAt sql.NullTime
	err := row.Scan(
		&inv.Token, &inv.CommunityID, &inv.Email, &inv.MemberID, &inv.Role, &inv.Status, &inv.InvitedBy,
		&inv.InviterName, &inv.CreatedAt, &inv.ExpiresAt, &inv.AcceptedBy, &acceptedAt,
	)
	if err != nil {
		return nil, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	return &inv, nil
}

// GetByToken retrieves an invitation by token
func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, invitationSelect+` WHERE i.token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// ListByCommunity returns the invitations of a community, newest first
func (r *InvitationRepository) ListByCommunity(ctx context.Context, communityID string) ([]models.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, invitationSelect+` WHERE i.community_id = ? ORDER BY i.created_at DESC`, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

// SetStatus moves an invitation from one status to another. It returns false
// when the invitation was not in the from status.
func (r *InvitationRepository) SetStatus(ctx context.Context, token string, from, to models.InvitationStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = ? WHERE token = ? AND status = ?`, to, token, from)
	if err != nil {
		return false, fmt.Errorf("failed to update invitation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// MarkAccepted consumes a pending invitation. It returns false when the
// invitation was already consumed, so acceptance happens at most once.
func (r *InvitationRepository) MarkAccepted(ctx context.Context, token, userID string, at time.Time) (bool, error) {
	query := `
		UPDATE invitations
		SET status = ?, accepted_by = ?, accepted_at = ?
		WHERE token = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, query, models.InvitationAccepted, userID, at.UTC(), token, models.InvitationPending)
	if err != nil {
		return false, fmt.Errorf("failed to accept invitation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read accept result: %w", err)
	}
	return n > 0, nil
}

// ExpirePending marks every pending invitation past its expiry as expired
func (r *InvitationRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = ? WHERE status = ? AND expires_at < ?`,
		models.InvitationExpired, models.InvitationPending, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
