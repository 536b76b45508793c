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

// MemberRepository handles members and their payments
type MemberRepository struct {
	db database.DBTX
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db database.DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberSelect = `
	SELECT m.id, m.community_id, m.first_name, m.middle_name, m.last_name, m.full_name,
	       m.year_of_birth, m.family_id, COALESCE(f.name, ''), m.email, m.phone, m.is_patriarch,
	       m.age, m.tier, m.contribution, m.joined_at, m.updated_at
	FROM members m
	LEFT JOIN families f ON f.id = m.family_id
`

func scanMember(row interface{ Scan(...any) error }) (*models.Member, error) {
	m := &models.Member{}
	var familyID sql.NullString
	err := row.Scan(
		&m.ID, &m.CommunityID, &m.FirstName, &m.MiddleName, &m.LastName, &m.FullName,
		&m.YearOfBirth, &familyID, &m.Family, &m.Email, &m.Phone, &m.IsPatriarch,
		&m.Age, &m.Tier, &m.Contribution, &m.JoinedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.FamilyID = familyID.String
	m.Payments = []models.Payment{}
	return m, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a member. ID and timestamps are assigned when empty.
func (r *MemberRepository) Create(ctx context.Context, m *models.Member) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now
	}
	m.UpdatedAt = now

	query := `
		INSERT INTO members (id, community_id, family_id, first_name, middle_name, last_name, full_name,
		                     year_of_birth, email, phone, is_patriarch, age, tier, contribution, joined_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.CommunityID, nullable(m.FamilyID), m.FirstName, m.MiddleName, m.LastName, m.FullName,
		m.YearOfBirth, m.Email, m.Phone, m.IsPatriarch, m.Age, m.Tier, m.Contribution, m.JoinedAt.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// Update replaces every editable field of a member. Payments and the join
// date are left untouched.
func (r *MemberRepository) Update(ctx context.Context, m *models.Member) error {
	m.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE members
		SET family_id = ?, first_name = ?, middle_name = ?, last_name = ?, full_name = ?,
		    year_of_birth = ?, email = ?, phone = ?, is_patriarch = ?,
		    age = ?, tier = ?, contribution = ?, updated_at = ?
		WHERE community_id = ? AND id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		nullable(m.FamilyID), m.FirstName, m.MiddleName, m.LastName, m.FullName,
		m.YearOfBirth, m.Email, m.Phone, m.IsPatriarch,
		m.Age, m.Tier, m.Contribution, m.UpdatedAt,
		m.CommunityID, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return nil
}

// UpdateDerived writes recalculated age, tier and contribution. The row is
// only written while its year of birth still equals yearOfBirth, the value
// the derived fields were computed from. It reports whether a row changed.
func (r *MemberRepository) UpdateDerived(ctx context.Context, id string, yearOfBirth, age int, tier string, contribution float64) (bool, error) {
	query := `UPDATE members SET age = ?, tier = ?, contribution = ?, updated_at = ? WHERE id = ? AND year_of_birth = ?`
	result, err := r.db.ExecContext(ctx, query, age, tier, contribution, time.Now().UTC(), id, yearOfBirth)
	if err != nil {
		return false, fmt.Errorf("failed to update member tier: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read member tier update result: %w", err)
	}
	return rows > 0, nil
}

// Delete removes a member and its payments
func (r *MemberRepository) Delete(ctx context.Context, communityID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE member_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete member payments: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE community_id = ? AND id = ?`, communityID, id); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

// GetByID retrieves a member of a community together with its payments
func (r *MemberRepository) GetByID(ctx context.Context, communityID, id string) (*models.Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx, memberSelect+` WHERE m.community_id = ? AND m.id = ?`, communityID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	payments, err := r.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Payments = payments
	return m, nil
}

// List returns the members of a community ordered by full name, each with
// its payments.
func (r *MemberRepository) List(ctx context.Context, communityID string) ([]models.Member, error) {
	rows, err := r.db.QueryContext(ctx, memberSelect+` WHERE m.community_id = ? ORDER BY m.full_name, m.id`, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}

	members := []models.Member{}
	index := make(map[string]int)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		index[m.ID] = len(members)
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read members: %w", err)
	}
	rows.Close()

	payments, err := r.listPaymentsWhere(ctx,
		`p.member_id IN (SELECT id FROM members WHERE community_id = ?)`, communityID)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if i, ok := index[p.MemberID]; ok {
			members[i].Payments = append(members[i].Payments, p)
		}
	}
	return members, nil
}

// CreatePayment appends a payment to a member
func (r *MemberRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO payments (id, member_id, contribution_id, amount, paid_on, month, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.MemberID, p.ContributionID, p.Amount, p.Date, monthValue(p.Month), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// UpdatePayment replaces a payment of a member. It returns false when no
// such payment exists.
func (r *MemberRepository) UpdatePayment(ctx context.Context, p *models.Payment) (bool, error) {
	query := `
		UPDATE payments
		SET contribution_id = ?, amount = ?, paid_on = ?, month = ?
		WHERE member_id = ? AND id = ?
	`
	result, err := r.db.ExecContext(ctx, query, p.ContributionID, p.Amount, p.Date, monthValue(p.Month), p.MemberID, p.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update payment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// DeletePayment removes a payment of a member. It returns false when no
// such payment exists.
func (r *MemberRepository) DeletePayment(ctx context.Context, memberID, paymentID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE member_id = ? AND id = ?`, memberID, paymentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete payment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

// ListPayments returns a member's payments in the order they were recorded
func (r *MemberRepository) ListPayments(ctx context.Context, memberID string) ([]models.Payment, error) {
	return r.listPaymentsWhere(ctx, `p.member_id = ?`, memberID)
}

func (r *MemberRepository) listPaymentsWhere(ctx context.Context, where string, args ...any) ([]models.Payment, error) {
	query := `
		SELECT p.id, p.member_id, p.contribution_id, p.amount, p.paid_on, p.month, p.created_at
		FROM payments p
		WHERE ` + where + `
		ORDER BY p.created_at, p.id
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		var month sql.NullInt64
		if err := rows.Scan(&p.ID, &p.MemberID, &p.ContributionID, &p.Amount, &p.Date, &month, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if month.Valid {
			m := int(month.Int64)
			p.Month = &m
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func monthValue(m *int) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*m), Valid: true}
}
