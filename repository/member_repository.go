package repository

import (
	"context"
	"fmt"

	"sacco/database"
	"sacco/models"

	"github.com/jackc/pgx/v5"
)

// MemberRepository implements the MemberRepository interface
type MemberRepository struct {
	q queryable
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *database.DB) *MemberRepository {
	return &MemberRepository{q: db.Pool}
}

// newMemberRepositoryWithTx creates a new member repository with a transaction
func newMemberRepositoryWithTx(tx queryable) *MemberRepository {
	return &MemberRepository{q: tx}
}

// GetByID retrieves a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	query := `
		SELECT id, full_name, phone_number, created_at
		FROM members
		WHERE id = $1
	`

	var member models.Member
	err := r.q.QueryRow(ctx, query, id).Scan(
		&member.ID,
		&member.FullName,
		&member.PhoneNumber,
		&member.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member %d: %w", id, err)
	}

	return &member, nil
}

// Create inserts a member
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO members (full_name, phone_number)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, member.FullName, member.PhoneNumber).Scan(&member.ID, &member.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}
