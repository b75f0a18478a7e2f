package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const Schema = `
CREATE TABLE IF NOT EXISTS members (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	fine_balance NUMERIC(10,2) NOT NULL DEFAULT 0,
	expires_at TIMESTAMPTZ
);`

// PostgresValidator reads membership records from the members table.
type PostgresValidator struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgresValidator(db *sqlx.DB) *PostgresValidator {
	return &PostgresValidator{db: db, now: time.Now}
}

// GetMember retrieves a member by id.
func (v *PostgresValidator) GetMember(ctx context.Context, id int64) (Member, bool, error) {
	var member Member
	err := v.db.GetContext(ctx, &member, `
		SELECT id, name, status, fine_balance,
		       COALESCE(expires_at, '0001-01-01 00:00:00+00'::timestamptz) AS expires_at
		FROM members
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, false, nil
	}
	if err != nil {
		return Member{}, false, fmt.Errorf("failed to get member: %w", err)
	}
	return member, true, nil
}

// IsValid treats unknown members as not valid.
func (v *PostgresValidator) IsValid(ctx context.Context, memberID int64) (bool, error) {
	member, found, err := v.GetMember(ctx, memberID)
	if err != nil || !found {
		return false, err
	}
	return member.Eligible(v.now()), nil
}
