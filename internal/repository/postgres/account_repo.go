package postgres

import (
	"context"
	"errors"

	"github.com/and161185/graph-connector/internal/errs"
	"github.com/and161185/graph-connector/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct {
	db    *DB
	newID func() (uuid.UUID, error)
}

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db, newID: uuid.NewV4} }

// Upsert inserts the account or, when fb_user_id already exists, replaces its token.
// The unique constraint on fb_user_id makes concurrent first logins converge on one row.
func (r *AccountRepo) Upsert(ctx context.Context, fbUserID, token string) (*model.Account, error) {
	id, err := r.newID()
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO accounts (id, fb_user_id, long_lived_token)
VALUES ($1, $2, $3)
ON CONFLICT (fb_user_id)
DO UPDATE SET long_lived_token = EXCLUDED.long_lived_token, updated_at = now()
RETURNING id, fb_user_id, long_lived_token, created_at, updated_at`
	var a model.Account
	err = r.db.Pool.QueryRow(ctx, q, id, fbUserID, token).
		Scan(&a.ID, &a.FBUserID, &a.LongLivedToken, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ErrAlreadyExists
		}
		return nil, err
	}
	return &a, nil
}

// GetByFBUserID selects an account by external user id.
func (r *AccountRepo) GetByFBUserID(ctx context.Context, fbUserID string) (*model.Account, error) {
	const q = `
SELECT id, fb_user_id, long_lived_token, created_at, updated_at
FROM accounts WHERE fb_user_id=$1`
	var a model.Account
	err := r.db.Pool.QueryRow(ctx, q, fbUserID).
		Scan(&a.ID, &a.FBUserID, &a.LongLivedToken, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
