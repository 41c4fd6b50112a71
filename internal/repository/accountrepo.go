// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/graph-connector/internal/model"
)

// AccountRepository stores platform identities and their long-lived tokens.
type AccountRepository interface {
	// Upsert creates the account or replaces its token, atomically, keyed by fbUserID.
	Upsert(ctx context.Context, fbUserID, token string) (*model.Account, error)
	// GetByFBUserID loads an account by its external user id.
	GetByFBUserID(ctx context.Context, fbUserID string) (*model.Account, error)
}
