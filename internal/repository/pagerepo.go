package repository

import (
	"context"

	"github.com/and161185/graph-connector/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PageRepository stores discovered pages and their linked identifiers.
type PageRepository interface {
	// Upsert creates the page or updates it in place, atomically, keyed by PageID.
	// Nil WhatsApp fields leave previously stored values untouched.
	Upsert(ctx context.Context, p *model.Page) (*model.Page, error)
	// ListByAccount returns the pages currently owned by an account.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Page, error)
}
