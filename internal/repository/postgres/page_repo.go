package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/graph-connector/internal/errs"
	"github.com/and161185/graph-connector/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PageRepo implements PageRepository using PostgreSQL.
type PageRepo struct {
	db    *DB
	newID func() (uuid.UUID, error)
}

// NewPageRepo constructs a page repository.
func NewPageRepo(db *DB) *PageRepo { return &PageRepo{db: db, newID: uuid.NewV4} }

const pageColumns = `id, page_id, account_id, page_name, page_access_token,
instagram_id, whatsapp_id, whatsapp_phone_number_id, created_at, updated_at`

// Upsert inserts the page or updates it in place. Ownership moves to the
// latest discovering account; WhatsApp ids are only overwritten by non-NULL values.
func (r *PageRepo) Upsert(ctx context.Context, p *model.Page) (*model.Page, error) {
	if p == nil || p.PageID == "" || p.AccountID == uuid.Nil {
		return nil, fmt.Errorf("page upsert: %w", errs.ErrInvalidArgument)
	}
	id, err := r.newID()
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO pages (id, page_id, account_id, page_name, page_access_token,
                   instagram_id, whatsapp_id, whatsapp_phone_number_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (page_id) DO UPDATE SET
  account_id = EXCLUDED.account_id,
  page_name = EXCLUDED.page_name,
  page_access_token = EXCLUDED.page_access_token,
  instagram_id = EXCLUDED.instagram_id,
  whatsapp_id = COALESCE(EXCLUDED.whatsapp_id, pages.whatsapp_id),
  whatsapp_phone_number_id = COALESCE(EXCLUDED.whatsapp_phone_number_id, pages.whatsapp_phone_number_id),
  updated_at = now()
RETURNING ` + pageColumns
	var out model.Page
	err = r.db.Pool.QueryRow(ctx, q,
		id, p.PageID, p.AccountID, p.Name, p.AccessToken,
		p.InstagramID, p.WhatsAppID, p.WhatsAppPhoneNumberID,
	).Scan(
		&out.ID, &out.PageID, &out.AccountID, &out.Name, &out.AccessToken,
		&out.InstagramID, &out.WhatsAppID, &out.WhatsAppPhoneNumberID, &out.CreatedAt, &out.UpdatedAt,
	)
	switch {
	case err == nil:
		return &out, nil
	case isForeignKeyViolation(err):
		return nil, fmt.Errorf("page %s: account %s: %w", p.PageID, p.AccountID, errs.ErrNotFound)
	case isUniqueViolation(err):
		return nil, fmt.Errorf("page %s: %w", p.PageID, errs.ErrAlreadyExists)
	default:
		return nil, err
	}
}

// ListByAccount returns the pages owned by accountID ordered by name.
func (r *PageRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Page, error) {
	q := `SELECT ` + pageColumns + ` FROM pages WHERE account_id=$1 ORDER BY page_name ASC, page_id ASC`
	rows, err := r.db.Pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Page
	for rows.Next() {
		var p model.Page
		if err = rows.Scan(
			&p.ID, &p.PageID, &p.AccountID, &p.Name, &p.AccessToken,
			&p.InstagramID, &p.WhatsAppID, &p.WhatsAppPhoneNumberID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
