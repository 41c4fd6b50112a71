// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Account is one platform identity and its current long-lived token.
type Account struct {
	ID             uuid.UUID // PK
	FBUserID       string    // unique external user id
	LongLivedToken string    // overwritten on every re-authorization
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Page is one business page discovered for an account.
// Optional columns are nil when the platform reported no value.
type Page struct {
	ID                    uuid.UUID // PK
	PageID                string    // unique external page id
	AccountID             uuid.UUID // FK -> accounts.id, last discoverer wins
	Name                  string
	AccessToken           *string // page-scoped token
	InstagramID           *string // linked instagram_business_account
	WhatsAppID            *string // WhatsApp Business Account id
	WhatsAppPhoneNumberID *string // messaging endpoint id
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// InstagramLink is the result of the per-page linked account lookup.
type InstagramLink struct {
	PageID      string  `json:"page_id"`
	InstagramID *string `json:"instagram_id"`
}

// WhatsAppAccount is a messaging-business account with its phone numbers.
type WhatsAppAccount struct {
	WABAID       string           `json:"waba_id"`
	PhoneNumbers []map[string]any `json:"phone_numbers"`
}

// FirstPhoneNumberID returns the id of the first registered phone number, if any.
func (w WhatsAppAccount) FirstPhoneNumberID() *string {
	if len(w.PhoneNumbers) == 0 {
		return nil
	}
	id, ok := w.PhoneNumbers[0]["id"].(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}

// Discovery summarizes one run from an authorization code to stored records.
type Discovery struct {
	FBUserID          string
	Account           *Account
	Identity          map[string]any
	Pages             []map[string]any
	InstagramAccounts []InstagramLink
	WhatsAppAccounts  []WhatsAppAccount
	Persisted         []Page   // pages stored in this run
	Failed            []string // external ids of pages whose upsert failed
	SignupRequired    bool     // no business entity: send the user to onboarding
}
