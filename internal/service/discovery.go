package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/and161185/graph-connector/internal/config"
	"github.com/and161185/graph-connector/internal/errs"
	"github.com/and161185/graph-connector/internal/graph"
	"github.com/and161185/graph-connector/internal/metrics"
	"github.com/and161185/graph-connector/internal/model"
	"github.com/and161185/graph-connector/internal/repository"
)

// GraphReader is the read side of the platform client.
type GraphReader interface {
	Get(ctx context.Context, path string, params url.Values) (graph.Object, error)
}

// Discovery walks from an authorization code to stored Account and Page records.
type Discovery interface {
	// Discover runs the full token exchange and asset discovery sequence.
	Discover(ctx context.Context, code string) (*model.Discovery, error)
}

type DiscoveryImpl struct {
	cfg      config.Config
	graph    GraphReader
	accounts repository.AccountRepository
	pages    repository.PageRepository
	log      *zap.Logger
}

// NewDiscovery constructs the discovery orchestrator.
func NewDiscovery(cfg config.Config, g GraphReader, accounts repository.AccountRepository,
	pages repository.PageRepository, log *zap.Logger) *DiscoveryImpl {
	return &DiscoveryImpl{cfg: cfg, graph: g, accounts: accounts, pages: pages, log: log.Named("discovery")}
}

// Discover executes the steps strictly in order; each step needs the previous step's output.
// The account token is stored before page discovery starts and stays stored even if a
// later step fails. Pages are stored one by one and a failing page does not stop the rest.
func (s *DiscoveryImpl) Discover(ctx context.Context, code string) (res *model.Discovery, err error) {
	defer func() { metrics.DiscoveryRuns.WithLabelValues(outcome(res, err)).Inc() }()

	if code == "" {
		return nil, fmt.Errorf("discover: empty code: %w", errs.ErrInvalidArgument)
	}

	shortToken, err := s.exchange(ctx, errs.StageShortLived, url.Values{
		"client_id":     {s.cfg.AppID},
		"client_secret": {s.cfg.AppSecret},
		"redirect_uri":  {s.cfg.RedirectURI},
		"code":          {code},
	})
	if err != nil {
		return nil, err
	}

	longToken, err := s.exchange(ctx, errs.StageLongLived, url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {s.cfg.AppID},
		"client_secret":     {s.cfg.AppSecret},
		"fb_exchange_token": {shortToken},
	})
	if err != nil {
		return nil, err
	}
	auth := url.Values{"access_token": {longToken}}

	identity, err := s.graph.Get(ctx, "me", auth)
	if err != nil {
		if body, ok := apiErrorBody(err); ok {
			return nil, &errs.IdentityResolutionError{Payload: body}
		}
		return nil, fmt.Errorf("fetch identity: %w", err)
	}
	fbUserID := identity.String("id")
	if fbUserID == "" {
		return nil, &errs.IdentityResolutionError{Payload: identity.Raw()}
	}
	log := s.log.With(zap.String("fb_user_id", fbUserID))

	account, err := s.accounts.Upsert(ctx, fbUserID, longToken)
	if err != nil {
		return nil, fmt.Errorf("store account: %w", err)
	}

	res = &model.Discovery{FBUserID: fbUserID, Account: account, Identity: identity}

	pagesResp, err := s.graph.Get(ctx, "me/accounts", auth)
	if err != nil {
		return nil, fmt.Errorf("fetch pages: %w", err)
	}
	pages := withID(log, pagesResp.Data())
	if len(pages) == 0 {
		log.Warn("no pages found for user")
	}
	res.Pages = make([]map[string]any, 0, len(pages))
	for _, p := range pages {
		res.Pages = append(res.Pages, map[string]any(p))
	}

	res.InstagramAccounts = make([]model.InstagramLink, 0, len(pages))
	for _, p := range pages {
		res.InstagramAccounts = append(res.InstagramAccounts, model.InstagramLink{
			PageID:      p.String("id"),
			InstagramID: s.instagramID(ctx, log, p.String("id"), auth),
		})
	}

	businesses, err := s.graph.Get(ctx, "me/businesses", auth)
	if err != nil {
		return nil, fmt.Errorf("fetch businesses: %w", err)
	}
	bizList := businesses.Data()
	if len(bizList) == 0 {
		log.Warn("no business found, onboarding required")
		res.SignupRequired = true
		return res, nil
	}

	// Only the first business is considered.
	res.WhatsAppAccounts, err = s.whatsAppAccounts(ctx, bizList[0].String("id"), auth)
	if err != nil {
		return nil, err
	}

	var wabaID, phoneID *string
	if len(res.WhatsAppAccounts) > 0 {
		first := res.WhatsAppAccounts[0]
		wabaID = &first.WABAID
		phoneID = first.FirstPhoneNumberID()
	}

	for i, p := range pages {
		page := &model.Page{
			PageID:                p.String("id"),
			AccountID:             account.ID,
			Name:                  p.String("name"),
			AccessToken:           optional(p.String("access_token")),
			InstagramID:           res.InstagramAccounts[i].InstagramID,
			WhatsAppID:            wabaID,
			WhatsAppPhoneNumberID: phoneID,
		}
		stored, err := s.pages.Upsert(ctx, page)
		if err != nil {
			log.Error("store page failed, skipping", zap.String("page_id", page.PageID), zap.Error(err))
			metrics.PageUpserts.WithLabelValues("failed").Inc()
			res.Failed = append(res.Failed, page.PageID)
			continue
		}
		metrics.PageUpserts.WithLabelValues("ok").Inc()
		res.Persisted = append(res.Persisted, *stored)
	}

	log.Info("discovery complete",
		zap.Int("pages", len(pages)),
		zap.Int("persisted", len(res.Persisted)),
		zap.Int("failed", len(res.Failed)),
		zap.Int("whatsapp_accounts", len(res.WhatsAppAccounts)),
	)
	return res, nil
}

// exchange calls the token endpoint and returns the access_token field.
func (s *DiscoveryImpl) exchange(ctx context.Context, stage string, params url.Values) (string, error) {
	resp, err := s.graph.Get(ctx, "oauth/access_token", params)
	if err != nil {
		s.log.Error("token exchange failed", zap.String("stage", stage), zap.Error(err))
		if body, ok := apiErrorBody(err); ok {
			return "", &errs.TokenExchangeError{Stage: stage, Payload: body}
		}
		return "", fmt.Errorf("%s token exchange: %w", stage, err)
	}
	tok := resp.String("access_token")
	if tok == "" {
		s.log.Error("token exchange returned no token", zap.String("stage", stage))
		return "", &errs.TokenExchangeError{Stage: stage, Payload: resp.Raw()}
	}
	return tok, nil
}

// instagramID resolves the page's linked instagram business account; failures yield nil.
func (s *DiscoveryImpl) instagramID(ctx context.Context, log *zap.Logger, pageID string, auth url.Values) *string {
	params := url.Values{"fields": {"instagram_business_account"}}
	for k, v := range auth {
		params[k] = v
	}
	resp, err := s.graph.Get(ctx, url.PathEscape(pageID), params)
	if err != nil {
		log.Warn("instagram lookup failed", zap.String("page_id", pageID), zap.Error(err))
		return nil
	}
	return optional(resp.Object("instagram_business_account").String("id"))
}

func (s *DiscoveryImpl) whatsAppAccounts(ctx context.Context, businessID string, auth url.Values) ([]model.WhatsAppAccount, error) {
	wabas, err := s.graph.Get(ctx, url.PathEscape(businessID)+"/owned_whatsapp_business_accounts", auth)
	if err != nil {
		return nil, fmt.Errorf("fetch whatsapp business accounts: %w", err)
	}
	var out []model.WhatsAppAccount
	for _, w := range wabas.Data() {
		id := w.String("id")
		if id == "" {
			continue
		}
		phones, err := s.graph.Get(ctx, url.PathEscape(id)+"/phone_numbers", auth)
		if err != nil {
			return nil, fmt.Errorf("fetch phone numbers of %s: %w", id, err)
		}
		acc := model.WhatsAppAccount{WABAID: id, PhoneNumbers: []map[string]any{}}
		for _, ph := range phones.Data() {
			acc.PhoneNumbers = append(acc.PhoneNumbers, map[string]any(ph))
		}
		out = append(out, acc)
	}
	return out, nil
}

// apiErrorBody extracts the raw body of a platform error response.
// Transport failures are not platform answers and are reported as plain errors.
func apiErrorBody(err error) ([]byte, bool) {
	var apiErr *graph.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body, true
	}
	return nil, false
}

// withID drops elements that carry no id; nothing can be looked up or stored for them.
func withID(log *zap.Logger, objs []graph.Object) []graph.Object {
	out := objs[:0]
	for _, o := range objs {
		if o.String("id") == "" {
			log.Warn("skipping page without id", zap.String("name", o.String("name")))
			continue
		}
		out = append(out, o)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func outcome(res *model.Discovery, err error) string {
	var te *errs.TokenExchangeError
	var ie *errs.IdentityResolutionError
	switch {
	case err == nil && res != nil && res.SignupRequired:
		return metrics.OutcomeSignup
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &te):
		return metrics.OutcomeTokenError
	case errors.As(err, &ie):
		return metrics.OutcomeIdentityError
	default:
		return metrics.OutcomeError
	}
}
