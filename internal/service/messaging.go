package service

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/and161185/graph-connector/internal/errs"
	"github.com/and161185/graph-connector/internal/graph"
	"github.com/and161185/graph-connector/internal/model"
	"github.com/and161185/graph-connector/internal/repository"
)

// GraphWriter is the write side of the platform client.
type GraphWriter interface {
	PostJSON(ctx context.Context, path, token string, body any) (graph.Object, error)
}

// Messaging uses stored credentials for outbound messages.
type Messaging interface {
	// SendTest sends one text message from channelEndpointID to recipient with the account's token.
	SendTest(ctx context.Context, fbUserID, channelEndpointID, recipient string) (graph.Object, error)
	// Channels lists the pages, and their messaging identifiers, owned by an account.
	Channels(ctx context.Context, fbUserID string) ([]model.Page, error)
}

type MessagingImpl struct {
	graph    GraphWriter
	accounts repository.AccountRepository
	pages    repository.PageRepository
	text     string
	log      *zap.Logger
}

// NewMessaging constructs Messaging; text is the body of test messages.
func NewMessaging(g GraphWriter, accounts repository.AccountRepository, pages repository.PageRepository,
	text string, log *zap.Logger) *MessagingImpl {
	return &MessagingImpl{graph: g, accounts: accounts, pages: pages, text: text, log: log.Named("messaging")}
}

// SendTest validates input, loads the selected account and posts a WhatsApp text message.
func (s *MessagingImpl) SendTest(ctx context.Context, fbUserID, channelEndpointID, recipient string) (graph.Object, error) {
	if fbUserID == "" || channelEndpointID == "" || recipient == "" {
		return nil, fmt.Errorf("validation: account_id/channel_endpoint_id/recipient: %w", errs.ErrInvalidArgument)
	}
	acc, err := s.accounts.GetByFBUserID(ctx, fbUserID)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "text",
		"text":              map[string]string{"body": s.text},
	}
	resp, err := s.graph.PostJSON(ctx, url.PathEscape(channelEndpointID)+"/messages", acc.LongLivedToken, body)
	if err != nil {
		s.log.Error("send test message failed",
			zap.String("fb_user_id", fbUserID),
			zap.String("channel_endpoint_id", channelEndpointID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("send message: %w", err)
	}
	return resp, nil
}

// Channels returns the stored pages of the account identified by fbUserID.
func (s *MessagingImpl) Channels(ctx context.Context, fbUserID string) ([]model.Page, error) {
	if fbUserID == "" {
		return nil, fmt.Errorf("validation: empty account id: %w", errs.ErrInvalidArgument)
	}
	acc, err := s.accounts.GetByFBUserID(ctx, fbUserID)
	if err != nil {
		return nil, err
	}
	return s.pages.ListByAccount(ctx, acc.ID)
}
