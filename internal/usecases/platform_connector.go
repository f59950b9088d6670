package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dmasistan/internal/entities"
	"dmasistan/internal/infrastructure"
	"dmasistan/internal/interfaces"
)

// PlatformConnector runs the OAuth connection flow: swap the code for a
// token, upgrade it to the long-lived variant, discover the account,
// persist the connection, and subscribe page webhooks.
type PlatformConnector struct {
	meta      *infrastructure.MetaClient
	platforms interfaces.PlatformStore
	log       zerolog.Logger
}

func NewPlatformConnector(meta *infrastructure.MetaClient, platforms interfaces.PlatformStore, log zerolog.Logger) *PlatformConnector {
	return &PlatformConnector{
		meta:      meta,
		platforms: platforms,
		log:       log.With().Str("component", "platform_connector").Logger(),
	}
}

// Connect exchanges an OAuth code and stores the resulting connection
// for the tenant. Long-lived token upgrade and webhook subscription are
// best effort; the short-lived token and a manual subscription still
// yield a working connection.
func (c *PlatformConnector) Connect(ctx context.Context, tenantID, platform, code, redirectURI string) (*entities.PlatformConnection, error) {
	if !entities.KnownPlatform(platform) {
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}

	token, err := c.meta.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	if longLived, err := c.meta.ExchangeLongLivedToken(ctx, token); err == nil {
		token = longLived
	} else {
		c.log.Warn().Err(err).Str("platform", platform).Msg("long-lived token upgrade failed, keeping short-lived")
	}

	var account *infrastructure.OAuthAccount
	switch platform {
	case entities.PlatformInstagram:
		account, err = c.meta.FetchInstagramAccount(ctx, token)
	case entities.PlatformFacebook:
		account, err = c.meta.FetchFacebookPage(ctx, token)
	case entities.PlatformWhatsApp:
		account, err = c.meta.FetchWhatsAppAccount(ctx, token)
	}
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(60 * 24 * time.Hour)
	conn := &entities.PlatformConnection{
		TenantID:       tenantID,
		Platform:       platform,
		AccountID:      account.AccountID,
		AccountName:    account.AccountName,
		AccessToken:    account.AccessToken,
		TokenExpiresAt: &expiresAt,
		IsActive:       true,
		PlatformData:   account.PlatformData,
	}
	if err := c.platforms.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("store connection: %w", err)
	}

	if platform == entities.PlatformInstagram || platform == entities.PlatformFacebook {
		pageID := account.AccountID
		if v, ok := account.PlatformData["page_id"].(string); ok && v != "" {
			pageID = v
		}
		if err := c.meta.SubscribePageWebhooks(ctx, pageID, account.AccessToken); err != nil {
			c.log.Warn().Err(err).Str("page_id", pageID).Msg("webhook subscription failed")
		}
	}

	c.log.Info().
		Str("tenant_id", tenantID).
		Str("platform", platform).
		Str("account_id", account.AccountID).
		Msg("platform connected")
	return conn, nil
}
