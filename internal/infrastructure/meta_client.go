package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// The Graph API token exchange gets a hard timeout; the OAuth redirect
// flow is user-facing and must not hang.
const oauthExchangeTimeout = 10 * time.Second

// MetaClient talks to the Graph API: Messenger/WhatsApp Cloud sends,
// sender profile lookups, and the OAuth connection flow.
type MetaClient struct {
	appID      string
	appSecret  string
	baseURL    string
	httpClient *http.Client
}

func NewMetaClient(appID, appSecret, baseURL string) *MetaClient {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v21.0"
	}
	return &MetaClient{
		appID:      appID,
		appSecret:  appSecret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type graphError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendMessengerText posts a text reply through the Messenger Send API.
// Instagram DMs and Facebook Messenger share this endpoint.
func (m *MetaClient) SendMessengerText(ctx context.Context, recipientID, text, accessToken string) error {
	payload := map[string]interface{}{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	}
	return m.postJSON(ctx, m.baseURL+"/me/messages", payload, accessToken)
}

// SendWhatsAppText posts a text reply through the WhatsApp Business
// Cloud API using the receiving number's phone_number_id.
func (m *MetaClient) SendWhatsAppText(ctx context.Context, phoneNumberID, to, text, accessToken string) error {
	if phoneNumberID == "" {
		return errors.New("whatsapp send requires phone_number_id")
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	return m.postJSON(ctx, fmt.Sprintf("%s/%s/messages", m.baseURL, phoneNumberID), payload, accessToken)
}

// MarkWhatsAppRead flags an inbound WhatsApp message as read so the
// customer sees the blue ticks while the reply is generated.
func (m *MetaClient) MarkWhatsAppRead(ctx context.Context, phoneNumberID, messageID, accessToken string) error {
	if phoneNumberID == "" || messageID == "" {
		return nil
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	return m.postJSON(ctx, fmt.Sprintf("%s/%s/messages", m.baseURL, phoneNumberID), payload, accessToken)
}

// FetchSenderName resolves a Messenger sender id to a display name.
func (m *MetaClient) FetchSenderName(ctx context.Context, senderID, accessToken string) (string, error) {
	u := fmt.Sprintf("%s/%s?fields=name&access_token=%s", m.baseURL, senderID, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Name string `json:"name"`
		graphError
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", fmt.Errorf("graph profile error: %s", out.Error.Message)
	}
	return out.Name, nil
}

// OAuthAccount is the provider-side account discovered during the OAuth
// connection flow, ready to be stored as a platform connection.
type OAuthAccount struct {
	AccountID    string
	AccountName  string
	AccessToken  string
	PlatformData map[string]interface{}
}

// ExchangeCode swaps an OAuth code for a short-lived user access token.
func (m *MetaClient) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, oauthExchangeTimeout)
	defer cancel()

	qs := url.Values{
		"client_id":     {m.appID},
		"client_secret": {m.appSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}
	var out struct {
		AccessToken string `json:"access_token"`
		graphError
	}
	if err := m.getJSON(ctx, m.baseURL+"/oauth/access_token?"+qs.Encode(), &out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", fmt.Errorf("token exchange error: %s", out.Error.Message)
	}
	if out.AccessToken == "" {
		return "", errors.New("token exchange returned no access token")
	}
	return out.AccessToken, nil
}

// ExchangeLongLivedToken upgrades a short-lived token to the ~60 day
// variant. Failures are non-fatal; the short-lived token still works.
func (m *MetaClient) ExchangeLongLivedToken(ctx context.Context, token string) (string, error) {
	qs := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {m.appID},
		"client_secret":     {m.appSecret},
		"fb_exchange_token": {token},
	}
	var out struct {
		AccessToken string `json:"access_token"`
		graphError
	}
	if err := m.getJSON(ctx, m.baseURL+"/oauth/access_token?"+qs.Encode(), &out); err != nil {
		return "", err
	}
	if out.Error != nil || out.AccessToken == "" {
		return "", errors.New("long-lived token exchange failed")
	}
	return out.AccessToken, nil
}

// FetchInstagramAccount finds the Instagram Business account attached to
// the user's first page.
func (m *MetaClient) FetchInstagramAccount(ctx context.Context, token string) (*OAuthAccount, error) {
	u := m.baseURL + "/me/accounts?fields=id,name,instagram_business_account{id,name,username,followers_count,profile_picture_url}&access_token=" + url.QueryEscape(token)
	var out struct {
		Data []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Instagram *struct {
				ID                string `json:"id"`
				Name              string `json:"name"`
				Username          string `json:"username"`
				FollowersCount    int    `json:"followers_count"`
				ProfilePictureURL string `json:"profile_picture_url"`
			} `json:"instagram_business_account"`
		} `json:"data"`
		graphError
	}
	if err := m.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("instagram account lookup: %s", out.Error.Message)
	}
	if len(out.Data) == 0 || out.Data[0].Instagram == nil {
		return nil, errors.New("no instagram business account linked to any page")
	}
	page := out.Data[0]
	ig := page.Instagram
	name := ig.Name
	if name == "" {
		name = ig.Username
	}
	return &OAuthAccount{
		AccountID:   ig.ID,
		AccountName: name,
		AccessToken: token,
		PlatformData: map[string]interface{}{
			"instagram_account_id": ig.ID,
			"instagram_username":   ig.Username,
			"followers_count":      ig.FollowersCount,
			"profile_picture_url":  ig.ProfilePictureURL,
			"page_id":              page.ID,
			"page_name":            page.Name,
		},
	}, nil
}

// FetchFacebookPage finds the user's first page and swaps in the page
// access token, which outlives the user token.
func (m *MetaClient) FetchFacebookPage(ctx context.Context, token string) (*OAuthAccount, error) {
	u := m.baseURL + "/me/accounts?fields=id,name,access_token,category,fan_count&access_token=" + url.QueryEscape(token)
	var out struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			AccessToken string `json:"access_token"`
			Category    string `json:"category"`
			FanCount    int    `json:"fan_count"`
		} `json:"data"`
		graphError
	}
	if err := m.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("facebook page lookup: %s", out.Error.Message)
	}
	if len(out.Data) == 0 {
		return nil, errors.New("no facebook page granted during oauth")
	}
	page := out.Data[0]
	pageToken := token
	if page.AccessToken != "" {
		pageToken = page.AccessToken
	}
	return &OAuthAccount{
		AccountID:   page.ID,
		AccountName: page.Name,
		AccessToken: pageToken,
		PlatformData: map[string]interface{}{
			"page_id":   page.ID,
			"page_name": page.Name,
			"category":  page.Category,
			"fan_count": page.FanCount,
		},
	}, nil
}

// FetchWhatsAppAccount discovers the WhatsApp Business account owned by
// the authorizing user.
func (m *MetaClient) FetchWhatsAppAccount(ctx context.Context, token string) (*OAuthAccount, error) {
	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		graphError
	}
	if err := m.getJSON(ctx, m.baseURL+"/me?fields=id,name&access_token="+url.QueryEscape(token), &me); err != nil {
		return nil, err
	}
	if me.Error != nil {
		return nil, fmt.Errorf("whatsapp owner lookup: %s", me.Error.Message)
	}

	var wab struct {
		Data []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Currency string `json:"currency"`
			Timezone string `json:"timezone_id"`
		} `json:"data"`
		graphError
	}
	if err := m.getJSON(ctx, fmt.Sprintf("%s/%s/whatsapp_business_accounts?access_token=%s", m.baseURL, me.ID, url.QueryEscape(token)), &wab); err != nil {
		return nil, err
	}

	account := &OAuthAccount{
		AccountID:   me.ID,
		AccountName: me.Name,
		AccessToken: token,
		PlatformData: map[string]interface{}{
			"account_name": me.Name,
			"currency":     "TRY",
			"timezone":     "Europe/Istanbul",
		},
	}
	if len(wab.Data) > 0 {
		w := wab.Data[0]
		account.AccountID = w.ID
		if w.Name != "" {
			account.AccountName = w.Name
		}
		account.PlatformData["waba_id"] = w.ID
		account.PlatformData["account_name"] = account.AccountName
		if w.Currency != "" {
			account.PlatformData["currency"] = w.Currency
		}
		if w.Timezone != "" {
			account.PlatformData["timezone"] = w.Timezone
		}
	}
	return account, nil
}

// SubscribePageWebhooks registers message webhook fields for a page so
// Meta starts delivering DMs to the configured endpoint.
func (m *MetaClient) SubscribePageWebhooks(ctx context.Context, pageID, pageToken string) error {
	u := fmt.Sprintf("%s/%s/subscribed_apps?subscribed_fields=messages,messaging_postbacks,message_deliveries,message_reads&access_token=%s",
		m.baseURL, pageID, url.QueryEscape(pageToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook subscription failed with status %d", resp.StatusCode)
	}
	return nil
}

func (m *MetaClient) postJSON(ctx context.Context, u string, payload interface{}, accessToken string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out graphError
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && out.Error != nil {
		return fmt.Errorf("graph api error: %s", out.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("graph api status %d", resp.StatusCode)
	}
	return nil
}

func (m *MetaClient) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}
