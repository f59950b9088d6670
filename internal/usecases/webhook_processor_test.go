package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmasistan/internal/entities"
	"dmasistan/internal/infrastructure"
)

type processorFixture struct {
	platforms     *fakePlatforms
	conversations *fakeConversations
	messages      *fakeMessages
	sender        *fakeSender
	ai            *fakeAI
	usage         *fakeUsage
	settings      *fakeSettings
	profiles      *fakeProfiles
	readMarker    *fakeReadMarker
	processor     *WebhookProcessor
}

func newProcessorFixture(conn *entities.PlatformConnection) *processorFixture {
	f := &processorFixture{
		platforms:     &fakePlatforms{conn: conn},
		conversations: &fakeConversations{},
		messages:      &fakeMessages{},
		sender:        &fakeSender{},
		ai:            &fakeAI{reply: "Elbette, hemen yardımcı oluyorum."},
		usage:         &fakeUsage{usage: entities.DailyUsage{Plan: "free"}},
		settings:      &fakeSettings{},
		profiles:      &fakeProfiles{name: "Mehmet"},
		readMarker:    &fakeReadMarker{},
	}
	cfg := testConfig()
	responder := NewResponder(f.ai, f.settings, f.messages, f.usage, cfg, zerolog.Nop())
	limiter := infrastructure.NewMessageRateLimiter(100, 100)
	dispatcher := NewDispatcher(f.sender, f.messages, limiter, 5, zerolog.Nop())
	f.processor = NewWebhookProcessor(f.platforms, f.conversations, f.messages,
		responder, dispatcher, f.profiles, f.readMarker, zerolog.Nop())
	return f
}

func instagramConn() *entities.PlatformConnection {
	return &entities.PlatformConnection{
		TenantID:    "tenant-1",
		Platform:    entities.PlatformInstagram,
		AccountID:   "ig-account-1",
		AccessToken: "ig-token",
		IsActive:    true,
	}
}

func whatsappConn() *entities.PlatformConnection {
	return &entities.PlatformConnection{
		TenantID:     "tenant-1",
		Platform:     entities.PlatformWhatsApp,
		AccountID:    "waba-1",
		AccessToken:  "wa-token",
		IsActive:     true,
		PlatformData: map[string]interface{}{"waba_id": "pn-stored"},
	}
}

func TestProcessEventInstagramEndToEnd(t *testing.T) {
	f := newProcessorFixture(instagramConn())

	err := f.processor.ProcessEvent(context.Background(), entities.InboundEvent{
		Platform:          entities.PlatformInstagram,
		ExternalAccountID: "ig-account-1",
		SenderID:          "cust-1",
		Text:              "Fiyat nedir?",
	})
	require.NoError(t, err)

	// Conversation created with the fetched profile name.
	require.NotNil(t, f.conversations.created)
	assert.Equal(t, "tenant-1", f.conversations.created.TenantID)
	assert.Equal(t, "Mehmet", f.conversations.created.ContactName)
	assert.Equal(t, 1, f.profiles.calls)

	// Both ledger rows persisted.
	require.Len(t, f.messages.appended, 2)
	inbound, outbound := f.messages.appended[0], f.messages.appended[1]
	assert.Equal(t, entities.DirectionInbound, inbound.Direction)
	assert.False(t, inbound.IsAI)
	assert.Equal(t, entities.DeliveryNone, inbound.DeliveryStatus)
	assert.Equal(t, entities.DirectionOutbound, outbound.Direction)
	assert.True(t, outbound.IsAI)
	assert.Equal(t, "Elbette, hemen yardımcı oluyorum.", outbound.Content)

	// Reply went out through the Messenger send API and was marked sent.
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "messenger", f.sender.sent[0].platform)
	assert.Equal(t, "cust-1", f.sender.sent[0].recipient)
	assert.Equal(t, "ig-token", f.sender.sent[0].token)
	assert.Equal(t, []string{outbound.ID}, f.messages.delivered)

	// Conversation preview touched for both directions, quota counted once.
	assert.Equal(t, []string{"Fiyat nedir?", "Elbette, hemen yardımcı oluyorum."}, f.conversations.touched)
	assert.Equal(t, 1, f.usage.increments)
}

func TestProcessEventWhatsApp(t *testing.T) {
	f := newProcessorFixture(whatsappConn())

	err := f.processor.ProcessEvent(context.Background(), entities.InboundEvent{
		Platform:          entities.PlatformWhatsApp,
		ExternalAccountID: "pn-7",
		SenderID:          "905551112233",
		SenderName:        "Ayşe",
		Text:              "Siparişim nerede?",
		ProviderMessageID: "wamid.1",
		PhoneNumberID:     "pn-7",
	})
	require.NoError(t, err)

	// WhatsApp carries the profile name in the payload, no Graph lookup.
	assert.Zero(t, f.profiles.calls)
	assert.Equal(t, "Ayşe", f.conversations.created.ContactName)

	// Inbound message marked read against the receiving number.
	require.Len(t, f.readMarker.calls, 1)
	assert.Equal(t, readCall{phoneNumberID: "pn-7", messageID: "wamid.1"}, f.readMarker.calls[0])

	// Reply routed through the Cloud API with the webhook's phone number id.
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "whatsapp", f.sender.sent[0].platform)
	assert.Equal(t, "pn-7", f.sender.sent[0].phoneNumberID)
	assert.Equal(t, "905551112233", f.sender.sent[0].recipient)
}

func TestProcessEventNoConnection(t *testing.T) {
	f := newProcessorFixture(nil)

	err := f.processor.ProcessEvent(context.Background(), entities.InboundEvent{
		Platform: entities.PlatformInstagram,
		SenderID: "cust-1",
		Text:     "Merhaba",
	})
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.Empty(t, f.messages.appended)
	assert.Empty(t, f.sender.sent)
}

func TestProcessEventAssistantDisabled(t *testing.T) {
	f := newProcessorFixture(instagramConn())
	f.settings.settings = &entities.AISettings{IsActive: false}

	err := f.processor.ProcessEvent(context.Background(), entities.InboundEvent{
		Platform: entities.PlatformInstagram,
		SenderID: "cust-1",
		Text:     "Merhaba",
	})
	require.NoError(t, err)

	// Inbound stored, nothing generated or sent.
	require.Len(t, f.messages.appended, 1)
	assert.Equal(t, entities.DirectionInbound, f.messages.appended[0].Direction)
	assert.Zero(t, f.ai.calls)
	assert.Empty(t, f.sender.sent)
}

func TestProcessEventKeepsProviderSendTime(t *testing.T) {
	f := newProcessorFixture(instagramConn())
	sentAt := time.UnixMilli(1714000000123)

	err := f.processor.ProcessEvent(context.Background(), entities.InboundEvent{
		Platform: entities.PlatformInstagram,
		SenderID: "cust-1",
		Text:     "Merhaba",
		SentAt:   sentAt,
	})
	require.NoError(t, err)

	// The inbound ledger row carries the provider's send time, not ours.
	require.Len(t, f.messages.appended, 2)
	assert.Equal(t, sentAt, f.messages.appended[0].CreatedAt)
}

func TestProcessEventQuotaExhausted(t *testing.T) {
	f := newProcessorFixture(instagramConn())
	f.usage.usage.MessageCount = 20

	err := f.processor.ProcessEvent(context.Background(), entities.InboundEvent{
		Platform: entities.PlatformInstagram,
		SenderID: "cust-1",
		Text:     "Merhaba",
	})
	require.NoError(t, err)

	// The customer message is kept even when no reply goes out.
	require.Len(t, f.messages.appended, 1)
	assert.Empty(t, f.sender.sent)
	assert.Zero(t, f.usage.increments)
}

func TestInvokeAIReplyExistingConversation(t *testing.T) {
	f := newProcessorFixture(instagramConn())
	f.conversations.existing = &entities.Conversation{
		ID:       "conv-1",
		TenantID: "tenant-1",
		Platform: entities.PlatformInstagram,
		SenderID: "cust-1",
		Status:   entities.ConversationOpen,
	}

	result, err := f.processor.InvokeAIReply(context.Background(), "tenant-1", "conv-1",
		entities.PlatformInstagram, "cust-1", "Mehmet", "Fiyat nedir?")
	require.NoError(t, err)

	assert.Equal(t, "Elbette, hemen yardımcı oluyorum.", result.Reply)
	assert.Equal(t, "conv-1", result.ConversationID)
	assert.Equal(t, entities.QuotaStatus{Total: 20, Used: 1}, result.Usage)

	// Caller owns delivery: outbound row stays out of the outbox.
	outbound := f.messages.outbound()
	require.Len(t, outbound, 1)
	assert.Equal(t, entities.DeliveryNone, outbound[0].DeliveryStatus)
	assert.Equal(t, outbound[0].ID, result.MessageID)
	assert.Empty(t, f.sender.sent)
}

func TestInvokeAIReplyAssistantDisabled(t *testing.T) {
	f := newProcessorFixture(instagramConn())
	f.settings.settings = &entities.AISettings{IsActive: false}
	f.conversations.existing = &entities.Conversation{
		ID: "conv-1", TenantID: "tenant-1", Platform: entities.PlatformInstagram, SenderID: "cust-1",
	}

	result, err := f.processor.InvokeAIReply(context.Background(), "tenant-1", "conv-1",
		entities.PlatformInstagram, "cust-1", "Mehmet", "Fiyat nedir?")
	assert.ErrorIs(t, err, ErrAssistantDisabled)
	assert.Nil(t, result)

	// Disabled means nothing happens: no model call, no ledger rows,
	// no quota charge.
	assert.Zero(t, f.ai.calls)
	assert.Empty(t, f.messages.appended)
	assert.Zero(t, f.usage.increments)
}

func TestInvokeAIReplyQuotaError(t *testing.T) {
	f := newProcessorFixture(instagramConn())
	f.usage.usage.MessageCount = 20
	f.conversations.existing = &entities.Conversation{
		ID: "conv-1", TenantID: "tenant-1", Platform: entities.PlatformInstagram, SenderID: "cust-1",
	}

	_, err := f.processor.InvokeAIReply(context.Background(), "tenant-1", "conv-1",
		entities.PlatformInstagram, "cust-1", "", "Merhaba")
	var rle *RateLimitError
	assert.ErrorAs(t, err, &rle)
}

func TestSendManual(t *testing.T) {
	f := newProcessorFixture(instagramConn())
	f.conversations.existing = &entities.Conversation{
		ID:       "conv-1",
		TenantID: "tenant-1",
		Platform: entities.PlatformInstagram,
		SenderID: "cust-1",
	}

	msg, err := f.processor.SendManual(context.Background(), "tenant-1", "conv-1", "Kargonuz yola çıktı.")
	require.NoError(t, err)

	assert.Equal(t, entities.DirectionOutbound, msg.Direction)
	assert.False(t, msg.IsAI)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "cust-1", f.sender.sent[0].recipient)
	assert.Equal(t, []string{msg.ID}, f.messages.delivered)
	// Operator messages bypass the AI quota.
	assert.Zero(t, f.usage.increments)
}

func TestSendManualUnknownConversation(t *testing.T) {
	f := newProcessorFixture(instagramConn())
	_, err := f.processor.SendManual(context.Background(), "tenant-1", "missing", "selam")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSendManualDisconnectedPlatform(t *testing.T) {
	conn := instagramConn()
	conn.IsActive = false
	f := newProcessorFixture(conn)
	f.conversations.existing = &entities.Conversation{
		ID: "conv-1", TenantID: "tenant-1", Platform: entities.PlatformInstagram, SenderID: "cust-1",
	}

	_, err := f.processor.SendManual(context.Background(), "tenant-1", "conv-1", "selam")
	assert.ErrorIs(t, err, ErrNoConnection)
}
