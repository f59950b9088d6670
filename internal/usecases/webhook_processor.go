package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"dmasistan/internal/entities"
	"dmasistan/internal/interfaces"
)

// ErrNoConnection means no active platform connection could be resolved
// for an event or send.
var ErrNoConnection = errors.New("no active platform connection")

// ErrConversationNotFound is returned for sends into unknown threads.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrAssistantDisabled means the tenant turned the assistant off;
// nothing is persisted and no quota is charged.
var ErrAssistantDisabled = errors.New("assistant is disabled")

// WebhookProcessor runs the inbound pipeline: resolve tenant, persist
// the customer message, generate the assistant reply, hand it to the
// dispatcher. Each event is processed independently; one bad event
// never fails the webhook delivery.
type WebhookProcessor struct {
	platforms     interfaces.PlatformStore
	conversations interfaces.ConversationStore
	messages      interfaces.MessageLedger
	responder     *Responder
	dispatcher    *Dispatcher
	profiles      interfaces.ProfileFetcher
	readMarker    interfaces.ReadMarker
	log           zerolog.Logger
}

func NewWebhookProcessor(platforms interfaces.PlatformStore, conversations interfaces.ConversationStore,
	messages interfaces.MessageLedger, responder *Responder, dispatcher *Dispatcher,
	profiles interfaces.ProfileFetcher, readMarker interfaces.ReadMarker, log zerolog.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		platforms:     platforms,
		conversations: conversations,
		messages:      messages,
		responder:     responder,
		dispatcher:    dispatcher,
		profiles:      profiles,
		readMarker:    readMarker,
		log:           log.With().Str("component", "webhook_processor").Logger(),
	}
}

// ProcessEvent handles one normalized inbound message end to end.
func (p *WebhookProcessor) ProcessEvent(ctx context.Context, ev entities.InboundEvent) error {
	conn, err := p.platforms.FindActiveByPlatform(ctx, ev.Platform)
	if err != nil {
		return fmt.Errorf("tenant resolution: %w", err)
	}
	if conn == nil {
		p.log.Warn().
			Str("platform", ev.Platform).
			Str("sender_id", ev.SenderID).
			Msg("dropping event, no active connection")
		return ErrNoConnection
	}

	senderName := ev.SenderName
	if senderName == "" && ev.Platform != entities.PlatformWhatsApp {
		// Best effort; a nameless contact is still a contact.
		if name, err := p.profiles.FetchSenderName(ctx, ev.SenderID, conn.AccessToken); err == nil {
			senderName = name
		}
	}
	if senderName == "" {
		senderName = ev.SenderID
	}

	conv, err := p.conversations.FindOrCreateOpen(ctx, conn.TenantID, ev.Platform, ev.SenderID, senderName)
	if err != nil {
		return fmt.Errorf("conversation upsert: %w", err)
	}

	inbound := &entities.Message{
		ConversationID: conv.ID,
		TenantID:       conn.TenantID,
		Content:        ev.Text,
		Direction:      entities.DirectionInbound,
		Platform:       ev.Platform,
		SenderID:       ev.SenderID,
		CreatedAt:      ev.SentAt,
	}
	if err := p.messages.Append(ctx, inbound); err != nil {
		return fmt.Errorf("persist inbound: %w", err)
	}
	if err := p.conversations.Touch(ctx, conv.ID, ev.Text); err != nil {
		p.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("conversation touch failed")
	}

	if ev.Platform == entities.PlatformWhatsApp && ev.ProviderMessageID != "" {
		if err := p.readMarker.MarkWhatsAppRead(ctx, ev.PhoneNumberID, ev.ProviderMessageID, conn.AccessToken); err != nil {
			p.log.Warn().Err(err).Msg("mark-read failed")
		}
	}

	active, err := p.responder.Active(ctx, conn.TenantID)
	if err != nil {
		return fmt.Errorf("settings lookup: %w", err)
	}
	if !active {
		p.log.Info().Str("tenant_id", conn.TenantID).Msg("assistant disabled, no auto reply")
		return nil
	}

	reply, _, err := p.responder.GenerateReply(ctx, conn.TenantID, conv.ID, ev.Text)
	if err != nil {
		var rle *RateLimitError
		if errors.As(err, &rle) {
			p.log.Warn().
				Str("tenant_id", conn.TenantID).
				Int("used", rle.Used).
				Int("limit", rle.Limit).
				Msg("daily quota exhausted, message stored without reply")
			return nil
		}
		return fmt.Errorf("generate reply: %w", err)
	}

	// SenderID on outbound rows holds the external contact id so the
	// outbox worker can retry without a conversation lookup.
	outbound := &entities.Message{
		ConversationID: conv.ID,
		TenantID:       conn.TenantID,
		Content:        reply,
		Direction:      entities.DirectionOutbound,
		IsAI:           true,
		Platform:       ev.Platform,
		SenderID:       ev.SenderID,
		DeliveryStatus: entities.DeliveryPending,
	}
	if err := p.messages.Append(ctx, outbound); err != nil {
		return fmt.Errorf("persist reply: %w", err)
	}
	if err := p.conversations.Touch(ctx, conv.ID, reply); err != nil {
		p.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("conversation touch failed")
	}

	phoneNumberID := ev.PhoneNumberID
	if phoneNumberID == "" {
		phoneNumberID = conn.WhatsAppPhoneNumberID()
	}
	return p.dispatcher.Deliver(ctx, outbound, ev.SenderID, phoneNumberID, conn.AccessToken)
}

// AIReplyResult is the response of the internal reply endpoint.
type AIReplyResult struct {
	Reply          string               `json:"reply"`
	MessageID      string               `json:"message_id"`
	ConversationID string               `json:"conversation_id"`
	Usage          entities.QuotaStatus `json:"usage"`
}

// InvokeAIReply generates and persists a reply for a caller-managed
// conversation. The caller owns delivery, so the outbound row is not
// queued for dispatch. The kill switch is checked before anything is
// written: a disabled assistant returns ErrAssistantDisabled.
func (p *WebhookProcessor) InvokeAIReply(ctx context.Context, tenantID, conversationID, platform, senderID, senderName, message string) (*AIReplyResult, error) {
	active, err := p.responder.Active(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("settings lookup: %w", err)
	}
	if !active {
		return nil, ErrAssistantDisabled
	}

	conv, err := p.conversations.GetByID(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv, err = p.conversations.FindOrCreateOpen(ctx, tenantID, platform, senderID, senderName)
		if err != nil {
			return nil, err
		}
	}

	inbound := &entities.Message{
		ConversationID: conv.ID,
		TenantID:       tenantID,
		Content:        message,
		Direction:      entities.DirectionInbound,
		Platform:       conv.Platform,
		SenderID:       senderID,
	}
	if err := p.messages.Append(ctx, inbound); err != nil {
		return nil, err
	}

	reply, quota, err := p.responder.GenerateReply(ctx, tenantID, conv.ID, message)
	if err != nil {
		return nil, err
	}

	outbound := &entities.Message{
		ConversationID: conv.ID,
		TenantID:       tenantID,
		Content:        reply,
		Direction:      entities.DirectionOutbound,
		IsAI:           true,
		Platform:       conv.Platform,
		SenderID:       conv.SenderID,
	}
	if err := p.messages.Append(ctx, outbound); err != nil {
		return nil, err
	}
	if err := p.conversations.Touch(ctx, conv.ID, reply); err != nil {
		p.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("conversation touch failed")
	}

	return &AIReplyResult{
		Reply:          reply,
		MessageID:      outbound.ID,
		ConversationID: conv.ID,
		Usage:          quota,
	}, nil
}

// SendManual delivers an operator-written message into a conversation.
func (p *WebhookProcessor) SendManual(ctx context.Context, tenantID, conversationID, text string) (*entities.Message, error) {
	conv, err := p.conversations.GetByID(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	conn, err := p.platforms.FindByTenantAndPlatform(ctx, tenantID, conv.Platform)
	if err != nil {
		return nil, err
	}
	if conn == nil || !conn.IsActive {
		return nil, ErrNoConnection
	}

	msg := &entities.Message{
		ConversationID: conv.ID,
		TenantID:       tenantID,
		Content:        text,
		Direction:      entities.DirectionOutbound,
		Platform:       conv.Platform,
		SenderID:       conv.SenderID,
		DeliveryStatus: entities.DeliveryPending,
	}
	if err := p.messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	if err := p.conversations.Touch(ctx, conv.ID, text); err != nil {
		p.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("conversation touch failed")
	}

	if err := p.dispatcher.Deliver(ctx, msg, conv.SenderID, conn.WhatsAppPhoneNumberID(), conn.AccessToken); err != nil {
		// The row stays pending; the outbox worker retries it.
		p.log.Warn().Err(err).Str("message_id", msg.ID).Msg("manual send deferred to outbox")
	}
	return msg, nil
}
