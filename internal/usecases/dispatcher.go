package usecases

import (
	"context"

	"github.com/rs/zerolog"

	"dmasistan/internal/entities"
	"dmasistan/internal/infrastructure"
	"dmasistan/internal/interfaces"
)

// Dispatcher pushes outbound ledger rows to the provider and keeps the
// delivery bookkeeping straight. Sends are throttled per conversation;
// a throttled or failed row stays pending for the outbox worker.
type Dispatcher struct {
	sender      interfaces.ReplySender
	messages    interfaces.MessageLedger
	limiter     *infrastructure.MessageRateLimiter
	maxAttempts int
	log         zerolog.Logger
}

func NewDispatcher(sender interfaces.ReplySender, messages interfaces.MessageLedger,
	limiter *infrastructure.MessageRateLimiter, maxAttempts int, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:      sender,
		messages:    messages,
		limiter:     limiter,
		maxAttempts: maxAttempts,
		log:         log.With().Str("component", "dispatcher").Logger(),
	}
}

// Deliver sends one pending outbound message. recipientID is the
// external contact id; phoneNumberID is required for WhatsApp only.
func (d *Dispatcher) Deliver(ctx context.Context, msg *entities.Message, recipientID, phoneNumberID, accessToken string) error {
	key := msg.TenantID + ":" + recipientID
	if !d.limiter.Allow(key) {
		d.log.Warn().
			Str("message_id", msg.ID).
			Dur("retry_in", d.limiter.WaitTime(key)).
			Msg("send throttled, leaving pending")
		return nil
	}

	var err error
	if msg.Platform == entities.PlatformWhatsApp {
		err = d.sender.SendWhatsAppText(ctx, phoneNumberID, recipientID, msg.Content, accessToken)
	} else {
		err = d.sender.SendMessengerText(ctx, recipientID, msg.Content, accessToken)
	}

	if err != nil {
		d.log.Error().Err(err).
			Str("message_id", msg.ID).
			Str("platform", msg.Platform).
			Int("attempts", msg.DeliveryAttempts+1).
			Msg("delivery failed")
		if recErr := d.messages.RecordAttempt(ctx, msg.ID); recErr != nil {
			return recErr
		}
		if msg.DeliveryAttempts+1 >= d.maxAttempts {
			return d.messages.MarkDeliveryFailed(ctx, msg.ID)
		}
		return err
	}

	d.log.Info().
		Str("message_id", msg.ID).
		Str("platform", msg.Platform).
		Msg("reply delivered")
	return d.messages.MarkDelivered(ctx, msg.ID)
}
