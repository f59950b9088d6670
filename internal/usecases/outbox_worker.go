package usecases

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"dmasistan/internal/interfaces"
)

// OutboxWorker re-delivers outbound rows that stayed pending: throttled
// sends, transient Graph API failures, crashes between persist and
// send. It runs on a cron schedule and only touches rows older than the
// grace period, so it never races the in-flight first attempt.
type OutboxWorker struct {
	messages    interfaces.MessageLedger
	platforms   interfaces.PlatformStore
	dispatcher  *Dispatcher
	grace       time.Duration
	maxAttempts int
	batchSize   int
	cron        *cron.Cron
	log         zerolog.Logger
}

func NewOutboxWorker(messages interfaces.MessageLedger, platforms interfaces.PlatformStore,
	dispatcher *Dispatcher, grace time.Duration, maxAttempts, batchSize int, log zerolog.Logger) *OutboxWorker {
	return &OutboxWorker{
		messages:    messages,
		platforms:   platforms,
		dispatcher:  dispatcher,
		grace:       grace,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		log:         log.With().Str("component", "outbox_worker").Logger(),
	}
}

// Start registers the sweep on the given schedule and starts the cron
// scheduler. Returns an error only for an invalid schedule spec.
func (w *OutboxWorker) Start(schedule string) error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(schedule, func() {
		w.Sweep(context.Background())
	}); err != nil {
		return err
	}
	w.cron.Start()
	w.log.Info().Str("schedule", schedule).Msg("outbox worker started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (w *OutboxWorker) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

// Sweep retries one batch of overdue pending messages.
func (w *OutboxWorker) Sweep(ctx context.Context) {
	pending, err := w.messages.ListPendingOutbound(ctx, w.grace, w.maxAttempts, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("pending scan failed")
		return
	}
	if len(pending) == 0 {
		return
	}
	w.log.Info().Int("count", len(pending)).Msg("retrying pending deliveries")

	for i := range pending {
		msg := &pending[i]
		conn, err := w.platforms.FindByTenantAndPlatform(ctx, msg.TenantID, msg.Platform)
		if err != nil {
			w.log.Error().Err(err).Str("message_id", msg.ID).Msg("connection lookup failed")
			continue
		}
		if conn == nil || !conn.IsActive {
			// The tenant disconnected; this message can never be sent.
			w.log.Warn().Str("message_id", msg.ID).Msg("connection gone, marking failed")
			if err := w.messages.MarkDeliveryFailed(ctx, msg.ID); err != nil {
				w.log.Error().Err(err).Str("message_id", msg.ID).Msg("mark failed errored")
			}
			continue
		}
		if err := w.dispatcher.Deliver(ctx, msg, msg.SenderID, conn.WhatsAppPhoneNumberID(), conn.AccessToken); err != nil {
			w.log.Warn().Err(err).Str("message_id", msg.ID).Msg("retry failed, will try again")
		}
	}
}
