package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"dmasistan/internal/config"
	"dmasistan/internal/entities"
	"dmasistan/internal/infrastructure"
	"dmasistan/internal/interfaces"
)

// RateLimitError reports a tenant that exhausted today's reply quota.
type RateLimitError struct {
	Used  int
	Limit int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("daily reply quota exhausted (%d/%d)", e.Used, e.Limit)
}

// Responder turns an inbound customer message into an assistant reply,
// enforcing the tenant's daily quota and counting every generated
// reply, fallbacks included.
type Responder struct {
	ai       interfaces.AIClient
	settings interfaces.AISettingsStore
	messages interfaces.MessageLedger
	usage    interfaces.UsageStore
	cfg      config.Config
	log      zerolog.Logger
}

func NewResponder(ai interfaces.AIClient, settings interfaces.AISettingsStore,
	messages interfaces.MessageLedger, usage interfaces.UsageStore,
	cfg config.Config, log zerolog.Logger) *Responder {
	return &Responder{
		ai:       ai,
		settings: settings,
		messages: messages,
		usage:    usage,
		cfg:      cfg,
		log:      log.With().Str("component", "responder").Logger(),
	}
}

// GenerateReply produces the assistant reply for a conversation. The
// quota is checked before any model call; an exhausted quota returns
// *RateLimitError and no reply. The conversation window is read after
// the inbound message is persisted, so the model sees it as history.
func (r *Responder) GenerateReply(ctx context.Context, tenantID, conversationID, userMessage string) (string, entities.QuotaStatus, error) {
	usage, err := r.usage.Today(ctx, tenantID)
	if err != nil {
		return "", entities.QuotaStatus{}, fmt.Errorf("quota lookup: %w", err)
	}
	limit := r.cfg.DailyLimit(usage.Plan)
	quota := entities.QuotaStatus{Total: limit, Used: usage.MessageCount}
	if usage.MessageCount >= limit {
		return "", quota, &RateLimitError{Used: usage.MessageCount, Limit: limit}
	}

	settings, err := r.settings.Get(ctx, tenantID)
	if err != nil {
		return "", quota, fmt.Errorf("settings lookup: %w", err)
	}

	window, err := r.messages.RecentWindow(ctx, conversationID, r.cfg.HistoryWindow)
	if err != nil {
		return "", quota, fmt.Errorf("history lookup: %w", err)
	}
	history := make([]entities.ChatTurn, 0, len(window))
	for _, m := range window {
		history = append(history, entities.ChatTurn{Role: m.ChatRole(), Content: m.Content})
	}

	reply, err := r.ai.Complete(ctx, BuildSystemPrompt(settings), history, userMessage)
	switch {
	case errors.Is(err, infrastructure.ErrMissingAPIKey):
		r.log.Warn().Str("tenant_id", tenantID).Msg("no model credentials, using canned reply")
		reply = cannedReply(settings)
	case err != nil:
		r.log.Error().Err(err).Str("tenant_id", tenantID).Msg("model call failed")
		reply = "Özür dilerim, sistemde geçici bir yoğunluk var. En kısa sürede size dönüş yapacağız."
	}
	if reply == "" {
		reply = "Üzgünüm, şu an yanıt veremiyorum."
	}

	if err := r.usage.Increment(ctx, tenantID); err != nil {
		r.log.Error().Err(err).Str("tenant_id", tenantID).Msg("usage increment failed")
	}
	quota.Used++

	return reply, quota, nil
}

// Active reports whether the tenant's assistant should reply at all.
// Missing settings default to active.
func (r *Responder) Active(ctx context.Context, tenantID string) (bool, error) {
	settings, err := r.settings.Get(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return settings == nil || settings.IsActive, nil
}

var toneInstructions = map[string]string{
	entities.ToneProfessional: "Profesyonel ve nazik bir dil kullan.",
	entities.ToneFriendly:     "Samimi ve sıcak bir dil kullan, emoji kullanabilirsin.",
	entities.ToneFormal:       "Resmi ve kurumsal bir dil kullan.",
	entities.ToneCasual:       "Günlük ve rahat bir dil kullan.",
}

// BuildSystemPrompt renders the per-tenant system prompt. Nil settings
// get the stock persona.
func BuildSystemPrompt(settings *entities.AISettings) string {
	businessName := "İşletme"
	tone := entities.ToneProfessional
	language := "tr"
	customPrompt := ""
	if settings != nil {
		if settings.BusinessName != "" {
			businessName = settings.BusinessName
		}
		if settings.Tone != "" {
			tone = settings.Tone
		}
		if settings.Language != "" {
			language = settings.Language
		}
		customPrompt = settings.CustomPrompt
	}

	toneLine, ok := toneInstructions[tone]
	if !ok {
		toneLine = toneInstructions[entities.ToneProfessional]
	}
	languageName := "İngilizce"
	if language == "tr" {
		languageName = "Türkçe"
	}

	prompt := fmt.Sprintf(`Sen %s adlı işletmenin müşteri hizmetleri AI asistanısın.
Dil: %s
Ton: %s
Görevin: Müşteri sorularını yanıtlamak, ürün/hizmet bilgisi vermek, satışa yönlendirmek.
Kısa ve öz cevaplar ver. 2-3 cümleyi geçme.`, businessName, languageName, toneLine)
	if customPrompt != "" {
		prompt += "\nEk Talimatlar: " + customPrompt
	}
	prompt += `
Eğer sormak istediğin bir şey varsa sadece 1 soru sor.
Asla uydurma bilgi verme; bilmiyorsan "Bu konuda size daha iyi yardımcı olmak için sizi ekibimizle buluşturayım." de.`
	return prompt
}

func cannedReply(settings *entities.AISettings) string {
	businessName := "işletmemiz"
	if settings != nil && settings.BusinessName != "" {
		businessName = settings.BusinessName
	}
	return fmt.Sprintf("Merhaba! %s adına mesajınız için teşekkürler. Ekibimiz en kısa sürede size dönüş yapacak.", businessName)
}
