package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dmasistan/internal/entities"
)

// Hand-rolled fakes for the store and client ports.

type fakeAI struct {
	reply       string
	err         error
	calls       int
	lastSystem  string
	lastHistory []entities.ChatTurn
	lastUser    string
}

func (f *fakeAI) Complete(_ context.Context, system string, history []entities.ChatTurn, userMessage string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastHistory = history
	f.lastUser = userMessage
	return f.reply, f.err
}

type fakeUsage struct {
	usage      entities.DailyUsage
	todayErr   error
	increments int
}

func (f *fakeUsage) Today(context.Context, string) (*entities.DailyUsage, error) {
	if f.todayErr != nil {
		return nil, f.todayErr
	}
	u := f.usage
	return &u, nil
}

func (f *fakeUsage) Increment(context.Context, string) error {
	f.increments++
	f.usage.MessageCount++
	return nil
}

func (f *fakeUsage) History(context.Context, string, int) ([]entities.DailyUsage, error) {
	return []entities.DailyUsage{f.usage}, nil
}

type fakeSettings struct {
	settings *entities.AISettings
	err      error
	saved    *entities.AISettings
}

func (f *fakeSettings) Get(context.Context, string) (*entities.AISettings, error) {
	return f.settings, f.err
}

func (f *fakeSettings) Upsert(_ context.Context, s *entities.AISettings) error {
	f.saved = s
	return nil
}

type fakeMessages struct {
	appended  []*entities.Message
	window    []entities.Message
	pending   []entities.Message
	delivered []string
	attempts  map[string]int
	failed    []string
	appendErr error
}

func (f *fakeMessages) Append(_ context.Context, msg *entities.Message) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.DeliveryStatus == "" {
		msg.DeliveryStatus = entities.DeliveryNone
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	f.appended = append(f.appended, msg)
	return nil
}

func (f *fakeMessages) RecentWindow(context.Context, string, int) ([]entities.Message, error) {
	return f.window, nil
}

func (f *fakeMessages) ListByConversation(context.Context, string, string, int) ([]entities.Message, error) {
	return f.window, nil
}

func (f *fakeMessages) ListPendingOutbound(context.Context, time.Duration, int, int) ([]entities.Message, error) {
	return f.pending, nil
}

func (f *fakeMessages) MarkDelivered(_ context.Context, id string) error {
	f.delivered = append(f.delivered, id)
	return nil
}

func (f *fakeMessages) RecordAttempt(_ context.Context, id string) error {
	if f.attempts == nil {
		f.attempts = map[string]int{}
	}
	f.attempts[id]++
	return nil
}

func (f *fakeMessages) MarkDeliveryFailed(_ context.Context, id string) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeMessages) outbound() []*entities.Message {
	var out []*entities.Message
	for _, m := range f.appended {
		if m.Direction == entities.DirectionOutbound {
			out = append(out, m)
		}
	}
	return out
}

type fakeConversations struct {
	existing *entities.Conversation
	created  *entities.Conversation
	touched  []string
	statuses map[string]string
}

func (f *fakeConversations) FindOrCreateOpen(_ context.Context, tenantID, platform, senderID, contactName string) (*entities.Conversation, error) {
	if f.existing != nil {
		return f.existing, nil
	}
	f.created = &entities.Conversation{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Platform:    platform,
		SenderID:    senderID,
		ContactName: contactName,
		Status:      entities.ConversationOpen,
		CreatedAt:   time.Now(),
	}
	return f.created, nil
}

func (f *fakeConversations) GetByID(_ context.Context, tenantID, id string) (*entities.Conversation, error) {
	if f.existing != nil && f.existing.ID == id && f.existing.TenantID == tenantID {
		return f.existing, nil
	}
	return nil, nil
}

func (f *fakeConversations) ListByTenant(context.Context, string, int) ([]entities.Conversation, error) {
	if f.existing == nil {
		return nil, nil
	}
	return []entities.Conversation{*f.existing}, nil
}

func (f *fakeConversations) Touch(_ context.Context, id, lastMessage string) error {
	f.touched = append(f.touched, lastMessage)
	return nil
}

func (f *fakeConversations) UpdateStatus(_ context.Context, _, id, status string) error {
	if f.statuses == nil {
		f.statuses = map[string]string{}
	}
	f.statuses[id] = status
	return nil
}

type sentCall struct {
	platform      string
	recipient     string
	phoneNumberID string
	text          string
	token         string
}

type fakeSender struct {
	sent []sentCall
	err  error
}

func (f *fakeSender) SendMessengerText(_ context.Context, recipientID, text, accessToken string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCall{platform: "messenger", recipient: recipientID, text: text, token: accessToken})
	return nil
}

func (f *fakeSender) SendWhatsAppText(_ context.Context, phoneNumberID, to, text, accessToken string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCall{platform: "whatsapp", recipient: to, phoneNumberID: phoneNumberID, text: text, token: accessToken})
	return nil
}

type fakePlatforms struct {
	conn        *entities.PlatformConnection
	deactivated []string
	upserted    *entities.PlatformConnection
}

func (f *fakePlatforms) FindActiveByPlatform(_ context.Context, platform string) (*entities.PlatformConnection, error) {
	if f.conn != nil && f.conn.Platform == platform && f.conn.IsActive {
		return f.conn, nil
	}
	return nil, nil
}

func (f *fakePlatforms) FindByTenantAndPlatform(_ context.Context, tenantID, platform string) (*entities.PlatformConnection, error) {
	if f.conn != nil && f.conn.TenantID == tenantID && f.conn.Platform == platform {
		return f.conn, nil
	}
	return nil, nil
}

func (f *fakePlatforms) ListByTenant(context.Context, string) ([]entities.PlatformConnection, error) {
	if f.conn == nil {
		return nil, nil
	}
	return []entities.PlatformConnection{*f.conn}, nil
}

func (f *fakePlatforms) Upsert(_ context.Context, conn *entities.PlatformConnection) error {
	f.upserted = conn
	return nil
}

func (f *fakePlatforms) Deactivate(_ context.Context, _, platform string) error {
	f.deactivated = append(f.deactivated, platform)
	return nil
}

type fakeProfiles struct {
	name  string
	err   error
	calls int
}

func (f *fakeProfiles) FetchSenderName(context.Context, string, string) (string, error) {
	f.calls++
	return f.name, f.err
}

type readCall struct {
	phoneNumberID string
	messageID     string
}

type fakeReadMarker struct {
	calls []readCall
}

func (f *fakeReadMarker) MarkWhatsAppRead(_ context.Context, phoneNumberID, messageID, _ string) error {
	f.calls = append(f.calls, readCall{phoneNumberID: phoneNumberID, messageID: messageID})
	return nil
}
