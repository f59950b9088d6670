package usecases

import (
	"encoding/json"
	"strconv"
	"time"

	"dmasistan/internal/entities"
)

// Wire shapes for Meta webhook deliveries. The three products share one
// envelope: `object` discriminates, Messenger-family events ride
// entry[].messaging[], WhatsApp rides entry[].changes[].
type metaEnvelope struct {
	Object string      `json:"object"`
	Entry  []metaEntry `json:"entry"`
}

type metaEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []messengerEvent `json:"messaging"`
	Changes   []whatsappChange `json:"changes"`
}

type messengerEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Timestamp int64 `json:"timestamp"`
	Message   *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
}

type whatsappChange struct {
	Field string `json:"field"`
	Value struct {
		MessagingProduct string `json:"messaging_product"`
		Metadata         struct {
			DisplayPhoneNumber string `json:"display_phone_number"`
			PhoneNumberID      string `json:"phone_number_id"`
		} `json:"metadata"`
		Contacts []struct {
			WaID    string `json:"wa_id"`
			Profile struct {
				Name string `json:"name"`
			} `json:"profile"`
		} `json:"contacts"`
		Messages []struct {
			ID        string `json:"id"`
			From      string `json:"from"`
			Timestamp string `json:"timestamp"`
			Type      string `json:"type"`
			Text      *struct {
				Body string `json:"body"`
			} `json:"text"`
		} `json:"messages"`
	} `json:"value"`
}

// NormalizeWebhook parses a raw Meta webhook body into canonical
// inbound events. Echoes of our own sends, non-text payloads, and
// unknown shapes are dropped; a body that is not valid JSON is the only
// error. A valid delivery can legitimately produce zero events.
func NormalizeWebhook(body []byte) ([]entities.InboundEvent, error) {
	var envelope metaEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	var platform string
	switch envelope.Object {
	case "instagram":
		platform = entities.PlatformInstagram
	case "page":
		platform = entities.PlatformFacebook
	case "whatsapp_business_account":
		platform = entities.PlatformWhatsApp
	default:
		return nil, nil
	}

	events := []entities.InboundEvent{}
	for _, entry := range envelope.Entry {
		if platform == entities.PlatformWhatsApp {
			events = append(events, normalizeWhatsApp(entry)...)
			continue
		}
		events = append(events, normalizeMessenger(platform, entry)...)
	}
	return events, nil
}

func normalizeMessenger(platform string, entry metaEntry) []entities.InboundEvent {
	events := []entities.InboundEvent{}
	for _, ev := range entry.Messaging {
		// Skip echoes of our own replies and anything without text
		// (attachments, reactions, delivery receipts).
		if ev.Message == nil || ev.Message.Text == "" || ev.Message.IsEcho {
			continue
		}
		// Messenger-family timestamps are epoch milliseconds.
		sentAt := time.Now()
		if ev.Timestamp > 0 {
			sentAt = time.UnixMilli(ev.Timestamp)
		}
		events = append(events, entities.InboundEvent{
			Platform:          platform,
			ExternalAccountID: ev.Recipient.ID,
			SenderID:          ev.Sender.ID,
			Text:              ev.Message.Text,
			SentAt:            sentAt,
			ProviderMessageID: ev.Message.MID,
		})
	}
	return events
}

func normalizeWhatsApp(entry metaEntry) []entities.InboundEvent {
	events := []entities.InboundEvent{}
	for _, change := range entry.Changes {
		if change.Field != "messages" {
			continue
		}
		senderName := ""
		if len(change.Value.Contacts) > 0 {
			senderName = change.Value.Contacts[0].Profile.Name
		}
		for _, msg := range change.Value.Messages {
			if msg.Type != "text" || msg.Text == nil || msg.Text.Body == "" {
				continue
			}
			sentAt := time.Now()
			if secs, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil && secs > 0 {
				sentAt = time.Unix(secs, 0)
			}
			events = append(events, entities.InboundEvent{
				Platform:          entities.PlatformWhatsApp,
				ExternalAccountID: change.Value.Metadata.PhoneNumberID,
				SenderID:          msg.From,
				SenderName:        senderName,
				Text:              msg.Text.Body,
				SentAt:            sentAt,
				ProviderMessageID: msg.ID,
				PhoneNumberID:     change.Value.Metadata.PhoneNumberID,
			})
		}
	}
	return events
}
