package usecases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmasistan/internal/entities"
)

func TestNormalizeInstagramMessage(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [{
			"id": "ig-account-1",
			"time": 1714000000,
			"messaging": [{
				"sender": {"id": "cust-1"},
				"recipient": {"id": "ig-account-1"},
				"timestamp": 1714000000123,
				"message": {"mid": "mid.1", "text": "Fiyat nedir?"}
			}]
		}]
	}`)

	events, err := NormalizeWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, entities.PlatformInstagram, ev.Platform)
	assert.Equal(t, "cust-1", ev.SenderID)
	assert.Equal(t, "ig-account-1", ev.ExternalAccountID)
	assert.Equal(t, "Fiyat nedir?", ev.Text)
	assert.Equal(t, time.UnixMilli(1714000000123), ev.SentAt)
	assert.Equal(t, "mid.1", ev.ProviderMessageID)
}

func TestNormalizeFacebookPage(t *testing.T) {
	body := []byte(`{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"messaging": [{
				"sender": {"id": "psid-1"},
				"recipient": {"id": "page-1"},
				"message": {"mid": "mid.fb", "text": "Açık mısınız?"}
			}]
		}]
	}`)

	events, err := NormalizeWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, entities.PlatformFacebook, events[0].Platform)
	assert.Equal(t, "Açık mısınız?", events[0].Text)
}

func TestNormalizeWhatsAppMessage(t *testing.T) {
	body := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "waba-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"metadata": {"display_phone_number": "905550001122", "phone_number_id": "pn-7"},
					"contacts": [{"wa_id": "905551112233", "profile": {"name": "Ayşe"}}],
					"messages": [{
						"id": "wamid.1",
						"from": "905551112233",
						"timestamp": "1714000500",
						"type": "text",
						"text": {"body": "Siparişim nerede?"}
					}]
				}
			}]
		}]
	}`)

	events, err := NormalizeWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, entities.PlatformWhatsApp, ev.Platform)
	assert.Equal(t, "905551112233", ev.SenderID)
	assert.Equal(t, "Ayşe", ev.SenderName)
	assert.Equal(t, "pn-7", ev.PhoneNumberID)
	assert.Equal(t, "pn-7", ev.ExternalAccountID)
	assert.Equal(t, "Siparişim nerede?", ev.Text)
	assert.Equal(t, time.Unix(1714000500, 0), ev.SentAt)
	assert.Equal(t, "wamid.1", ev.ProviderMessageID)
}

func TestNormalizeDropsEchoes(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [{
			"id": "ig-1",
			"messaging": [{
				"sender": {"id": "ig-1"},
				"recipient": {"id": "cust-1"},
				"message": {"mid": "mid.echo", "text": "Bizim cevabımız", "is_echo": true}
			}]
		}]
	}`)

	events, err := NormalizeWebhook(body)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNormalizeDropsNonText(t *testing.T) {
	body := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"changes": [{
				"field": "messages",
				"value": {
					"metadata": {"phone_number_id": "pn-1"},
					"messages": [{"id": "wamid.img", "from": "90555", "timestamp": "1714000000", "type": "image"}]
				}
			}]
		}]
	}`)

	events, err := NormalizeWebhook(body)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNormalizeDropsStatusChanges(t *testing.T) {
	body := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"changes": [{
				"field": "message_template_status_update",
				"value": {}
			}]
		}]
	}`)

	events, err := NormalizeWebhook(body)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNormalizeUnknownObject(t *testing.T) {
	events, err := NormalizeWebhook([]byte(`{"object":"permissions","entry":[{"id":"x"}]}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNormalizeInvalidJSON(t *testing.T) {
	_, err := NormalizeWebhook([]byte(`{not json`))
	assert.Error(t, err)
}

func TestNormalizeMultipleEntries(t *testing.T) {
	body := []byte(`{
		"object": "page",
		"entry": [
			{"messaging": [{"sender": {"id": "a"}, "recipient": {"id": "p"}, "message": {"text": "bir"}}]},
			{"messaging": [
				{"sender": {"id": "b"}, "recipient": {"id": "p"}, "message": {"text": "iki"}},
				{"sender": {"id": "c"}, "recipient": {"id": "p"}, "delivery": {}}
			]}
		]
	}`)

	events, err := NormalizeWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "bir", events[0].Text)
	assert.Equal(t, "iki", events[1].Text)
}
