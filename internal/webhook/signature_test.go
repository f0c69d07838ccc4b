package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/webhook"
)

func testEvent(eventID string) *domain.MarketEvent {
	assetID := domain.AssetID(7)
	owner := domain.Identity("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	return &domain.MarketEvent{
		EventID:   eventID,
		EventType: domain.EventTypeMinted,
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Actor:     "0x90F79bf6EB2c4f870365E785982E1f101E93b906",
		AssetID:   &assetID,
		Owner:     &owner,
	}
}

func TestGenerateSignedPayload(t *testing.T) {
	t.Run("generates valid payload and signature", func(t *testing.T) {
		secret := "test-secret-key"
		event := testEvent("01JG8XAMPLE1234567890123456")

		payload, signature, timestamp, err := webhook.GenerateSignedPayload(secret, event)
		require.NoError(t, err)

		// Payload is valid JSON carrying the event
		var parsed domain.MarketEvent
		require.NoError(t, json.Unmarshal(payload, &parsed))
		assert.Equal(t, event.EventID, parsed.EventID)
		assert.Equal(t, event.EventType, parsed.EventType)

		// Signature format
		assert.Contains(t, signature, "sha256=")
		assert.Greater(t, len(signature), 7)

		// Timestamp is recent
		now := time.Now().Unix()
		assert.GreaterOrEqual(t, now, timestamp)
		assert.Less(t, now-timestamp, int64(5))

		// The signature is reproducible from the delivered parts
		signingInput := fmt.Sprintf("%d.%s.%s", timestamp, event.EventID, string(payload))
		h := hmac.New(sha256.New, []byte(secret))
		h.Write([]byte(signingInput))
		expected := "sha256=" + hex.EncodeToString(h.Sum(nil))
		assert.Equal(t, expected, signature)
	})

	t.Run("payload is canonical JSON", func(t *testing.T) {
		event := testEvent("01JG8XAMPLE1234567890123456")

		payload1, _, _, err := webhook.GenerateSignedPayload("secret", event)
		require.NoError(t, err)
		payload2, _, _, err := webhook.GenerateSignedPayload("secret", event)
		require.NoError(t, err)

		// Canonicalization makes serialization byte-stable
		assert.Equal(t, payload1, payload2)
	})

	t.Run("different events produce different signatures", func(t *testing.T) {
		secret := "test-secret-key"

		_, signature1, _, err := webhook.GenerateSignedPayload(secret, testEvent("01JG8XAMPLE1111111111111111"))
		require.NoError(t, err)

		_, signature2, _, err := webhook.GenerateSignedPayload(secret, testEvent("01JG8XAMPLE2222222222222222"))
		require.NoError(t, err)

		assert.NotEqual(t, signature1, signature2)
	})

	t.Run("different secrets produce different signatures", func(t *testing.T) {
		event := testEvent("01JG8XAMPLE1234567890123456")

		_, signature1, _, err := webhook.GenerateSignedPayload("secret1", event)
		require.NoError(t, err)

		_, signature2, _, err := webhook.GenerateSignedPayload("secret2", event)
		require.NoError(t, err)

		assert.NotEqual(t, signature1, signature2)
	})
}

func TestVerifySignature(t *testing.T) {
	secret := "test-secret-key"
	event := testEvent("01JG8XAMPLE1234567890123456")

	payload, signature, timestamp, err := webhook.GenerateSignedPayload(secret, event)
	require.NoError(t, err)

	assert.True(t, webhook.VerifySignature(secret, payload, event.EventID, timestamp, signature))

	// Any tampered part fails verification
	assert.False(t, webhook.VerifySignature("wrong-secret", payload, event.EventID, timestamp, signature))
	assert.False(t, webhook.VerifySignature(secret, append(payload, ' '), event.EventID, timestamp, signature))
	assert.False(t, webhook.VerifySignature(secret, payload, "01JG8XOTHER0000000000000000", timestamp, signature))
	assert.False(t, webhook.VerifySignature(secret, payload, event.EventID, timestamp+1, signature))
}
