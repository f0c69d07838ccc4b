package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/tokenhaus/marketd/internal/domain"
)

// GenerateSignedPayload serializes the event to canonical JSON (RFC 8785)
// and signs it with HMAC-SHA256. Canonicalization means the client can
// re-serialize the parsed body and still verify the signature.
// Returns the payload to deliver, the signature header value, and the
// signing timestamp.
func GenerateSignedPayload(secret string, event *domain.MarketEvent) (payload []byte, signature string, timestamp int64, err error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	payload, err = jcs.Transform(raw)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to canonicalize event: %w", err)
	}

	timestamp = time.Now().Unix()

	// Signature input: {timestamp}.{event_id}.{canonical_json}
	// The timestamp guards against replay, the event id supports
	// client-side deduplication, the body covers payload integrity.
	signingInput := fmt.Sprintf("%d.%s.%s", timestamp, event.EventID, string(payload))

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(signingInput))

	// Header format: "sha256=<hex_signature>"
	signature = "sha256=" + hex.EncodeToString(h.Sum(nil))

	return payload, signature, timestamp, nil
}

// VerifySignature checks a delivery signature the way a receiving client
// would. Used by tests and by integration consumers.
func VerifySignature(secret string, payload []byte, eventID string, timestamp int64, signature string) bool {
	signingInput := fmt.Sprintf("%d.%s.%s", timestamp, eventID, string(payload))

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(signingInput))
	expected := "sha256=" + hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
