package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/contest-hub/contest-hub/internal/eventstore"
)

type signaturePayload struct {
	EventID       string `json:"eventId"`
	StreamID      string `json:"streamId"`
	AggregateType string `json:"aggregateType"`
	EventType     string `json:"eventType"`
	Version       int64  `json:"version"`
	BusinessID    string `json:"businessId"`
	Payload       string `json:"payload,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func buildSignaturePayload(ev *eventstore.Event) signaturePayload {
	payload := signaturePayload{
		EventID:       ev.ID.String(),
		StreamID:      ev.StreamID.String(),
		AggregateType: string(ev.AggregateType),
		EventType:     ev.Type,
		Version:       ev.Version,
		BusinessID:    ev.BusinessID.String(),
		CreatedAt:     ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(ev.Payload) > 0 {
		payload.Payload = base64.StdEncoding.EncodeToString(ev.Payload)
	}
	return payload
}

// SignEvent generates the signature for a domain event.
func SignEvent(ev *eventstore.Event, key *KeyData) ([]byte, error) {
	payload := buildSignaturePayload(ev)
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(key.PrivateKey, data), nil
}

// VerifyEventSignature verifies the signature for a domain event.
func VerifyEventSignature(ev *eventstore.Event, pub ed25519.PublicKey) (bool, error) {
	if len(ev.Signature) == 0 {
		return false, nil
	}
	payload := buildSignaturePayload(ev)
	data, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, data, ev.Signature), nil
}
