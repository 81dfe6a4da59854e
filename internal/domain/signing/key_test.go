package signing

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/contest-hub/contest-hub/internal/eventstore"
)

var masterKey = []byte("0123456789abcdef0123456789abcdef")

func TestGenerateDeterministic(t *testing.T) {
	gen, err := NewGenerator(masterKey, 24*time.Hour)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	contestID := uuid.New()
	validFrom := time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC)

	a, err := gen.Generate(contestID, validFrom)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := gen.Generate(contestID, validFrom)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a.KeyID != b.KeyID || !bytes.Equal(a.PublicKey, b.PublicKey) {
		t.Fatal("same contest and window must derive the same key")
	}

	other, err := gen.Generate(uuid.New(), validFrom)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if bytes.Equal(a.PublicKey, other.PublicKey) {
		t.Fatal("different contests must derive different keys")
	}

	next, err := gen.Generate(contestID, validFrom.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if bytes.Equal(a.PublicKey, next.PublicKey) {
		t.Fatal("different windows must derive different keys")
	}
	if !a.ExpiredAt(a.ValidTo) || a.ExpiredAt(a.ValidTo.Add(-time.Second)) {
		t.Fatal("expiry must be at validTo exactly")
	}
}

func TestNewGeneratorRequiresMasterKey(t *testing.T) {
	if _, err := NewGenerator(nil, time.Hour); err != ErrMasterKeyMissing {
		t.Fatalf("expected ErrMasterKeyMissing, got %v", err)
	}
}

func TestSignAndVerifyEvent(t *testing.T) {
	gen, _ := NewGenerator(masterKey, 24*time.Hour)
	contestID := uuid.New()
	key, err := gen.Generate(contestID, time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"id": contestID.String()})
	ev := &eventstore.Event{
		ID:            uuid.New(),
		StreamID:      contestID,
		AggregateType: eventstore.AggregateContest,
		Type:          "contest.created",
		Version:       1,
		BusinessID:    contestID,
		Payload:       payload,
		CreatedAt:     time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	sig, err := SignEvent(ev, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ev.Signature = sig
	ev.KeyID = key.KeyID

	ok, err := VerifyEventSignature(ev, key.PublicKey)
	if err != nil || !ok {
		t.Fatalf("expected valid signature, ok=%v err=%v", ok, err)
	}

	ev.Payload = []byte(`{"id":"tampered"}`)
	ok, err = VerifyEventSignature(ev, key.PublicKey)
	if err != nil || ok {
		t.Fatalf("expected invalid signature after tamper, ok=%v err=%v", ok, err)
	}
}
