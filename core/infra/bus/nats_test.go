package bus

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNilBusPublishIsNoop(t *testing.T) {
	var b *NatsBus
	// Must not panic.
	b.Publish(SubjectDropCreated, Event{Identifier: "x"})
	b.Close()
}

func TestEventOmitsEmptyFields(t *testing.T) {
	payload, err := json.Marshal(Event{Identifier: "abc", At: time.Now().UTC()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{"sizeBytes", "expiresAt", "reason"} {
		if strings.Contains(string(payload), field) {
			t.Fatalf("expected %s to be omitted: %s", field, payload)
		}
	}
}
