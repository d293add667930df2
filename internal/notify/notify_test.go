package notify

import (
	"testing"

	"tree-garden/pkg"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventTreePlanted)

	if _, err := uuid.Parse(event.ID); err != nil {
		t.Errorf("expected a uuid event id, got %q: %v", event.ID, err)
	}
	if event.Type != EventTreePlanted {
		t.Errorf("unexpected type %q", event.Type)
	}
	if event.At.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestZapSink_Emit(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewZapSink(pkg.NewZapLogger(zap.New(core)))

	event := NewEvent(EventTreeTransferred)
	event.HolderID = 1
	event.Counterparty = "bob"
	event.TreeName = "Oak"
	event.Quantity = 2
	sink.Emit(event)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != EventTreeTransferred {
		t.Errorf("unexpected type field: %v", fields["type"])
	}
	if fields["tree"] != "Oak" {
		t.Errorf("unexpected tree field: %v", fields["tree"])
	}
	if fields["counterparty"] != "bob" {
		t.Errorf("unexpected counterparty field: %v", fields["counterparty"])
	}
}
