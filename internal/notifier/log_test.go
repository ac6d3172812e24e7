package notifier

import (
	"context"
	"testing"

	"interview-tracker/internal/logging"
	"interview-tracker/internal/model"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifierWritesEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(logging.FromZap(zap.New(core)))

	ev := model.Event{
		Type:      model.EventCreated,
		OwnerID:   "u1",
		Interview: model.Interview{ID: "a1", Company: "Acme"},
	}
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	entries := logs.FilterMessage("interview changed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["interviewId"] != "a1" || fields["company"] != "Acme" || fields["result"] != "in progress" {
		t.Fatalf("log output missing event info: %v", fields)
	}
	if fields["component"] != "notifier" {
		t.Fatalf("expected component field, got %v", fields)
	}
}
