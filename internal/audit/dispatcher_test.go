package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled dispatcher must be nil")
	}
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversToChannelSink(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{ID: "e1", EventType: "login_success", Success: true})

	select {
	case ev := <-sink.Events():
		if ev.ID != "e1" || ev.EventType != "login_success" || !ev.Success {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, Event) { <-s.release }

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "guard_denied"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink and a one-slot buffer")
	}
	close(sink.release)
	d.Close()
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{ID: "a", EventType: "logout", Target: "/reports"})
	sink.Emit(context.Background(), Event{ID: "b", EventType: "login_failure", Error: "UNAUTHORIZED"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Target != "/reports" || ev.EventType != "logout" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDispatcherCloseDeliversQueuedEvents(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "refresh_success"})
	}
	d.Close()
	d.Close()

	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 delivered events after Close, got %d", got)
	}
	d.Emit(context.Background(), Event{EventType: "logout"})
	if got := len(sink.Events()); got != 5 {
		t.Fatalf("emit after Close must be ignored, got %d events", got)
	}
}

func TestLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	sink.Emit(context.Background(), Event{ID: "a", EventType: "login_success", Success: true, UserID: "u-1"})
	sink.Emit(context.Background(), Event{ID: "b", EventType: "guard_denied", Target: "/reports", Error: "NOT_AUTHORIZED"})

	out := buf.String()
	if !strings.Contains(out, "level=INFO msg=login_success") {
		t.Fatalf("missing info line: %s", out)
	}
	if !strings.Contains(out, "level=WARN msg=guard_denied") || !strings.Contains(out, "target=/reports") {
		t.Fatalf("missing warn line: %s", out)
	}
	if !strings.Contains(out, "component=audit") {
		t.Fatalf("missing component attr: %s", out)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := NewChannelSink(1), NewChannelSink(1)
	MultiSink{a, nil, b}.Emit(context.Background(), Event{ID: "x"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatal("every sink should receive the event")
	}
}
