package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{Type: TypeLogin})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports drops")
	}
}

func TestDispatcherDeliversBeforeClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{Type: TypeRefresh, Success: true})
	}
	d.Close()
	if got := sink.count.Load(); got != 5 {
		t.Fatalf("expected 5 delivered events, got %d", got)
	}
}

func TestDropIfFullDoesNotBlock(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{Type: "e1"})
	d.Emit(context.Background(), Event{Type: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{Type: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestBlockingEmitWaitsForSpace(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{Type: "e1"})
	d.Emit(context.Background(), Event{Type: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{Type: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, &countingSink{})
	d.Emit(context.Background(), Event{Type: "e1"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{Type: "e2"})
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{Timestamp: time.Now().UTC(), Type: TypeLogin, UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{Type: TypeLogout, UserID: "u1", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var got Event
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if got.Type != TypeLogin || got.UserID != "u1" {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{Type: TypeRefresh, Success: true, UserID: "u1"})
	sink.Emit(context.Background(), Event{Type: TypeAuthFailure, Error: "unauthorized"})

	out := buf.String()
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "event_type=refresh") {
		t.Fatalf("expected info refresh line, got:\n%s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "error=unauthorized") {
		t.Fatalf("expected warn failure line, got:\n%s", out)
	}
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), Event{Type: TypeOrderConfirmed})
	select {
	case ev := <-sink.Events():
		if ev.Type != TypeOrderConfirmed {
			t.Fatalf("unexpected type %q", ev.Type)
		}
	default:
		t.Fatal("expected buffered event")
	}
}
