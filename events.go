package storefront

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/storefront/internal/audit"
)

// Event is a session lifecycle record delivered to an [EventSink].
type Event = audit.Event

// EventSink receives events from the client's dispatcher goroutine.
type EventSink = audit.Sink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	SlogSink       = audit.SlogSink
)

// Event types.
const (
	EventLogin           = audit.TypeLogin
	EventLogout          = audit.TypeLogout
	EventRefresh         = audit.TypeRefresh
	EventCredentialReset = audit.TypeCredentialReset
	EventAuthFailure     = audit.TypeAuthFailure
	EventOrderConfirmed  = audit.TypeOrderConfirmed
)

// NewChannelSink returns a sink that buffers up to buffer events.
func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

// NewSlogSink returns a sink that logs through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }

func (c *Client) emit(ctx context.Context, event Event) {
	if c.events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	c.events.Emit(ctx, event)
}

func (c *Client) emitFromClaims(ctx context.Context, typ string, success bool, err error) {
	claims := c.session.Claims()
	ev := Event{Type: typ, UserID: claims.SubjectID, Role: string(claims.Role), Success: success}
	if err != nil {
		ev.Error = err.Error()
	}
	c.emit(ctx, ev)
}

// EventsDropped returns how many events were discarded because the buffer was full.
func (c *Client) EventsDropped() uint64 {
	return c.events.Dropped()
}
