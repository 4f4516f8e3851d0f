package perf

import (
	"context"

	"flashbox/internal/application/flash"
)

var _ flash.Observer = (*Collector)(nil)

// OnEvent records a flash store event as a KindFlashOp entry keyed by the
// event type.
func (c *Collector) OnEvent(_ context.Context, e flash.Event) {
	c.Record(Entry{
		Kind:       KindFlashOp,
		Path:       string(e.Type),
		DurationMs: float64(e.Duration.Microseconds()) / 1000.0,
		Timestamp:  e.Timestamp,
	})
}
