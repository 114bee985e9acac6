package protocol

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds instruments for connection traffic.
type Metrics struct {
	framesSent     metric.Int64Counter
	framesReceived metric.Int64Counter
	framesDropped  metric.Int64Counter
	sendDuration   metric.Float64Histogram
}

// NewMetrics creates protocol instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	framesSent, err := meter.Int64Counter("protocol.frames.sent",
		metric.WithDescription("Total frames sent to the server"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating protocol.frames.sent counter: %w", err)
	}

	framesReceived, err := meter.Int64Counter("protocol.frames.received",
		metric.WithDescription("Total frames received from the server"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating protocol.frames.received counter: %w", err)
	}

	framesDropped, err := meter.Int64Counter("protocol.frames.dropped",
		metric.WithDescription("Inbound frames dropped by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating protocol.frames.dropped counter: %w", err)
	}

	sendDuration, err := meter.Float64Histogram("protocol.send.duration",
		metric.WithDescription("Duration of frame sends in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating protocol.send.duration histogram: %w", err)
	}

	return &Metrics{
		framesSent:     framesSent,
		framesReceived: framesReceived,
		framesDropped:  framesDropped,
		sendDuration:   sendDuration,
	}, nil
}

// RecordSent records one outbound frame.
func (m *Metrics) RecordSent(ctx context.Context, typeCode int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Int("type", typeCode))
	m.framesSent.Add(ctx, 1, attrs)
	m.sendDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordReceived records one inbound frame.
func (m *Metrics) RecordReceived(ctx context.Context, typeCode int) {
	m.framesReceived.Add(ctx, 1, metric.WithAttributes(attribute.Int("type", typeCode)))
}

// RecordDropped records one dropped inbound frame.
func (m *Metrics) RecordDropped(ctx context.Context, reason string) {
	m.framesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
