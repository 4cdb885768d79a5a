package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// ReportStream delivers reports to a capped Redis stream and announces them
// on a pub/sub channel. It satisfies report.Sink.
type ReportStream struct {
	bus     domain.SignalBus
	stream  string
	maxLen  int64
	channel string
}

// NewReportStream creates the sink. An empty channel skips the announcement.
func NewReportStream(bus domain.SignalBus, stream string, maxLen int64, channel string) *ReportStream {
	return &ReportStream{bus: bus, stream: stream, maxLen: maxLen, channel: channel}
}

// Name identifies the sink in logs and metrics.
func (rs *ReportStream) Name() string { return "redis-stream" }

// Deliver appends the full report, then publishes its notice.
func (rs *ReportStream) Deliver(ctx context.Context, r *domain.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: encode report: %w", err)
	}
	if err := rs.bus.StreamAppend(ctx, rs.stream, rs.maxLen, payload); err != nil {
		return err
	}
	if rs.channel == "" {
		return nil
	}

	live, err := json.Marshal(r.Notice())
	if err != nil {
		return fmt.Errorf("redis: encode live message: %w", err)
	}
	return rs.bus.Publish(ctx, rs.channel, live)
}

// Latest returns the newest report on the stream, or domain.ErrNotFound.
func (rs *ReportStream) Latest(ctx context.Context) (*domain.Report, error) {
	msgs, err := rs.bus.StreamLatest(ctx, rs.stream, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("redis: latest report: %w", domain.ErrNotFound)
	}
	var r domain.Report
	if err := json.Unmarshal(msgs[0].Payload, &r); err != nil {
		return nil, fmt.Errorf("redis: decode report %s: %w", msgs[0].ID, err)
	}
	return &r, nil
}

// Channel is the pub/sub channel live messages go to.
func (rs *ReportStream) Channel() string { return rs.channel }
