package service

import (
	"context"

	"github.com/okian/fraudscope/pkg/logger"
	"github.com/okian/fraudscope/pkg/metrics"
)

// reportTelemetry publishes the counter snapshot to metrics and the log.
func (s *Service) reportTelemetry(ctx context.Context) {
	st := s.Statistics()
	if !st.Running {
		return
	}
	metrics.UpdateUptime(st.UptimeSeconds)
	metrics.UpdateFraudRate(st.FraudRate)
	metrics.UpdateQueueDepth("ingestion", st.QueueDepth)
	metrics.UpdateQueueDepth("alerts", st.AlertQueueDepth)

	s.logger.Info(ctx, "pipeline statistics",
		logger.Duration("uptime", st.Uptime),
		logger.Int64("processed", st.Processed),
		logger.Int64("fraud_detected", st.FraudDetected),
		logger.Float64("fraud_rate", st.FraudRate),
		logger.Int64("malformed", st.Malformed),
		logger.Int64("failed", st.Failed),
		logger.Int("queue_size", st.QueueDepth),
		logger.Int("alert_queue_size", st.AlertQueueDepth),
	)
}
