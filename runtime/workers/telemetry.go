package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-relay/observability"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker periodically logs the relay's own counters and process
// stats. Pure observability: losing a tick is harmless.
type TelemetryWorker struct {
	log            *slog.Logger
	monitoring     *observability.MonitoringManager
	metricInterval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, monitoring *observability.MonitoringManager,
	metricInterval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		monitoring:     monitoring,
		metricInterval: metricInterval,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		w.log.Warn("process stats unavailable", "err", err)
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case <-ticker.C:
			stats := w.monitoring.GetLatest()
			attrs := []any{
				"open_connections", stats.OpenConnections,
				"bound_sessions", stats.BoundSessions,
				"broadcasts", stats.Broadcasts,
				"delivered", stats.DeliveredEvents,
				"dropped", stats.DroppedDeliveries,
				"persisted", stats.MessagesPersisted,
				"typing_signals", stats.TypingSignals,
				"alloc_mem_mb", stats.AllocMemMb,
				"num_gc", stats.NumGC,
			}
			if self != nil {
				if cpu, err := self.CPUPercent(); err == nil {
					attrs = append(attrs, "cpu_percent", cpu)
				}
				if ram, err := self.MemoryPercent(); err == nil {
					attrs = append(attrs, "ram_percent", ram)
				}
			}
			w.log.Info("relay telemetry", attrs...)
		}
	}
}
