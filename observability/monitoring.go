// Package observability aggregates relay runtime metrics. Counters are
// atomic so hot paths (fan-out, session lifecycle) never contend on a
// lock.
package observability

import (
	"runtime"
	"sync/atomic"
	"time"
)

// MonitoringStats is a point-in-time snapshot for logs and the debug
// endpoint.
type MonitoringStats struct {
	OpenConnections   int64  `json:"open_connections"`
	BoundSessions     int64  `json:"bound_sessions"`
	Broadcasts        uint64 `json:"broadcasts"`
	DeliveredEvents   uint64 `json:"delivered_events"`
	DroppedDeliveries uint64 `json:"dropped_deliveries"`
	MessagesPersisted uint64 `json:"messages_persisted"`
	TypingSignals     uint64 `json:"typing_signals"`
	AllocMemMb        uint64 `json:"alloc_mem_mb"`
	NumGC             uint32 `json:"num_gc"`
	CapturedAt        string `json:"captured_at"`
}

type MonitoringManager struct {
	openConnections   atomic.Int64
	boundSessions     atomic.Int64
	broadcasts        atomic.Uint64
	deliveredEvents   atomic.Uint64
	droppedDeliveries atomic.Uint64
	messagesPersisted atomic.Uint64
	typingSignals     atomic.Uint64
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{}
}

func (mm *MonitoringManager) ConnOpened()        { mm.openConnections.Add(1) }
func (mm *MonitoringManager) ConnClosed()        { mm.openConnections.Add(-1) }
func (mm *MonitoringManager) SessionBound()      { mm.boundSessions.Add(1) }
func (mm *MonitoringManager) SessionUnbound()    { mm.boundSessions.Add(-1) }
func (mm *MonitoringManager) IncrBroadcasts()    { mm.broadcasts.Add(1) }
func (mm *MonitoringManager) IncrDelivered()     { mm.deliveredEvents.Add(1) }
func (mm *MonitoringManager) IncrDropped()       { mm.droppedDeliveries.Add(1) }
func (mm *MonitoringManager) IncrPersisted()     { mm.messagesPersisted.Add(1) }
func (mm *MonitoringManager) IncrTypingSignals() { mm.typingSignals.Add(1) }

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return MonitoringStats{
		OpenConnections:   mm.openConnections.Load(),
		BoundSessions:     mm.boundSessions.Load(),
		Broadcasts:        mm.broadcasts.Load(),
		DeliveredEvents:   mm.deliveredEvents.Load(),
		DroppedDeliveries: mm.droppedDeliveries.Load(),
		MessagesPersisted: mm.messagesPersisted.Load(),
		TypingSignals:     mm.typingSignals.Load(),
		AllocMemMb:        ms.Alloc / 1024 / 1024,
		NumGC:             ms.NumGC,
		CapturedAt:        time.Now().Format(time.RFC3339),
	}
}
