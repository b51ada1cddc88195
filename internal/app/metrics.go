package app

import (
	"sync/atomic"
	"time"

	"github.com/dshills/modelundo/internal/event"
	"github.com/dshills/modelundo/internal/model"
)

// Metrics counts session activity observed on the bus.
type Metrics struct {
	// Transactions
	txBegun      atomic.Uint64
	txCommitted  atomic.Uint64
	txRolledBack atomic.Uint64

	// Mutations, indexed by model.MutationKind
	mutations [model.KindAssociationDeleted + 1]atomic.Uint64

	// History commands
	commandCount   atomic.Uint64
	commandTotalNs atomic.Int64
	stateChanges   atomic.Uint64

	// Scripts
	scriptCount   atomic.Uint64
	scriptTotalNs atomic.Int64

	// Delivery statistics of the observed bus
	bus event.Bus

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// ObserveBus includes the delivery statistics of b in snapshots. It must
// be called before the metrics are shared.
func (m *Metrics) ObserveBus(b event.Bus) { m.bus = b }

// RecordBegin records an outermost transaction begin.
func (m *Metrics) RecordBegin() { m.txBegun.Add(1) }

// RecordCommit records an outermost transaction commit.
func (m *Metrics) RecordCommit() { m.txCommitted.Add(1) }

// RecordRollback records an outermost transaction rollback.
func (m *Metrics) RecordRollback() { m.txRolledBack.Add(1) }

// RecordMutation records one model mutation event.
func (m *Metrics) RecordMutation(kind model.MutationKind) {
	if int(kind) >= 0 && int(kind) < len(m.mutations) {
		m.mutations[kind].Add(1)
	}
}

// RecordStateChange records an undo state change notification.
func (m *Metrics) RecordStateChange() { m.stateChanges.Add(1) }

// RecordCommand records a command execution.
func (m *Metrics) RecordCommand(duration time.Duration) {
	m.commandCount.Add(1)
	m.commandTotalNs.Add(duration.Nanoseconds())
}

// RecordScript records a script run.
func (m *Metrics) RecordScript(duration time.Duration) {
	m.scriptCount.Add(1)
	m.scriptTotalNs.Add(duration.Nanoseconds())
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Uptime:       time.Since(m.startTime),
		Begun:        m.txBegun.Load(),
		Committed:    m.txCommitted.Load(),
		RolledBack:   m.txRolledBack.Load(),
		Mutations:    make(map[string]uint64),
		StateChanges: m.stateChanges.Load(),
		Commands:     m.commandCount.Load(),
		Scripts:      m.scriptCount.Load(),
	}
	for _, kind := range model.Kinds() {
		if n := m.mutations[kind].Load(); n > 0 {
			s.Mutations[kind.String()] = n
		}
	}
	if s.Commands > 0 {
		s.AvgCommandNs = m.commandTotalNs.Load() / int64(s.Commands)
	}
	if s.Scripts > 0 {
		s.AvgScriptNs = m.scriptTotalNs.Load() / int64(s.Scripts)
	}
	if m.bus != nil {
		s.Bus = m.bus.Stats()
	}
	return s
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime       time.Duration
	Begun        uint64
	Committed    uint64
	RolledBack   uint64
	Mutations    map[string]uint64 // by mutation kind name
	StateChanges uint64
	Commands     uint64
	AvgCommandNs int64
	Scripts      uint64
	AvgScriptNs  int64
	Bus          event.Stats
}

// TotalMutations returns the sum over all kinds.
func (s MetricsSnapshot) TotalMutations() uint64 {
	var n uint64
	for _, c := range s.Mutations {
		n += c
	}
	return n
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
