package httpapi

import (
	"sync"
	"time"
)

// Metrics collects coarse service counters for the /metrics endpoint.
type Metrics struct {
	mu             sync.RWMutex
	startTime      time.Time
	requests       map[string]uint64
	lastHeight     uint64
	lastHeightAt   time.Time
	txBuilt        uint64
	txSigned       uint64
	txBroadcastOK  uint64
	txBroadcastErr uint64
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		requests:  make(map[string]uint64),
	}
}

func (m *Metrics) ObserveRequest(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[path]++
}

func (m *Metrics) ObserveHeight(height uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastHeight = height
	m.lastHeightAt = time.Now()
}

func (m *Metrics) IncTxBuilt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txBuilt++
}

func (m *Metrics) IncTxSigned() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txSigned++
}

func (m *Metrics) ObserveBroadcast(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.txBroadcastOK++
	} else {
		m.txBroadcastErr++
	}
}

type Snapshot struct {
	StartTime      time.Time
	Requests       map[string]uint64
	LastHeight     uint64
	LastHeightAt   time.Time
	TxBuilt        uint64
	TxSigned       uint64
	TxBroadcastOK  uint64
	TxBroadcastErr uint64
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	requests := make(map[string]uint64, len(m.requests))
	for path, count := range m.requests {
		requests[path] = count
	}
	return Snapshot{
		StartTime:      m.startTime,
		Requests:       requests,
		LastHeight:     m.lastHeight,
		LastHeightAt:   m.lastHeightAt,
		TxBuilt:        m.txBuilt,
		TxSigned:       m.txSigned,
		TxBroadcastOK:  m.txBroadcastOK,
		TxBroadcastErr: m.txBroadcastErr,
	}
}
