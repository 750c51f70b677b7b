package health

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Listener receives every status produced by the monitor
type Listener func(Status)

// Monitor periodically publishes the reporter's status
type Monitor struct {
	reporter  *Reporter
	interval  time.Duration
	listeners []Listener
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a new health monitor
func NewMonitor(reporter *Reporter, interval time.Duration, logger *zap.Logger, listeners ...Listener) *Monitor {
	return &Monitor{
		reporter:  reporter,
		interval:  interval,
		listeners: listeners,
		logger:    logger,
	}
}

// Start publishes the current status immediately, then on every tick
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	m.check()
	go m.run(m.stopCh, m.doneCh)
}

// Stop stops the monitor and waits for the loop to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (m *Monitor) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// check logs the status and notifies listeners
func (m *Monitor) check() {
	status := m.reporter.Status()

	if status.State == StateOK {
		m.logger.Debug("health check",
			zap.String("status", string(status.State)),
			zap.String("version", status.Version))
	} else {
		m.logger.Warn("service is degraded: model not loaded",
			zap.String("version", status.Version))
	}

	for _, l := range m.listeners {
		l(status)
	}
}
