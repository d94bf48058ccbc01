package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/videoloop/internal/events"
)

// Manager follows pipeline state changes on the event bus and mirrors them
// on an LED: blinking while starting, solid while frames flow, off once the
// pipeline has stopped.
type Manager struct {
	controller  Controller
	eventBus    *events.Bus
	logger      *slog.Logger
	mu          sync.Mutex
	unsubscribe func()
	current     Pattern
}

// NewManager creates a manager driving controller.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start subscribes to state changes.
func (m *Manager) Start() {
	m.mu.Lock()
	m.unsubscribe = m.eventBus.Subscribe(m.handleEvent)
	m.mu.Unlock()
	m.logger.Info("LED manager started", "led", m.controller.Name())
}

// Stop unsubscribes and switches the LED off.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.mu.Unlock()
	m.apply(PatternOff)
	m.logger.Info("LED manager stopped")
}

func (m *Manager) handleEvent(e events.StateChangedEvent) {
	m.apply(patternFor(e.State))
}

func (m *Manager) apply(pattern Pattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pattern == m.current {
		return
	}
	if err := m.controller.Set(pattern); err != nil {
		m.logger.Warn("Failed to set LED", "pattern", pattern, "error", err)
		return
	}
	m.current = pattern
	m.logger.Debug("LED updated", "pattern", pattern)
}

func patternFor(state string) Pattern {
	switch state {
	case "init":
		return PatternBlink
	case "steady":
		return PatternSolid
	default:
		return PatternOff
	}
}
