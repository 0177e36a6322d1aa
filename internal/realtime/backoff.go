package realtime

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Connection states as exposed to the UI layer.
const (
	StateConnected    = "connected"
	StateReconnecting = "reconnecting"
	StateDisconnected = "disconnected"
)

const (
	baseReconnectDelay   = 3 * time.Second
	maxReconnectDelay    = 30 * time.Second
	maxReconnectAttempts = 10
)

// ReconnectDelay returns the wait before retry number attempt
// (0-based): 3s doubling per attempt, capped at 30s.
func ReconnectDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := baseReconnectDelay << uint(attempt)
	if d <= 0 || d > maxReconnectDelay {
		return maxReconnectDelay
	}
	return d
}

// ReconnectManager drives the retry schedule for a dropped push
// connection. After maxReconnectAttempts consecutive failures it goes
// terminally disconnected and stops retrying; any successful connect
// resets the attempt counter.
type ReconnectManager struct {
	dial    func()
	onState func(state string)

	// afterFunc is swapped out in tests.
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu       sync.Mutex
	state    string
	attempts int
	timer    *time.Timer
}

func NewReconnectManager(dial func(), onState func(string)) *ReconnectManager {
	return &ReconnectManager{
		dial:      dial,
		onState:   onState,
		afterFunc: time.AfterFunc,
		state:     StateConnected,
	}
}

func (m *ReconnectManager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ReconnectManager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// HandleConnect marks the link healthy: pending retries are cancelled
// and the backoff schedule starts over on the next drop.
func (m *ReconnectManager) HandleConnect() {
	m.mu.Lock()
	m.attempts = 0
	m.stopTimerLocked()
	changed := m.setStateLocked(StateConnected)
	m.mu.Unlock()
	if changed {
		m.notify(StateConnected)
		log.Info().Msg("push connection established")
	}
}

// HandleDisconnect schedules the next dial, or gives up once the
// attempt budget is spent.
func (m *ReconnectManager) HandleDisconnect() {
	m.mu.Lock()
	if m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	if m.attempts >= maxReconnectAttempts {
		m.stopTimerLocked()
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()
		m.notify(StateDisconnected)
		log.Warn().Int("attempts", maxReconnectAttempts).Msg("push connection abandoned")
		return
	}
	delay := ReconnectDelay(m.attempts)
	m.attempts++
	attempt := m.attempts
	changed := m.setStateLocked(StateReconnecting)
	m.stopTimerLocked()
	m.timer = m.afterFunc(delay, m.dial)
	m.mu.Unlock()
	if changed {
		m.notify(StateReconnecting)
	}
	log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("push reconnect scheduled")
}

func (m *ReconnectManager) notify(state string) {
	if m.onState != nil {
		m.onState(state)
	}
}

// Cleanup cancels any pending retry and resets the attempt counter and
// state, so a reused manager starts a fresh schedule on its next drop.
// Safe to call more than once.
func (m *ReconnectManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	m.attempts = 0
	m.setStateLocked(StateConnected)
}

func (m *ReconnectManager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *ReconnectManager) setStateLocked(state string) bool {
	if m.state == state {
		return false
	}
	m.state = state
	return true
}
