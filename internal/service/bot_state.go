// Package service holds runtime controls shared between the trading loops and
// the HTTP surface.
package service

import "sync"

// BotStatus is a snapshot of the bot's runtime switches.
type BotStatus struct {
	Running   bool   `json:"running"`
	Paused    bool   `json:"paused"`
	Armed     bool   `json:"armed"`
	AutoTrade bool   `json:"auto_trade"`
	Reason    string `json:"reason,omitempty"`
}

// BotState tracks whether the bot is running, paused, and armed for live
// execution. Armed is the safety interlock: signals are generated regardless,
// but orders are only submitted while armed. All methods are safe for
// concurrent use.
type BotState struct {
	mu        sync.Mutex
	running   bool
	paused    bool
	armed     bool
	autoTrade bool
	reason    string
}

// NewBotState returns a running, disarmed state. autoTrade seeds the
// auto-trade switch from configuration.
func NewBotState(autoTrade bool) *BotState {
	return &BotState{running: true, autoTrade: autoTrade}
}

// Status returns a copy of the current state.
func (s *BotState) Status() BotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BotStatus{
		Running:   s.running,
		Paused:    s.paused,
		Armed:     s.armed,
		AutoTrade: s.autoTrade,
		Reason:    s.reason,
	}
}

// Arm enables live order submission and clears any previous disarm reason.
func (s *BotState) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	s.reason = ""
}

// Disarm disables live order submission, recording why.
func (s *BotState) Disarm(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
	s.reason = reason
}

// Armed reports whether live order submission is enabled.
func (s *BotState) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// SetPaused suspends or resumes signal evaluation.
func (s *BotState) SetPaused(paused bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	s.reason = reason
}

// Paused reports whether signal evaluation is suspended.
func (s *BotState) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetRunning toggles the top-level run flag checked by the trading loops.
func (s *BotState) SetRunning(running bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
	s.reason = reason
}

// Running reports whether the trading loops should keep iterating.
func (s *BotState) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetAutoTrade toggles automatic execution of accepted signals.
func (s *BotState) SetAutoTrade(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoTrade = enabled
}

// AutoTrade reports whether accepted signals are executed automatically.
func (s *BotState) AutoTrade() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoTrade
}
