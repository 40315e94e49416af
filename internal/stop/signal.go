// Package stop provides the cooperative cancellation primitive shared by the
// concurrent tasks of one conversational turn.
package stop

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/basnijholt/ai-assistant/internal/ui"
)

// Signal is a resettable stop flag with interrupt-escalation bookkeeping.
// Setting it requests a graceful stop of the current turn; Clear re-arms it
// for the next turn and resets the interrupt count. The interrupt count is
// never reset by Set, only by Clear.
type Signal struct {
	mu         sync.Mutex
	set        bool
	interrupts int
	done       chan struct{}
}

// NewSignal returns a cleared Signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// IsSet reports whether a stop has been requested.
func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Set requests a stop. Idempotent.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		s.set = true
		close(s.done)
	}
}

// Clear re-arms the signal for a new turn and resets the interrupt count.
func (s *Signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		s.set = false
		s.done = make(chan struct{})
	}
	s.interrupts = 0
}

// Done returns a channel that is closed when the signal is set. A fresh
// channel is installed on Clear, so callers must re-fetch it per turn.
func (s *Signal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// IncrementInterrupts records one interrupt and returns the new count.
func (s *Signal) IncrementInterrupts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupts++
	return s.interrupts
}

// Interrupts returns the interrupts seen since the last Clear.
func (s *Signal) Interrupts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupts
}

// InterruptExitCode is the conventional exit status for a forced interrupt.
const InterruptExitCode = 130

// Install routes SIGINT and SIGTERM into sig. The first SIGINT sets sig so
// the in-flight turn can finish; a second SIGINT before the next Clear calls
// exit(130) immediately, bypassing any cleanup. SIGTERM always sets sig.
// The returned function detaches the handlers.
//
// exit is injectable for tests; pass os.Exit in production.
func Install(sig *Signal, logger zerolog.Logger, console *ui.Console, exit func(int)) func() {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	stopped := make(chan struct{})

	go func() {
		for {
			select {
			case <-stopped:
				return
			case s := <-ch:
				switch s {
				case syscall.SIGTERM:
					logger.Info().Msg("SIGTERM received, stopping")
					sig.Set()
				default:
					if sig.IncrementInterrupts() == 1 {
						logger.Info().Msg("first interrupt, finishing current turn")
						console.Warn("Ctrl+C pressed. Finishing up... (press Ctrl+C again to force exit)")
						sig.Set()
					} else {
						logger.Info().Msg("second interrupt, force exit")
						console.Error("Force exit!")
						exit(InterruptExitCode)
					}
				}
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(stopped)
	}
}
