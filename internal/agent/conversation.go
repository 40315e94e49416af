// Package agent runs the conversational loop: listen, think, respond,
// remember. One Conversation owns the history for its session; no other
// goroutine mutates it.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/basnijholt/ai-assistant/internal/history"
	"github.com/basnijholt/ai-assistant/internal/stop"
	"github.com/basnijholt/ai-assistant/internal/ui"
)

// Conversation wires the per-session collaborators. All fields are required
// except Speaker, which may be nil when TTS is disabled.
type Conversation struct {
	Transcriber Transcriber
	LLM         LLM
	Speaker     Speaker
	Store       *history.Store
	Signal      *stop.Signal
	Logger      zerolog.Logger
	Console     *ui.Console

	entries []history.Entry
}

// LoadHistory restores the persisted conversation for this session. Call
// once before Run.
func (c *Conversation) LoadHistory() error {
	entries, err := c.Store.Load()
	if err != nil {
		return err
	}
	c.entries = entries
	return nil
}

// Entries exposes the in-memory history, mainly for tests.
func (c *Conversation) Entries() []history.Entry { return c.entries }

// Run loops turns until the stop signal is set. No failure of a single
// turn's I/O or model call terminates the loop. A completed turn clears the
// signal, re-arming the interrupt escalation window; an aborted turn does
// not, so an interrupt during listening with nothing captured ends the
// conversation.
func (c *Conversation) Run(ctx context.Context) error {
	for !c.Signal.IsSet() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if c.runTurn(ctx) {
			c.Signal.Clear()
		}
	}
	return nil
}

// runTurn executes one listen -> think -> respond cycle. It reports whether
// the turn ran to completion.
func (c *Conversation) runTurn(ctx context.Context) bool {
	turnID := uuid.NewString()
	logger := c.Logger.With().Str("turn_id", turnID).Logger()

	c.Console.Print("Listening for your command...")
	instruction, err := c.Transcriber.Transcribe(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("transcription failed")
		c.Console.Error("could not reach the ASR server: %v", err)
		return false
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		logger.Info().Msg("empty instruction, listening again")
		c.Console.Print("No instruction, listening again.")
		return false
	}
	c.Console.Print("You: %s", instruction)

	c.entries = append(c.entries, history.NewEntry(history.RoleUser, instruction))

	prompt := fmt.Sprintf(userMessageTemplate, history.FormatForModel(c.entries, time.Now().UTC()), instruction)
	response, err := c.LLM.Generate(ctx, SystemPrompt, Instructions, prompt)
	if err != nil {
		// Abandon the turn: drop the user entry again so nothing from this
		// turn reaches the history file.
		c.entries = c.entries[:len(c.entries)-1]
		logger.Error().Err(err).Msg("LLM call failed")
		c.Console.Error("LLM error: %v", err)
		return false
	}
	if strings.TrimSpace(response) == "" {
		c.entries = c.entries[:len(c.entries)-1]
		logger.Info().Msg("empty LLM response")
		c.Console.Warn("No response from LLM.")
		return false
	}
	c.Console.Print("AI: %s", response)

	c.entries = append(c.entries, history.NewEntry(history.RoleAssistant, response))
	if err := c.Store.Save(c.entries); err != nil {
		logger.Error().Err(err).Msg("persisting history failed")
		c.Console.Error("could not save conversation history: %v", err)
	}

	// History is on disk before any speech: a TTS failure cannot lose the
	// turn.
	if c.Speaker != nil {
		c.Speaker.Speak(ctx, response)
	}
	return true
}
