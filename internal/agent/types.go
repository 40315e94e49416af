package agent

import "context"

// Transcriber captures one turn of user speech and returns its transcript.
// An error means no result could be obtained this turn (server down and the
// like); the conversation survives it.
type Transcriber interface {
	Transcribe(ctx context.Context) (string, error)
}

// LLM generates a single response for a prompt.
type LLM interface {
	Generate(ctx context.Context, systemPrompt, instructions, userInput string) (string, error)
}

// Speaker voices a response. Implementations report their own failures; the
// turn's history is already persisted by the time Speak runs.
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// TranscriberFunc adapts a function to the Transcriber interface.
type TranscriberFunc func(ctx context.Context) (string, error)

// Transcribe implements Transcriber.
func (f TranscriberFunc) Transcribe(ctx context.Context) (string, error) { return f(ctx) }

// SpeakerFunc adapts a function to the Speaker interface.
type SpeakerFunc func(ctx context.Context, text string)

// Speak implements Speaker.
func (f SpeakerFunc) Speak(ctx context.Context, text string) { f(ctx, text) }
