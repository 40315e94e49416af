package agent

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/basnijholt/ai-assistant/internal/history"
	"github.com/basnijholt/ai-assistant/internal/stop"
	"github.com/basnijholt/ai-assistant/internal/ui"
)

// scriptedTranscriber returns its lines in order, then sets sig to end the
// conversation.
type scriptedTranscriber struct {
	lines []string
	errs  []error
	calls int
	sig   *stop.Signal
}

func (s *scriptedTranscriber) Transcribe(context.Context) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.lines) {
		s.sig.Set()
		return "", nil
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.lines[i], nil
}

type fakeLLM struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, _, _, userInput string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, userInput)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", nil
}

func newTestConversation(t *testing.T, sig *stop.Signal, tr Transcriber, llm LLM, speaker Speaker) (*Conversation, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversation.json")
	var out bytes.Buffer
	conv := &Conversation{
		Transcriber: tr,
		LLM:         llm,
		Speaker:     speaker,
		Store:       history.NewStore(path),
		Signal:      sig,
		Logger:      zerolog.Nop(),
		Console:     ui.NewConsole(&out, false),
	}
	if err := conv.LoadHistory(); err != nil {
		t.Fatal(err)
	}
	return conv, path
}

func TestConversation_TurnPersistsBothEntries(t *testing.T) {
	sig := stop.NewSignal()
	tr := &scriptedTranscriber{lines: []string{"hello there"}, sig: sig}
	llm := &fakeLLM{replies: []string{"Hi!"}}
	var spoken []string
	speaker := SpeakerFunc(func(_ context.Context, text string) { spoken = append(spoken, text) })

	conv, path := newTestConversation(t, sig, tr, llm, speaker)

	if err := conv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	saved, err := history.NewStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected user+assistant entries, got %+v", saved)
	}
	if saved[0].Role != history.RoleUser || saved[0].Content != "hello there" {
		t.Fatalf("bad user entry: %+v", saved[0])
	}
	if saved[1].Role != history.RoleAssistant || saved[1].Content != "Hi!" {
		t.Fatalf("bad assistant entry: %+v", saved[1])
	}
	userTS, err := time.Parse(time.RFC3339Nano, saved[0].Timestamp)
	if err != nil {
		t.Fatalf("user timestamp not ISO-8601: %v", err)
	}
	asstTS, err := time.Parse(time.RFC3339Nano, saved[1].Timestamp)
	if err != nil {
		t.Fatalf("assistant timestamp not ISO-8601: %v", err)
	}
	if asstTS.Before(userTS) {
		t.Fatalf("assistant entry predates the user entry: %s < %s", saved[1].Timestamp, saved[0].Timestamp)
	}
	if len(spoken) != 1 || spoken[0] != "Hi!" {
		t.Fatalf("response should be spoken once, got %v", spoken)
	}
}

func TestConversation_LLMErrorLeavesHistoryUntouched(t *testing.T) {
	sig := stop.NewSignal()
	tr := &scriptedTranscriber{
		lines: []string{"first question", "second question"},
		sig:   sig,
	}
	llm := &fakeLLM{
		errs:    []error{errors.New("model gone")},
		replies: []string{"", "Answer two."},
	}

	conv, path := newTestConversation(t, sig, tr, llm, nil)

	if err := conv.Run(context.Background()); err != nil {
		t.Fatalf("the loop must survive an LLM failure: %v", err)
	}

	saved, err := history.NewStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	// The failed first turn leaves no trace; only the second turn persists.
	if len(saved) != 2 {
		t.Fatalf("expected only the successful turn, got %+v", saved)
	}
	if saved[0].Content != "second question" || saved[1].Content != "Answer two." {
		t.Fatalf("wrong entries persisted: %+v", saved)
	}
}

func TestConversation_TranscriberErrorSkipsLLM(t *testing.T) {
	sig := stop.NewSignal()
	tr := &scriptedTranscriber{
		lines: []string{"", "ok now"},
		errs:  []error{errors.New("asr down")},
		sig:   sig,
	}
	llm := &fakeLLM{replies: []string{"Got it."}}

	conv, path := newTestConversation(t, sig, tr, llm, nil)

	if err := conv.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if llm.calls != 1 {
		t.Fatalf("LLM must only run for the successful turn, got %d calls", llm.calls)
	}
	saved, _ := history.NewStore(path).Load()
	if len(saved) != 2 || saved[0].Content != "ok now" {
		t.Fatalf("unexpected history: %+v", saved)
	}
}

func TestConversation_EmptyInstructionSkipsLLM(t *testing.T) {
	sig := stop.NewSignal()
	tr := &scriptedTranscriber{lines: []string{"   ", "real input"}, sig: sig}
	llm := &fakeLLM{replies: []string{"Reply."}}

	conv, _ := newTestConversation(t, sig, tr, llm, nil)

	if err := conv.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if llm.calls != 1 {
		t.Fatalf("whitespace-only input must not reach the LLM, got %d calls", llm.calls)
	}
}

func TestConversation_PromptCarriesHistoryAndInstruction(t *testing.T) {
	sig := stop.NewSignal()
	tr := &scriptedTranscriber{lines: []string{"follow up"}, sig: sig}
	llm := &fakeLLM{replies: []string{"Sure."}}

	conv, _ := newTestConversation(t, sig, tr, llm, nil)
	conv.entries = []history.Entry{history.NewEntry(history.RoleUser, "earlier question")}

	if err := conv.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(llm.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(llm.prompts))
	}
	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "<previous-conversation>") || !strings.Contains(prompt, "<user-message>") {
		t.Fatalf("prompt missing context tags:\n%s", prompt)
	}
	if !strings.Contains(prompt, "earlier question") {
		t.Fatalf("prompt missing prior history:\n%s", prompt)
	}
	if !strings.Contains(prompt, "follow up") {
		t.Fatalf("prompt missing the new instruction:\n%s", prompt)
	}
}

func TestConversation_PersistFailureKeepsLooping(t *testing.T) {
	sig := stop.NewSignal()
	tr := &scriptedTranscriber{lines: []string{"hello"}, sig: sig}
	llm := &fakeLLM{replies: []string{"Hi."}}

	conv, _ := newTestConversation(t, sig, tr, llm, nil)
	// Point the store at an unwritable path.
	ro := filepath.Join(t.TempDir(), "ro")
	if err := os.MkdirAll(ro, 0o500); err != nil {
		t.Fatal(err)
	}
	conv.Store = history.NewStore(filepath.Join(ro, "sub", "conversation.json"))

	if err := conv.Run(context.Background()); err != nil {
		t.Fatalf("a persistence failure must not end the conversation: %v", err)
	}
	if len(conv.Entries()) != 2 {
		t.Fatalf("in-memory history still advances, got %+v", conv.Entries())
	}
}

func TestConversation_SignalClearedEachIteration(t *testing.T) {
	sig := stop.NewSignal()
	tr := &scriptedTranscriber{lines: []string{"one"}, sig: sig}
	llm := &fakeLLM{replies: []string{"1"}}

	conv, _ := newTestConversation(t, sig, tr, llm, nil)
	sig.IncrementInterrupts()

	if err := conv.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sig.Interrupts() != 0 {
		t.Fatalf("each iteration must re-arm the interrupt window, got %d", sig.Interrupts())
	}
}
