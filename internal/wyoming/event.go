// Package wyoming implements a client for the Wyoming voice-event protocol:
// a bidirectional, ordered stream of typed events over TCP. Events are decoded
// into a closed set of Go types at the wire boundary so that consumers switch
// on concrete kinds instead of comparing type strings.
package wyoming

// Event is the closed set of protocol events. Unrecognized wire types decode
// to Unknown, which consumers treat as a deliberate ignore arm.
type Event interface {
	eventType() string
}

// Transcribe asks the peer to start a transcription session.
type Transcribe struct{}

// AudioStart declares the PCM parameters of the audio stream that follows.
type AudioStart struct {
	Rate     int `json:"rate"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

// AudioChunk carries one buffer of raw PCM.
type AudioChunk struct {
	Rate     int    `json:"rate"`
	Width    int    `json:"width"`
	Channels int    `json:"channels"`
	Audio    []byte `json:"-"`
}

// AudioStop terminates the audio stream.
type AudioStop struct{}

// TranscriptStart marks the beginning of streamed transcription results.
type TranscriptStart struct{}

// TranscriptChunk is a partial, non-authoritative transcription.
type TranscriptChunk struct {
	Text string `json:"text"`
}

// Transcript is the final, authoritative transcription for the session.
type Transcript struct {
	Text string `json:"text"`
}

// TranscriptStop marks the end of streamed transcription results.
type TranscriptStop struct{}

// Detect asks the peer to watch the audio stream for the named wake words.
type Detect struct {
	Names []string `json:"names"`
}

// Detection reports a spotted wake word.
type Detection struct {
	Name string `json:"name"`
}

// NotDetected reports that the stream ended without a wake word.
type NotDetected struct{}

// Voice selects a synthesis voice.
type Voice struct {
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
}

// Synthesize asks the peer to speak the given text.
type Synthesize struct {
	Text  string `json:"text"`
	Voice *Voice `json:"voice,omitempty"`
}

// Unknown is any event kind this client does not model. Consumers log and
// skip it.
type Unknown struct {
	Type string
}

func (Transcribe) eventType() string      { return "transcribe" }
func (AudioStart) eventType() string      { return "audio-start" }
func (AudioChunk) eventType() string      { return "audio-chunk" }
func (AudioStop) eventType() string       { return "audio-stop" }
func (TranscriptStart) eventType() string { return "transcript-start" }
func (TranscriptChunk) eventType() string { return "transcript-chunk" }
func (Transcript) eventType() string      { return "transcript" }
func (TranscriptStop) eventType() string  { return "transcript-stop" }
func (Detect) eventType() string          { return "detect" }
func (Detection) eventType() string       { return "detection" }
func (NotDetected) eventType() string     { return "not-detected" }
func (Synthesize) eventType() string      { return "synthesize" }
func (u Unknown) eventType() string       { return u.Type }
