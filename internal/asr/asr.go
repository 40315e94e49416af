// Package asr drives one transcription turn against a Wyoming ASR server:
// a sender streaming microphone audio and a receiver collecting transcript
// events run concurrently and are both awaited before the turn's result is
// returned.
package asr

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/basnijholt/ai-assistant/internal/audio"
	"github.com/basnijholt/ai-assistant/internal/stop"
	"github.com/basnijholt/ai-assistant/internal/ui"
	"github.com/basnijholt/ai-assistant/internal/wyoming"
)

// Options configures a transcription turn.
type Options struct {
	Host        string
	Port        int
	Device      audio.Device
	DeviceIndex *int
	Logger      zerolog.Logger
	Console     *ui.Console
	// Progress receives seconds of audio streamed so far. Best-effort.
	Progress func(seconds float64)
	// ChunkCallback receives partial transcript text as it streams in.
	ChunkCallback func(text string)
	// FinalCallback receives the final transcript once.
	FinalCallback func(text string)
}

// CompletionReason records how a transcription turn ended.
type CompletionReason string

const (
	// ReasonFinal means the server sent an authoritative transcript.
	ReasonFinal CompletionReason = "final"
	// ReasonConnectionLost means the peer closed before a final transcript.
	ReasonConnectionLost CompletionReason = "connection-lost"
	// ReasonEmpty means the turn produced no text at all.
	ReasonEmpty CompletionReason = "empty"
)

// Result is the single transcript produced by one turn. Immutable once
// returned.
type Result struct {
	Text   string
	Reason CompletionReason
}

func audioStart() wyoming.AudioStart {
	return wyoming.AudioStart{Rate: audio.Rate, Width: audio.SampleWidth, Channels: audio.Channels}
}

// SendAudio streams microphone chunks to the server until sig is set, then
// sends the end-of-stream marker. The marker is sent even when the capture
// loop fails partway: the server needs it to finalize whatever it heard.
func SendAudio(ctx context.Context, client wyoming.EventClient, stream audio.Stream, sig *stop.Signal, logger zerolog.Logger, opts Options) (err error) {
	if err := client.WriteEvent(wyoming.Transcribe{}); err != nil {
		return err
	}
	if err := client.WriteEvent(audioStart()); err != nil {
		return err
	}
	defer func() {
		stopErr := client.WriteEvent(wyoming.AudioStop{})
		logger.Debug().Msg("sent audio-stop")
		if err == nil {
			err = stopErr
		}
	}()

	return audio.ReadStream(ctx, stream, sig, func(chunk []byte) error {
		return client.WriteEvent(wyoming.AudioChunk{
			Rate:     audio.Rate,
			Width:    audio.SampleWidth,
			Channels: audio.Channels,
			Audio:    chunk,
		})
	}, logger, audio.ReadOptions{Params: audio.InputParams(opts.DeviceIndex), Progress: opts.Progress})
}

// SendBuffer streams pre-recorded PCM with the same framing as SendAudio.
// Used by the wake-word assistant after recording between two detections.
func SendBuffer(ctx context.Context, client wyoming.EventClient, pcm []byte, logger zerolog.Logger) (err error) {
	if err := client.WriteEvent(wyoming.Transcribe{}); err != nil {
		return err
	}
	if err := client.WriteEvent(audioStart()); err != nil {
		return err
	}
	defer func() {
		stopErr := client.WriteEvent(wyoming.AudioStop{})
		if err == nil {
			err = stopErr
		}
	}()

	chunkBytes := audio.FramesPerBuffer * audio.Channels * audio.SampleWidth
	for off := 0; off < len(pcm); off += chunkBytes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		end := off + chunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := client.WriteEvent(wyoming.AudioChunk{
			Rate:     audio.Rate,
			Width:    audio.SampleWidth,
			Channels: audio.Channels,
			Audio:    pcm[off:end],
		}); err != nil {
			return err
		}
		logger.Debug().Int("bytes", end-off).Msg("sent buffered audio chunk")
	}
	return nil
}

// ReceiveTranscript reads events until the final transcript arrives or the
// peer disconnects. On disconnect it returns the best text seen so far.
func ReceiveTranscript(ctx context.Context, client wyoming.EventClient, logger zerolog.Logger, opts Options) Result {
	partial := ""
	for {
		ev, err := client.ReadEvent()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn().Err(err).Msg("ASR read failed")
			} else {
				logger.Warn().Msg("connection to ASR server lost")
			}
			reason := ReasonConnectionLost
			if partial == "" {
				reason = ReasonEmpty
			}
			return Result{Text: partial, Reason: reason}
		}

		switch e := ev.(type) {
		case wyoming.Transcript:
			logger.Info().Str("text", e.Text).Msg("final transcript")
			if opts.FinalCallback != nil {
				opts.FinalCallback(e.Text)
			}
			return Result{Text: e.Text, Reason: ReasonFinal}
		case wyoming.TranscriptChunk:
			logger.Debug().Str("text", e.Text).Msg("transcript chunk")
			partial = e.Text
			if opts.ChunkCallback != nil {
				opts.ChunkCallback(e.Text)
			}
		case wyoming.TranscriptStart, wyoming.TranscriptStop:
			logger.Debug().Type("event", e).Msg("transcript marker")
		default:
			logger.Debug().Type("event", e).Msg("ignoring event")
		}
	}
}

// Transcribe runs one full ASR turn: connect, capture, and stream audio while
// collecting transcript events, then return the final text. Both tasks are
// awaited: a final transcript arriving mid-stream does not cancel the sender,
// which keeps streaming until sig is set. A connection failure is returned to
// the caller to treat as "no result this turn".
func Transcribe(ctx context.Context, sig *stop.Signal, opts Options) (string, error) {
	client, err := wyoming.Dial(ctx, opts.Host, opts.Port)
	if err != nil {
		return "", err
	}
	defer client.Close()

	stream, err := opts.Device.OpenInputStream(audio.InputParams(opts.DeviceIndex))
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var result Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return SendAudio(gctx, client, stream, sig, opts.Logger, opts)
	})
	g.Go(func() error {
		result = ReceiveTranscript(gctx, client, opts.Logger, opts)
		return nil
	})
	if err := g.Wait(); err != nil {
		opts.Logger.Warn().Err(err).Msg("ASR turn ended with error")
	}
	return result.Text, nil
}

// TranscribeBuffer runs the same coordinator over already-recorded PCM.
func TranscribeBuffer(ctx context.Context, pcm []byte, opts Options) (string, error) {
	client, err := wyoming.Dial(ctx, opts.Host, opts.Port)
	if err != nil {
		return "", err
	}
	defer client.Close()

	var result Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return SendBuffer(gctx, client, pcm, opts.Logger)
	})
	g.Go(func() error {
		result = ReceiveTranscript(gctx, client, opts.Logger, opts)
		return nil
	})
	if err := g.Wait(); err != nil {
		opts.Logger.Warn().Err(err).Msg("buffered ASR turn ended with error")
	}
	return result.Text, nil
}
