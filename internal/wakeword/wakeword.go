// Package wakeword spots a trigger word in live audio without pre-deciding
// capture duration: the audio sender and the detection receiver race, and
// whichever finishes first wins the turn.
package wakeword

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/basnijholt/ai-assistant/internal/audio"
	"github.com/basnijholt/ai-assistant/internal/stop"
	"github.com/basnijholt/ai-assistant/internal/wyoming"
)

// Options configures one gate invocation.
type Options struct {
	Host        string
	Port        int
	WakeWord    string
	Device      audio.Device
	DeviceIndex *int
	Logger      zerolog.Logger
	// Progress receives seconds of audio streamed so far. Best-effort.
	Progress func(seconds float64)
	// DetectionCallback fires when the wake word is spotted.
	DetectionCallback func(name string)
}

// sendAudio streams microphone chunks for detection, always closing with the
// end-of-stream marker.
func sendAudio(ctx context.Context, client wyoming.EventClient, stream audio.Stream, sig *stop.Signal, logger zerolog.Logger, opts Options) (err error) {
	if err := client.WriteEvent(wyoming.AudioStart{Rate: audio.Rate, Width: audio.SampleWidth, Channels: audio.Channels}); err != nil {
		return err
	}
	defer func() {
		stopErr := client.WriteEvent(wyoming.AudioStop{})
		logger.Debug().Msg("sent audio-stop for wake detection")
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

// receiveDetection reads events until a detection, a not-detected marker, or
// disconnect. Returns the detected name or "".
func receiveDetection(client wyoming.EventClient, logger zerolog.Logger, opts Options) string {
	for {
		ev, err := client.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Warn().Msg("connection to wake word server lost")
			} else {
				logger.Warn().Err(err).Msg("wake word read failed")
			}
			return ""
		}
		switch e := ev.(type) {
		case wyoming.Detection:
			name := e.Name
			if name == "" {
				name = "unknown"
			}
			logger.Info().Str("wake_word", name).Msg("wake word detected")
			if opts.DetectionCallback != nil {
				opts.DetectionCallback(name)
			}
			return name
		case wyoming.NotDetected:
			logger.Debug().Msg("no wake word detected")
			return ""
		default:
			logger.Debug().Type("event", e).Msg("ignoring event")
		}
	}
}

// Detect runs one gate invocation: stream audio and wait for the first of
// {sender done, detection received}. The losing side is cancelled and awaited
// before Detect returns, so no background work dangles. An external stop
// always wins: if sig is set before a detection lands, the result is ""
// even when a detection is racing in. Setup failures (connection refused and
// the like) are returned for the caller to translate into "keep listening".
func Detect(ctx context.Context, sig *stop.Signal, opts Options) (string, error) {
	client, err := wyoming.Dial(ctx, opts.Host, opts.Port)
	if err != nil {
		return "", err
	}
	defer client.Close()

	if err := client.WriteEvent(wyoming.Detect{Names: []string{opts.WakeWord}}); err != nil {
		return "", err
	}

	stream, err := opts.Device.OpenInputStream(audio.InputParams(opts.DeviceIndex))
	if err != nil {
		return "", err
	}
	defer stream.Close()

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sendDone := make(chan struct{})
	recvDone := make(chan string, 1)
	go func() {
		defer close(sendDone)
		if err := sendAudio(raceCtx, client, stream, sig, opts.Logger, opts); err != nil {
			opts.Logger.Debug().Err(err).Msg("wake word sender ended")
		}
	}()
	go func() {
		recvDone <- receiveDetection(client, opts.Logger, opts)
	}()

	select {
	case name := <-recvDone:
		// Detection (or disconnect) first: cancel the sender, close the
		// connection so a write stuck on a full socket buffer unblocks, and
		// await it. The shared stop signal is left alone; it belongs to the
		// caller.
		cancel()
		_ = client.Close()
		<-sendDone
		return name, nil
	case <-sendDone:
		// External stop won the race. Close the connection to unblock the
		// receiver and await it; its result is discarded.
		cancel()
		_ = client.Close()
		<-recvDone
		return "", nil
	}
}
