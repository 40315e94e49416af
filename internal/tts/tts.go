// Package tts synthesizes speech through a Wyoming TTS server and plays or
// saves the result.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/basnijholt/ai-assistant/internal/audio"
	"github.com/basnijholt/ai-assistant/internal/ui"
	"github.com/basnijholt/ai-assistant/internal/wyoming"
)

// Options configures synthesis and playback.
type Options struct {
	Host        string
	Port        int
	Voice       string
	Language    string
	Speaker     string
	Device      audio.Device
	DeviceIndex *int
	// SaveFile, when set, receives the synthesized WAV.
	SaveFile string
	// Play controls whether the audio is sent to Device.
	Play    bool
	Logger  zerolog.Logger
	Console *ui.Console
}

func (o Options) voice() *wyoming.Voice {
	if o.Voice == "" && o.Language == "" && o.Speaker == "" {
		return nil
	}
	return &wyoming.Voice{Name: o.Voice, Language: o.Language, Speaker: o.Speaker}
}

// Synthesize asks the TTS server to speak text and returns the audio as WAV.
func Synthesize(ctx context.Context, opts Options, text string) ([]byte, error) {
	client, err := wyoming.Dial(ctx, opts.Host, opts.Port)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return synthesize(client, opts, text)
}

func synthesize(client wyoming.EventClient, opts Options, text string) ([]byte, error) {
	logger := opts.Logger
	if err := client.WriteEvent(wyoming.Synthesize{Text: text, Voice: opts.voice()}); err != nil {
		return nil, err
	}

	var pcm bytes.Buffer
	rate, width, channels := 0, 0, 0
	for {
		ev, err := client.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Warn().Msg("connection to TTS server lost")
				break
			}
			return nil, err
		}
		done := false
		switch e := ev.(type) {
		case wyoming.AudioStart:
			rate, width, channels = e.Rate, e.Width, e.Channels
			logger.Debug().Int("rate", rate).Int("channels", channels).Msg("audio stream started")
		case wyoming.AudioChunk:
			pcm.Write(e.Audio)
			logger.Debug().Int("bytes", len(e.Audio)).Msg("received audio")
		case wyoming.AudioStop:
			logger.Debug().Msg("audio stream completed")
			done = true
		default:
			logger.Debug().Type("event", e).Msg("ignoring event")
		}
		if done {
			break
		}
	}

	if rate == 0 || pcm.Len() == 0 {
		return nil, fmt.Errorf("tts: no audio received")
	}
	logger.Info().Int("bytes", pcm.Len()).Msg("speech synthesis completed")
	return EncodeWAV(pcm.Bytes(), rate, width, channels), nil
}

// Play writes WAV audio to the output device in capture-sized chunks.
func Play(ctx context.Context, opts Options, wav []byte) error {
	pcm, rate, width, channels, err := DecodeWAV(wav)
	if err != nil {
		return err
	}
	stream, err := opts.Device.OpenOutputStream(audio.StreamParams{
		Rate:            rate,
		Channels:        channels,
		SampleWidth:     width,
		FramesPerBuffer: audio.FramesPerBuffer,
		DeviceIndex:     opts.DeviceIndex,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	chunkBytes := audio.FramesPerBuffer * channels * width
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
		if err := stream.Write(pcm[off:end]); err != nil {
			return err
		}
	}
	opts.Logger.Info().Msg("audio playback completed")
	return nil
}

// Speak synthesizes text, then plays and/or saves it per opts. Failures are
// logged and reported on the console but never escalate past this call: the
// caller's turn already committed its state before speaking.
func Speak(ctx context.Context, opts Options, text string) []byte {
	logger := opts.Logger
	opts.Console.Print("Speaking...")

	wav, err := Synthesize(ctx, opts, text)
	if err != nil {
		logger.Error().Err(err).Msg("speech synthesis failed")
		opts.Console.Error("TTS failed: %v", err)
		opts.Console.Suggest("is the TTS server running at %s:%d?", opts.Host, opts.Port)
		return nil
	}

	if opts.Play {
		if err := Play(ctx, opts, wav); err != nil {
			logger.Error().Err(err).Msg("audio playback failed")
			opts.Console.Error("playback failed: %v", err)
		}
	}
	if opts.SaveFile != "" {
		if err := os.WriteFile(opts.SaveFile, wav, 0o644); err != nil {
			logger.Error().Err(err).Msg("saving audio failed")
			opts.Console.Error("could not save audio: %v", err)
		} else {
			opts.Console.Print("Audio saved to %s", opts.SaveFile)
		}
	}
	return wav
}
