package audio

import (
	"bytes"
	"context"

	"github.com/rs/zerolog"

	"github.com/basnijholt/ai-assistant/internal/stop"
)

// ChunkHandler consumes one captured chunk. Returning an error ends the read
// loop and propagates to the caller.
type ChunkHandler func(chunk []byte) error

// ReadOptions tunes the read loop. Progress is best-effort: it receives the
// seconds of audio streamed so far and must not block for long.
type ReadOptions struct {
	Params   StreamParams
	Progress func(seconds float64)
}

// ReadStream is the single chunked-capture loop behind every send and record
// path. It reads fixed-size chunks from stream and hands each to handler
// until sig is set, ctx is cancelled, or the stream errors. A read error is
// logged and treated as end-of-stream, not returned: callers must tolerate
// early termination at any point.
func ReadStream(ctx context.Context, stream Stream, sig *stop.Signal, handler ChunkHandler, logger zerolog.Logger, opts ReadOptions) error {
	params := opts.Params
	if params.Rate == 0 {
		params = InputParams(nil)
	}
	bytesPerSecond := float64(params.Rate * params.Channels * params.SampleWidth)

	var streamed float64
	for !sig.IsSet() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk, err := stream.Read(params.FramesPerBuffer)
		if err != nil {
			logger.Error().Err(err).Msg("error reading audio, stopping capture")
			return nil
		}
		if err := handler(chunk); err != nil {
			return err
		}
		logger.Debug().Int("bytes", len(chunk)).Msg("captured audio chunk")

		streamed += float64(len(chunk)) / bytesPerSecond
		if opts.Progress != nil {
			opts.Progress(streamed)
		}
	}
	return nil
}

// RecordToBuffer captures audio into memory until sig is set and returns the
// raw PCM. Used by the wake-word assistant between two wake detections.
func RecordToBuffer(ctx context.Context, stream Stream, sig *stop.Signal, logger zerolog.Logger, opts ReadOptions) ([]byte, error) {
	var buf bytes.Buffer
	err := ReadStream(ctx, stream, sig, func(chunk []byte) error {
		buf.Write(chunk)
		return nil
	}, logger, opts)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
