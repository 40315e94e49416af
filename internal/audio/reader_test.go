package audio

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/basnijholt/ai-assistant/internal/stop"
)

// countingStream serves n chunks of recognizable bytes, then sets sig.
type countingStream struct {
	n      int
	served int
	sig    *stop.Signal
	err    error
}

func (c *countingStream) Read(frames int) ([]byte, error) {
	if c.served >= c.n {
		if c.err != nil {
			return nil, c.err
		}
		c.sig.Set()
	}
	chunk := bytes.Repeat([]byte{byte(c.served)}, frames*SampleWidth)
	c.served++
	return chunk, nil
}

func (c *countingStream) Write([]byte) error { return nil }
func (c *countingStream) Close() error       { return nil }

func TestReadStream_StopsOnSignal(t *testing.T) {
	sig := stop.NewSignal()
	stream := &countingStream{n: 3, sig: sig}

	var handled int
	err := ReadStream(context.Background(), stream, sig, func(chunk []byte) error {
		handled++
		return nil
	}, zerolog.Nop(), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	if handled != 4 {
		t.Fatalf("expected 4 chunks handled before stop observed, got %d", handled)
	}
}

func TestReadStream_ReadErrorEndsQuietly(t *testing.T) {
	sig := stop.NewSignal()
	stream := &countingStream{n: 2, sig: sig, err: errors.New("overflow")}

	var handled int
	err := ReadStream(context.Background(), stream, sig, func([]byte) error {
		handled++
		return nil
	}, zerolog.Nop(), ReadOptions{})
	if err != nil {
		t.Fatalf("read errors end capture, they do not fail it: %v", err)
	}
	if handled != 2 {
		t.Fatalf("expected 2 chunks before the error, got %d", handled)
	}
}

func TestReadStream_HandlerErrorPropagates(t *testing.T) {
	sig := stop.NewSignal()
	stream := &countingStream{n: 10, sig: sig}
	boom := errors.New("peer gone")

	err := ReadStream(context.Background(), stream, sig, func([]byte) error {
		return boom
	}, zerolog.Nop(), ReadOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

func TestReadStream_ContextCancel(t *testing.T) {
	sig := stop.NewSignal()
	stream := &countingStream{n: 1000, sig: sig}
	ctx, cancel := context.WithCancel(context.Background())

	var handled int
	err := ReadStream(ctx, stream, sig, func([]byte) error {
		handled++
		if handled == 3 {
			cancel()
		}
		return nil
	}, zerolog.Nop(), ReadOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReadStream_Progress(t *testing.T) {
	sig := stop.NewSignal()
	stream := &countingStream{n: 2, sig: sig}

	var last float64
	err := ReadStream(context.Background(), stream, sig, func([]byte) error {
		return nil
	}, zerolog.Nop(), ReadOptions{Progress: func(seconds float64) { last = seconds }})
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	// 3 chunks of FramesPerBuffer frames at Rate Hz.
	want := 3 * float64(FramesPerBuffer) / float64(Rate)
	if last < want*0.99 || last > want*1.01 {
		t.Fatalf("expected ~%f seconds, got %f", want, last)
	}
}

func TestRecordToBuffer_Concatenates(t *testing.T) {
	sig := stop.NewSignal()
	stream := &countingStream{n: 2, sig: sig}

	pcm, err := RecordToBuffer(context.Background(), stream, sig, zerolog.Nop(), ReadOptions{})
	if err != nil {
		t.Fatalf("RecordToBuffer: %v", err)
	}
	want := 3 * FramesPerBuffer * SampleWidth
	if len(pcm) != want {
		t.Fatalf("expected %d bytes, got %d", want, len(pcm))
	}
	if pcm[0] != 0 || pcm[FramesPerBuffer*SampleWidth] != 1 {
		t.Fatal("chunks out of order")
	}
}
