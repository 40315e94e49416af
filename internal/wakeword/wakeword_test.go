package wakeword

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/basnijholt/ai-assistant/internal/audio"
	"github.com/basnijholt/ai-assistant/internal/stop"
	"github.com/basnijholt/ai-assistant/internal/wyoming"
)

// silentStream serves silence forever.
type silentStream struct{}

func (silentStream) Read(frames int) ([]byte, error) {
	// Pace the capture loop roughly like real hardware.
	time.Sleep(time.Millisecond)
	return make([]byte, frames*audio.SampleWidth), nil
}
func (silentStream) Write([]byte) error { return nil }
func (silentStream) Close() error       { return nil }

// floodStream serves oversized chunks as fast as the loop asks, enough to
// fill the socket buffers when the peer stops draining.
type floodStream struct{}

func (floodStream) Read(int) ([]byte, error) { return make([]byte, 1<<20), nil }
func (floodStream) Write([]byte) error       { return nil }
func (floodStream) Close() error             { return nil }

type floodDevice struct{}

func (floodDevice) OpenInputStream(audio.StreamParams) (audio.Stream, error)  { return floodStream{}, nil }
func (floodDevice) OpenOutputStream(audio.StreamParams) (audio.Stream, error) { return floodStream{}, nil }
func (floodDevice) Devices() ([]audio.Info, error)                            { return nil, nil }
func (floodDevice) Close() error                                              { return nil }

type fakeDevice struct{}

func (fakeDevice) OpenInputStream(audio.StreamParams) (audio.Stream, error)  { return silentStream{}, nil }
func (fakeDevice) OpenOutputStream(audio.StreamParams) (audio.Stream, error) { return silentStream{}, nil }
func (fakeDevice) Devices() ([]audio.Info, error)                            { return nil, nil }
func (fakeDevice) Close() error                                              { return nil }

// fakeServer accepts one connection and runs script against it.
func fakeServer(t *testing.T, script func(*wyoming.Client)) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		script(wyoming.NewClient(conn))
	}()

	hostStr, portStr, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(portStr)
	return hostStr, p
}

func TestDetect_DetectionWins(t *testing.T) {
	host, port := fakeServer(t, func(client *wyoming.Client) {
		// Expect the detect request, swallow audio until some arrives, then
		// answer with a detection.
		ev, err := client.ReadEvent()
		if err != nil {
			t.Errorf("read detect request: %v", err)
			return
		}
		req, ok := ev.(wyoming.Detect)
		if !ok || len(req.Names) != 1 || req.Names[0] != "ok_nabu" {
			t.Errorf("expected detect request for ok_nabu, got %#v", ev)
			return
		}
		for i := 0; i < 3; i++ {
			if _, err := client.ReadEvent(); err != nil {
				return
			}
		}
		_ = client.WriteEvent(wyoming.Detection{Name: "ok_nabu"})
	})

	sig := stop.NewSignal()
	name, err := Detect(context.Background(), sig, Options{
		Host:     host,
		Port:     port,
		WakeWord: "ok_nabu",
		Device:   fakeDevice{},
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if name != "ok_nabu" {
		t.Fatalf("expected detection ok_nabu, got %q", name)
	}
	if sig.IsSet() {
		t.Fatal("Detect must not set the caller's stop signal")
	}
}

func TestDetect_ExternalStopWins(t *testing.T) {
	host, port := fakeServer(t, func(client *wyoming.Client) {
		// Never send a detection; just drain whatever arrives.
		for {
			if _, err := client.ReadEvent(); err != nil {
				return
			}
		}
	})

	sig := stop.NewSignal()
	go func() {
		time.Sleep(30 * time.Millisecond)
		sig.Set()
	}()

	name, err := Detect(context.Background(), sig, Options{
		Host:     host,
		Port:     port,
		WakeWord: "ok_nabu",
		Device:   fakeDevice{},
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if name != "" {
		t.Fatalf("external stop must yield no detection, got %q", name)
	}
}

func TestDetect_ReturnsWhileSenderBlocked(t *testing.T) {
	host, port := fakeServer(t, func(client *wyoming.Client) {
		if _, err := client.ReadEvent(); err != nil {
			return
		}
		// Answer right away and stop draining audio, so the sender's writes
		// back up in the socket buffers.
		_ = client.WriteEvent(wyoming.Detection{Name: "ok_nabu"})
		time.Sleep(5 * time.Second)
	})

	sig := stop.NewSignal()
	done := make(chan struct{})
	var name string
	var detectErr error
	go func() {
		defer close(done)
		name, detectErr = Detect(context.Background(), sig, Options{
			Host:     host,
			Port:     port,
			WakeWord: "ok_nabu",
			Device:   floodDevice{},
			Logger:   zerolog.Nop(),
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Detect must hand over the detection even with the sender stuck in a write")
	}
	if detectErr != nil {
		t.Fatalf("Detect: %v", detectErr)
	}
	if name != "ok_nabu" {
		t.Fatalf("expected detection ok_nabu, got %q", name)
	}
}

func TestDetect_NotDetected(t *testing.T) {
	host, port := fakeServer(t, func(client *wyoming.Client) {
		if _, err := client.ReadEvent(); err != nil {
			return
		}
		_ = client.WriteEvent(wyoming.NotDetected{})
	})

	sig := stop.NewSignal()
	name, err := Detect(context.Background(), sig, Options{
		Host:     host,
		Port:     port,
		WakeWord: "ok_nabu",
		Device:   fakeDevice{},
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if name != "" {
		t.Fatalf("not-detected must yield empty name, got %q", name)
	}
}

func TestDetect_ConnectionRefused(t *testing.T) {
	// Grab a free port and close the listener so nothing is there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	sig := stop.NewSignal()
	_, err = Detect(context.Background(), sig, Options{
		Host:     "127.0.0.1",
		Port:     port,
		WakeWord: "ok_nabu",
		Device:   fakeDevice{},
		Logger:   zerolog.Nop(),
	})
	if err == nil {
		t.Fatal("expected a connection error")
	}
}

func TestDetect_UnnamedDetection(t *testing.T) {
	host, port := fakeServer(t, func(client *wyoming.Client) {
		if _, err := client.ReadEvent(); err != nil {
			return
		}
		_ = client.WriteEvent(wyoming.Detection{})
	})

	sig := stop.NewSignal()
	name, err := Detect(context.Background(), sig, Options{
		Host:     host,
		Port:     port,
		WakeWord: "ok_nabu",
		Device:   fakeDevice{},
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if name != "unknown" {
		t.Fatalf("detection without a name maps to %q, want unknown", name)
	}
}
