// Package audio defines the device contract the turn engine captures and
// plays PCM through, plus the shared chunked read loop. The PortAudio backend
// lives in portaudio.go; tests use in-memory fakes.
package audio

// Standard capture format shared with the Wyoming servers: mono 16-bit PCM
// at 16 kHz, read in 1024-frame chunks.
const (
	Rate            = 16000
	Channels        = 1
	SampleWidth     = 2
	FramesPerBuffer = 1024
)

// StreamParams describes an input or output stream to open.
type StreamParams struct {
	Rate            int
	Channels        int
	SampleWidth     int
	FramesPerBuffer int
	// DeviceIndex selects a device; nil means the system default.
	DeviceIndex *int
}

// InputParams returns the standard capture parameters for a device.
func InputParams(deviceIndex *int) StreamParams {
	return StreamParams{
		Rate:            Rate,
		Channels:        Channels,
		SampleWidth:     SampleWidth,
		FramesPerBuffer: FramesPerBuffer,
		DeviceIndex:     deviceIndex,
	}
}

// Stream is one open PCM stream. Read and Write block until the hardware has
// produced or consumed the requested frames.
type Stream interface {
	// Read returns the next frames of captured PCM as little-endian bytes.
	Read(frames int) ([]byte, error)
	// Write queues PCM bytes for playback.
	Write(pcm []byte) error
	Close() error
}

// Info describes one audio device.
type Info struct {
	Index          int
	Name           string
	InputChannels  int
	OutputChannels int
}

// Device opens streams and enumerates hardware. Exactly one turn at a time
// may hold a stream on a given device.
type Device interface {
	OpenInputStream(StreamParams) (Stream, error)
	OpenOutputStream(StreamParams) (Stream, error)
	Devices() ([]Info, error)
	Close() error
}
