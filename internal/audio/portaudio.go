package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice is the hardware-backed Device. Construct one per process;
// it owns the PortAudio runtime until Close.
type PortAudioDevice struct {
	devices []*portaudio.DeviceInfo
}

// NewPortAudioDevice initializes PortAudio and snapshots the device table.
func NewPortAudioDevice() (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: initialize portaudio: %w", err)
	}
	devices, err := portaudio.Devices()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("audio: enumerate devices: %w", err)
	}
	return &PortAudioDevice{devices: devices}, nil
}

// Close releases the PortAudio runtime.
func (d *PortAudioDevice) Close() error { return portaudio.Terminate() }

// Devices lists the snapshot taken at construction.
func (d *PortAudioDevice) Devices() ([]Info, error) {
	infos := make([]Info, 0, len(d.devices))
	for i, dev := range d.devices {
		infos = append(infos, Info{
			Index:          i,
			Name:           dev.Name,
			InputChannels:  dev.MaxInputChannels,
			OutputChannels: dev.MaxOutputChannels,
		})
	}
	return infos, nil
}

func (d *PortAudioDevice) deviceAt(index *int, def *portaudio.DeviceInfo) (*portaudio.DeviceInfo, error) {
	if index == nil {
		return def, nil
	}
	if *index < 0 || *index >= len(d.devices) {
		return nil, fmt.Errorf("audio: device index %d not found", *index)
	}
	return d.devices[*index], nil
}

// OpenInputStream opens and starts a capture stream.
func (d *PortAudioDevice) OpenInputStream(p StreamParams) (Stream, error) {
	def, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("audio: default input device: %w", err)
	}
	dev, err := d.deviceAt(p.DeviceIndex, def)
	if err != nil {
		return nil, err
	}

	buf := make([]int16, p.FramesPerBuffer*p.Channels)
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = p.Channels
	params.SampleRate = float64(p.Rate)
	params.FramesPerBuffer = p.FramesPerBuffer
	s, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("audio: open input stream: %w", err)
	}
	if err := s.Start(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("audio: start input stream: %w", err)
	}
	return &paStream{stream: s, buf: buf}, nil
}

// OpenOutputStream opens and starts a playback stream.
func (d *PortAudioDevice) OpenOutputStream(p StreamParams) (Stream, error) {
	def, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("audio: default output device: %w", err)
	}
	dev, err := d.deviceAt(p.DeviceIndex, def)
	if err != nil {
		return nil, err
	}

	buf := make([]int16, p.FramesPerBuffer*p.Channels)
	params := portaudio.LowLatencyParameters(nil, dev)
	params.Output.Channels = p.Channels
	params.SampleRate = float64(p.Rate)
	params.FramesPerBuffer = p.FramesPerBuffer
	s, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("audio: open output stream: %w", err)
	}
	if err := s.Start(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("audio: start output stream: %w", err)
	}
	return &paStream{stream: s, buf: buf}, nil
}

// paStream adapts a portaudio stream, which reads and writes through the
// int16 slice bound at open time, to the byte-oriented Stream contract.
type paStream struct {
	stream *portaudio.Stream
	buf    []int16
}

func (s *paStream) Read(frames int) ([]byte, error) {
	if err := s.stream.Read(); err != nil {
		return nil, err
	}
	out := make([]byte, len(s.buf)*2)
	for i, v := range s.buf {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out, nil
}

func (s *paStream) Write(pcm []byte) error {
	// Play in bound-buffer steps; the final partial step is zero-padded.
	step := len(s.buf) * 2
	for off := 0; off < len(pcm); off += step {
		end := off + step
		if end > len(pcm) {
			end = len(pcm)
		}
		chunk := pcm[off:end]
		for i := range s.buf {
			if i*2+1 < len(chunk) {
				s.buf[i] = int16(binary.LittleEndian.Uint16(chunk[i*2:]))
			} else {
				s.buf[i] = 0
			}
		}
		if err := s.stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

func (s *paStream) Close() error {
	_ = s.stream.Stop()
	return s.stream.Close()
}
