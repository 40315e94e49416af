package tts

import (
	"encoding/binary"
	"fmt"
)

// wavHeaderSize is the byte length of a canonical RIFF/WAVE header with one
// fmt chunk and one data chunk.
const wavHeaderSize = 44

// EncodeWAV wraps raw PCM in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, rate, width, channels int) []byte {
	out := make([]byte, wavHeaderSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(rate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(rate*channels*width))
	binary.LittleEndian.PutUint16(out[32:34], uint16(channels*width))
	binary.LittleEndian.PutUint16(out[34:36], uint16(width*8))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)
	return out
}

// DecodeWAV extracts the PCM payload and format from a RIFF/WAVE container
// produced by EncodeWAV or a compatible encoder.
func DecodeWAV(data []byte) (pcm []byte, rate, width, channels int, err error) {
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, 0, fmt.Errorf("tts: not a WAV container")
	}
	channels = int(binary.LittleEndian.Uint16(data[22:24]))
	rate = int(binary.LittleEndian.Uint32(data[24:28]))
	width = int(binary.LittleEndian.Uint16(data[34:36])) / 8
	size := int(binary.LittleEndian.Uint32(data[40:44]))
	if wavHeaderSize+size > len(data) {
		size = len(data) - wavHeaderSize
	}
	return data[wavHeaderSize : wavHeaderSize+size], rate, width, channels, nil
}
