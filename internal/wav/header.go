// Package wav encodes and decodes the minimal single-channel PCM RIFF/WAVE
// header that prefixes every captured clip.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the size in bytes of the canonical PCM header.
const HeaderSize = 44

// MaxDataSize is the largest payload whose RIFF size still fits in 32 bits.
const MaxDataSize = math.MaxUint32 - (HeaderSize - 8)

const (
	formatPCM  = 1
	fmtChunkSz = 16
)

var (
	ErrShortBuffer       = errors.New("wav: buffer shorter than header")
	ErrNotRIFF           = errors.New("wav: missing RIFF tag")
	ErrNotWAVE           = errors.New("wav: missing WAVE tag")
	ErrUnsupportedFormat = errors.New("wav: unsupported format")
)

// Header describes a linear PCM clip.
type Header struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	DataSize      uint32
}

// NewPCM16Mono returns the header for totalSamples 16-bit mono samples.
func NewPCM16Mono(sampleRate, totalSamples int) Header {
	return Header{
		SampleRate:    uint32(sampleRate),
		Channels:      1,
		BitsPerSample: 16,
		DataSize:      uint32(totalSamples * 2),
	}
}

// BlockAlign returns the number of bytes per frame.
func (h Header) BlockAlign() uint16 {
	return h.Channels * h.BitsPerSample / 8
}

// ByteRate returns the number of payload bytes per second.
func (h Header) ByteRate() uint32 {
	return h.SampleRate * uint32(h.BlockAlign())
}

// Samples returns the number of samples per channel described by DataSize.
func (h Header) Samples() int {
	if h.BlockAlign() == 0 {
		return 0
	}
	return int(h.DataSize) / int(h.BlockAlign())
}

// Put writes the 44-byte header into dst.
func (h Header) Put(dst []byte) error {
	if len(dst) < HeaderSize {
		return ErrShortBuffer
	}
	h.put(dst[:HeaderSize])
	return nil
}

func (h Header) put(dst []byte) {
	le := binary.LittleEndian

	copy(dst[0:4], "RIFF")
	le.PutUint32(dst[4:8], HeaderSize-8+h.DataSize)
	copy(dst[8:12], "WAVE")

	copy(dst[12:16], "fmt ")
	le.PutUint32(dst[16:20], fmtChunkSz)
	le.PutUint16(dst[20:22], formatPCM)
	le.PutUint16(dst[22:24], h.Channels)
	le.PutUint32(dst[24:28], h.SampleRate)
	le.PutUint32(dst[28:32], h.ByteRate())
	le.PutUint16(dst[32:34], h.BlockAlign())
	le.PutUint16(dst[34:36], h.BitsPerSample)

	copy(dst[36:40], "data")
	le.PutUint32(dst[40:44], h.DataSize)
}

// Bytes returns the encoded header.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	h.put(b)
	return b
}

// Parse decodes and validates a canonical PCM header.
func Parse(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortBuffer
	}
	if string(b[0:4]) != "RIFF" {
		return Header{}, ErrNotRIFF
	}
	if string(b[8:12]) != "WAVE" {
		return Header{}, ErrNotWAVE
	}
	if string(b[12:16]) != "fmt " || string(b[36:40]) != "data" {
		return Header{}, fmt.Errorf("%w: unexpected chunk layout", ErrUnsupportedFormat)
	}

	le := binary.LittleEndian
	if sz := le.Uint32(b[16:20]); sz != fmtChunkSz {
		return Header{}, fmt.Errorf("%w: fmt chunk size %d", ErrUnsupportedFormat, sz)
	}
	if code := le.Uint16(b[20:22]); code != formatPCM {
		return Header{}, fmt.Errorf("%w: format code %d", ErrUnsupportedFormat, code)
	}

	h := Header{
		Channels:      le.Uint16(b[22:24]),
		SampleRate:    le.Uint32(b[24:28]),
		BitsPerSample: le.Uint16(b[34:36]),
		DataSize:      le.Uint32(b[40:44]),
	}
	if h.Channels == 0 || h.BitsPerSample == 0 {
		return Header{}, fmt.Errorf("%w: %d channels, %d bits", ErrUnsupportedFormat, h.Channels, h.BitsPerSample)
	}
	if le.Uint32(b[28:32]) != h.ByteRate() || le.Uint16(b[32:34]) != h.BlockAlign() {
		return Header{}, fmt.Errorf("%w: inconsistent byte rate or block align", ErrUnsupportedFormat)
	}
	return h, nil
}
