/*
NAME
  pcm.go

DESCRIPTION
  pcm.go contains functions for conditioning PCM tape captures before
  decoding: downmixing stereo recordings, decimating oversampled captures
  and converting between byte and float representations.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package pcm provides functions for processing and converting PCM audio.
package pcm

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// SampleFormat is the format that a PCM Buffer's samples can be in.
type SampleFormat int

// Used to represent an unknown format.
const (
	Unknown SampleFormat = -1
)

// Sample formats that we use.
const (
	S16_LE SampleFormat = iota
	S32_LE
)

// BufferFormat contains the format for a PCM Buffer.
type BufferFormat struct {
	SFormat  SampleFormat
	Rate     uint
	Channels uint
}

// Buffer contains a buffer of PCM data and the format that it is in.
type Buffer struct {
	Format BufferFormat
	Data   []byte
}

// sampleLen returns the number of bytes in one frame of samples, i.e. one
// sample per channel.
func (f BufferFormat) sampleLen() (int, error) {
	var depth int
	switch f.SFormat {
	case S16_LE:
		depth = 2
	case S32_LE:
		depth = 4
	default:
		return 0, errors.Errorf("unhandled sample format (%v)", f.SFormat)
	}
	return depth * int(f.Channels), nil
}

// Resample decimates the audio in b to rate Hz and returns a new Buffer
// with the result. The source rate must be an integer multiple of rate;
// each output sample is the average of its decimation group. A capture
// made at a multiple of the nominal tape rate can be brought back to
// nominal timing this way.
func Resample(b Buffer, rate uint) (Buffer, error) {
	if b.Format.Rate == rate {
		return b, nil
	}
	if rate == 0 || b.Format.Rate%rate != 0 {
		return Buffer{}, errors.Errorf("cannot resample from %v Hz to %v Hz: not an integer decimation", b.Format.Rate, rate)
	}

	sampleLen, err := b.Format.sampleLen()
	if err != nil {
		return Buffer{}, err
	}

	factor := int(b.Format.Rate / rate)
	frames := len(b.Data) / sampleLen / factor
	resampled := make([]byte, 0, frames*sampleLen)
	depth := sampleLen / int(b.Format.Channels)

	// Average each group of factor frames into one output frame, channel
	// by channel.
	frame := make([]byte, sampleLen)
	for i := 0; i < frames; i++ {
		for c := 0; c < int(b.Format.Channels); c++ {
			var sum int
			for j := 0; j < factor; j++ {
				off := (i*factor+j)*sampleLen + c*depth
				switch b.Format.SFormat {
				case S16_LE:
					sum += int(int16(binary.LittleEndian.Uint16(b.Data[off : off+2])))
				case S32_LE:
					sum += int(int32(binary.LittleEndian.Uint32(b.Data[off : off+4])))
				}
			}
			avg := sum / factor
			switch b.Format.SFormat {
			case S16_LE:
				binary.LittleEndian.PutUint16(frame[c*depth:], uint16(avg))
			case S32_LE:
				binary.LittleEndian.PutUint32(frame[c*depth:], uint32(avg))
			}
		}
		resampled = append(resampled, frame...)
	}

	return Buffer{
		Format: BufferFormat{
			Channels: b.Format.Channels,
			SFormat:  b.Format.SFormat,
			Rate:     rate,
		},
		Data: resampled,
	}, nil
}

// StereoToMono returns a Buffer with mono audio taken from only the left
// channel of the given stereo Buffer. Tape captures are commonly made
// with a stereo recorder even though the signal is mono.
func StereoToMono(b Buffer) (Buffer, error) {
	if b.Format.Channels == 1 {
		return b, nil
	}
	if b.Format.Channels != 2 {
		return Buffer{}, errors.Errorf("audio is not stereo or mono, it has %v channels", b.Format.Channels)
	}

	sampleLen, err := b.Format.sampleLen()
	if err != nil {
		return Buffer{}, err
	}
	half := sampleLen / 2

	mono := make([]byte, 0, len(b.Data)/2)
	for off := 0; off+sampleLen <= len(b.Data); off += sampleLen {
		mono = append(mono, b.Data[off:off+half]...)
	}

	return Buffer{
		Format: BufferFormat{
			Channels: 1,
			SFormat:  b.Format.SFormat,
			Rate:     b.Format.Rate,
		},
		Data: mono,
	}, nil
}

// ToFloats converts S16_LE PCM bytes into float64 samples in [-1, 1).
func ToFloats(b []byte) ([]float64, error) {
	if len(b) == 0 {
		return nil, errors.New("no audio to convert to floats")
	}
	if len(b)%2 != 0 {
		return nil, errors.New("uneven number of bytes (not whole number of samples)")
	}

	f := make([]float64, len(b)/2)
	for i := range f {
		f[i] = float64(int16(binary.LittleEndian.Uint16(b[2*i:2*i+2]))) / (math.MaxInt16 + 1)
	}
	return f, nil
}

// FromFloats converts float64 samples in [-1, 1] into S16_LE PCM bytes.
// Out of range samples are clipped.
func FromFloats(f []float64) []byte {
	b := make([]byte, len(f)*2)
	for i := range f {
		s := f[i]
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(b[2*i:2*i+2], uint16(int16(s*math.MaxInt16)))
	}
	return b
}

// String returns the string representation of a SampleFormat.
func (f SampleFormat) String() string {
	switch f {
	case S16_LE:
		return "S16_LE"
	case S32_LE:
		return "S32_LE"
	default:
		return "Unknown"
	}
}
