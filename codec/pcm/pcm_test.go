/*
NAME
  pcm_test.go

DESCRIPTION
  pcm_test.go contains functions for testing the pcm package.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pcm

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// s16 builds S16_LE PCM bytes from the given samples.
func s16(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:2*i+2], uint16(s))
	}
	return b
}

// TestResample checks decimating-average resampling of S16_LE audio.
func TestResample(t *testing.T) {
	buf := Buffer{
		Format: BufferFormat{Channels: 1, Rate: 4, SFormat: S16_LE},
		Data:   s16(100, 200, -100, -200, 1000, 3000, 0, 0),
	}

	resampled, err := Resample(buf, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := s16(150, -150, 2000, 0)
	if !bytes.Equal(resampled.Data, want) {
		t.Errorf("resampled data mismatch: got %v, want %v", resampled.Data, want)
	}
	if resampled.Format.Rate != 2 {
		t.Errorf("rate mismatch: got %v, want 2", resampled.Format.Rate)
	}
}

// TestResampleNonIntegerRatio checks that a non-integer decimation is
// rejected.
func TestResampleNonIntegerRatio(t *testing.T) {
	buf := Buffer{
		Format: BufferFormat{Channels: 1, Rate: 3, SFormat: S16_LE},
		Data:   s16(1, 2, 3),
	}
	_, err := Resample(buf, 2)
	if err == nil {
		t.Error("expected error for non-integer decimation")
	}
}

// TestStereoToMono checks that only the left channel survives a downmix.
func TestStereoToMono(t *testing.T) {
	buf := Buffer{
		Format: BufferFormat{Channels: 2, Rate: 44100, SFormat: S16_LE},
		Data:   s16(1, -1, 2, -2, 3, -3),
	}

	mono, err := StereoToMono(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := s16(1, 2, 3)
	if !bytes.Equal(mono.Data, want) {
		t.Errorf("mono data mismatch: got %v, want %v", mono.Data, want)
	}
	if mono.Format.Channels != 1 {
		t.Errorf("channels mismatch: got %v, want 1", mono.Format.Channels)
	}
}

// TestStereoToMonoPassThrough checks that mono input is returned as is.
func TestStereoToMonoPassThrough(t *testing.T) {
	buf := Buffer{
		Format: BufferFormat{Channels: 1, Rate: 44100, SFormat: S16_LE},
		Data:   s16(1, 2, 3),
	}
	mono, err := StereoToMono(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(mono.Data, buf.Data) {
		t.Errorf("mono pass-through mismatch: got %v, want %v", mono.Data, buf.Data)
	}
}

// TestFloatRoundTrip checks that byte to float conversion and back is
// lossless up to the scale factor.
func TestFloatRoundTrip(t *testing.T) {
	in := s16(0, 1, -1, 16384, -16384, 32767, -32768)
	f, err := ToFloats(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := FromFloats(f)

	// Converting through floats scales by 32767/32768, so allow each
	// sample to land within one step of where it started.
	for i := 0; i+1 < len(in); i += 2 {
		a := int16(binary.LittleEndian.Uint16(in[i : i+2]))
		b := int16(binary.LittleEndian.Uint16(out[i : i+2]))
		diff := int32(a) - int32(b)
		if diff < -1 || diff > 1 {
			t.Errorf("sample %d drifted: got %v, want %v", i/2, b, a)
		}
	}
}

// TestToFloatsOddBytes checks that a torn sample is rejected.
func TestToFloatsOddBytes(t *testing.T) {
	_, err := ToFloats([]byte{0x01})
	if err == nil {
		t.Error("expected error for odd byte count")
	}
}
