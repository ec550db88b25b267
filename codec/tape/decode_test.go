/*
NAME
  decode_test.go

DESCRIPTION
  decode_test.go contains tests for the tape Decoder.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package tape

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"
)

// encodePayload encodes payload with a fresh Encoder and returns the PCM.
func encodePayload(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	_, err := enc.Write(payload)
	if err != nil {
		t.Fatalf("unexpected encoder error: %v", err)
	}
	return buf.Bytes()
}

// decodePCM runs pcm through a fresh Decoder in chunks and returns the
// decoded bytes along with the Finish result.
func decodePCM(t *testing.T, pcm []byte, cfg Config, chunk int) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	dec, err := NewDecoder(&out, cfg)
	if err != nil {
		t.Fatalf("unexpected decoder construction error: %v", err)
	}
	for off := 0; off < len(pcm); off += chunk {
		end := off + chunk
		if end > len(pcm) {
			end = len(pcm)
		}
		_, err := dec.Write(pcm[off:end])
		if err != nil {
			t.Fatalf("unexpected decoder error: %v", err)
		}
	}
	err = dec.Finish()
	return out.Bytes(), err
}

// negate flips the sign of every sample, simulating a recording chain
// that inverted the signal.
func negate(pcm []byte) []byte {
	out := make([]byte, len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		binary.LittleEndian.PutUint16(out[i:i+2], uint16(-s))
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "zero byte", payload: []byte{0x00}},
		{name: "ones byte", payload: []byte{0xFF}},
		{name: "hello", payload: []byte("Hello")},
		{name: "all values", payload: allBytes()},
		{name: "long run", payload: bytes.Repeat([]byte{0x00, 0xFF, 0x55, 0xAA}, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := encodePayload(t, tt.payload)
			got, err := decodePCM(t, pcm, Config{}, 4096)
			if err != nil {
				t.Fatalf("unexpected finish error: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("decoded payload does not match: got %v, want %v", got, tt.payload)
			}
		})
	}
}

func allBytes() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

// TestRoundTripInverted checks that a polarity-inverted recording decodes
// to the same payload.
func TestRoundTripInverted(t *testing.T) {
	payload := []byte("Hello")
	pcm := negate(encodePayload(t, payload))
	got, err := decodePCM(t, pcm, Config{}, 4096)
	if err != nil {
		t.Fatalf("unexpected finish error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decoded payload does not match: got %q, want %q", got, payload)
	}
}

// TestHeaderAsPayload checks that the header magic occurring in the
// payload is emitted verbatim; the header is matched once at lock and
// later occurrences are just data.
func TestHeaderAsPayload(t *testing.T) {
	payload := Header[:]
	pcm := encodePayload(t, payload)
	got, err := decodePCM(t, pcm, Config{}, 4096)
	if err != nil {
		t.Fatalf("unexpected finish error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decoded payload does not match: got %v, want %v", got, payload)
	}
}

// TestChunkedWrites checks that decoding is insensitive to input
// chunking, including chunks that split samples.
func TestChunkedWrites(t *testing.T) {
	payload := []byte("chunky bacon")
	pcm := encodePayload(t, payload)

	for _, chunk := range []int{1, 3, 7, 1024} {
		got, err := decodePCM(t, pcm, Config{}, chunk)
		if err != nil {
			t.Fatalf("unexpected finish error with chunk %d: %v", chunk, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("decoded payload does not match with chunk %d: got %q, want %q", chunk, got, payload)
		}
	}
}

// TestNoiseResilience checks that additive noise below 0x1000 per sample
// does not disturb decoding.
func TestNoiseResilience(t *testing.T) {
	payload := []byte("noise below the peaks")
	pcm := encodePayload(t, payload)

	rng := rand.New(rand.NewSource(1))
	noisy := make([]byte, len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		noise := int16(rng.Intn(0x2000) - 0x1000)
		binary.LittleEndian.PutUint16(noisy[i:i+2], uint16(capAdd16(s, noise)))
	}

	got, err := decodePCM(t, noisy, Config{}, 4096)
	if err != nil {
		t.Fatalf("unexpected finish error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decoded payload does not match: got %q, want %q", got, payload)
	}
}

// capAdd16 adds two int16s together and caps at max/min int16 instead of
// overflowing.
func capAdd16(a, b int16) int16 {
	c := int32(a) + int32(b)
	switch {
	case c < math.MinInt16:
		return math.MinInt16
	case c > math.MaxInt16:
		return math.MaxInt16
	default:
		return int16(c)
	}
}

// TestTruncatedBeforeHeader checks that a stream cut after the lead-in
// but before the header reports ErrHeaderNotFound and emits nothing.
func TestTruncatedBeforeHeader(t *testing.T) {
	pcm := encodePayload(t, []byte("Hello"))

	// Keep the preamble and half the lead-in.
	keep := PolaritySyncWriteCount*(polaritySyncPatternPos+polaritySyncPatternNeg)*SamplesPerBit*sampleBytes +
		LeadInBytes/2*frameSamples(0xFF)*sampleBytes
	got, err := decodePCM(t, pcm[:keep], Config{}, 4096)
	if err != ErrHeaderNotFound {
		t.Errorf("finish error mismatch: got %v, want %v", err, ErrHeaderNotFound)
	}
	if len(got) != 0 {
		t.Errorf("expected no decoded bytes, got %v", got)
	}
}

// TestEmptyInput checks that an empty stream reports ErrInputExhausted.
func TestEmptyInput(t *testing.T) {
	got, err := decodePCM(t, nil, Config{}, 4096)
	if err != ErrInputExhausted {
		t.Errorf("finish error mismatch: got %v, want %v", err, ErrInputExhausted)
	}
	if len(got) != 0 {
		t.Errorf("expected no decoded bytes, got %v", got)
	}
}

// TestSilenceInput checks that a stream of silence never locks polarity.
func TestSilenceInput(t *testing.T) {
	silence := make([]byte, 65536)
	got, err := decodePCM(t, silence, Config{}, 4096)
	if err != ErrPolarityLockLost {
		t.Errorf("finish error mismatch: got %v, want %v", err, ErrPolarityLockLost)
	}
	if len(got) != 0 {
		t.Errorf("expected no decoded bytes, got %v", got)
	}
}

// TestDropoutRecovery checks that deleting a span of samples after the
// header corrupts only bytes around the glitch: the prefix before it is
// intact, the header lock is preserved, and once framing bits line up
// again the tail decodes cleanly.
func TestDropoutRecovery(t *testing.T) {
	// A zero tail makes realignment unambiguous; each framed 0x00 carries
	// exactly one 1 bit, so only true byte boundaries can look framed.
	payload := append([]byte("prefix--"), bytes.Repeat([]byte{0x00}, 64)...)
	pcm := encodePayload(t, payload)

	// Delete the first 100 samples of the tenth payload byte.
	head := EncodedLen(nil)
	for _, b := range payload[:9] {
		head += frameSamples(b) * sampleBytes
	}
	const cut = 100 * sampleBytes
	damaged := append(append([]byte{}, pcm[:head]...), pcm[head+cut:]...)

	got, err := decodePCM(t, damaged, Config{}, 4096)
	if err != nil {
		t.Fatalf("unexpected finish error: %v", err)
	}

	if !bytes.HasPrefix(got, payload[:9]) {
		t.Errorf("prefix not intact: got %v", got[:min(len(got), 9)])
	}
	if len(got) > len(payload) {
		t.Errorf("more bytes out than in: got %d, want at most %d", len(got), len(payload))
	}

	// Everything after the glitch settles should be zero bytes again.
	if len(got) < 32 {
		t.Fatalf("too few bytes decoded: %d", len(got))
	}
	tail := got[len(got)-32:]
	if !bytes.Equal(tail, bytes.Repeat([]byte{0x00}, 32)) {
		t.Errorf("tail not recovered: got %v", tail)
	}
}

// TestStrictSync checks that strict mode terminates the byte stream at
// the first loss of bit sync instead of riding it out.
func TestStrictSync(t *testing.T) {
	payload := append([]byte("prefix--"), bytes.Repeat([]byte{0x00}, 64)...)
	pcm := encodePayload(t, payload)

	head := EncodedLen(nil)
	for _, b := range payload[:9] {
		head += frameSamples(b) * sampleBytes
	}
	const cut = 100 * sampleBytes
	damaged := append(append([]byte{}, pcm[:head]...), pcm[head+cut:]...)

	got, err := decodePCM(t, damaged, Config{StrictSync: true}, 4096)
	if err != ErrHeaderNotFound {
		t.Errorf("finish error mismatch: got %v, want %v", err, ErrHeaderNotFound)
	}
	if len(got) >= len(payload) {
		t.Errorf("expected a truncated stream, got %d bytes", len(got))
	}
	if !bytes.HasPrefix(got, payload[:9]) {
		t.Errorf("prefix not intact: got %v", got)
	}
}

// TestBitStreamTrace checks that the examine-bitstream writer receives
// one ASCII digit per demodulated bit.
func TestBitStreamTrace(t *testing.T) {
	var trace bytes.Buffer
	// Two bytes so the first framed byte's trailing 0 bit is closed by a
	// following crossing and appears in the trace.
	payload := []byte{0x00, 0x00}
	pcm := encodePayload(t, payload)

	_, err := decodePCM(t, pcm, Config{BitStream: &trace}, 4096)
	if err != nil {
		t.Fatalf("unexpected finish error: %v", err)
	}

	if trace.Len() == 0 {
		t.Fatal("expected bits in trace")
	}
	for _, c := range trace.Bytes() {
		if c != '0' && c != '1' {
			t.Fatalf("unexpected character in bit trace: %q", c)
		}
	}
	// The framed payload byte reads 1 00000000 0 and must appear.
	if !bytes.Contains(trace.Bytes(), []byte("1000000000")) {
		t.Error("framed zero byte not present in bit trace")
	}
}
