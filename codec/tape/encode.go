/*
NAME
  encode.go

DESCRIPTION
  encode.go contains the tape Encoder, which turns payload bytes into
  framed square-wave PCM.

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
	"encoding/binary"
	"io"
	"math/bits"

	"github.com/pkg/errors"
)

// Encoder is used to encode payload bytes to tape-format PCM.
type Encoder struct {
	// dst is the destination for PCM-encoded data.
	dst io.Writer

	// started records whether the preamble, lead-in and header have been
	// written yet. They are emitted before the first payload byte.
	started bool

	buf []byte // Scratch for building sample runs.
}

// NewEncoder returns a new tape Encoder writing PCM to dst.
func NewEncoder(dst io.Writer) *Encoder {
	return &Encoder{dst: dst, buf: make([]byte, 0, 4*SamplesPerBit*sampleBytes)}
}

// writeLevel writes n half-cycles of samples at the given amplitude.
// It returns the number of bytes written to dst.
func (e *Encoder) writeLevel(amp int16, n int) (int, error) {
	e.buf = e.buf[:0]
	for i := 0; i < n*SamplesPerBit; i++ {
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(amp))
	}
	return e.dst.Write(e.buf)
}

func (e *Encoder) writePositive(n int) (int, error) { return e.writeLevel(peakAmplitude, n) }
func (e *Encoder) writeNegative(n int) (int, error) { return e.writeLevel(-peakAmplitude, n) }

// writeBit writes one bit as PCM. A 1 bit is two positive then two
// negative half-cycles; a 0 bit is one of each.
func (e *Encoder) writeBit(bit byte) (int, error) {
	w := 1
	if bit != 0 {
		w = 2
	}
	n, err := e.writePositive(w)
	if err != nil {
		return n, errors.Wrap(err, "could not write positive half-cycles")
	}
	_n, err := e.writeNegative(w)
	n += _n
	if err != nil {
		return n, errors.Wrap(err, "could not write negative half-cycles")
	}
	return n, nil
}

// writeByte writes one framed byte: a leading 1 bit, the eight data bits
// MSB-first, then a trailing 0 bit.
func (e *Encoder) writeByte(b byte) (int, error) {
	n, err := e.writeBit(1)
	if err != nil {
		return n, err
	}
	for i := 7; i >= 0; i-- {
		_n, err := e.writeBit(b >> i & 1)
		n += _n
		if err != nil {
			return n, err
		}
	}
	_n, err := e.writeBit(0)
	n += _n
	return n, err
}

// WritePreamble writes the polarity sync preamble.
func (e *Encoder) WritePreamble() (int, error) {
	var n int
	for i := 0; i < PolaritySyncWriteCount; i++ {
		_n, err := e.writePositive(polaritySyncPatternPos)
		n += _n
		if err != nil {
			return n, errors.Wrap(err, "could not write preamble")
		}
		_n, err = e.writeNegative(polaritySyncPatternNeg)
		n += _n
		if err != nil {
			return n, errors.Wrap(err, "could not write preamble")
		}
	}
	return n, nil
}

// WriteLeadIn writes LeadInBytes framed 0xFF bytes.
func (e *Encoder) WriteLeadIn() (int, error) {
	var n int
	for i := 0; i < LeadInBytes; i++ {
		_n, err := e.writeByte(0xFF)
		n += _n
		if err != nil {
			return n, errors.Wrap(err, "could not write lead-in")
		}
	}
	return n, nil
}

// WriteHeader writes the framed header magic.
func (e *Encoder) WriteHeader() (int, error) {
	var n int
	for _, b := range Header {
		_n, err := e.writeByte(b)
		n += _n
		if err != nil {
			return n, errors.Wrap(err, "could not write header")
		}
	}
	return n, nil
}

// Write takes a slice of payload bytes and encodes each as a framed byte
// of PCM, writing its output to the Encoder's dst. The preamble, lead-in
// and header are emitted before the first payload byte, so an Encoder can
// be driven directly by a copy loop. The number of bytes written out is
// returned along with the first error encountered.
func (e *Encoder) Write(p []byte) (int, error) {
	var n int
	if !e.started {
		e.started = true
		for _, w := range []func() (int, error){e.WritePreamble, e.WriteLeadIn, e.WriteHeader} {
			_n, err := w()
			n += _n
			if err != nil {
				return n, err
			}
		}
	}
	for _, b := range p {
		_n, err := e.writeByte(b)
		n += _n
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// EncodedLen returns the number of PCM bytes that will be generated when
// encoding the given payload, including the preamble, lead-in and header.
func EncodedLen(p []byte) int {
	samples := PolaritySyncWriteCount * (polaritySyncPatternPos + polaritySyncPatternNeg) * SamplesPerBit
	for i := 0; i < LeadInBytes; i++ {
		samples += frameSamples(0xFF)
	}
	for _, b := range Header {
		samples += frameSamples(b)
	}
	for _, b := range p {
		samples += frameSamples(b)
	}
	return samples * sampleBytes
}

// frameSamples returns the number of samples occupied by one framed byte.
// Each 1 bit spans two cycles, each 0 bit one; the framing bits contribute
// one of each.
func frameSamples(b byte) int {
	ones := bits.OnesCount8(b) + 1
	zeros := frameBits - ones
	return (ones*2 + zeros) * 2 * SamplesPerBit
}
