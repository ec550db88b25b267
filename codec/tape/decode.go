/*
NAME
  decode.go

DESCRIPTION
  decode.go contains the tape Decoder, which recovers payload bytes from
  tape-format PCM. Decoding is a three-stage pipeline: lock polarity off
  the preamble, lock bit sync off framed-byte boundaries, then lock onto
  the header, after which payload bytes flow to the destination.

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
	"io"

	"github.com/pkg/errors"
)

// Decoder states.
const (
	statePolarity = iota // Searching for the polarity sync preamble.
	stateData            // Demodulating cycles into bits and bytes.
)

// Decoder is used to decode tape-format PCM back to payload bytes.
type Decoder struct {
	// dst is the destination for decoded payload bytes.
	dst io.Writer

	cfg Config

	// One byte of a sample pair carried over between Writes.
	pending    byte
	hasPending bool

	samples int64 // Total samples consumed.
	state   int

	locker   polarityLocker
	polarity int16

	// Zero-crossing detection, valid in stateData.
	prev     int16
	interval int

	// Byte framing.
	bitRegister uint16 // Most recent bits, masked to 10.
	bitCount    int    // Bits accumulated since bit sync was declared.
	bitSync     bool

	headerRegister uint32
	headerLocked   bool
}

// NewDecoder returns a new tape Decoder writing decoded bytes to dst.
func NewDecoder(dst io.Writer, cfg Config) (*Decoder, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "could not validate config")
	}
	return &Decoder{dst: dst, cfg: cfg}, nil
}

// Write takes a slice of bytes representing little-endian signed 16-bit
// PCM, in any chunking, and decodes it. Decoded payload bytes are written
// to the Decoder's dst as they are recovered. The number of bytes written
// out is returned along with the first error encountered.
func (d *Decoder) Write(p []byte) (int, error) {
	var n int
	i := 0

	if d.hasPending && len(p) > 0 {
		s := int16(uint16(d.pending) | uint16(p[0])<<8)
		d.hasPending = false
		i = 1
		_n, err := d.sample(s)
		n += _n
		if err != nil {
			return n, err
		}
	}

	for ; i+1 < len(p); i += 2 {
		s := int16(uint16(p[i]) | uint16(p[i+1])<<8)
		_n, err := d.sample(s)
		n += _n
		if err != nil {
			return n, err
		}
	}

	if i < len(p) {
		d.pending = p[i]
		d.hasPending = true
	}
	return n, nil
}

// Finish reports how decoding ended. It should be called once the input
// is exhausted. The last bit of a stream has no following crossing to
// close it, so Finish closes it at the end of input, which may write the
// final payload byte to dst. A nil return means the header was found and
// any payload present was emitted.
func (d *Decoder) Finish() error {
	if d.state == stateData && d.prev > 0 {
		bit := byte(0)
		if d.interval > 3*SamplesPerBit {
			bit = 1
		}
		_, err := d.bit(bit)
		if err != nil {
			return err
		}
		d.prev = 0
		d.interval = 0
	}

	switch {
	case d.samples == 0:
		return ErrInputExhausted
	case d.state == statePolarity:
		return ErrPolarityLockLost
	case !d.headerLocked:
		return ErrHeaderNotFound
	}
	return nil
}

// sample consumes one sample, returning the number of payload bytes
// emitted as a result.
func (d *Decoder) sample(s int16) (int, error) {
	d.samples++

	if d.state == statePolarity {
		pol := d.locker.feed(s)
		if pol == 0 {
			return 0, nil
		}
		d.polarity = pol
		d.state = stateData
		d.prev = 0
		d.interval = 0
		d.cfg.Logger.Info("polarity locked", "polarity", int(pol), "samples", d.samples)
		return 0, nil
	}

	// Halve before applying polarity so that -32768 * -1 cannot overflow.
	// The shift preserves sign, so zero-crossing behaviour is unchanged.
	s = int16(int32(s>>1) * int32(d.polarity))
	d.interval++

	var n int
	if d.prev > 0 && s <= 0 {
		// A positive-to-negative crossing closes a cycle. A 0 bit spans
		// one cycle (32 samples), a 1 bit two (64); the threshold of 48
		// sits midway, leaving room for tape echo to stretch short cycles.
		bit := byte(0)
		if d.interval > 3*SamplesPerBit {
			bit = 1
		}
		var err error
		n, err = d.bit(bit)
		if err != nil {
			return n, err
		}
		d.interval = 0
	}

	d.prev = s
	return n, nil
}

// bit shifts one demodulated bit into the register and runs the framing
// state machine, returning the number of payload bytes emitted.
func (d *Decoder) bit(b byte) (int, error) {
	if d.cfg.BitStream != nil {
		_, err := d.cfg.BitStream.Write([]byte{'0' + b})
		if err != nil {
			return 0, errors.Wrap(err, "could not write to bit stream")
		}
	}

	d.bitRegister = (d.bitRegister<<1 | uint16(b)) & 0x3FF

	if !d.bitSync {
		// Hunting. A register whose top bit is 1 and bottom bit is 0 looks
		// like a framed byte, so the next 10 bits should be one too.
		if framed(d.bitRegister) {
			d.bitSync = true
			d.bitCount = 0
		} else {
			d.headerRegister = 0
		}
		return 0, nil
	}

	d.bitCount++
	if d.bitCount < frameBits {
		return 0, nil
	}
	d.bitCount = 0

	if !framed(d.bitRegister) {
		// Framing bits are wrong: bit sync is gone. The header lock is
		// kept (unless strict) so payload emission can resume once the
		// framing bits line up again.
		d.bitSync = false
		if d.cfg.StrictSync {
			d.headerLocked = false
			d.headerRegister = 0
		}
		d.cfg.Logger.Debug("bit sync lost", "samples", d.samples, "strict", d.cfg.StrictSync)
		return 0, nil
	}

	payload := byte(d.bitRegister >> 1)

	if d.headerLocked {
		n, err := d.dst.Write([]byte{payload})
		if err != nil {
			return n, errors.Wrap(err, "could not write decoded byte")
		}
		return n, nil
	}

	d.headerRegister = d.headerRegister<<8 | uint32(payload)
	if d.headerRegister == headerMagic {
		d.headerLocked = true
		d.cfg.Logger.Info("header locked", "samples", d.samples)
	}
	return 0, nil
}

// framed reports whether a 10-bit register holds a byte with valid
// framing bits, i.e. a leading 1 and a trailing 0.
func framed(r uint16) bool {
	return r>>9 == 1 && r&1 == 0
}
