/*
NAME
  tape.go

DESCRIPTION
  tape.go contains the wire-format constants and errors for the cassette
  tape codec.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package tape provides a codec for storing byte streams as signed 16-bit
// PCM audio suitable for consumer cassette tape, and for recovering the
// bytes from such audio. The encoding is length-based: a 0 bit is one
// square-wave cycle, a 1 bit is two, with every byte framed by a leading 1
// bit and a trailing 0 bit so a receiver can find byte boundaries in the
// middle of a stream. A recording survives volume drift, polarity
// inversion and modest timing jitter.
package tape

import "errors"

// Wire-format constants. A cycle is one positive half followed by one
// negative half, each SamplesPerBit samples long. All samples are
// little-endian signed 16-bit PCM regardless of host byte order.
const (
	// SamplesPerBit is the number of samples in each half-cycle.
	SamplesPerBit = 16

	// The polarity sync preamble is PolaritySyncWriteCount repeats of
	// polaritySyncPatternPos positive half-cycles followed by
	// polaritySyncPatternNeg negative half-cycles. The asymmetry is what
	// makes the recording chain's polarity recoverable.
	polaritySyncPatternPos = 1
	polaritySyncPatternNeg = 3

	// PolaritySyncWriteCount is the number of preamble periods written.
	PolaritySyncWriteCount = 200

	// polaritySyncDesiredCount is the number of pattern matches that must
	// be present in the check window before polarity is declared.
	polaritySyncDesiredCount = 10

	// polaritySyncCheckWindow is the size of the rolling half-cycle sign
	// window scanned for the preamble pattern.
	polaritySyncCheckWindow = 200

	// LeadInBytes is the number of 0xFF bytes written between the preamble
	// and the header. The lead-in gives the receiver a run of cleanly
	// framed bytes to latch bit sync onto before the header arrives.
	LeadInBytes = 16

	// peakAmplitude is the level at which half-cycles are written.
	peakAmplitude = 0x7FFF

	// sampleBytes is the wire size of one sample.
	sampleBytes = 2

	// frameBits is the size of a framed byte on the wire: a leading 1 bit,
	// eight data bits MSB-first, and a trailing 0 bit.
	frameBits = 10
)

// Header is the magic byte sequence that precedes payload data. A decoder
// emits nothing until it has seen these bytes arrive cleanly framed.
var Header = [4]byte{0x04, 0x20, 0x06, 0x09}

// headerMagic is Header as a big-endian shift-register value.
const headerMagic uint32 = 0x04200609

// Decode failure taxonomy, reported by (*Decoder).Finish.
var (
	// ErrInputExhausted means the input ended before any samples were seen.
	ErrInputExhausted = errors.New("input exhausted before any samples were seen")

	// ErrPolarityLockLost means the input ended while still searching for
	// the polarity sync preamble.
	ErrPolarityLockLost = errors.New("input ended before polarity lock was achieved")

	// ErrHeaderNotFound means polarity was locked but the input ended
	// before the header was observed in-frame.
	ErrHeaderNotFound = errors.New("input ended before the header was found")
)
