/*
NAME
  polarity.go

DESCRIPTION
  polarity.go contains the polarity locker, the first stage of the tape
  decoder. It watches the signs of incoming half-cycles for the asymmetric
  preamble pattern and decides whether the recording chain inverted the
  signal.

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

import "bytes"

// The preamble period as window symbols, 'p' positive and 'n' negative.
// A match of patternNormal locks polarity +1, of patternInverted -1. Each
// symbol is the sign of the half-cycle a crossing opens, repeated once per
// SamplesPerBit of the half-cycle it closes, so a recording the right way
// up fills the window with patternInverted and locks -1, and an inverted
// one fills it with patternNormal and locks +1.
var (
	patternNormal   = polarityPattern('n', 'p')
	patternInverted = polarityPattern('p', 'n')
)

func polarityPattern(neg, pos byte) []byte {
	p := bytes.Repeat([]byte{neg}, polaritySyncPatternNeg)
	return append(p, bytes.Repeat([]byte{pos}, polaritySyncPatternPos)...)
}

// polarityLocker accumulates half-cycle signs in a circular window and
// scans it for the preamble pattern after each crossing. Until lock, sign
// direction is unknown, so any sign change counts as a crossing.
type polarityLocker struct {
	window   [polaritySyncCheckWindow]byte
	pos      int
	prev     int16
	interval int
	polarity int16
}

// feed consumes one raw sample. It returns a non-zero polarity (+1 or -1)
// once enough pattern matches are in the window, and 0 while still
// searching.
func (l *polarityLocker) feed(s int16) int16 {
	crossed := int32(l.prev)*int32(s) < 0
	l.interval++

	if crossed {
		sym := byte('n')
		if s > 0 {
			sym = 'p'
		}

		// One symbol per nominal half-cycle width, so long half-cycles
		// weigh as many.
		width := l.interval / SamplesPerBit
		for i := 0; i < width; i++ {
			l.window[l.pos] = sym
			l.pos = (l.pos + 1) % polaritySyncCheckWindow
		}

		// Only scan on half-cycle boundaries. Normal polarity is checked
		// first; if both patterns would qualify, normal wins.
		if width > 0 {
			switch {
			case countMatches(l.window[:], patternNormal) >= polaritySyncDesiredCount:
				l.polarity = 1
			case countMatches(l.window[:], patternInverted) >= polaritySyncDesiredCount:
				l.polarity = -1
			}
		}

		l.interval = 0
	}

	l.prev = s
	return l.polarity
}

// countMatches counts non-overlapping occurrences of pattern in window.
// On a full match the scan advances by the pattern length, otherwise by
// one symbol.
func countMatches(window, pattern []byte) int {
	var count int
	for i := 0; i < len(window); {
		j := 0
		for j < len(pattern) && i+j < len(window) && window[i+j] == pattern[j] {
			j++
		}
		if j == len(pattern) {
			count++
			i += len(pattern)
		} else {
			i++
		}
	}
	return count
}
