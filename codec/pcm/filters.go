/*
NAME
  filters.go

DESCRIPTION
  filters.go contains FIR filters for cleaning up PCM tape captures:
  frequency-selective filters for stripping hum and hiss outside the
  signal band, and an amplifier for quiet recordings.

AUTHOR
  David Sutton <davidsutton@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package pcm

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/pkg/errors"
)

// AudioFilter is an interface which contains an Apply function.
// Apply is used to apply the filter to the given buffer of PCM data (b.Data).
type AudioFilter interface {
	Apply(b Buffer) ([]byte, error)
}

// FIRFilter is a windowed-sinc FIR filter. Use the constructors below to
// build low-pass, high-pass, band-pass and band-stop variants.
type FIRFilter struct {
	coeffs []float64
}

// NewLowPass returns an FIR filter passing frequencies below fc Hz.
func NewLowPass(fc float64, format BufferFormat, taps int) (*FIRFilter, error) {
	return newSinc(fc, format, taps, false)
}

// NewHighPass returns an FIR filter passing frequencies above fc Hz.
func NewHighPass(fc float64, format BufferFormat, taps int) (*FIRFilter, error) {
	return newSinc(fc, format, taps, true)
}

// NewBandPass returns an FIR filter passing frequencies between lo and hi
// Hz, built by convolving a high-pass at lo with a low-pass at hi.
func NewBandPass(lo, hi float64, format BufferFormat, taps int) (*FIRFilter, error) {
	if lo >= hi {
		return nil, errors.New("band-pass lower cutoff must be below upper cutoff")
	}
	hp, err := NewHighPass(lo, format, taps)
	if err != nil {
		return nil, errors.Wrap(err, "could not create high-pass stage")
	}
	lp, err := NewLowPass(hi, format, taps)
	if err != nil {
		return nil, errors.Wrap(err, "could not create low-pass stage")
	}
	coeffs, err := fastConvolve(hp.coeffs, lp.coeffs)
	if err != nil {
		return nil, errors.Wrap(err, "could not convolve filter stages")
	}
	return &FIRFilter{coeffs: coeffs}, nil
}

// NewBandStop returns an FIR filter rejecting frequencies between lo and
// hi Hz, built by summing a low-pass at lo with a high-pass at hi.
func NewBandStop(lo, hi float64, format BufferFormat, taps int) (*FIRFilter, error) {
	if lo >= hi {
		return nil, errors.New("band-stop lower cutoff must be below upper cutoff")
	}
	lp, err := NewLowPass(lo, format, taps)
	if err != nil {
		return nil, errors.Wrap(err, "could not create low-pass stage")
	}
	hp, err := NewHighPass(hi, format, taps)
	if err != nil {
		return nil, errors.Wrap(err, "could not create high-pass stage")
	}
	coeffs := make([]float64, len(lp.coeffs))
	for i := range coeffs {
		coeffs[i] = lp.coeffs[i] + hp.coeffs[i]
	}
	return &FIRFilter{coeffs: coeffs}, nil
}

// Apply convolves the filter with the buffer data (b.Data) and returns a
// byte slice of filtered audio.
func (f *FIRFilter) Apply(b Buffer) ([]byte, error) {
	in, err := ToFloats(b.Data)
	if err != nil {
		return nil, errors.Wrap(err, "could not convert to floats")
	}
	out, err := fastConvolve(in, f.coeffs)
	if err != nil {
		return nil, errors.Wrap(err, "could not compute fast convolution")
	}
	return FromFloats(out), nil
}

// newSinc builds a windowed-sinc kernel with the given cutoff. The
// kernel is spectrally inverted for the high-pass case.
func newSinc(fc float64, format BufferFormat, taps int, invert bool) (*FIRFilter, error) {
	if fc <= 0 || fc >= float64(format.Rate)/2 {
		return nil, errors.New("cutoff frequency out of bounds")
	}
	if taps <= 0 {
		return nil, errors.New("cannot create filter with taps <= 0")
	}

	fd := fc / float64(format.Rate)
	sign := 1.0
	centre := 2 * fd
	if invert {
		sign = -1
		centre = 1 - 2*fd
	}

	size := taps + 1
	coeffs := make([]float64, size)
	b := 2 * math.Pi * fd
	win := window.FlatTop(size)
	for n := 0; n < taps/2; n++ {
		c := float64(n) - float64(taps)/2
		y := math.Sin(c*b) / (math.Pi * c)
		coeffs[n] = sign * y * win[n]
		coeffs[size-1-n] = coeffs[n]
	}
	coeffs[taps/2] = centre * win[taps/2]

	return &FIRFilter{coeffs: coeffs}, nil
}

// Amplifier is a filter which scales every sample by a fixed factor.
type Amplifier struct {
	factor float64
}

// NewAmplifier returns an Amplifier with the given factor of
// amplification. The absolute value is used.
func NewAmplifier(factor float64) *Amplifier {
	return &Amplifier{factor: math.Abs(factor)}
}

// Apply takes the buffer data (b.Data), applies the amplification and
// returns a byte slice of filtered audio. Samples that would clip are
// held at full scale.
func (a *Amplifier) Apply(b Buffer) ([]byte, error) {
	in, err := ToFloats(b.Data)
	if err != nil {
		return nil, errors.Wrap(err, "could not convert to floats")
	}
	out := make([]float64, len(in))
	for i := range in {
		out[i] = in[i] * a.factor
	}
	return FromFloats(out), nil
}

// fastConvolve computes the linear convolution of a signal and an FIR
// kernel in the frequency domain (runs in O(nlog(n)) time).
func fastConvolve(x, h []float64) ([]float64, error) {
	if len(x) == 0 || len(h) == 0 {
		return nil, errors.New("convolution requires slices of length > 0")
	}

	convLen := len(x) + len(h) - 1

	// Pad both signals to the next power of 2 above the convolution length.
	padLen := int(math.Pow(2, math.Ceil(math.Log2(float64(convLen)))))
	px := append(append([]float64{}, x...), make([]float64, padLen-len(x))...)
	ph := append(append([]float64{}, h...), make([]float64, padLen-len(h))...)

	xf, hf := fft.FFTReal(px), fft.FFTReal(ph)
	yf := make([]complex128, padLen)
	for i := range xf {
		yf[i] = xf[i] * hf[i]
	}
	iy := fft.IFFT(yf)

	y := make([]float64, convLen)
	for i := range y {
		y[i] = real(iy[i])
	}
	return y, nil
}
