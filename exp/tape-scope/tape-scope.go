/*
NAME
  tape-scope.go

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package tape-scope is a command-line program for eyeballing raw tape
// captures that refuse to decode. It reports the distribution of
// zero-crossing intervals, which should cluster on the cycle widths of
// the tape format, and the dominant frequency of the capture, which
// exposes speed problems: a capture made at the wrong rate shows cycle
// widths scaled away from their nominal sample counts.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/cmplx"
	"os"
	"sort"

	"github.com/mjibson/go-dsp/fft"

	"github.com/ausocean/tape/codec/pcm"
)

func main() {
	var inPath string
	var rate uint
	var window int
	flag.StringVar(&inPath, "in", "capture.pcm", "file path of raw S16_LE capture")
	flag.UintVar(&rate, "rate", 44100, "sample rate of the capture in Hz")
	flag.IntVar(&window, "window", 1 << 16, "number of samples used for the spectrum")
	flag.Parse()

	data, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatal(err)
	}
	samples, err := pcm.ToFloats(data)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Read", len(samples), "samples from file", inPath)

	reportIntervals(samples)
	reportSpectrum(samples, rate, window)
}

// reportIntervals prints the most common positive-to-negative crossing
// intervals. A clean capture clusters on 32, 48 and 64 samples at nominal
// speed: crossings are taken on the raw signal, so in a capture the right
// way up they fall mid-bit and a 0 bit next to a 1 bit gives 48. The
// preamble period is 64.
func reportIntervals(samples []float64) {
	counts := make(map[int]int)
	var prev float64
	var interval int
	for _, s := range samples {
		interval++
		if prev > 0 && s <= 0 {
			counts[interval]++
			interval = 0
		}
		prev = s
	}

	intervals := make([]int, 0, len(counts))
	for w := range counts {
		intervals = append(intervals, w)
	}
	sort.Slice(intervals, func(i, j int) bool { return counts[intervals[i]] > counts[intervals[j]] })

	fmt.Println("Most common crossing intervals (samples: count):")
	for i, w := range intervals {
		if i == 8 {
			break
		}
		fmt.Printf("\t%d: %d\n", w, counts[w])
	}
}

// reportSpectrum prints the dominant frequency over the first window
// samples of the capture.
func reportSpectrum(samples []float64, rate uint, window int) {
	if len(samples) < window {
		window = len(samples)
	}
	spec := fft.FFTReal(samples[:window])

	var peakBin int
	var peakMag float64
	for i := 1; i < window/2; i++ {
		mag := cmplx.Abs(spec[i])
		if mag > peakMag {
			peakMag = mag
			peakBin = i
		}
	}

	freq := float64(peakBin) * float64(rate) / float64(window)
	fmt.Printf("Dominant frequency: %.1f Hz (bin %d of %d)\n", freq, peakBin, window)
	fmt.Printf("Nominal zero-bit frequency at this rate: %.1f Hz\n", float64(rate)/32)
}
