/*
NAME
  cassette - convert data to and from the cassette tape format over
  standard input and output.

AUTHORS
  Trek Hopton <trek@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package cassette is a command line tool for storing byte streams on
// consumer cassette tape. Write mode takes data from stdin and converts
// it to the tape format, as signed 16-bit PCM over stdout. Read mode
// takes tape-format PCM from stdin, or a WAV or FLAC capture of it, and
// converts it back to plain bytes over stdout.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/utils/logging"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/tape/codec/codecutil"
	"github.com/ausocean/tape/codec/flac"
	"github.com/ausocean/tape/codec/pcm"
	"github.com/ausocean/tape/codec/tape"
	"github.com/ausocean/tape/codec/wav"
)

// Logging configuration.
const (
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = true
)

// Misc constants.
const (
	defaultRate = 44100 // Container sample rate for WAV in/out.
	chunkSize   = 4096  // Stream pump chunk size in bytes.
	filterTaps  = 500   // FIR filter length for the pre-decode filters.
)

func main() {
	var (
		writeMode = pflag.BoolP("write", "w", false, "write data to tape format")
		readMode  = pflag.BoolP("read", "r", false, "read data from tape format")
		docMode   = pflag.BoolP("documentation", "d", false, "print documentation about the format")
		verbose   = pflag.BoolP("verbose", "v", false, "write diagnostic progress to stderr")
		examine   = pflag.BoolP("examine-bitstream", "x", false, "write each demodulated bit to stderr")
		help      = pflag.BoolP("help", "h", false, "print usage")
		strict    = pflag.Bool("strict", false, "terminate the byte stream on loss of bit sync")
		inPath    = pflag.StringP("in", "i", "", "input file path (default stdin)")
		outPath   = pflag.StringP("out", "o", "", "output file path (default stdout)")
		wavOut    = pflag.Bool("wav", false, "wrap write mode output in a WAV container")
		rate      = pflag.Uint("rate", defaultRate, "sample rate of the WAV container and of raw captures")
		mono      = pflag.Bool("mono", false, "treat a raw capture as stereo and downmix it")
		decimate  = pflag.Uint("decimate", 1, "decimate the capture by this factor before decoding")
		amplify   = pflag.Float64("amplify", 0, "amplify the capture by this factor before decoding")
		lowcut    = pflag.Float64("lowcut", 0, "reject capture frequencies below this before decoding (Hz)")
		highcut   = pflag.Float64("highcut", 0, "reject capture frequencies above this before decoding (Hz)")
		logPath   = pflag.String("log-file", "", "also write logs to this rolling file")
		logLevel  = pflag.Int("log-level", int(logging.Error), "log verbosity")
	)
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	var logDst io.Writer = os.Stderr
	if *logPath != "" {
		logDst = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   *logPath,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		})
	}
	level := int8(*logLevel)
	if *verbose {
		level = logging.Debug
	}
	log := logging.New(level, logDst, logSuppress)

	modes := 0
	for _, m := range []bool{*writeMode, *readMode, *docMode} {
		if m {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of --write, --read or --documentation is required")
		pflag.Usage()
		os.Exit(1)
	}

	in := io.Reader(os.Stdin)
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			log.Fatal("could not open input file", "error", err.Error())
		}
		defer f.Close()
		in = f
	}

	outFile := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatal("could not create output file", "error", err.Error())
		}
		defer f.Close()
		outFile = f
	}
	out := bufio.NewWriter(outFile)

	var err error
	switch {
	case *docMode:
		printDocumentation(out)
	case *writeMode:
		err = encode(out, in, *wavOut, *rate, log)
	case *readMode:
		cfg := tape.Config{Logger: log, StrictSync: *strict}
		if *examine {
			cfg.BitStream = os.Stderr
		}
		err = decode(out, in, cfg, conditioning{
			rate:     *rate,
			mono:     *mono,
			decimate: *decimate,
			amplify:  *amplify,
			lowcut:   *lowcut,
			highcut:  *highcut,
		}, log)
	}

	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		log.Error("failed", "error", err.Error())
		os.Exit(1)
	}
}

// encode pumps payload bytes from src through a tape Encoder into dst,
// optionally wrapping the PCM in a WAV container.
func encode(dst io.Writer, src io.Reader, wavOut bool, rate uint, log logging.Logger) error {
	pcmDst := dst

	var buf bytes.Buffer
	if wavOut {
		// A WAV header carries the data length up front, so the PCM is
		// staged in memory and wrapped once the input ends.
		pcmDst = &buf
	}

	enc := tape.NewEncoder(pcmDst)

	// Force the preamble, lead-in and header out even for empty input.
	_, err := enc.Write(nil)
	if err != nil {
		return err
	}

	lexer, err := codecutil.NewByteLexer(chunkSize)
	if err != nil {
		return err
	}
	err = lexer.Lex(enc, src, 0)
	if err != nil && err != io.EOF {
		return err
	}
	log.Debug("payload encoded")

	if !wavOut {
		return nil
	}

	w := wav.WAV{Metadata: wav.Metadata{
		AudioFormat: wav.PCMFormat,
		Channels:    1,
		SampleRate:  int(rate),
		BitDepth:    16,
	}}
	_, err = w.Write(buf.Bytes())
	if err != nil {
		return err
	}
	_, err = dst.Write(w.Audio)
	return err
}

// conditioning holds the pre-decode capture conditioning options.
type conditioning struct {
	rate     uint
	mono     bool
	decimate uint
	amplify  float64
	lowcut   float64
	highcut  float64
}

// needBuffer reports whether conditioning requires the whole capture in
// memory rather than streaming it.
func (c conditioning) needBuffer() bool {
	return c.mono || c.decimate > 1 || c.amplify != 0 || c.lowcut > 0 || c.highcut > 0
}

// decode feeds the capture from src through a tape Decoder writing
// payload bytes to dst. WAV and FLAC captures are unwrapped first; raw
// PCM streams straight through unless conditioning was requested.
func decode(dst io.Writer, src io.Reader, cfg tape.Config, cond conditioning, log logging.Logger) error {
	dec, err := tape.NewDecoder(dst, cfg)
	if err != nil {
		return err
	}

	br := bufio.NewReader(src)
	magic, _ := br.Peek(4)
	isWAV := bytes.Equal(magic, []byte("RIFF"))
	isFLAC := bytes.Equal(magic, []byte("fLaC"))

	if isWAV || isFLAC || cond.needBuffer() {
		err = decodeBuffered(dec, br, isWAV, isFLAC, cond, log)
	} else {
		var lexer *codecutil.ByteLexer
		lexer, err = codecutil.NewByteLexer(chunkSize)
		if err != nil {
			return err
		}
		err = lexer.Lex(dec, br, 0)
		if err == io.EOF {
			err = nil
		}
	}
	if err != nil {
		return err
	}

	err = dec.Finish()
	if err == tape.ErrInputExhausted {
		// An empty capture is surfaced as zero-length output.
		log.Info("no input")
		return nil
	}
	return err
}

// decodeBuffered loads the whole capture, unwraps and conditions it, and
// hands the resulting PCM to the decoder.
func decodeBuffered(dec *tape.Decoder, src io.Reader, isWAV, isFLAC bool, cond conditioning, log logging.Logger) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	var buf pcm.Buffer
	switch {
	case isWAV:
		buf, err = wav.Decode(data)
		log.Debug("unwrapped WAV capture")
	case isFLAC:
		buf, err = flac.Decode(data)
		log.Debug("unwrapped FLAC capture")
	default:
		channels := uint(1)
		if cond.mono {
			channels = 2
		}
		buf = pcm.Buffer{
			Format: pcm.BufferFormat{SFormat: pcm.S16_LE, Rate: cond.rate, Channels: channels},
			Data:   data,
		}
	}
	if err != nil {
		return err
	}

	// The decoder wants a single mono stream; downmix anything stereo.
	if buf.Format.Channels == 2 {
		buf, err = pcm.StereoToMono(buf)
		if err != nil {
			return err
		}
		log.Info("downmixed stereo capture")
	}

	if cond.decimate > 1 {
		buf, err = pcm.Resample(buf, buf.Format.Rate/cond.decimate)
		if err != nil {
			return err
		}
		log.Info("decimated capture", "rate", buf.Format.Rate)
	}

	if cond.amplify != 0 {
		buf.Data, err = pcm.NewAmplifier(cond.amplify).Apply(buf)
		if err != nil {
			return err
		}
	}

	var filter pcm.AudioFilter
	switch {
	case cond.lowcut > 0 && cond.highcut > 0:
		filter, err = pcm.NewBandPass(cond.lowcut, cond.highcut, buf.Format, filterTaps)
	case cond.lowcut > 0:
		filter, err = pcm.NewHighPass(cond.lowcut, buf.Format, filterTaps)
	case cond.highcut > 0:
		filter, err = pcm.NewLowPass(cond.highcut, buf.Format, filterTaps)
	}
	if err != nil {
		return err
	}
	if filter != nil {
		buf.Data, err = filter.Apply(buf)
		if err != nil {
			return err
		}
		log.Info("filtered capture", "lowcut", cond.lowcut, "highcut", cond.highcut)
	}

	_, err = dec.Write(buf.Data)
	return err
}

// printDocumentation describes the wire format.
func printDocumentation(w io.Writer) {
	fmt.Fprintln(w, "Cassette Tape Format Information")
	fmt.Fprintln(w, "Expressed as little-endian signed 16-bit PCM.")
	fmt.Fprintln(w, "Cycle: 16 PCM samples per half-wave.")
	fmt.Fprintln(w, "\tBits: 1 expressed as 2 positive half-cycles, 2 negative half-cycles.")
	fmt.Fprintln(w, "\t      0 expressed as 1 positive half-cycle, 1 negative half-cycle.")
	fmt.Fprintln(w, "\tBytes: 8 data bits MSB-first, preceded by a 1 bit, followed by a 0 bit.")
	fmt.Fprintln(w, "\tPolarity Sync Pattern: 200 repeats of positive-negative-negative-negative half-cycles.")
	fmt.Fprintln(w, "\tHeader:")
	fmt.Fprintln(w, "\t* Lead-in; 16 bytes of 0xFF")
	fmt.Fprintln(w, "\t* Header; 0x04 0x20 0x06 0x09")
}
