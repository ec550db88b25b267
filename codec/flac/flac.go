/*
NAME
  flac.go

DESCRIPTION
  flac.go provides functionality for decoding FLAC-compressed tape
  captures into raw PCM ready for decoding.

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package flac provides functionality for the decoding of FLAC
// compressed audio.
package flac

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/mewkiz/flac"
	"github.com/pkg/errors"

	"github.com/ausocean/tape/codec/pcm"
)

// Decode takes buf, a slice holding a FLAC file, and decodes it into a
// S16_LE PCM Buffer carrying the stream's channel count and rate. Tape
// captures are sometimes archived as FLAC; the compression is lossless,
// so the recovered PCM decodes exactly as the original capture would.
func Decode(buf []byte) (pcm.Buffer, error) {
	stream, err := flac.Parse(bytes.NewReader(buf))
	if err != nil {
		return pcm.Buffer{}, errors.Wrap(err, "could not parse FLAC")
	}

	if stream.Info.BitsPerSample != 16 {
		return pcm.Buffer{}, errors.Errorf("unsupported FLAC bit depth: %d", stream.Info.BitsPerSample)
	}

	var data []byte
	frame := make([]byte, 2)
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm.Buffer{}, errors.Wrap(err, "could not parse FLAC frame")
		}

		// Interleave the subframes, one sample per channel.
		for i := 0; i < f.Subframes[0].NSamples; i++ {
			for _, sub := range f.Subframes {
				binary.LittleEndian.PutUint16(frame, uint16(int16(sub.Samples[i])))
				data = append(data, frame...)
			}
		}
	}

	return pcm.Buffer{
		Format: pcm.BufferFormat{
			SFormat:  pcm.S16_LE,
			Rate:     uint(stream.Info.SampleRate),
			Channels: uint(stream.Info.NChannels),
		},
		Data: data,
	}, nil
}
