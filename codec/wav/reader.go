/*
NAME
  reader.go

DESCRIPTION
  reader.go contains functionality for unwrapping WAV tape captures into
  raw PCM ready for decoding.

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package wav

import (
	"bytes"
	"encoding/binary"

	gowav "github.com/go-audio/wav"
	"github.com/pkg/errors"

	"github.com/ausocean/tape/codec/pcm"
)

// Decode takes buf, a slice holding a WAV file, and unwraps it into a
// S16_LE PCM Buffer carrying the container's channel count and rate.
// Only 16-bit PCM WAV is supported; tape captures should be made that
// way.
func Decode(buf []byte) (pcm.Buffer, error) {
	d := gowav.NewDecoder(bytes.NewReader(buf))
	if !d.IsValidFile() {
		return pcm.Buffer{}, errors.New("could not parse WAV")
	}

	ab, err := d.FullPCMBuffer()
	if err != nil {
		return pcm.Buffer{}, errors.Wrap(err, "could not read WAV audio")
	}

	if d.BitDepth != 16 {
		return pcm.Buffer{}, errors.Errorf("unsupported WAV bit depth: %d", d.BitDepth)
	}
	if d.WavAudioFormat != PCMFormat {
		return pcm.Buffer{}, errors.Errorf("unsupported WAV audio format: %d", d.WavAudioFormat)
	}

	data := make([]byte, len(ab.Data)*2)
	for i, s := range ab.Data {
		binary.LittleEndian.PutUint16(data[2*i:2*i+2], uint16(int16(s)))
	}

	return pcm.Buffer{
		Format: pcm.BufferFormat{
			SFormat:  pcm.S16_LE,
			Rate:     uint(ab.Format.SampleRate),
			Channels: uint(ab.Format.NumChannels),
		},
		Data: data,
	}, nil
}
