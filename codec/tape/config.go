/*
NAME
  config.go

DESCRIPTION
  config.go contains the configuration settings for a tape Decoder.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

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

	"github.com/ausocean/utils/logging"
)

// Config provides parameters relevant to a tape Decoder. A zero Config is
// usable; Validate fills in defaults.
type Config struct {
	// Logger receives diagnostic events such as polarity lock, header lock
	// and loss of bit sync.
	Logger logging.Logger

	// StrictSync terminates the byte stream when bit sync is lost after
	// the header. By default a loss of bit sync keeps the header lock so
	// that the stream resumes once framing bits line up again, at the cost
	// of possibly corrupt bytes around the glitch; a dropout on real tape
	// is usually worth riding out.
	StrictSync bool

	// BitStream, when non-nil, receives each demodulated bit as an ASCII
	// '0' or '1' character. Intended for examining a troublesome capture.
	BitStream io.Writer
}

// Validate checks the Config and fills in any defaults. The default
// Logger discards everything.
func (c *Config) Validate() error {
	if c.Logger == nil {
		c.Logger = logging.New(logging.Error, io.Discard, true)
	}
	return nil
}
