/*
DESCRIPTION
  config.go provides the configuration settings for a stream probe.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for probe.
package config

import (
	"github.com/ausocean/utils/logging"
)

// Config provides parameters relevant to a probe instance. A new config must
// be passed to the constructor. Default values for these fields are defined
// as consts in variables.go.
type Config struct {
	// Logger holds an implementation of the Logger interface as defined in
	// github.com/ausocean/utils/logging. This must be set for the probe to
	// work correctly.
	Logger logging.Logger

	// LogLevel is the probe logging verbosity level.
	// Valid values are defined by enums from the logging package: logging.Debug,
	// logging.Info, logging.Warning, logging.Error, logging.Fatal.
	LogLevel int8

	// Codec is the codec of the elementary stream. Valid values are defined
	// in the codecutil package: codecutil.H264, codecutil.H265, codecutil.AV1.
	Codec string

	ChunkSize uint // Number of bytes read from a source per write.

	// SEIReorderDepth is the number of pictures SEI messages are held for to
	// restore presentation order. If 0 the depth is taken from the active
	// SPS.
	SEIReorderDepth int

	// FrameRate is used to derive timestamps for data written without them,
	// unless the stream signals its own timing.
	FrameRate uint

	Captions     bool // Captions enables decoding of CEA-608/708 captions.
	FrameHeaders bool // FrameHeaders enables reporting of AV1 frame headers.
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
