/*
DESCRIPTION
  variables.go describes the probe configuration variables, with functions
  for updating and validating them.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/esparse/codec/codecutil"
	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyCaptions        = "Captions"
	KeyChunkSize       = "ChunkSize"
	KeyCodec           = "Codec"
	KeyFrameHeaders    = "FrameHeaders"
	KeyFrameRate       = "FrameRate"
	KeyLogging         = "logging"
	KeySEIReorderDepth = "SEIReorderDepth"
)

// Config map parameter types.
const (
	typeInt  = "int"
	typeUint = "uint"
	typeBool = "bool"
)

// Default variable values.
const (
	defaultCodec     = codecutil.H264
	defaultVerbosity = logging.Error
	defaultChunkSize = 65536 // Bytes.
	defaultFrameRate = 25
	maxFrameRate     = 240

	// SEI reordering is bounded by the DPB size of the highest level.
	maxSEIReorderDepth = 16
)

// Variables describes the variables that can be used for probe control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyCaptions,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Captions = parseBool(KeyCaptions, v, c) },
	},
	{
		Name:   KeyChunkSize,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.ChunkSize = parseUint(KeyChunkSize, v, c) },
		Validate: func(c *Config) {
			if c.ChunkSize <= 0 {
				c.LogInvalidField(KeyChunkSize, defaultChunkSize)
				c.ChunkSize = defaultChunkSize
			}
		},
	},
	{
		Name:   KeyCodec,
		Type:   "enum:h264,h265,av1",
		Update: func(c *Config, v string) { c.Codec = strings.ToLower(v) },
		Validate: func(c *Config) {
			if !codecutil.IsValid(c.Codec) {
				c.LogInvalidField(KeyCodec, defaultCodec)
				c.Codec = defaultCodec
			}
		},
	},
	{
		Name:   KeyFrameHeaders,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.FrameHeaders = parseBool(KeyFrameHeaders, v, c) },
	},
	{
		Name:   KeyFrameRate,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FrameRate = parseUint(KeyFrameRate, v, c) },
		Validate: func(c *Config) {
			if c.FrameRate <= 0 || c.FrameRate > maxFrameRate {
				c.LogInvalidField(KeyFrameRate, defaultFrameRate)
				c.FrameRate = defaultFrameRate
			}
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeySEIReorderDepth,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.SEIReorderDepth = parseInt(KeySEIReorderDepth, v, c) },
		Validate: func(c *Config) {
			if c.SEIReorderDepth < 0 || c.SEIReorderDepth > maxSEIReorderDepth {
				c.LogInvalidField(KeySEIReorderDepth, 0)
				c.SEIReorderDepth = 0
			}
		},
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseInt(n, v string, c *Config) int {
	_v, err := strconv.Atoi(v)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected integer for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}
