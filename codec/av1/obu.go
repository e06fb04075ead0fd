/*
DESCRIPTION
  obu.go provides splitting of AV1 samples into open bitstream units (OBUs)
  following the low overhead bitstream format of section 5.2 of the AV1
  bitstream specification.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package av1 provides splitting of AV1 samples into OBUs and parsing of the
// sequence and frame header fields needed to describe a stream.
package av1

import (
	"github.com/pion/rtp/codecs/av1/obu"
	"github.com/pkg/errors"
)

// OBU types as defined by section 6.2.2.
const (
	OBUTypeSequenceHeader       = 1
	OBUTypeTemporalDelimiter    = 2
	OBUTypeFrameHeader          = 3
	OBUTypeTileGroup            = 4
	OBUTypeMetadata             = 5
	OBUTypeFrame                = 6
	OBUTypeRedundantFrameHeader = 7
	OBUTypeTileList             = 8
	OBUTypePadding              = 15
)

// maxLEB128Len is the maximum number of bytes of a leb128() value.
const maxLEB128Len = 8

// Bits of the OBU header byte.
const (
	forbiddenBit = 0x80
	extensionBit = 0x04
	hasSizeBit   = 0x02
)

var (
	errForbiddenBit = errors.New("obu_forbidden_bit is set")
	errTruncated    = errors.New("truncated OBU")
	errLEB128       = errors.New("invalid leb128 size")
)

// OBU is one open bitstream unit of a sample.
type OBU struct {
	Type       int
	TemporalID int
	SpatialID  int

	// Bytes holds the whole OBU including its header and size field, and
	// Payload the bytes following them. Both are sub-slices of the sample.
	Bytes   []byte
	Payload []byte
}

// Split splits sample into its OBUs. The returned OBUs tile sample exactly.
// An OBU without obu_has_size_field extends to the end of the sample.
func Split(sample []byte) ([]OBU, error) {
	var obus []OBU
	for off := 0; off < len(sample); {
		start := off
		hdr := sample[off]
		if hdr&forbiddenBit != 0 {
			return obus, errors.Wrapf(errForbiddenBit, "at offset %d", start)
		}
		o := OBU{Type: int(hdr>>3) & 0xf}
		off++

		if hdr&extensionBit != 0 {
			if off >= len(sample) {
				return obus, errors.Wrapf(errTruncated, "no extension byte at offset %d", start)
			}
			o.TemporalID = int(sample[off] >> 5)
			o.SpatialID = int(sample[off]>>3) & 0x3
			off++
		}

		size := len(sample) - off
		if hdr&hasSizeBit != 0 {
			end := off + maxLEB128Len
			if end > len(sample) {
				end = len(sample)
			}
			v, n, err := obu.ReadLeb128(sample[off:end])
			if err != nil {
				return obus, errors.Wrapf(errLEB128, "at offset %d: %v", off, err)
			}
			off += int(n)
			if v > uint(len(sample)-off) {
				return obus, errors.Wrapf(errTruncated, "size %d at offset %d exceeds sample", v, start)
			}
			size = int(v)
		}

		o.Payload = sample[off : off+size]
		off += size
		o.Bytes = sample[start:off]
		obus = append(obus, o)
	}
	return obus, nil
}

// Metadata types as defined by section 6.7.1.
const (
	MetadataTypeHDRCLL      = 1
	MetadataTypeHDRMDCV     = 2
	MetadataTypeScalability = 3
	MetadataTypeITUTT35     = 4
	MetadataTypeTimecode    = 5
)

// ParseMetadata returns the metadata_type of the metadata OBU payload and the
// bytes that follow it.
func ParseMetadata(payload []byte) (int, []byte, error) {
	end := len(payload)
	if end > maxLEB128Len {
		end = maxLEB128Len
	}
	v, n, err := obu.ReadLeb128(payload[:end])
	if err != nil {
		return 0, nil, errors.Wrapf(errLEB128, "metadata_type: %v", err)
	}
	return int(v), payload[n:], nil
}
