/*
DESCRIPTION
  parse.go provides H.264 NAL unit header parsing and NAL type utilities.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264 provides parsing of H.264 NAL unit headers and parameter sets
// (ITU-T H.264) into structured records.
package h264

import (
	"errors"
)

// NAL unit types as defined by Table 7-1.
const (
	NALTypeNonIDR              = 1
	NALTypePartitionA          = 2
	NALTypeIDR                 = 5
	NALTypeSEI                 = 6
	NALTypeSPS                 = 7
	NALTypePPS                 = 8
	NALTypeAccessUnitDelimiter = 9
	NALTypeEndOfSequence       = 10
	NALTypeEndOfStream         = 11
	NALTypeFiller              = 12
	NALTypeSPSExtension        = 13
	NALTypePrefix              = 14
	NALTypeSubsetSPS           = 15
	NALTypeAuxiliarySlice      = 19
	NALTypeSliceExtension      = 20
	NALTypeSliceExtensionDepth = 21
)

var (
	errNotEnoughBytes = errors.New("not enough bytes to read")
	errForbiddenBit   = errors.New("forbidden_zero_bit is set")
)

// NALHeader is the one byte H.264 NAL unit header of section 7.3.1.
type NALHeader struct {
	// nal_ref_idc, if not 0 the NAL unit contains a parameter set or a slice
	// or partition of a reference picture.
	RefIdc int

	// nal_unit_type as defined in Table 7-1.
	Type int
}

// ParseNALHeader parses the header of the NAL unit n, which excludes the start
// code.
func ParseNALHeader(n []byte) (NALHeader, error) {
	if len(n) < 1 {
		return NALHeader{}, errNotEnoughBytes
	}
	if n[0]&0x80 != 0 {
		return NALHeader{}, errForbiddenBit
	}
	return NALHeader{RefIdc: int(n[0]>>5) & 0x3, Type: int(n[0] & 0x1f)}, nil
}

// IsVCL returns true if the NAL unit type is a coded slice type.
func (h NALHeader) IsVCL() bool {
	return h.Type >= NALTypeNonIDR && h.Type <= NALTypeIDR
}

// IsDependedOn returns true if other pictures may depend on the NAL unit, so
// that it must not be discarded. That is the case for any NAL unit with a
// non zero nal_ref_idc; extension slices follow the same rule.
func IsDependedOn(n []byte) bool {
	h, err := ParseNALHeader(n)
	if err != nil {
		return true
	}
	return h.RefIdc != 0
}

// NALType returns the NAL type of the given NAL unit bytes. The given NAL unit
// may be in byte stream or packet format.
// NB: access unit delimiters are skipped.
func NALType(n []byte) (int, error) {
	sc := frameScanner{buf: n}
	for {
		b, ok := sc.readByte()
		if !ok {
			return 0, errNotEnoughBytes
		}
		for i := 1; b == 0x00 && i != 4; i++ {
			b, ok = sc.readByte()
			if !ok {
				return 0, errNotEnoughBytes
			}
			if b != 0x01 || (i != 2 && i != 3) {
				continue
			}

			b, ok = sc.readByte()
			if !ok {
				return 0, errNotEnoughBytes
			}
			nalType := int(b & 0x1f)
			if nalType != NALTypeAccessUnitDelimiter {
				return nalType, nil
			}
		}
	}
}

type frameScanner struct {
	off int
	buf []byte
}

func (s *frameScanner) readByte() (b byte, ok bool) {
	if s.off >= len(s.buf) {
		return 0, false
	}
	b = s.buf[s.off]
	s.off++
	return b, true
}
