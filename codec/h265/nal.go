/*
DESCRIPTION
  nal.go provides H.265 NAL unit types and parsing of the two byte NAL unit
  header (section 7.3.1.2).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h265 provides parsing of H.265 NAL unit headers and parameter sets
// (ITU-T H.265), including the multi-layer extensions used by MV-HEVC, into
// structured records.
package h265

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esparse/codec/codecutil"
)

// NAL unit types as defined by Table 7-1.
const (
	NALTypeTrailN       = 0
	NALTypeRASLR        = 9
	NALTypeBLAWLP       = 16
	NALTypeIDRWRADL     = 19
	NALTypeIDRNLP       = 20
	NALTypeCRA          = 21
	NALTypeVPS          = 32
	NALTypeSPS          = 33
	NALTypePPS          = 34
	NALTypeAUD          = 35
	NALTypeEOS          = 36
	NALTypeEOB          = 37
	NALTypeFiller       = 38
	NALTypePrefixSEI    = 39
	NALTypeSuffixSEI    = 40
	nalTypeReservedIRAP = 23
)

// Length in bytes of the NAL unit header.
const nalHeaderLen = 2

var (
	errNotEnoughBytes = errors.New("not enough bytes to read")
	errForbiddenBit   = errors.New("forbidden_zero_bit is set")
	errWrongType      = errors.New("unexpected NAL unit type")
)

// NALHeader is the two byte H.265 NAL unit header.
type NALHeader struct {
	Type            int // nal_unit_type.
	LayerID         int // nuh_layer_id.
	TemporalIDPlus1 int // nuh_temporal_id_plus1.
}

// ParseNALHeader parses the header of the NAL unit n, which excludes the start
// code.
func ParseNALHeader(n []byte) (NALHeader, error) {
	if len(n) < nalHeaderLen {
		return NALHeader{}, errNotEnoughBytes
	}
	if n[0]&0x80 != 0 {
		return NALHeader{}, errForbiddenBit
	}
	return NALHeader{
		Type:            int(n[0]>>1) & 0x3f,
		LayerID:         int(n[0]&1)<<5 | int(n[1]>>3),
		TemporalIDPlus1: int(n[1] & 0x7),
	}, nil
}

// IsIRAP returns true if the NAL unit is part of an intra random access point
// picture.
func (h NALHeader) IsIRAP() bool {
	return h.Type >= NALTypeBLAWLP && h.Type <= nalTypeReservedIRAP
}

// IsVCL returns true if the NAL unit is a coded slice segment.
func (h NALHeader) IsVCL() bool {
	return h.Type < NALTypeVPS
}

// readRBSP returns an unescaped copy of the payload of n following its header,
// after checking that the header has type typ.
func readRBSP(n []byte, typ int) (NALHeader, []byte, error) {
	h, err := ParseNALHeader(n)
	if err != nil {
		return h, nil, err
	}
	if h.Type != typ {
		return h, nil, errors.Wrapf(errWrongType, "got %d, want %d", h.Type, typ)
	}
	p := append([]byte(nil), n[nalHeaderLen:]...)
	return h, p[:codecutil.Unescape(p, len(p))], nil
}
