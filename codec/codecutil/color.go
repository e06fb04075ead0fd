/*
DESCRIPTION
  color.go provides colour description types shared by the H.264 and H.265
  parameter set parsers, and mappings from ISO/IEC 23091-2 code points.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

// ColorSpace is the colour space of decoded samples.
type ColorSpace int

const (
	ColorSpaceUnknown ColorSpace = iota
	ColorSpaceBT601
	ColorSpaceBT709
	ColorSpaceBT2020
)

// ColorTransfer is the opto-electronic transfer characteristic.
type ColorTransfer int

const (
	ColorTransferUnknown ColorTransfer = iota
	ColorTransferSDR
	ColorTransferGamma22
	ColorTransferSRGB
	ColorTransferST2084
	ColorTransferHLG
)

// ColorRange is the range of sample values.
type ColorRange int

const (
	ColorRangeUnknown ColorRange = iota
	ColorRangeLimited
	ColorRangeFull
)

// ColorInfo is the colour description carried by video usability
// information, both as the raw code points and mapped.
type ColorInfo struct {
	Space    ColorSpace
	Transfer ColorTransfer
	Range    ColorRange

	Primaries               int
	TransferCharacteristics int
	MatrixCoefficients      int
}

// ColorSpaceFromPrimaries maps colour_primaries to a ColorSpace.
func ColorSpaceFromPrimaries(p int) ColorSpace {
	switch p {
	case 1:
		return ColorSpaceBT709
	case 4, 5, 6, 7: // BT.470M, BT.470BG, SMPTE 170M, SMPTE 240M.
		return ColorSpaceBT601
	case 9:
		return ColorSpaceBT2020
	default:
		return ColorSpaceUnknown
	}
}

// ColorTransferFromCharacteristics maps transfer_characteristics to a
// ColorTransfer.
func ColorTransferFromCharacteristics(c int) ColorTransfer {
	switch c {
	case 1, 6, 7: // BT.709, SMPTE 170M, SMPTE 240M.
		return ColorTransferSDR
	case 4:
		return ColorTransferGamma22
	case 13:
		return ColorTransferSRGB
	case 16:
		return ColorTransferST2084
	case 18:
		return ColorTransferHLG
	default:
		return ColorTransferUnknown
	}
}

// ColorRangeFromFlag maps a full range flag to a ColorRange.
func ColorRangeFromFlag(full bool) ColorRange {
	if full {
		return ColorRangeFull
	}
	return ColorRangeLimited
}

// NewColorInfo returns a ColorInfo for the given video signal fields.
func NewColorInfo(fullRange bool, primaries, transfer, matrix int) ColorInfo {
	return ColorInfo{
		Space:                   ColorSpaceFromPrimaries(primaries),
		Transfer:                ColorTransferFromCharacteristics(transfer),
		Range:                   ColorRangeFromFlag(fullRange),
		Primaries:               primaries,
		TransferCharacteristics: transfer,
		MatrixCoefficients:      matrix,
	}
}

var colorSpaceNames = map[ColorSpace]string{
	ColorSpaceUnknown: "unknown",
	ColorSpaceBT601:   "bt601",
	ColorSpaceBT709:   "bt709",
	ColorSpaceBT2020:  "bt2020",
}

func (c ColorSpace) String() string { return colorSpaceNames[c] }

// MarshalText implements encoding.TextMarshaler.
func (c ColorSpace) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

var colorTransferNames = map[ColorTransfer]string{
	ColorTransferUnknown: "unknown",
	ColorTransferSDR:     "sdr",
	ColorTransferGamma22: "gamma2.2",
	ColorTransferSRGB:    "srgb",
	ColorTransferST2084:  "st2084",
	ColorTransferHLG:     "hlg",
}

func (c ColorTransfer) String() string { return colorTransferNames[c] }

func (c ColorTransfer) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

var colorRangeNames = map[ColorRange]string{
	ColorRangeUnknown: "unknown",
	ColorRangeLimited: "limited",
	ColorRangeFull:    "full",
}

func (c ColorRange) String() string { return colorRangeNames[c] }

func (c ColorRange) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
