/*
DESCRIPTION
  vui.go provides parsing of H.264 video usability information (section E.1.1)
  and hypothetical reference decoder parameters (section E.1.2).

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esparse/codec/bits"
)

// VUIParameters describes video usability information as defined by section
// E.1.1 of the specifications.
type VUIParameters struct {
	// aspect_ratio_info_present_flag if true then aspect_ratio_idc is present,
	// otherwise it is not.
	AspectRatioInfoPresentFlag bool

	// aspect_ratio_idc specifies the value of sample aspect ratio of the luma
	// samples as given by Table E-1, or 255 for Extended_SAR.
	AspectRatioIDC int

	// sar_width and sar_height give the sample aspect ratio in arbitrary units
	// when aspect_ratio_idc is Extended_SAR.
	SARWidth  int
	SARHeight int

	// overscan_appropriate_flag if true then the cropped decoded pictures
	// are suitable for display using overscan.
	OverscanInfoPresentFlag bool
	OverscanAppropriateFlag bool

	// video_signal_type_present_flag if true specifies that video_format,
	// video_full_range_flag and colour_description_present_flag are present.
	VideoSignalTypePresentFlag bool
	VideoFormat                int
	VideoFullRangeFlag         bool

	// colour_description_present_flag if true specifies that colour_primaries,
	// transfer_characteristics and matrix_coefficients are present.
	ColorDescriptionPresentFlag bool
	ColorPrimaries              int
	TransferCharacteristics     int
	MatrixCoefficients          int

	ChromaLocInfoPresentFlag       bool
	ChromaSampleLocTypeTopField    int
	ChromaSampleLocTypeBottomField int

	// timing_info_present_flag if true specifies that num_units_in_tick,
	// time_scale and fixed_frame_rate_flag are present.
	TimingInfoPresentFlag bool

	// num_units_in_tick is the number of time units of a clock operating at
	// the frequency time_scale Hz that corresponds to one clock tick.
	NumUnitsInTick uint32

	// time_scale is the number of time units that pass in one second.
	TimeScale          uint32
	FixedFrameRateFlag bool

	NALHRDParametersPresentFlag bool
	NALHRDParameters            *HRDParameters
	VCLHRDParametersPresentFlag bool
	VCLHRDParameters            *HRDParameters
	LowDelayHRDFlag             bool

	PicStructPresentFlag bool

	// bitstream_restriction_flag if true specifies that the bitstream
	// restriction parameters are present.
	BitstreamRestrictionFlag           bool
	MotionVectorsOverPicBoundariesFlag bool
	MaxBytesPerPicDenom                int
	MaxBitsPerMBDenom                  int
	Log2MaxMVLengthHorizontal          int
	Log2MaxMVLengthVertical            int

	// max_num_reorder_frames indicates an upper bound for the number of frames
	// buffers in the decoded picture buffer that precede any frame in decoding
	// order and follow it in output order.
	MaxNumReorderFrames int

	// max_dec_frame_buffering specifies the required size of the decoded
	// picture buffer in units of frame buffers.
	MaxDecFrameBuffering int
}

// PixelAspectRatio returns the sample aspect ratio as width over height, or 1
// if it is unspecified or invalid.
func (p *VUIParameters) PixelAspectRatio() float64 {
	if !p.AspectRatioInfoPresentFlag {
		return 1
	}
	if p.AspectRatioIDC == extendedSAR {
		if p.SARWidth == 0 || p.SARHeight == 0 {
			return 1
		}
		return float64(p.SARWidth) / float64(p.SARHeight)
	}
	if p.AspectRatioIDC < len(aspectRatios) {
		return aspectRatios[p.AspectRatioIDC]
	}
	return 1
}

// FrameRate returns the frame rate given by the timing information, or 0 if
// it is not present. Each frame is assumed to span two clock ticks.
func (p *VUIParameters) FrameRate() float64 {
	if !p.TimingInfoPresentFlag || p.NumUnitsInTick == 0 {
		return 0
	}
	return float64(p.TimeScale) / float64(2*p.NumUnitsInTick)
}

// parseVUI parses video usability information following the syntax
// structure specified in section E.1.1.
func parseVUI(r *bits.FieldReader) (*VUIParameters, error) {
	p := &VUIParameters{}

	p.AspectRatioInfoPresentFlag = r.ReadFlag()
	if p.AspectRatioInfoPresentFlag {
		p.AspectRatioIDC = r.ReadInt(8)
		if p.AspectRatioIDC == extendedSAR {
			p.SARWidth = r.ReadInt(16)
			p.SARHeight = r.ReadInt(16)
		}
	}

	p.OverscanInfoPresentFlag = r.ReadFlag()
	if p.OverscanInfoPresentFlag {
		p.OverscanAppropriateFlag = r.ReadFlag()
	}

	p.VideoSignalTypePresentFlag = r.ReadFlag()
	if p.VideoSignalTypePresentFlag {
		p.VideoFormat = r.ReadInt(3)
		p.VideoFullRangeFlag = r.ReadFlag()
		p.ColorDescriptionPresentFlag = r.ReadFlag()
		if p.ColorDescriptionPresentFlag {
			p.ColorPrimaries = r.ReadInt(8)
			p.TransferCharacteristics = r.ReadInt(8)
			p.MatrixCoefficients = r.ReadInt(8)
		}
	}

	p.ChromaLocInfoPresentFlag = r.ReadFlag()
	if p.ChromaLocInfoPresentFlag {
		p.ChromaSampleLocTypeTopField = r.ReadUE()
		p.ChromaSampleLocTypeBottomField = r.ReadUE()
	}

	p.TimingInfoPresentFlag = r.ReadFlag()
	if p.TimingInfoPresentFlag {
		p.NumUnitsInTick = uint32(r.ReadBits(32))
		p.TimeScale = uint32(r.ReadBits(32))
		p.FixedFrameRateFlag = r.ReadFlag()
	}

	p.NALHRDParametersPresentFlag = r.ReadFlag()
	if p.NALHRDParametersPresentFlag {
		p.NALHRDParameters = parseHRD(r)
	}
	p.VCLHRDParametersPresentFlag = r.ReadFlag()
	if p.VCLHRDParametersPresentFlag {
		p.VCLHRDParameters = parseHRD(r)
	}
	if p.NALHRDParametersPresentFlag || p.VCLHRDParametersPresentFlag {
		p.LowDelayHRDFlag = r.ReadFlag()
	}

	p.PicStructPresentFlag = r.ReadFlag()
	p.BitstreamRestrictionFlag = r.ReadFlag()
	if p.BitstreamRestrictionFlag {
		p.MotionVectorsOverPicBoundariesFlag = r.ReadFlag()
		p.MaxBytesPerPicDenom = r.ReadUE()
		p.MaxBitsPerMBDenom = r.ReadUE()
		p.Log2MaxMVLengthHorizontal = r.ReadUE()
		p.Log2MaxMVLengthVertical = r.ReadUE()
		p.MaxNumReorderFrames = r.ReadUE()
		p.MaxDecFrameBuffering = r.ReadUE()
	}

	if r.Err() != nil {
		return nil, errors.Wrap(r.Err(), "error from field reader")
	}
	return p, nil
}

// HRDParameters describes hypothetical reference decoder parameters as
// defined by section E.1.2.
type HRDParameters struct {
	// cpb_cnt_minus1 plus 1 specifies the number of alternative CPB
	// specifications in the bitstream.
	CPBCntMinus1 int

	BitRateScale int
	CPBSizeScale int

	// Per SchedSelIdx values.
	BitRateValueMinus1 []int
	CPBSizeValueMinus1 []int
	CBRFlag            []bool

	InitialCPBRemovalDelayLenMinus1 int
	CPBRemovalDelayLenMinus1        int
	DPBOutputDelayLenMinus1         int
	TimeOffsetLen                   int
}

// maxCPBCnt bounds cpb_cnt_minus1, which is at most 31.
const maxCPBCnt = 32

// parseHRD parses hypothetical reference decoder parameters following the
// syntax structure specified in section E.1.2. Errors are left in r.
func parseHRD(r *bits.FieldReader) *HRDParameters {
	h := &HRDParameters{}
	h.CPBCntMinus1 = r.ReadUE()
	h.BitRateScale = r.ReadInt(4)
	h.CPBSizeScale = r.ReadInt(4)
	for i := 0; i <= h.CPBCntMinus1 && i < maxCPBCnt && r.Err() == nil; i++ {
		h.BitRateValueMinus1 = append(h.BitRateValueMinus1, r.ReadUE())
		h.CPBSizeValueMinus1 = append(h.CPBSizeValueMinus1, r.ReadUE())
		h.CBRFlag = append(h.CBRFlag, r.ReadFlag())
	}
	h.InitialCPBRemovalDelayLenMinus1 = r.ReadInt(5)
	h.CPBRemovalDelayLenMinus1 = r.ReadInt(5)
	h.DPBOutputDelayLenMinus1 = r.ReadInt(5)
	h.TimeOffsetLen = r.ReadInt(5)
	return h
}
