/*
DESCRIPTION
  vui.go provides parsing of H.265 video usability information (section
  E.2.1) and traversal of hypothetical reference decoder parameters (section
  E.2.2).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import (
	bitio "github.com/ausocean/esparse/codec/bits"
	"github.com/ausocean/esparse/codec/codecutil"
)

// extendedSAR is the aspect_ratio_idc value indicating that sar_width and
// sar_height follow.
const extendedSAR = 255

// aspectRatios holds the sample aspect ratios of Table E-1 indexed by
// aspect_ratio_idc.
var aspectRatios = []float64{
	1, 1, 12.0 / 11, 10.0 / 11, 16.0 / 11, 40.0 / 33, 24.0 / 11, 20.0 / 11,
	32.0 / 11, 80.0 / 33, 18.0 / 11, 15.0 / 11, 64.0 / 33, 160.0 / 99,
	4.0 / 3, 3.0 / 2, 2,
}

// VideoSignalInfo describes the video signal type, as carried by the SPS VUI
// or by video_signal_info() in the VPS VUI.
type VideoSignalInfo struct {
	VideoFormat             int
	FullRange               bool
	ColorDescriptionPresent bool
	ColorPrimaries          int
	TransferCharacteristics int
	MatrixCoefficients      int
}

// Color returns the mapped colour description. Only the range is known when
// no colour description is present.
func (v *VideoSignalInfo) Color() codecutil.ColorInfo {
	if !v.ColorDescriptionPresent {
		return codecutil.ColorInfo{Range: codecutil.ColorRangeFromFlag(v.FullRange)}
	}
	return codecutil.NewColorInfo(v.FullRange, v.ColorPrimaries, v.TransferCharacteristics, v.MatrixCoefficients)
}

// Window is a conformance or display window given as offsets in chroma
// sample units.
type Window struct {
	Left, Right, Top, Bottom int
}

// VUIParameters holds the VUI fields needed to describe the stream.
type VUIParameters struct {
	AspectRatioInfoPresent bool
	AspectRatioIDC         int
	SARWidth               int
	SARHeight              int

	// VideoSignal is nil if video_signal_type_present_flag is 0.
	VideoSignal *VideoSignalInfo

	FieldSeq bool

	// DefaultDisplayWindow is nil if default_display_window_flag is 0.
	DefaultDisplayWindow *Window

	TimingInfoPresent bool
	NumUnitsInTick    uint32
	TimeScale         uint32
	HRDPresent        bool

	BitstreamRestriction      bool
	MinSpatialSegmentationIDC int
}

// PixelAspectRatio returns the sample aspect ratio as width over height, or 1
// if it is unspecified or invalid.
func (p *VUIParameters) PixelAspectRatio() float64 {
	if !p.AspectRatioInfoPresent {
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

// FrameRate returns the picture rate given by the timing information, or 0
// if it is not present.
func (p *VUIParameters) FrameRate() float64 {
	if !p.TimingInfoPresent || p.NumUnitsInTick == 0 {
		return 0
	}
	return float64(p.TimeScale) / float64(p.NumUnitsInTick)
}

// parseVUI parses vui_parameters() following section E.2.1.
func parseVUI(r *bitio.FieldReader, maxSubLayersMinus1 int) *VUIParameters {
	p := &VUIParameters{}

	p.AspectRatioInfoPresent = r.ReadFlag()
	if p.AspectRatioInfoPresent {
		p.AspectRatioIDC = r.ReadInt(8)
		if p.AspectRatioIDC == extendedSAR {
			p.SARWidth = r.ReadInt(16)
			p.SARHeight = r.ReadInt(16)
		}
	}

	// overscan_info_present_flag
	if r.ReadFlag() {
		r.Skip(1) // overscan_appropriate_flag
	}

	// video_signal_type_present_flag
	if r.ReadFlag() {
		v := &VideoSignalInfo{VideoFormat: r.ReadInt(3), FullRange: r.ReadFlag()}
		v.ColorDescriptionPresent = r.ReadFlag()
		if v.ColorDescriptionPresent {
			v.ColorPrimaries = r.ReadInt(8)
			v.TransferCharacteristics = r.ReadInt(8)
			v.MatrixCoefficients = r.ReadInt(8)
		}
		p.VideoSignal = v
	}

	// chroma_loc_info_present_flag
	if r.ReadFlag() {
		r.SkipUE(2)
	}

	r.Skip(1) // neutral_chroma_indication_flag
	p.FieldSeq = r.ReadFlag()
	r.Skip(1) // frame_field_info_present_flag

	// default_display_window_flag
	if r.ReadFlag() {
		p.DefaultDisplayWindow = readWindow(r)
	}

	p.TimingInfoPresent = r.ReadFlag()
	if p.TimingInfoPresent {
		p.NumUnitsInTick = uint32(r.ReadBits(32))
		p.TimeScale = uint32(r.ReadBits(32))
		// vui_poc_proportional_to_timing_flag
		if r.ReadFlag() {
			r.SkipUE(1) // vui_num_ticks_poc_diff_one_minus1
		}
		p.HRDPresent = r.ReadFlag()
		if p.HRDPresent {
			skipHRD(r, true, maxSubLayersMinus1)
		}
	}

	p.BitstreamRestriction = r.ReadFlag()
	if p.BitstreamRestriction {
		// tiles_fixed_structure_flag, motion_vectors_over_pic_boundaries_flag
		// and restricted_ref_pic_lists_flag.
		r.Skip(3)
		p.MinSpatialSegmentationIDC = r.ReadUE()
		r.SkipUE(4)
	}
	return p
}

func readWindow(r *bitio.FieldReader) *Window {
	return &Window{Left: r.ReadUE(), Right: r.ReadUE(), Top: r.ReadUE(), Bottom: r.ReadUE()}
}

// skipHRD traverses hrd_parameters(commonInf, maxSubLayersMinus1) as given by
// section E.2.2.
func skipHRD(r *bitio.FieldReader, commonInf bool, maxSubLayersMinus1 int) {
	var nal, vcl, subPic bool
	if commonInf {
		nal = r.ReadFlag()
		vcl = r.ReadFlag()
		if nal || vcl {
			subPic = r.ReadFlag()
			if subPic {
				// tick_divisor_minus2, du_cpb_removal_delay_increment_length_minus1,
				// sub_pic_cpb_params_in_pic_timing_sei_flag and
				// dpb_output_delay_du_length_minus1.
				r.Skip(8 + 5 + 1 + 5)
			}
			r.Skip(4 + 4) // bit_rate_scale, cpb_size_scale
			if subPic {
				r.Skip(4) // cpb_size_du_scale
			}
			// initial_cpb_removal_delay_length_minus1,
			// au_cpb_removal_delay_length_minus1 and
			// dpb_output_delay_length_minus1.
			r.Skip(5 + 5 + 5)
		}
	}

	for i := 0; i <= maxSubLayersMinus1 && r.Err() == nil; i++ {
		fixedWithinCVS := true
		// fixed_pic_rate_general_flag
		if !r.ReadFlag() {
			fixedWithinCVS = r.ReadFlag()
		}
		lowDelay := false
		if fixedWithinCVS {
			r.SkipUE(1) // elemental_duration_in_tc_minus1
		} else {
			lowDelay = r.ReadFlag()
		}
		cpbCnt := 1
		if !lowDelay {
			cpbCnt = r.ReadUE() + 1
		}
		if nal {
			skipSubLayerHRD(r, cpbCnt, subPic)
		}
		if vcl {
			skipSubLayerHRD(r, cpbCnt, subPic)
		}
	}
}

// skipSubLayerHRD traverses sub_layer_hrd_parameters() (section E.2.3).
func skipSubLayerHRD(r *bitio.FieldReader, cpbCnt int, subPic bool) {
	for i := 0; i < cpbCnt && r.Err() == nil; i++ {
		r.SkipUE(2) // bit_rate_value_minus1, cpb_size_value_minus1
		if subPic {
			r.SkipUE(2) // cpb_size_du_value_minus1, bit_rate_du_value_minus1
		}
		r.Skip(1) // cbr_flag
	}
}
