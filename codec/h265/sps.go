/*
DESCRIPTION
  sps.go provides parsing of the H.265 sequence parameter set (section
  7.3.2.2), including the multi-layer form of section F.7.3.2.2.1 that takes
  its representation format from the active VPS.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import (
	"github.com/pkg/errors"

	bitio "github.com/ausocean/esparse/codec/bits"
	"github.com/ausocean/esparse/codec/codecutil"
)

// sps_ext_or_max_sub_layers_minus1 value that marks a multi-layer SPS.
const multiLayerExt = 7

// Limits on SPS syntax element values given by section 7.4.3.2.1.
const (
	maxShortTermRefPicSets = 64
	maxLongTermRefPics     = 32
	maxDeltaPocs           = 32
)

var (
	errNoVPS       = errors.New("multi-layer SPS requires its VPS")
	errNoRepFormat = errors.New("VPS has no representation format for layer")
)

// SPS describes a sequence parameter set. Only the fields needed to describe
// the stream are kept.
type SPS struct {
	VPSID              int
	ID                 int
	LayerID            int
	MaxSubLayersMinus1 int

	// MultiLayer is MultiLayerExtSpsFlag, set when the SPS takes its profile
	// and representation format from the VPS.
	MultiLayer bool

	PTL ProfileTierLevel

	ChromaFormatIDC    int
	SeparateColorPlane bool
	BitDepthLuma       int
	BitDepthChroma     int

	// Width and Height of the decoded picture after the conformance window
	// is applied.
	Width  int
	Height int

	// Length in bits of slice_pic_order_cnt_lsb.
	PicOrderCntLSBBits int

	MaxDecPicBufferingMinus1 int
	MaxNumReorderPics        int

	NumShortTermRefPicSets int
	LongTermRefPicsPresent bool
	NumLongTermRefPics     int
	TemporalMVPEnabled     bool

	PixelAspectRatio float64
	Color            codecutil.ColorInfo

	// VUI is the video usability information, or nil if not present.
	VUI *VUIParameters
}

// ParseSPS parses a sequence parameter set from the NAL unit n, which
// includes the NAL header but not the start code. vps is the VPS referred to
// by the SPS and may be nil unless the SPS is a multi-layer SPS.
func ParseSPS(n []byte, vps *VPS) (*SPS, error) {
	h, rbsp, err := readRBSP(n, NALTypeSPS)
	if err != nil {
		return nil, err
	}
	s := &SPS{LayerID: h.LayerID, PixelAspectRatio: 1}
	r := bitio.NewFieldReader(bitio.NewBitReader(rbsp))

	s.VPSID = r.ReadInt(4)
	s.MaxSubLayersMinus1 = r.ReadInt(3)
	s.MultiLayer = h.LayerID != 0 && s.MaxSubLayersMinus1 == multiLayerExt

	var layer *LayerInfo
	if s.MultiLayer {
		if vps == nil || vps.Result != Parsed {
			return nil, errNoVPS
		}
		if vps.ID != s.VPSID {
			return nil, errors.Wrapf(errNoVPS, "SPS refers to VPS %d, got %d", s.VPSID, vps.ID)
		}
		i := vps.LayerIndex(h.LayerID)
		if i < 0 {
			return nil, errors.Wrapf(errNoRepFormat, "layer %d not in VPS", h.LayerID)
		}
		layer = &vps.Layers[i]
		s.MaxSubLayersMinus1 = vps.MaxSubLayersMinus1
		s.PTL = vps.PTLs[layer.PTLIdx]
	} else {
		r.Skip(1) // sps_temporal_id_nesting_flag
		s.PTL = parsePTL(r, true, s.MaxSubLayersMinus1, nil)
	}

	s.ID = r.ReadUE()

	if s.MultiLayer {
		idx := layer.RepFormatIdx
		// update_rep_format_flag
		if r.ReadFlag() {
			idx = r.ReadInt(8) // sps_rep_format_idx
		}
		if idx < 0 || idx >= len(vps.RepFormats) {
			return nil, errors.Wrapf(errNoRepFormat, "index %d", idx)
		}
		f := vps.RepFormats[idx]
		s.ChromaFormatIDC = f.ChromaFormatIDC
		s.SeparateColorPlane = f.SeparateColorPlane
		s.BitDepthLuma = f.BitDepthLuma
		s.BitDepthChroma = f.BitDepthChroma
		s.Width, s.Height = f.Width, f.Height
		if f.ConformanceWindow != nil {
			s.applyWindow(f.ConformanceWindow)
		}
	} else {
		s.ChromaFormatIDC = r.ReadUE()
		if s.ChromaFormatIDC == 3 {
			s.SeparateColorPlane = r.ReadFlag()
		}
		s.Width = r.ReadUE()
		s.Height = r.ReadUE()
		// conformance_window_flag
		if r.ReadFlag() {
			s.applyWindow(readWindow(r))
		}
		s.BitDepthLuma = r.ReadUE() + 8
		s.BitDepthChroma = r.ReadUE() + 8
	}

	s.PicOrderCntLSBBits = r.ReadUE() + 4

	if s.MultiLayer {
		s.MaxNumReorderPics = layer.MaxNumReorderPics
		s.MaxDecPicBufferingMinus1 = vps.MaxDecPicBufferingMinus1[len(vps.MaxDecPicBufferingMinus1)-1]
	} else {
		n := s.MaxSubLayersMinus1 + 1
		dpb, reorder, latency := make([]int, n), make([]int, n), make([]int, n)
		readSubLayerOrdering(r, dpb, reorder, latency)
		s.MaxDecPicBufferingMinus1 = dpb[n-1]
		s.MaxNumReorderPics = reorder[n-1]
	}

	// log2_min_luma_coding_block_size_minus3,
	// log2_diff_max_min_luma_coding_block_size,
	// log2_min_luma_transform_block_size_minus2,
	// log2_diff_max_min_luma_transform_block_size,
	// max_transform_hierarchy_depth_inter and
	// max_transform_hierarchy_depth_intra.
	r.SkipUE(6)

	// scaling_list_enabled_flag
	if r.ReadFlag() {
		infer := false
		if s.MultiLayer {
			infer = r.ReadFlag() // sps_infer_scaling_list_flag
		}
		if infer {
			r.Skip(6) // sps_scaling_list_ref_layer_id
		} else if r.ReadFlag() { // sps_scaling_list_data_present_flag
			skipScalingListData(r)
		}
	}

	r.Skip(2) // amp_enabled_flag, sample_adaptive_offset_enabled_flag

	// pcm_enabled_flag
	if r.ReadFlag() {
		r.Skip(8) // pcm_sample_bit_depth_luma_minus1, pcm_sample_bit_depth_chroma_minus1
		r.SkipUE(2)
		r.Skip(1) // pcm_loop_filter_disabled_flag
	}

	s.NumShortTermRefPicSets = r.ReadUE()
	if s.NumShortTermRefPicSets > maxShortTermRefPicSets {
		return nil, errors.Errorf("invalid num_short_term_ref_pic_sets: %d", s.NumShortTermRefPicSets)
	}
	numDeltaPocs := make([]int, s.NumShortTermRefPicSets)
	for i := 0; i < s.NumShortTermRefPicSets && r.Err() == nil; i++ {
		err := skipShortTermRefPicSet(r, i, numDeltaPocs)
		if err != nil {
			return nil, err
		}
	}

	s.LongTermRefPicsPresent = r.ReadFlag()
	if s.LongTermRefPicsPresent {
		s.NumLongTermRefPics = r.ReadUE()
		if s.NumLongTermRefPics > maxLongTermRefPics {
			return nil, errors.Errorf("invalid num_long_term_ref_pics_sps: %d", s.NumLongTermRefPics)
		}
		for i := 0; i < s.NumLongTermRefPics; i++ {
			r.Skip(s.PicOrderCntLSBBits) // lt_ref_pic_poc_lsb_sps[i]
			r.Skip(1)                    // used_by_curr_pic_lt_sps_flag[i]
		}
	}

	s.TemporalMVPEnabled = r.ReadFlag()
	r.Skip(1) // strong_intra_smoothing_enabled_flag

	// vui_parameters_present_flag
	if r.ReadFlag() {
		s.VUI = parseVUI(r, s.MaxSubLayersMinus1)
		s.PixelAspectRatio = s.VUI.PixelAspectRatio()
		if s.VUI.VideoSignal != nil {
			s.Color = s.VUI.VideoSignal.Color()
		}
	}
	if s.VUI == nil || s.VUI.VideoSignal == nil {
		if layer != nil && layer.VideoSignalIdx >= 0 {
			s.Color = vps.VideoSignalInfos[layer.VideoSignalIdx].Color()
		}
	}

	if r.Err() != nil {
		return nil, errors.Wrap(r.Err(), "could not parse SPS")
	}
	return s, nil
}

// applyWindow crops the picture by the conformance window w, given in chroma
// units (equations 7-8 and 7-9 with Table 6-1).
func (s *SPS) applyWindow(w *Window) {
	subWidthC, subHeightC := 1, 1
	if !s.SeparateColorPlane {
		switch s.ChromaFormatIDC {
		case 1:
			subWidthC, subHeightC = 2, 2
		case 2:
			subWidthC = 2
		}
	}
	s.Width -= subWidthC * (w.Left + w.Right)
	s.Height -= subHeightC * (w.Top + w.Bottom)
}

// CodecString returns the RFC 6381 codecs parameter for the stream.
func (s *SPS) CodecString() string {
	return s.PTL.CodecString()
}

// skipScalingListData traverses scaling_list_data() (section 7.3.4).
func skipScalingListData(r *bitio.FieldReader) {
	for sizeID := 0; sizeID < 4; sizeID++ {
		step := 1
		if sizeID == 3 {
			step = 3
		}
		for matrixID := 0; matrixID < 6 && r.Err() == nil; matrixID += step {
			// scaling_list_pred_mode_flag
			if !r.ReadFlag() {
				r.SkipUE(1) // scaling_list_pred_matrix_id_delta
				continue
			}
			coefNum := 1 << (4 + sizeID<<1)
			if coefNum > 64 {
				coefNum = 64
			}
			if sizeID > 1 {
				r.SkipUE(1) // scaling_list_dc_coef_minus8
			}
			r.SkipUE(coefNum) // scaling_list_delta_coef
		}
	}
}

// skipShortTermRefPicSet traverses st_ref_pic_set(idx) as carried by the SPS
// (section 7.3.7), recording NumDeltaPocs[idx] for prediction by later sets.
func skipShortTermRefPicSet(r *bitio.FieldReader, idx int, numDeltaPocs []int) error {
	// inter_ref_pic_set_prediction_flag
	if idx != 0 && r.ReadFlag() {
		r.Skip(1)   // delta_rps_sign
		r.SkipUE(1) // abs_delta_rps_minus1
		n := 0
		for j := 0; j <= numDeltaPocs[idx-1] && r.Err() == nil; j++ {
			used := r.ReadFlag() // used_by_curr_pic_flag[j]
			useDelta := true
			if !used {
				useDelta = r.ReadFlag() // use_delta_flag[j]
			}
			if used || useDelta {
				n++
			}
		}
		numDeltaPocs[idx] = n
		return nil
	}

	neg, pos := r.ReadUE(), r.ReadUE()
	if neg+pos > maxDeltaPocs {
		return errors.Errorf("invalid short-term RPS size: %d", neg+pos)
	}
	for i := 0; i < neg+pos; i++ {
		r.SkipUE(1) // delta_poc_s0_minus1 or delta_poc_s1_minus1
		r.Skip(1)   // used_by_curr_pic_s0_flag or used_by_curr_pic_s1_flag
	}
	numDeltaPocs[idx] = neg + pos
	return nil
}
