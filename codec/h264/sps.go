/*
DESCRIPTION
  sps.go provides parsing of the H.264 sequence parameter set (section
  7.3.2.1.1), including its video usability information (section E.1.1).

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
	"fmt"

	"github.com/pkg/errors"

	"github.com/ausocean/esparse/codec/bits"
	"github.com/ausocean/esparse/codec/codecutil"
)

// extendedSAR is the aspect_ratio_idc value indicating that sar_width and
// sar_height follow.
const extendedSAR = 255

// maxDPBFrames is the max_num_reorder_frames inferred when it is not
// signalled and no profile constraint applies.
const maxDPBFrames = 16

// aspectRatios holds the sample aspect ratios of Table E-1 indexed by
// aspect_ratio_idc. Index 0 is unspecified and treated as square.
var aspectRatios = []float64{
	1, 1, 12.0 / 11, 10.0 / 11, 16.0 / 11, 40.0 / 33, 24.0 / 11, 20.0 / 11,
	32.0 / 11, 80.0 / 33, 18.0 / 11, 15.0 / 11, 64.0 / 33, 160.0 / 99,
	4.0 / 3, 3.0 / 2, 2,
}

// Profiles for which chroma format, bit depth and scaling matrices are
// signalled in the SPS.
var highProfiles = []int{100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135}

// Profiles for which constraint_set3_flag means max_num_reorder_frames is 0
// when it is not signalled (intra profiles).
var intraProfiles = []int{44, 86, 100, 110, 122, 244}

var errNotSPS = errors.New("not a sequence parameter set")

// SPS describes a sequence parameter set as defined by section 7.3.2.1.1 in
// the specifications. Only the fields needed to describe the stream are kept.
type SPS struct {
	// profile_idc and level_idc indicate the profile and level to which the
	// coded video sequence conforms.
	ProfileIDC int
	LevelIDC   int

	// The byte holding constraint_set0_flag to constraint_set5_flag and
	// reserved_zero_2bits.
	Constraints int

	// seq_parameter_set_id identifies the SPS referred to by a PPS.
	ID int

	// chroma_format_idc specifies chroma sampling relative to luma sampling;
	// 1 (4:2:0) if not present.
	ChromaFormatIDC int

	// separate_colour_plane_flag if true specifies that the three colour
	// components of 4:4:4 chroma are coded separately.
	SeparateColorPlane bool

	BitDepthLuma   int
	BitDepthChroma int

	// Length in bits of frame_num, being log2_max_frame_num_minus4 + 4.
	FrameNumBits int

	// pic_order_cnt_type, and for type 0 the length in bits of
	// pic_order_cnt_lsb.
	PicOrderCntType    int
	PicOrderCntLSBBits int

	// delta_pic_order_always_zero_flag, for pic_order_cnt_type 1.
	DeltaPicOrderAlwaysZero bool

	MaxNumRefFrames int

	// frame_mbs_only_flag if false indicates coded fields may be present.
	FrameMBsOnly bool

	// Width and Height of the decoded frame after cropping.
	Width  int
	Height int

	// PixelAspectRatio is the sample width divided by sample height.
	PixelAspectRatio float64

	// Colour description from the VUI, if signalled.
	Color codecutil.ColorInfo

	// MaxNumReorderFrames is the maximum number of frames that precede any
	// frame in decoding order and follow it in output order.
	MaxNumReorderFrames int

	// VUI is the video usability information, or nil if not present.
	VUI *VUIParameters
}

// ParseSPS parses a sequence parameter set from the NAL unit n, which
// includes the NAL header but not the start code. Emulation prevention bytes
// are removed from a private copy of n.
func ParseSPS(n []byte) (*SPS, error) {
	h, err := ParseNALHeader(n)
	if err != nil {
		return nil, err
	}
	if h.Type != NALTypeSPS {
		return nil, errNotSPS
	}
	rbsp := append([]byte(nil), n[1:]...)
	rbsp = rbsp[:codecutil.Unescape(rbsp, len(rbsp))]
	return parseSPSPayload(rbsp)
}

func parseSPSPayload(rbsp []byte) (*SPS, error) {
	s := &SPS{ChromaFormatIDC: 1, BitDepthLuma: 8, BitDepthChroma: 8, PixelAspectRatio: 1}
	r := bits.NewFieldReader(bits.NewBitReader(rbsp))

	s.ProfileIDC = r.ReadInt(8)
	s.Constraints = r.ReadInt(8)
	s.LevelIDC = r.ReadInt(8)
	s.ID = r.ReadUE()

	if isInList(highProfiles, s.ProfileIDC) {
		s.ChromaFormatIDC = r.ReadUE()
		if s.ChromaFormatIDC == 3 {
			s.SeparateColorPlane = r.ReadFlag()
		}
		s.BitDepthLuma = r.ReadUE() + 8
		s.BitDepthChroma = r.ReadUE() + 8
		r.Skip(1) // qpprime_y_zero_transform_bypass_flag

		// seq_scaling_matrix_present_flag
		if r.ReadFlag() {
			n := 8
			if s.ChromaFormatIDC == 3 {
				n = 12
			}
			for i := 0; i < n; i++ {
				// seq_scaling_list_present_flag[i]
				if !r.ReadFlag() {
					continue
				}
				if i < 6 {
					skipScalingList(r, 16)
				} else {
					skipScalingList(r, 64)
				}
			}
		}
	}

	s.FrameNumBits = r.ReadUE() + 4
	s.PicOrderCntType = r.ReadUE()
	switch s.PicOrderCntType {
	case 0:
		s.PicOrderCntLSBBits = r.ReadUE() + 4
	case 1:
		s.DeltaPicOrderAlwaysZero = r.ReadFlag()
		r.ReadSE() // offset_for_non_ref_pic
		r.ReadSE() // offset_for_top_to_bottom_field
		n := r.ReadUE()
		for i := 0; i < n && r.Err() == nil; i++ {
			r.ReadSE() // offset_for_ref_frame[i]
		}
	}

	s.MaxNumRefFrames = r.ReadUE()
	r.Skip(1) // gaps_in_frame_num_value_allowed_flag
	picWidthInMbs := r.ReadUE() + 1
	picHeightInMapUnits := r.ReadUE() + 1
	s.FrameMBsOnly = r.ReadFlag()
	fieldFactor := 2
	if s.FrameMBsOnly {
		fieldFactor = 1
	} else {
		r.Skip(1) // mb_adaptive_frame_field_flag
	}
	r.Skip(1) // direct_8x8_inference_flag

	s.Width = picWidthInMbs * 16
	s.Height = fieldFactor * picHeightInMapUnits * 16

	// frame_cropping_flag
	if r.ReadFlag() {
		left, right := r.ReadUE(), r.ReadUE()
		top, bottom := r.ReadUE(), r.ReadUE()
		cropUnitX, cropUnitY := s.cropUnits(fieldFactor)
		s.Width -= (left + right) * cropUnitX
		s.Height -= (top + bottom) * cropUnitY
	}

	s.MaxNumReorderFrames = -1
	// vui_parameters_present_flag
	if r.ReadFlag() {
		var err error
		s.VUI, err = parseVUI(r)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse VUI parameters")
		}
		s.PixelAspectRatio = s.VUI.PixelAspectRatio()
		if s.VUI.VideoSignalTypePresentFlag {
			s.Color.Range = codecutil.ColorRangeFromFlag(s.VUI.VideoFullRangeFlag)
		}
		if s.VUI.ColorDescriptionPresentFlag {
			s.Color = codecutil.NewColorInfo(
				s.VUI.VideoFullRangeFlag,
				s.VUI.ColorPrimaries,
				s.VUI.TransferCharacteristics,
				s.VUI.MatrixCoefficients,
			)
		}
		if s.VUI.BitstreamRestrictionFlag {
			s.MaxNumReorderFrames = s.VUI.MaxNumReorderFrames
		}
	}

	if r.Err() != nil {
		return nil, errors.Wrap(r.Err(), "could not parse SPS")
	}

	if s.MaxNumReorderFrames == -1 {
		s.MaxNumReorderFrames = maxDPBFrames
		if isInList(intraProfiles, s.ProfileIDC) && s.Constraints&0x10 != 0 {
			s.MaxNumReorderFrames = 0
		}
	}
	return s, nil
}

// cropUnits returns CropUnitX and CropUnitY as given by equations 7-19 to
// 7-22.
func (s *SPS) cropUnits(fieldFactor int) (x, y int) {
	chromaArrayType := s.ChromaFormatIDC
	if s.SeparateColorPlane {
		chromaArrayType = 0
	}
	if chromaArrayType == 0 {
		return 1, fieldFactor
	}
	subWidthC, subHeightC := 2, 2
	switch chromaArrayType {
	case 2:
		subHeightC = 1
	case 3:
		subWidthC, subHeightC = 1, 1
	}
	return subWidthC, subHeightC * fieldFactor
}

// CodecString returns the RFC 6381 codecs parameter for the stream, for
// example avc1.64001F.
func (s *SPS) CodecString() string {
	return fmt.Sprintf("avc1.%02X%02X%02X", s.ProfileIDC, s.Constraints, s.LevelIDC)
}

// skipScalingList skips a scaling_list() structure of the given size as
// described by section 7.3.2.1.1.1.
func skipScalingList(r *bits.FieldReader, size int) {
	lastScale, nextScale := 8, 8
	for i := 0; i < size && r.Err() == nil; i++ {
		if nextScale != 0 {
			delta := r.ReadSE()
			nextScale = (lastScale + delta + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
}

func isInList(l []int, term int) bool {
	for _, m := range l {
		if m == term {
			return true
		}
	}
	return false
}
