/*
DESCRIPTION
  sps_test.go provides testing for parsing functionality found in sps.go and
  vui.go.

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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ausocean/esparse/codec/bits"
	"github.com/ausocean/esparse/codec/codecutil"
)

const hdrSPS = 0x67

// Baseline SPS of 10x8 macroblocks with 2 macroblock columns of cropping on
// each side, giving 152x128.
const baselineCropped = "01000010" + // u(8) profile_idc = 66
	"11000000" + // u(8) constraint_set0_flag = 1, constraint_set1_flag = 1
	"00011110" + // u(8) level_idc = 30
	"1" + // ue(v) seq_parameter_set_id = 0
	"1" + // ue(v) log2_max_frame_num_minus4 = 0
	"1" + // ue(v) pic_order_cnt_type = 0
	"011" + // ue(v) log2_max_pic_order_cnt_lsb_minus4 = 2
	"010" + // ue(v) max_num_ref_frames = 1
	"0" + // u(1) gaps_in_frame_num_value_allowed_flag = 0
	"0001010" + // ue(v) pic_width_in_mbs_minus1 = 9
	"0001000" + // ue(v) pic_height_in_map_units_minus1 = 7
	"1" + // u(1) frame_mbs_only_flag = 1
	"1" + // u(1) direct_8x8_inference_flag = 1
	"1" + // u(1) frame_cropping_flag = 1
	"011" + // ue(v) frame_crop_left_offset = 2
	"011" + // ue(v) frame_crop_right_offset = 2
	"1" + // ue(v) frame_crop_top_offset = 0
	"1" + // ue(v) frame_crop_bottom_offset = 0
	"0" + // u(1) vui_parameters_present_flag = 0
	"1" // rbsp_stop_one_bit

// High profile 1080p SPS with a scaling list, VUI, NAL HRD and bitstream
// restriction.
const high1080p = "01100100" + // u(8) profile_idc = 100
	"00000000" + // u(8) constraint flags
	"00101000" + // u(8) level_idc = 40
	"1" + // ue(v) seq_parameter_set_id = 0
	"010" + // ue(v) chroma_format_idc = 1
	"1" + // ue(v) bit_depth_luma_minus8 = 0
	"1" + // ue(v) bit_depth_chroma_minus8 = 0
	"0" + // u(1) qpprime_y_zero_transform_bypass_flag = 0
	"1" + // u(1) seq_scaling_matrix_present_flag = 1
	"1" + // u(1) seq_scaling_list_present_flag[0] = 1
	"000010001" + // se(v) delta_scale = -8, ending the list
	"0000000" + // u(1) seq_scaling_list_present_flag[1..7] = 0
	"1" + // ue(v) log2_max_frame_num_minus4 = 0
	"011" + // ue(v) pic_order_cnt_type = 2
	"010" + // ue(v) max_num_ref_frames = 1
	"0" + // u(1) gaps_in_frame_num_value_allowed_flag = 0
	"0000001111000" + // ue(v) pic_width_in_mbs_minus1 = 119
	"0000001000100" + // ue(v) pic_height_in_map_units_minus1 = 67
	"1" + // u(1) frame_mbs_only_flag = 1
	"1" + // u(1) direct_8x8_inference_flag = 1
	"1" + // u(1) frame_cropping_flag = 1
	"1" + // ue(v) frame_crop_left_offset = 0
	"1" + // ue(v) frame_crop_right_offset = 0
	"1" + // ue(v) frame_crop_top_offset = 0
	"00101" + // ue(v) frame_crop_bottom_offset = 4
	"1" + // u(1) vui_parameters_present_flag = 1
	"1" + // u(1) aspect_ratio_info_present_flag = 1
	"11111111" + // u(8) aspect_ratio_idc = 255 (Extended_SAR)
	"0000000000000100" + // u(16) sar_width = 4
	"0000000000000011" + // u(16) sar_height = 3
	"0" + // u(1) overscan_info_present_flag = 0
	"1" + // u(1) video_signal_type_present_flag = 1
	"101" + // u(3) video_format = 5
	"0" + // u(1) video_full_range_flag = 0
	"1" + // u(1) colour_description_present_flag = 1
	"00000001" + // u(8) colour_primaries = 1
	"00000001" + // u(8) transfer_characteristics = 1
	"00000001" + // u(8) matrix_coefficients = 1
	"0" + // u(1) chroma_loc_info_present_flag = 0
	"1" + // u(1) timing_info_present_flag = 1
	"00000000000000000000001111101001" + // u(32) num_units_in_tick = 1001
	"00000000000000001110101001100000" + // u(32) time_scale = 60000
	"1" + // u(1) fixed_frame_rate_flag = 1
	"1" + // u(1) nal_hrd_parameters_present_flag = 1
	"1" + // ue(v) cpb_cnt_minus1 = 0
	"0100" + // u(4) bit_rate_scale = 4
	"0110" + // u(4) cpb_size_scale = 6
	"00100" + // ue(v) bit_rate_value_minus1[0] = 3
	"00100" + // ue(v) cpb_size_value_minus1[0] = 3
	"0" + // u(1) cbr_flag[0] = 0
	"10111" + // u(5) initial_cpb_removal_delay_length_minus1 = 23
	"10111" + // u(5) cpb_removal_delay_length_minus1 = 23
	"10111" + // u(5) dpb_output_delay_length_minus1 = 23
	"11000" + // u(5) time_offset_length = 24
	"0" + // u(1) vcl_hrd_parameters_present_flag = 0
	"0" + // u(1) low_delay_hrd_flag = 0
	"0" + // u(1) pic_struct_present_flag = 0
	"1" + // u(1) bitstream_restriction_flag = 1
	"1" + // u(1) motion_vectors_over_pic_boundaries_flag = 1
	"011" + // ue(v) max_bytes_per_pic_denom = 2
	"010" + // ue(v) max_bits_per_mb_denom = 1
	"000010001" + // ue(v) log2_max_mv_length_horizontal = 16
	"000010001" + // ue(v) log2_max_mv_length_vertical = 16
	"011" + // ue(v) max_num_reorder_frames = 2
	"00101" + // ue(v) max_dec_frame_buffering = 4
	"1" // rbsp_stop_one_bit

// Intra high profile SPS of a single macroblock with constraint_set3_flag set
// and no VUI.
const highIntra = "01100100" + // u(8) profile_idc = 100
	"00010000" + // u(8) constraint_set3_flag = 1
	"00011111" + // u(8) level_idc = 31
	"010" + // ue(v) seq_parameter_set_id = 1
	"010" + // ue(v) chroma_format_idc = 1
	"1" + // ue(v) bit_depth_luma_minus8 = 0
	"1" + // ue(v) bit_depth_chroma_minus8 = 0
	"0" + // u(1) qpprime_y_zero_transform_bypass_flag = 0
	"0" + // u(1) seq_scaling_matrix_present_flag = 0
	"1" + // ue(v) log2_max_frame_num_minus4 = 0
	"011" + // ue(v) pic_order_cnt_type = 2
	"1" + // ue(v) max_num_ref_frames = 0
	"0" + // u(1) gaps_in_frame_num_value_allowed_flag = 0
	"1" + // ue(v) pic_width_in_mbs_minus1 = 0
	"1" + // ue(v) pic_height_in_map_units_minus1 = 0
	"1" + // u(1) frame_mbs_only_flag = 1
	"1" + // u(1) direct_8x8_inference_flag = 1
	"0" + // u(1) frame_cropping_flag = 0
	"0" + // u(1) vui_parameters_present_flag = 0
	"1" // rbsp_stop_one_bit

func TestParseSPS(t *testing.T) {
	tests := []struct {
		in   string
		want SPS
	}{
		{
			in: baselineCropped,
			want: SPS{
				ProfileIDC:          66,
				Constraints:         0xc0,
				LevelIDC:            30,
				ChromaFormatIDC:     1,
				BitDepthLuma:        8,
				BitDepthChroma:      8,
				FrameNumBits:        4,
				PicOrderCntLSBBits:  6,
				MaxNumRefFrames:     1,
				FrameMBsOnly:        true,
				Width:               152,
				Height:              128,
				PixelAspectRatio:    1,
				MaxNumReorderFrames: 16,
			},
		},
		{
			in: high1080p,
			want: SPS{
				ProfileIDC:       100,
				LevelIDC:         40,
				ChromaFormatIDC:  1,
				BitDepthLuma:     8,
				BitDepthChroma:   8,
				FrameNumBits:     4,
				PicOrderCntType:  2,
				MaxNumRefFrames:  1,
				FrameMBsOnly:     true,
				Width:            1920,
				Height:           1080,
				PixelAspectRatio: 4.0 / 3,
				Color: codecutil.ColorInfo{
					Space:                   codecutil.ColorSpaceBT709,
					Transfer:                codecutil.ColorTransferSDR,
					Range:                   codecutil.ColorRangeLimited,
					Primaries:               1,
					TransferCharacteristics: 1,
					MatrixCoefficients:      1,
				},
				MaxNumReorderFrames: 2,
			},
		},
		{
			in: highIntra,
			want: SPS{
				ProfileIDC:          100,
				Constraints:         0x10,
				LevelIDC:            31,
				ID:                  1,
				ChromaFormatIDC:     1,
				BitDepthLuma:        8,
				BitDepthChroma:      8,
				FrameNumBits:        4,
				PicOrderCntType:     2,
				FrameMBsOnly:        true,
				Width:               16,
				Height:              16,
				PixelAspectRatio:    1,
				MaxNumReorderFrames: 0,
			},
		},
	}

	for i, test := range tests {
		got, err := ParseSPS(nalFromBits(t, hdrSPS, test.in))
		if err != nil {
			t.Fatalf("did not expect error: %v for test: %d", err, i)
		}
		if !cmp.Equal(*got, test.want, cmpopts.IgnoreFields(SPS{}, "VUI")) {
			t.Errorf("did not get expected result for test: %d.\n%s", i, cmp.Diff(test.want, *got, cmpopts.IgnoreFields(SPS{}, "VUI")))
		}
	}
}

func TestParseVUI(t *testing.T) {
	s, err := ParseSPS(nalFromBits(t, hdrSPS, high1080p))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	want := &VUIParameters{
		AspectRatioInfoPresentFlag:  true,
		AspectRatioIDC:              255,
		SARWidth:                    4,
		SARHeight:                   3,
		VideoSignalTypePresentFlag:  true,
		VideoFormat:                 5,
		ColorDescriptionPresentFlag: true,
		ColorPrimaries:              1,
		TransferCharacteristics:     1,
		MatrixCoefficients:          1,
		TimingInfoPresentFlag:       true,
		NumUnitsInTick:              1001,
		TimeScale:                   60000,
		FixedFrameRateFlag:          true,
		NALHRDParametersPresentFlag: true,
		NALHRDParameters: &HRDParameters{
			BitRateScale:                    4,
			CPBSizeScale:                    6,
			BitRateValueMinus1:              []int{3},
			CPBSizeValueMinus1:              []int{3},
			CBRFlag:                         []bool{false},
			InitialCPBRemovalDelayLenMinus1: 23,
			CPBRemovalDelayLenMinus1:        23,
			DPBOutputDelayLenMinus1:         23,
			TimeOffsetLen:                   24,
		},
		BitstreamRestrictionFlag:           true,
		MotionVectorsOverPicBoundariesFlag: true,
		MaxBytesPerPicDenom:                2,
		MaxBitsPerMBDenom:                  1,
		Log2MaxMVLengthHorizontal:          16,
		Log2MaxMVLengthVertical:            16,
		MaxNumReorderFrames:                2,
		MaxDecFrameBuffering:               4,
	}
	if !cmp.Equal(s.VUI, want) {
		t.Errorf("did not get expected result.\n%s", cmp.Diff(want, s.VUI))
	}
	if got := s.VUI.FrameRate(); got < 29.97 || got > 29.971 {
		t.Errorf("unexpected frame rate: %v", got)
	}
}

func TestParseSPSEmulationPrevention(t *testing.T) {
	// Zero constraint flags and level followed by a long Exp-Golomb code put
	// 0x00 0x00 0x02 in the RBSP, so the NAL unit carries an escape.
	in := "01000010" + // u(8) profile_idc = 66
		"00000000" + // u(8) constraint flags
		"00000000" + // u(8) level_idc = 0
		"0000001000000" + // ue(v) seq_parameter_set_id = 63
		"1" + // ue(v) log2_max_frame_num_minus4 = 0
		"011" + // ue(v) pic_order_cnt_type = 2
		"010" + // ue(v) max_num_ref_frames = 1
		"0" + // u(1) gaps_in_frame_num_value_allowed_flag = 0
		"1" + // ue(v) pic_width_in_mbs_minus1 = 0
		"1" + // ue(v) pic_height_in_map_units_minus1 = 0
		"1" + // u(1) frame_mbs_only_flag = 1
		"1" + // u(1) direct_8x8_inference_flag = 1
		"0" + // u(1) frame_cropping_flag = 0
		"0" + // u(1) vui_parameters_present_flag = 0
		"1" // rbsp_stop_one_bit
	n := nalFromBits(t, hdrSPS, in)
	if n[2] != 0 || n[3] != 0 || n[4] != 3 {
		t.Fatalf("expected emulation prevention byte in test NAL unit: %x", n)
	}
	s, err := ParseSPS(n)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if s.ID != 63 || s.Width != 16 || s.Height != 16 || s.MaxNumRefFrames != 1 {
		t.Errorf("unexpected SPS: %+v", s)
	}
}

func TestParseSPSErrors(t *testing.T) {
	n := nalFromBits(t, hdrSPS, baselineCropped)
	_, err := ParseSPS(n[:6])
	if !errors.Is(err, bits.ErrOverRead) {
		t.Errorf("did not get expected error for truncated SPS.\nGot: %v\nWant: %v\n", err, bits.ErrOverRead)
	}

	_, err = ParseSPS([]byte{0x68, 0xce})
	if err != errNotSPS {
		t.Errorf("did not get expected error for PPS.\nGot: %v\nWant: %v\n", err, errNotSPS)
	}

	_, err = ParseSPS([]byte{0xe7, 0x42})
	if err != errForbiddenBit {
		t.Errorf("did not get expected error for forbidden bit.\nGot: %v\nWant: %v\n", err, errForbiddenBit)
	}
}

func TestCodecString(t *testing.T) {
	s, err := ParseSPS(nalFromBits(t, hdrSPS, high1080p))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	const want = "avc1.640028"
	if got := s.CodecString(); got != want {
		t.Errorf("did not get expected result.\nGot: %s\nWant: %s\n", got, want)
	}
}
