/*
DESCRIPTION
  helpers_test.go provides helper functions and stream fixtures for testing
  the probe.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package probe

import (
	"errors"
	"testing"

	"github.com/ausocean/esparse/codec/codecutil"
)

// binToSlice is a helper function to convert a string of binary into a
// corresponding byte slice, e.g. "0100 0001 1000 1100" => {0x41,0x8c}.
// Spaces in the string are ignored. A final partial byte is padded with
// zeros.
func binToSlice(s string) ([]byte, error) {
	var (
		a     byte = 0x80
		cur   byte
		bytes []byte
	)

	for i, c := range s {
		switch c {
		case ' ':
			continue
		case '1':
			cur |= a
		case '0':
		default:
			return nil, errors.New("invalid binary string")
		}

		a >>= 1
		if a == 0 || i == (len(s)-1) {
			bytes = append(bytes, cur)
			cur = 0
			a = 0x80
		}
	}
	return bytes, nil
}

// nal returns a NAL unit made of the header bytes hdr followed by the RBSP
// given as a binary string.
func nal(t *testing.T, hdr []byte, rbsp string) []byte {
	t.Helper()
	b, err := binToSlice(rbsp)
	if err != nil {
		t.Fatalf("unexpected binToSlice error: %v", err)
	}
	return append(append([]byte{}, hdr...), b...)
}

// annexB returns the byte stream of the given NAL units, with emulation
// prevention applied.
func annexB(nals ...[]byte) []byte {
	var s []byte
	for _, n := range nals {
		s = append(s, 0, 0, 0, 1)
		s = append(s, codecutil.Escape(n)...)
	}
	return s
}

// seiRBSP returns the RBSP of an SEI NAL unit holding one
// user_data_registered_itu_t_t35 message with payload p.
func seiRBSP(p []byte) []byte {
	b := []byte{0x04, byte(len(p))}
	b = append(b, p...)
	return append(b, 0x80)
}

// ccPayload is an ATSC A/53 caption payload holding a resume caption loading
// command on CC1.
var ccPayload = []byte{
	0xb5, 0x00, 0x31, 'G', 'A', '9', '4', 0x03,
	0x41,             // process_cc_data_flag = 1, cc_count = 1
	0xff,             // em_data
	0xfc, 0x94, 0x20, // cc_valid = 1, cc_type = 0, RCL
	0xff,             // marker_bits
}

// Baseline H.264 SPS of 152x128 pixels.
const h264SPS = "01000010" + // u(8) profile_idc = 66
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

const h264PPS = "1" + // ue(v) pic_parameter_set_id = 0
	"1" + // ue(v) seq_parameter_set_id = 0
	"0" + // u(1) entropy_coding_mode_flag = 0
	"0" + // u(1) bottom_field_pic_order_in_frame_present_flag = 0
	"1" + // ue(v) num_slice_groups_minus1 = 0
	"1" + // ue(v) num_ref_idx_L0_active_minus1 = 0
	"1" + // ue(v) num_ref_idx_L1_active_minus1 = 0
	"0" + // u(1) weighted_pred_flag = 0
	"00" + // u(2) weighted_bipred_idc = 0
	"1" + // se(v) pic_init_qp_minus26 = 0
	"1" + // se(v) pic_init_qs_minus26 = 0
	"1" + // se(v) chroma_qp_index_offset = 0
	"1" + // u(1) deblocking_filter_control_present_flag = 1
	"0" + // u(1) constrained_intra_pred_flag = 0
	"0" + // u(1) redundant_pic_cnt_present_flag = 0
	"1" // rbsp_stop_one_bit

// H.264 NAL unit headers and slices. The first byte after the header of a
// slice starting a picture has first_mb_in_slice = 0.
var (
	h264HdrSPS = []byte{0x67}
	h264HdrPPS = []byte{0x68}
	h264HdrSEI = []byte{0x06}
	h264IDR    = []byte{0x65, 0x88, 0x84, 0x21}
	h264Slice  = []byte{0x41, 0x9a, 0x21, 0x4c}
	h264Second = []byte{0x41, 0x5a, 0x21, 0x4c} // Second slice of a picture.
)

// Single layer H.265 VPS.
const h265VPS = "0000" + // u(4) vps_video_parameter_set_id = 0
	"1" + // u(1) vps_base_layer_internal_flag = 1
	"1" + // u(1) vps_base_layer_available_flag = 1
	"000000" + // u(6) vps_max_layers_minus1 = 0
	"000" + // u(3) vps_max_sub_layers_minus1 = 0
	"1" + // u(1) vps_temporal_id_nesting_flag = 1
	"1111111111111111" + // u(16) vps_reserved_0xffff_16bits
	"00" + // u(2) general_profile_space = 0
	"0" + // u(1) general_tier_flag = 0
	"00001" + // u(5) general_profile_idc = 1
	"01100000000000000000000000000000" + // u(32) general_profile_compatibility_flag[1..2] = 1
	"10110000" + // progressive_source, non_packed_constraint and frame_only_constraint flags = 1
	"0000000000000000000000000000000000000000" + // remaining 40 constraint bits
	"01011101" + // u(8) general_level_idc = 93
	"1" + // u(1) vps_sub_layer_ordering_info_present_flag = 1
	"00101" + // ue(v) vps_max_dec_pic_buffering_minus1[0] = 4
	"011" + // ue(v) vps_max_num_reorder_pics[0] = 2
	"1" + // ue(v) vps_max_latency_increase_plus1[0] = 0
	"000000" + // u(6) vps_max_layer_id = 0
	"1" + // ue(v) vps_num_layer_sets_minus1 = 0
	"0" + // u(1) vps_timing_info_present_flag = 0
	"0" + // u(1) vps_extension_flag = 0
	"1" // rbsp_stop_one_bit

const h265PPS = "1" + // ue(v) pps_pic_parameter_set_id = 0
	"1" + // ue(v) pps_seq_parameter_set_id = 0
	"0" + // u(1) dependent_slice_segments_enabled_flag = 0
	"0" + // u(1) output_flag_present_flag = 0
	"000" + // u(3) num_extra_slice_header_bits = 0
	"0" + // u(1) sign_data_hiding_enabled_flag = 0
	"1" + // u(1) cabac_init_present_flag = 1
	"1" + // ue(v) num_ref_idx_l0_default_active_minus1 = 0
	"1" + // ue(v) num_ref_idx_l1_default_active_minus1 = 0
	"1" + // se(v) init_qp_minus26 = 0
	"0" + // u(1) constrained_intra_pred_flag = 0
	"0" + // u(1) transform_skip_enabled_flag = 0
	"0" + // u(1) cu_qp_delta_enabled_flag = 0
	"1" + // se(v) pps_cb_qp_offset = 0
	"1" + // se(v) pps_cr_qp_offset = 0
	"0" + // u(1) pps_slice_chroma_qp_offsets_present_flag = 0
	"0" + // u(1) weighted_pred_flag = 0
	"0" + // u(1) weighted_bipred_flag = 0
	"0" + // u(1) transquant_bypass_enabled_flag = 0
	"0" + // u(1) tiles_enabled_flag = 0
	"0" + // u(1) entropy_coding_sync_enabled_flag = 0
	"1" + // u(1) pps_loop_filter_across_slices_enabled_flag = 1
	"0" + // u(1) deblocking_filter_control_present_flag = 0
	"1" // rbsp_stop_one_bit

// H.265 NAL unit headers and slices.
var (
	h265HdrVPS    = []byte{0x40, 0x01}
	h265HdrPPS    = []byte{0x44, 0x01}
	h265HdrSEI    = []byte{0x4e, 0x01}
	h265IDR       = []byte{0x26, 0x01, 0xaf, 0x1d, 0x80}
	h265Trail     = []byte{0x02, 0x01, 0xd0, 0x2f, 0x40}
	h265LayerOne  = []byte{0x02, 0x09, 0xd0, 0x2f, 0x40} // nuh_layer_id = 1.
	h265Dependent = []byte{0x02, 0x01, 0x50, 0x2f, 0x40} // Not the first slice.
)

// AV1 sequence header for 1920x1080 4:2:0 8 bit video.
const av1SequenceHeader = "000" + // f(3) seq_profile = 0
	"0" + // f(1) still_picture = 0
	"0" + // f(1) reduced_still_picture_header = 0
	"0" + // f(1) timing_info_present_flag = 0
	"0" + // f(1) initial_display_delay_present_flag = 0
	"00000" + // f(5) operating_points_cnt_minus_1 = 0
	"000000000000" + // f(12) operating_point_idc[0] = 0
	"01000" + // f(5) seq_level_idx[0] = 8
	"0" + // f(1) seq_tier[0] = 0
	"1010" + // f(4) frame_width_bits_minus_1 = 10
	"1010" + // f(4) frame_height_bits_minus_1 = 10
	"11101111111" + // f(11) max_frame_width_minus_1 = 1919
	"10000110111" + // f(11) max_frame_height_minus_1 = 1079
	"0" + // f(1) frame_id_numbers_present_flag = 0
	"0110000" + // f(7) use_128x128_superblock to enable_dual_filter
	"1" + // f(1) enable_order_hint = 1
	"00" + // f(2) enable_jnt_comp, enable_ref_frame_mvs = 0
	"1" + // f(1) seq_choose_screen_content_tools = 1
	"1" + // f(1) seq_choose_integer_mv = 1
	"110" + // f(3) order_hint_bits_minus_1 = 6
	"011" + // f(3) enable_superres, enable_cdef, enable_restoration
	"0" + // f(1) high_bitdepth = 0
	"0" + // f(1) mono_chrome = 0
	"0" + // f(1) color_description_present_flag = 0
	"0" + // f(1) color_range = 0
	"00" + // f(2) chroma_sample_position = 0
	"0" + // f(1) separate_uv_delta_q = 0
	"0" + // f(1) film_grain_params_present_flag = 0
	"1" // trailing_one_bit

// Shown key frame header, followed by tile data.
const av1KeyFrame = "0" + // f(1) show_existing_frame = 0
	"00" + // f(2) frame_type = KEY_FRAME
	"1" + // f(1) show_frame = 1
	"0" + // f(1) disable_cdf_update = 0
	"0" + // f(1) allow_screen_content_tools = 0
	"0" + // f(1) frame_size_override_flag = 0
	"0000000" + // f(7) order_hint = 0
	"11" + // pad to byte boundary
	"1010101111001101" // tile data

// obu returns an OBU of type typ with a size field and the given payload.
func obu(typ int, payload []byte) []byte {
	b := []byte{byte(typ<<3) | 0x02}
	for n := len(payload); ; n >>= 7 {
		if n < 0x80 {
			b = append(b, byte(n))
			break
		}
		b = append(b, byte(n&0x7f)|0x80)
	}
	return append(b, payload...)
}

// recorder collects records.
type recorder struct {
	records []Record
}

func (r *recorder) Record(rec Record) { r.records = append(r.records, rec) }

// kinds returns the kinds of the recorded records, excluding captions.
func (r *recorder) kinds() []string {
	var k []string
	for _, rec := range r.records {
		if rec.Kind != KindCaption {
			k = append(k, rec.Kind)
		}
	}
	return k
}
