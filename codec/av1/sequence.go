/*
DESCRIPTION
  sequence.go provides parsing of the AV1 sequence header OBU (section 5.5).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ausocean/esparse/codec/bits"
	"github.com/ausocean/esparse/codec/codecutil"
)

// ErrNotImplemented is returned when a header uses a feature that is not
// decoded. It does not indicate a malformed bitstream.
var ErrNotImplemented = errors.New("AV1 feature not implemented")

// selectScreenContentTools is the value of SELECT_SCREEN_CONTENT_TOOLS and
// SELECT_INTEGER_MV.
const selectScreenContentTools = 2

// Colour description code points given by section 6.4.2.
const (
	cpBT709       = 1
	cpUnspecified = 2
	tcUnspecified = 2
	tcSRGB        = 13
	mcIdentity    = 0
	mcUnspecified = 2
)

// SequenceHeader holds the sequence header fields needed to describe the
// stream and to parse frame headers.
type SequenceHeader struct {
	Profile      int
	StillPicture bool

	TimingInfoPresent     bool
	NumUnitsInDisplayTick uint32
	TimeScale             uint32
	EqualPictureInterval  bool

	DecoderModelInfoPresent bool

	// Level and tier of operating point 0.
	Level int
	Tier  int

	MaxFrameWidth  int
	MaxFrameHeight int

	FrameIDNumbersPresent bool

	EnableOrderHint bool
	OrderHintBits   int

	SeqForceScreenContentTools int
	SeqForceIntegerMV          int

	BitDepth     int
	MonoChrome   bool
	SubsamplingX bool
	SubsamplingY bool
	Color        codecutil.ColorInfo

	FilmGrainParamsPresent bool
}

// ParseSequenceHeader parses the payload of a sequence header OBU.
func ParseSequenceHeader(payload []byte) (*SequenceHeader, error) {
	r := bits.NewFieldReader(bits.NewBitReader(payload))
	s := &SequenceHeader{}

	s.Profile = r.ReadInt(3)
	s.StillPicture = r.ReadFlag()
	// reduced_still_picture_header
	if r.ReadFlag() {
		return nil, errors.Wrap(ErrNotImplemented, "reduced_still_picture_header")
	}

	s.TimingInfoPresent = r.ReadFlag()
	var bufferDelayLen int
	if s.TimingInfoPresent {
		s.NumUnitsInDisplayTick = uint32(r.ReadBits(32))
		s.TimeScale = uint32(r.ReadBits(32))
		s.EqualPictureInterval = r.ReadFlag()
		if s.EqualPictureInterval {
			readUVLC(r) // num_ticks_per_picture_minus_1
		}
		s.DecoderModelInfoPresent = r.ReadFlag()
		if s.DecoderModelInfoPresent {
			bufferDelayLen = r.ReadInt(5) + 1
			r.Skip(32) // num_units_in_decoding_tick
			// buffer_removal_time_length_minus_1 and
			// frame_presentation_time_length_minus_1.
			r.Skip(10)
		}
	}

	initialDisplayDelayPresent := r.ReadFlag()
	numOperatingPoints := r.ReadInt(5) + 1
	for i := 0; i < numOperatingPoints && r.Err() == nil; i++ {
		r.Skip(12) // operating_point_idc[i]
		level := r.ReadInt(5)
		tier := 0
		if level > 7 {
			tier = r.ReadInt(1)
		}
		if i == 0 {
			s.Level, s.Tier = level, tier
		}
		// decoder_model_present_for_this_op[i]
		if s.DecoderModelInfoPresent && r.ReadFlag() {
			// decoder_buffer_delay, encoder_buffer_delay and
			// low_delay_mode_flag.
			r.Skip(2*bufferDelayLen + 1)
		}
		// initial_display_delay_present_for_this_op[i]
		if initialDisplayDelayPresent && r.ReadFlag() {
			r.Skip(4) // initial_display_delay_minus_1[i]
		}
	}

	widthBits := r.ReadInt(4) + 1
	heightBits := r.ReadInt(4) + 1
	s.MaxFrameWidth = r.ReadInt(widthBits) + 1
	s.MaxFrameHeight = r.ReadInt(heightBits) + 1

	s.FrameIDNumbersPresent = r.ReadFlag()
	if s.FrameIDNumbersPresent {
		// delta_frame_id_length_minus_2 and
		// additional_frame_id_length_minus_1.
		r.Skip(7)
	}

	// use_128x128_superblock, enable_filter_intra, enable_intra_edge_filter,
	// enable_interintra_compound, enable_masked_compound,
	// enable_warped_motion and enable_dual_filter.
	r.Skip(7)
	s.EnableOrderHint = r.ReadFlag()
	if s.EnableOrderHint {
		r.Skip(2) // enable_jnt_comp, enable_ref_frame_mvs
	}

	s.SeqForceScreenContentTools = selectScreenContentTools
	// seq_choose_screen_content_tools
	if !r.ReadFlag() {
		s.SeqForceScreenContentTools = r.ReadInt(1)
	}
	s.SeqForceIntegerMV = selectScreenContentTools
	if s.SeqForceScreenContentTools > 0 {
		// seq_choose_integer_mv
		if !r.ReadFlag() {
			s.SeqForceIntegerMV = r.ReadInt(1)
		}
	}
	if s.EnableOrderHint {
		s.OrderHintBits = r.ReadInt(3) + 1
	}

	r.Skip(3) // enable_superres, enable_cdef, enable_restoration
	s.parseColorConfig(r)
	s.FilmGrainParamsPresent = r.ReadFlag()

	if r.Err() != nil {
		return nil, errors.Wrap(r.Err(), "could not parse sequence header")
	}
	return s, nil
}

// parseColorConfig parses color_config() (section 5.5.2).
func (s *SequenceHeader) parseColorConfig(r *bits.FieldReader) {
	s.BitDepth = 8
	// high_bitdepth
	if r.ReadFlag() {
		s.BitDepth = 10
		// twelve_bit
		if s.Profile == 2 && r.ReadFlag() {
			s.BitDepth = 12
		}
	}
	if s.Profile != 1 {
		s.MonoChrome = r.ReadFlag()
	}

	cp, tc, mc := cpUnspecified, tcUnspecified, mcUnspecified
	// color_description_present_flag
	if r.ReadFlag() {
		cp, tc, mc = r.ReadInt(8), r.ReadInt(8), r.ReadInt(8)
	}

	var fullRange bool
	switch {
	case s.MonoChrome:
		fullRange = r.ReadFlag()
		s.SubsamplingX, s.SubsamplingY = true, true
		s.Color = codecutil.NewColorInfo(fullRange, cp, tc, mc)
		return
	case cp == cpBT709 && tc == tcSRGB && mc == mcIdentity:
		fullRange = true
	default:
		fullRange = r.ReadFlag()
		switch s.Profile {
		case 0:
			s.SubsamplingX, s.SubsamplingY = true, true
		case 1:
		default:
			if s.BitDepth == 12 {
				s.SubsamplingX = r.ReadFlag()
				if s.SubsamplingX {
					s.SubsamplingY = r.ReadFlag()
				}
			} else {
				s.SubsamplingX = true
			}
		}
		if s.SubsamplingX && s.SubsamplingY {
			r.Skip(2) // chroma_sample_position
		}
	}
	r.Skip(1) // separate_uv_delta_q
	s.Color = codecutil.NewColorInfo(fullRange, cp, tc, mc)
}

// CodecString returns the RFC 6381 codecs parameter for the stream as given
// by the AV1 codec ISO media file format binding, for example av01.0.04M.08.
func (s *SequenceHeader) CodecString() string {
	tier := 'M'
	if s.Tier == 1 {
		tier = 'H'
	}
	return fmt.Sprintf("av01.%d.%02d%c.%02d", s.Profile, s.Level, tier, s.BitDepth)
}

// readUVLC reads a uvlc() value (section 4.10.3).
func readUVLC(r *bits.FieldReader) uint32 {
	leadingZeros := 0
	for !r.ReadFlag() && r.Err() == nil {
		leadingZeros++
	}
	if leadingZeros >= 32 {
		return 1<<32 - 1
	}
	return uint32(r.ReadBits(leadingZeros)) + 1<<leadingZeros - 1
}
