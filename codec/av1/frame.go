/*
DESCRIPTION
  frame.go provides parsing of the leading fields of the AV1 uncompressed
  frame header (section 5.9.2), enough to tell whether a frame is referenced
  by later frames.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esparse/codec/bits"
)

// Frame types as defined by section 6.8.2.
const (
	FrameTypeKey       = 0
	FrameTypeInter     = 1
	FrameTypeIntraOnly = 2
	FrameTypeSwitch    = 3
)

// allFrames is the refresh_frame_flags value refreshing every reference slot.
const allFrames = 0xff

// FrameHeader holds the leading fields of an uncompressed frame header.
type FrameHeader struct {
	ShowExistingFrame bool
	FrameType         int
	ShowFrame         bool
	ShowableFrame     bool
	ErrorResilient    bool
	RefreshFrameFlags int
}

// IsDependedOn returns true if the frame may be referenced by later frames,
// that is it refreshes at least one reference slot.
func (f *FrameHeader) IsDependedOn() bool {
	return !f.ShowExistingFrame && f.RefreshFrameFlags != 0
}

// ParseFrameHeader parses the payload of a frame header or frame OBU that
// belongs to the sequence described by seq.
func ParseFrameHeader(seq *SequenceHeader, payload []byte) (*FrameHeader, error) {
	if seq.FrameIDNumbersPresent {
		return nil, errors.Wrap(ErrNotImplemented, "frame_id_numbers_present_flag")
	}
	r := bits.NewFieldReader(bits.NewBitReader(payload))
	f := &FrameHeader{}

	f.ShowExistingFrame = r.ReadFlag()
	if f.ShowExistingFrame {
		r.Skip(3) // frame_to_show_map_idx
		if seq.DecoderModelInfoPresent && !seq.EqualPictureInterval {
			return nil, errors.Wrap(ErrNotImplemented, "temporal_point_info")
		}
		if r.Err() != nil {
			return nil, errors.Wrap(r.Err(), "could not parse frame header")
		}
		return f, nil
	}

	f.FrameType = r.ReadInt(2)
	intra := f.FrameType == FrameTypeIntraOnly || f.FrameType == FrameTypeKey
	f.ShowFrame = r.ReadFlag()
	if seq.DecoderModelInfoPresent {
		return nil, errors.Wrap(ErrNotImplemented, "decoder model info")
	}
	if f.ShowFrame {
		f.ShowableFrame = f.FrameType != FrameTypeKey
	} else {
		f.ShowableFrame = r.ReadFlag()
	}
	shownKey := f.FrameType == FrameTypeKey && f.ShowFrame
	f.ErrorResilient = f.FrameType == FrameTypeSwitch || shownKey
	if !f.ErrorResilient {
		f.ErrorResilient = r.ReadFlag()
	}

	r.Skip(1) // disable_cdf_update
	allowScreenContentTools := seq.SeqForceScreenContentTools
	if allowScreenContentTools == selectScreenContentTools {
		allowScreenContentTools = r.ReadInt(1)
	}
	if allowScreenContentTools != 0 && seq.SeqForceIntegerMV == selectScreenContentTools {
		r.Skip(1) // force_integer_mv
	}

	if f.FrameType != FrameTypeSwitch {
		r.Skip(1) // frame_size_override_flag
	}
	r.Skip(seq.OrderHintBits) // order_hint
	if !intra && !f.ErrorResilient {
		r.Skip(3) // primary_ref_frame
	}

	if f.FrameType == FrameTypeSwitch || shownKey {
		f.RefreshFrameFlags = allFrames
	} else {
		f.RefreshFrameFlags = r.ReadInt(8)
	}

	if r.Err() != nil {
		return nil, errors.Wrap(r.Err(), "could not parse frame header")
	}
	return f, nil
}
