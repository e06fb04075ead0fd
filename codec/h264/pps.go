/*
DESCRIPTION
  pps.go provides parsing of the H.264 picture parameter set (section
  7.3.2.2).

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
	"math/bits"

	"github.com/pkg/errors"

	bitio "github.com/ausocean/esparse/codec/bits"
	"github.com/ausocean/esparse/codec/codecutil"
)

var errNotPPS = errors.New("not a picture parameter set")

// PPS describes a picture parameter set as defined by section 7.3.2.2.
// Scaling matrices are not kept.
type PPS struct {
	ID, SPSID                         int
	EntropyCodingMode                 int
	BottomFieldPicOrderInFramePresent bool
	NumSliceGroupsMinus1              int
	SliceGroupMapType                 int
	NumRefIdxL0DefaultActiveMinus1    int
	NumRefIdxL1DefaultActiveMinus1    int
	WeightedPred                      bool
	WeightedBipred                    int
	PicInitQpMinus26                  int
	PicInitQsMinus26                  int
	ChromaQpIndexOffset               int
	DeblockingFilterControlPresent    bool
	ConstrainedIntraPred              bool
	RedundantPicCntPresent            bool
	Transform8x8Mode                  int
}

// ParsePPS parses a picture parameter set from the NAL unit n, which
// includes the NAL header but not the start code.
func ParsePPS(n []byte) (*PPS, error) {
	h, err := ParseNALHeader(n)
	if err != nil {
		return nil, err
	}
	if h.Type != NALTypePPS {
		return nil, errNotPPS
	}
	rbsp := append([]byte(nil), n[1:]...)
	rbsp = rbsp[:codecutil.Unescape(rbsp, len(rbsp))]

	br := bitio.NewBitReader(rbsp)
	r := bitio.NewFieldReader(br)
	pps := &PPS{}

	pps.ID = r.ReadUE()
	pps.SPSID = r.ReadUE()
	pps.EntropyCodingMode = r.ReadInt(1)
	pps.BottomFieldPicOrderInFramePresent = r.ReadFlag()
	pps.NumSliceGroupsMinus1 = r.ReadUE()

	if pps.NumSliceGroupsMinus1 > 0 {
		pps.SliceGroupMapType = r.ReadUE()
		switch {
		case pps.SliceGroupMapType == 0:
			r.SkipUE(pps.NumSliceGroupsMinus1 + 1) // run_length_minus1
		case pps.SliceGroupMapType == 2:
			r.SkipUE(2 * pps.NumSliceGroupsMinus1) // top_left, bottom_right
		case pps.SliceGroupMapType > 2 && pps.SliceGroupMapType < 6:
			r.Skip(1)  // slice_group_change_direction_flag
			r.ReadUE() // slice_group_change_rate_minus1
		case pps.SliceGroupMapType == 6:
			picSizeInMapUnits := r.ReadUE() + 1
			n := bits.Len(uint(pps.NumSliceGroupsMinus1))
			for i := 0; i < picSizeInMapUnits && r.Err() == nil; i++ {
				r.Skip(n) // slice_group_id[i]
			}
		}
	}

	pps.NumRefIdxL0DefaultActiveMinus1 = r.ReadUE()
	pps.NumRefIdxL1DefaultActiveMinus1 = r.ReadUE()
	pps.WeightedPred = r.ReadFlag()
	pps.WeightedBipred = r.ReadInt(2)
	pps.PicInitQpMinus26 = r.ReadSE()
	pps.PicInitQsMinus26 = r.ReadSE()
	pps.ChromaQpIndexOffset = r.ReadSE()
	pps.DeblockingFilterControlPresent = r.ReadFlag()
	pps.ConstrainedIntraPred = r.ReadFlag()
	pps.RedundantPicCntPresent = r.ReadFlag()

	if r.Err() == nil && br.MoreRBSPData() {
		pps.Transform8x8Mode = r.ReadInt(1)
	}

	if r.Err() != nil {
		return nil, errors.Wrap(r.Err(), "could not parse PPS")
	}
	return pps, nil
}
