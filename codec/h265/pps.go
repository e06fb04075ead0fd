/*
DESCRIPTION
  pps.go provides parsing of the H.265 picture parameter set (section
  7.3.2.3.1) up to the deblocking filter controls.

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
)

// Limits on the tile grid; 20 columns and 22 rows at level 6.2.
const (
	maxTileColumns = 20
	maxTileRows    = 22
)

// PPS describes a picture parameter set.
type PPS struct {
	ID    int
	SPSID int

	DependentSliceSegmentsEnabled bool
	OutputFlagPresent             bool
	NumExtraSliceHeaderBits       int
	SignDataHidingEnabled         bool
	CabacInitPresent              bool

	NumRefIdxL0DefaultActiveMinus1 int
	NumRefIdxL1DefaultActiveMinus1 int

	InitQPMinus26 int

	ConstrainedIntraPred bool
	TransformSkipEnabled bool
	CuQPDeltaEnabled     bool
	DiffCuQPDeltaDepth   int
	CbQPOffset           int
	CrQPOffset           int

	WeightedPred   bool
	WeightedBipred bool

	TilesEnabled             bool
	EntropyCodingSyncEnabled bool
	NumTileColumns           int
	NumTileRows              int
	UniformSpacing           bool

	DeblockingFilterOverrideEnabled bool
	DeblockingFilterDisabled        bool
}

// ParsePPS parses a picture parameter set from the NAL unit n, which includes
// the NAL header but not the start code.
func ParsePPS(n []byte) (*PPS, error) {
	_, rbsp, err := readRBSP(n, NALTypePPS)
	if err != nil {
		return nil, err
	}
	p := &PPS{NumTileColumns: 1, NumTileRows: 1, UniformSpacing: true}
	r := bitio.NewFieldReader(bitio.NewBitReader(rbsp))

	p.ID = r.ReadUE()
	p.SPSID = r.ReadUE()
	p.DependentSliceSegmentsEnabled = r.ReadFlag()
	p.OutputFlagPresent = r.ReadFlag()
	p.NumExtraSliceHeaderBits = r.ReadInt(3)
	p.SignDataHidingEnabled = r.ReadFlag()
	p.CabacInitPresent = r.ReadFlag()
	p.NumRefIdxL0DefaultActiveMinus1 = r.ReadUE()
	p.NumRefIdxL1DefaultActiveMinus1 = r.ReadUE()
	p.InitQPMinus26 = r.ReadSE()
	p.ConstrainedIntraPred = r.ReadFlag()
	p.TransformSkipEnabled = r.ReadFlag()
	p.CuQPDeltaEnabled = r.ReadFlag()
	if p.CuQPDeltaEnabled {
		p.DiffCuQPDeltaDepth = r.ReadUE()
	}
	p.CbQPOffset = r.ReadSE()
	p.CrQPOffset = r.ReadSE()
	r.Skip(1) // pps_slice_chroma_qp_offsets_present_flag
	p.WeightedPred = r.ReadFlag()
	p.WeightedBipred = r.ReadFlag()
	r.Skip(1) // transquant_bypass_enabled_flag
	p.TilesEnabled = r.ReadFlag()
	p.EntropyCodingSyncEnabled = r.ReadFlag()

	if p.TilesEnabled {
		p.NumTileColumns = r.ReadUE() + 1
		p.NumTileRows = r.ReadUE() + 1
		if p.NumTileColumns > maxTileColumns || p.NumTileRows > maxTileRows {
			return nil, errors.Errorf("invalid tile grid: %dx%d", p.NumTileColumns, p.NumTileRows)
		}
		p.UniformSpacing = r.ReadFlag()
		if !p.UniformSpacing {
			// column_width_minus1 and row_height_minus1.
			r.SkipUE(p.NumTileColumns - 1 + p.NumTileRows - 1)
		}
		r.Skip(1) // loop_filter_across_tiles_enabled_flag
	}

	r.Skip(1) // pps_loop_filter_across_slices_enabled_flag

	// deblocking_filter_control_present_flag
	if r.ReadFlag() {
		p.DeblockingFilterOverrideEnabled = r.ReadFlag()
		p.DeblockingFilterDisabled = r.ReadFlag()
		if !p.DeblockingFilterDisabled {
			r.SkipUE(2) // pps_beta_offset_div2, pps_tc_offset_div2
		}
	}

	if r.Err() != nil {
		return nil, errors.Wrap(r.Err(), "could not parse PPS")
	}
	return p, nil
}
