/*
DESCRIPTION
  vps.go provides parsing of the H.265 video parameter set (section 7.3.2.1)
  and of the multi-layer extension vps_extension() (section F.7.3.2.1.1) as
  used by MV-HEVC. Extensions outside the supported multiview subset produce
  a single layer fallback rather than an error.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import (
	"math/bits"

	"github.com/pkg/errors"

	bitio "github.com/ausocean/esparse/codec/bits"
)

// Limits on VPS syntax element values given by section 7.4.3.1 and
// F.7.4.3.1.1.
const (
	maxLayerID         = 62
	maxLayerSets       = 1024
	maxPTLs            = 64
	maxAdditionalOLSs  = 1024
	maxRepFormats      = 256
	maxDepTypeLen      = 32
	maxNonVUIExtLength = 4096
)

// Index of the multiview entry of scalability_mask_flag (Table F.1).
const multiviewScalability = 1

// direct_dependency_type value signalling inter-layer motion prediction
// only.
const motionOnlyDependency = 1

var errMalformedVPS = errors.New("malformed video parameter set")

// Result is the outcome of parsing a VPS extension.
type Result int

const (
	// Parsed indicates the multi-layer extension was decoded in full.
	Parsed Result = iota

	// Fallback indicates the VPS describes a single base layer, either
	// because it has no extension or because the extension is not supported.
	Fallback
)

func (r Result) String() string {
	if r == Parsed {
		return "parsed"
	}
	return "fallback"
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// FallbackReason gives the reason a VPS was reduced to its base layer.
type FallbackReason int

const (
	FallbackNone FallbackReason = iota
	FallbackSingleLayer
	FallbackNoExtension
	FallbackExternalBaseLayer
	FallbackFewLayerSets
	FallbackScalability
	FallbackNoSecondaryView
	FallbackIndependentLayers
	FallbackUnsupportedDependency
	FallbackMalformedIndex
)

var fallbackReasons = map[FallbackReason]string{
	FallbackNone:                  "none",
	FallbackSingleLayer:           "single layer",
	FallbackNoExtension:           "no extension",
	FallbackExternalBaseLayer:     "external base layer",
	FallbackFewLayerSets:          "fewer than two layer sets",
	FallbackScalability:           "scalability other than multiview",
	FallbackNoSecondaryView:       "no secondary view",
	FallbackIndependentLayers:     "more than one independent layer",
	FallbackUnsupportedDependency: "unsupported direct dependency",
	FallbackMalformedIndex:        "malformed index",
}

func (f FallbackReason) String() string { return fallbackReasons[f] }

func (f FallbackReason) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// RepFormat is a rep_format() entry of the VPS extension, giving the
// representation format of the layers that refer to it.
type RepFormat struct {
	Width              int
	Height             int
	ChromaFormatIDC    int
	SeparateColorPlane bool
	BitDepthLuma       int
	BitDepthChroma     int

	// ConformanceWindow is nil if conformance_window_vps_flag is 0.
	ConformanceWindow *Window
}

// LayerInfo describes one layer of a VPS. Indices refer to the owning VPS
// tables and are always valid, except VideoSignalIdx and RepFormatIdx which
// are -1 when the VPS carries no such table.
type LayerInfo struct {
	LayerID      int
	ViewOrderIdx int
	ViewID       int

	// DirectRefLayers holds the layer indices of the layers this layer
	// directly depends on.
	DirectRefLayers []int

	PTLIdx         int
	RepFormatIdx   int
	VideoSignalIdx int

	MaxSubLayersMinus1 int
	MaxNumReorderPics  int
}

// VPS describes a video parameter set.
type VPS struct {
	ID                 int
	BaseLayerInternal  bool
	BaseLayerAvailable bool
	MaxLayersMinus1    int
	MaxSubLayersMinus1 int
	TemporalIDNesting  bool

	// Sub-layer ordering information indexed by HighestTid. Values not
	// signalled are inferred from the highest sub-layer.
	MaxDecPicBufferingMinus1 []int
	MaxNumReorderPics        []int
	MaxLatencyIncreasePlus1  []int

	MaxLayerID int

	// LayerSets holds the nuh_layer_id values of each layer set.
	LayerSets [][]int

	TimingInfoPresent bool
	NumUnitsInTick    uint32
	TimeScale         uint32

	Result Result
	Reason FallbackReason

	// PTLs always holds the base layer profile at index 0.
	PTLs             []ProfileTierLevel
	RepFormats       []RepFormat
	VideoSignalInfos []VideoSignalInfo
	Layers           []LayerInfo
}

// LayerIndex returns the index into Layers of the layer with the given
// nuh_layer_id, or -1.
func (v *VPS) LayerIndex(layerID int) int {
	for i := range v.Layers {
		if v.Layers[i].LayerID == layerID {
			return i
		}
	}
	return -1
}

// ParseVPS parses a video parameter set from the NAL unit n, which includes
// the NAL header but not the start code.
func ParseVPS(n []byte) (*VPS, error) {
	_, rbsp, err := readRBSP(n, NALTypeVPS)
	if err != nil {
		return nil, err
	}
	r := bitio.NewFieldReader(bitio.NewBitReader(rbsp))

	p := &vpsParser{r: r, v: &VPS{}}
	err = p.parseBase()
	if err != nil {
		return nil, err
	}

	steps := []func() FallbackReason{
		p.checkBase,
		p.parseScalability,
		p.parseDependencies,
		p.parseProfiles,
		p.parseOutputLayerSets,
		p.parseRepFormats,
		p.parseDPBSize,
		p.parseDependencyTypes,
		p.parseVUI,
	}
	for _, step := range steps {
		reason := step()
		if r.Err() != nil {
			return nil, errors.Wrap(r.Err(), "could not parse VPS extension")
		}
		if reason != FallbackNone {
			p.fallback(reason)
			return p.v, nil
		}
	}
	p.finish()
	return p.v, nil
}

// outputLayerSet holds the derived values of one output layer set, with
// per layer slices indexed by position in the layer set.
type outputLayerSet struct {
	layerSet  int
	output    []bool
	necessary []bool
	ptlIdx    []int
	reorder   int
}

// vpsParser holds the state threaded through the steps of VPS extension
// parsing. Layers are referred to by their index in the VPS.
type vpsParser struct {
	r *bitio.FieldReader
	v *VPS

	hasExtension bool
	maxLayers    int
	layerIdx     [64]int
	layerSets    [][]int
	direct       [][]bool
	dependency   [][]bool
	numDirectRef []int
	numPTLs      int
	ols          []outputLayerSet
}

func (p *vpsParser) parseBase() error {
	r, v := p.r, p.v
	v.ID = r.ReadInt(4)
	v.BaseLayerInternal = r.ReadFlag()
	v.BaseLayerAvailable = r.ReadFlag()
	v.MaxLayersMinus1 = r.ReadInt(6)
	v.MaxSubLayersMinus1 = r.ReadInt(3)
	v.TemporalIDNesting = r.ReadFlag()
	r.Skip(16) // vps_reserved_0xffff_16bits

	v.PTLs = []ProfileTierLevel{parsePTL(r, true, v.MaxSubLayersMinus1, nil)}

	n := v.MaxSubLayersMinus1 + 1
	v.MaxDecPicBufferingMinus1 = make([]int, n)
	v.MaxNumReorderPics = make([]int, n)
	v.MaxLatencyIncreasePlus1 = make([]int, n)
	readSubLayerOrdering(r, v.MaxDecPicBufferingMinus1, v.MaxNumReorderPics, v.MaxLatencyIncreasePlus1)

	v.MaxLayerID = r.ReadInt(6)
	numLayerSets := r.ReadUE() + 1
	if numLayerSets > maxLayerSets {
		return errors.Wrapf(errMalformedVPS, "%d layer sets", numLayerSets)
	}
	v.LayerSets = [][]int{{0}}
	for i := 1; i < numLayerSets && r.Err() == nil; i++ {
		var ids []int
		for j := 0; j <= v.MaxLayerID; j++ {
			// layer_id_included_flag[i][j]
			if r.ReadFlag() {
				ids = append(ids, j)
			}
		}
		v.LayerSets = append(v.LayerSets, ids)
	}

	v.TimingInfoPresent = r.ReadFlag()
	if v.TimingInfoPresent {
		v.NumUnitsInTick = uint32(r.ReadBits(32))
		v.TimeScale = uint32(r.ReadBits(32))
		// vps_poc_proportional_to_timing_flag
		if r.ReadFlag() {
			r.SkipUE(1) // vps_num_ticks_poc_diff_one_minus1
		}
		numHRD := r.ReadUE()
		if numHRD > numLayerSets {
			return errors.Wrapf(errMalformedVPS, "%d HRD parameter sets", numHRD)
		}
		for i := 0; i < numHRD && r.Err() == nil; i++ {
			r.SkipUE(1) // hrd_layer_set_idx
			cprmsPresent := true
			if i > 0 {
				cprmsPresent = r.ReadFlag()
			}
			skipHRD(r, cprmsPresent, v.MaxSubLayersMinus1)
		}
	}

	p.hasExtension = r.ReadFlag()
	if r.Err() != nil {
		return errors.Wrap(r.Err(), "could not parse VPS")
	}
	return nil
}

// readSubLayerOrdering reads the sub-layer ordering information common to
// the VPS and SPS, inferring values for sub-layers that are not signalled.
func readSubLayerOrdering(r *bitio.FieldReader, maxDecPicBufferingMinus1, maxNumReorder, maxLatencyPlus1 []int) {
	last := len(maxNumReorder) - 1
	first := last
	// sub_layer_ordering_info_present_flag
	if r.ReadFlag() {
		first = 0
	}
	for i := first; i <= last; i++ {
		maxDecPicBufferingMinus1[i] = r.ReadUE()
		maxNumReorder[i] = r.ReadUE()
		maxLatencyPlus1[i] = r.ReadUE()
	}
	for i := 0; i < first; i++ {
		maxDecPicBufferingMinus1[i] = maxDecPicBufferingMinus1[last]
		maxNumReorder[i] = maxNumReorder[last]
		maxLatencyPlus1[i] = maxLatencyPlus1[last]
	}
}

func (p *vpsParser) checkBase() FallbackReason {
	switch {
	case p.v.MaxLayersMinus1 == 0:
		return FallbackSingleLayer
	case !p.hasExtension:
		return FallbackNoExtension
	case !p.v.BaseLayerInternal:
		return FallbackExternalBaseLayer
	case len(p.v.LayerSets) < 2:
		return FallbackFewLayerSets
	}
	p.maxLayers = p.v.MaxLayersMinus1 + 1
	if p.maxLayers > maxLayerID+1 {
		p.maxLayers = maxLayerID + 1
	}

	// vps_extension_alignment_bit_equal_to_one
	p.r.ByteAlign()
	return FallbackNone
}

// parseScalability reads the extension profile, the scalability
// dimensions, layer ids and view ids.
func (p *vpsParser) parseScalability() FallbackReason {
	r, v := p.r, p.v
	v.PTLs = append(v.PTLs, parsePTL(r, false, v.MaxSubLayersMinus1, &v.PTLs[0]))

	splitting := r.ReadFlag()
	var mask [16]bool
	numTypes := 0
	for i := range mask {
		mask[i] = r.ReadFlag()
		if mask[i] {
			numTypes++
		}
	}
	if numTypes != 1 || !mask[multiviewScalability] {
		return FallbackScalability
	}
	dimIDLen := 6
	if !splitting {
		dimIDLen = r.ReadInt(3) + 1
	}

	idPresent := r.ReadFlag()
	for i := range p.layerIdx {
		p.layerIdx[i] = -1
	}
	p.layerIdx[0] = 0
	v.Layers = make([]LayerInfo, p.maxLayers)
	for i := 1; i < p.maxLayers; i++ {
		id := i
		if idPresent {
			id = r.ReadInt(6)
		}
		viewOrder := id
		if !splitting {
			viewOrder = r.ReadInt(dimIDLen)
		}
		if id <= v.Layers[i-1].LayerID || id > maxLayerID {
			return FallbackMalformedIndex
		}
		p.layerIdx[id] = i
		v.Layers[i] = LayerInfo{LayerID: id, ViewOrderIdx: viewOrder}
	}

	numViews := 1
	for i := 1; i < p.maxLayers; i++ {
		newView := true
		for j := 0; j < i; j++ {
			if v.Layers[i].ViewOrderIdx == v.Layers[j].ViewOrderIdx {
				newView = false
			}
		}
		if newView {
			numViews++
		}
	}

	viewIDLen := r.ReadInt(4)
	viewIDs := make([]int, numViews)
	if viewIDLen > 0 {
		for i := range viewIDs {
			viewIDs[i] = r.ReadInt(viewIDLen)
		}
	}
	if numViews < 2 {
		return FallbackNoSecondaryView
	}
	for i := range v.Layers {
		if v.Layers[i].ViewOrderIdx >= numViews {
			return FallbackMalformedIndex
		}
		v.Layers[i].ViewID = viewIDs[v.Layers[i].ViewOrderIdx]
	}

	p.layerSets = make([][]int, len(v.LayerSets))
	for i, ids := range v.LayerSets {
		for _, id := range ids {
			idx := p.layerIdx[id]
			if idx < 0 {
				return FallbackMalformedIndex
			}
			p.layerSets[i] = append(p.layerSets[i], idx)
		}
	}
	return FallbackNone
}

// parseDependencies reads the direct dependency flags and sub-layer limits
// and derives the dependency closure of F.7.4.3.1.1.
func (p *vpsParser) parseDependencies() FallbackReason {
	r, v := p.r, p.v
	n := p.maxLayers
	p.direct = make([][]bool, n)
	p.dependency = make([][]bool, n)
	p.numDirectRef = make([]int, n)
	for i := 0; i < n; i++ {
		p.direct[i] = make([]bool, n)
		p.dependency[i] = make([]bool, n)
		for j := 0; j < i; j++ {
			p.direct[i][j] = r.ReadFlag()
			if p.direct[i][j] {
				p.numDirectRef[i]++
				v.Layers[i].DirectRefLayers = append(v.Layers[i].DirectRefLayers, j)
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			if !p.direct[i][j] {
				continue
			}
			p.dependency[i][j] = true
			for k := 0; k < j; k++ {
				if p.dependency[j][k] {
					p.dependency[i][k] = true
				}
			}
		}
	}

	independent := 0
	for _, c := range p.numDirectRef {
		if c == 0 {
			independent++
		}
	}
	if independent > 1 {
		return FallbackIndependentLayers
	}

	subLayersPresent := r.ReadFlag()
	for i := range v.Layers {
		v.Layers[i].MaxSubLayersMinus1 = v.MaxSubLayersMinus1
		if subLayersPresent {
			v.Layers[i].MaxSubLayersMinus1 = r.ReadInt(3)
		}
	}

	// max_tid_ref_present_flag
	if r.ReadFlag() {
		for i := 0; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				if p.direct[j][i] {
					r.Skip(3) // max_tid_il_ref_pics_plus1[i][j]
				}
			}
		}
	}
	r.Skip(1) // default_ref_layers_active_flag
	return FallbackNone
}

func (p *vpsParser) parseProfiles() FallbackReason {
	r, v := p.r, p.v
	p.numPTLs = r.ReadUE() + 1
	if p.numPTLs > maxPTLs {
		return FallbackMalformedIndex
	}
	for i := 2; i < p.numPTLs && r.Err() == nil; i++ {
		present := r.ReadFlag()
		v.PTLs = append(v.PTLs, parsePTL(r, present, v.MaxSubLayersMinus1, &v.PTLs[i-1]))
	}
	if p.numPTLs < len(v.PTLs) {
		v.PTLs = v.PTLs[:p.numPTLs]
	}
	return FallbackNone
}

// parseOutputLayerSets reads the output layer sets and derives their output
// and necessary layers (F.7.4.3.1.1).
func (p *vpsParser) parseOutputLayerSets() FallbackReason {
	r, v := p.r, p.v
	numLayerSets := len(p.layerSets)
	numAdd := r.ReadUE()
	defaultOutputIDC := r.ReadInt(2)
	if numAdd >= maxAdditionalOLSs || defaultOutputIDC == 3 {
		return FallbackMalformedIndex
	}

	p.ols = []outputLayerSet{{
		output:    []bool{true},
		necessary: []bool{true},
		ptlIdx:    []int{0},
	}}
	for i := 1; i < numLayerSets+numAdd && r.Err() == nil; i++ {
		o := outputLayerSet{layerSet: i}
		if i >= numLayerSets {
			o.layerSet = 1
			if numLayerSets > 2 {
				o.layerSet = r.ReadInt(ceilLog2(numLayerSets-1)) + 1
			}
			if o.layerSet >= numLayerSets {
				return FallbackMalformedIndex
			}
		}
		ls := p.layerSets[o.layerSet]
		o.output = make([]bool, len(ls))
		o.necessary = make([]bool, len(ls))
		o.ptlIdx = make([]int, len(ls))
		switch {
		case i >= numLayerSets || defaultOutputIDC == 2:
			for j := range o.output {
				o.output[j] = r.ReadFlag()
			}
		case defaultOutputIDC == 0:
			for j := range o.output {
				o.output[j] = true
			}
		default:
			if len(ls) > 0 {
				o.output[len(ls)-1] = true
			}
		}

		for j, idx := range ls {
			if !o.output[j] {
				continue
			}
			o.necessary[j] = true
			for k, ref := range ls {
				if p.dependency[idx][ref] {
					o.necessary[k] = true
				}
			}
		}

		for j := range ls {
			if !o.necessary[j] || p.numPTLs <= 1 {
				continue
			}
			o.ptlIdx[j] = r.ReadInt(ceilLog2(p.numPTLs))
			if o.ptlIdx[j] >= len(v.PTLs) {
				return FallbackMalformedIndex
			}
		}

		numOutput, highest := 0, -1
		for j, out := range o.output {
			if out {
				numOutput++
				highest = ls[j]
			}
		}
		if numOutput == 1 && p.numDirectRef[highest] > 0 {
			r.Skip(1) // alt_output_layer_flag
		}
		p.ols = append(p.ols, o)
	}

	for i := 1; i < len(v.Layers); i++ {
		v.Layers[i].PTLIdx = -1
	}
	for _, o := range p.ols[1:] {
		for j, idx := range p.layerSets[o.layerSet] {
			if o.necessary[j] && v.Layers[idx].PTLIdx < 0 {
				v.Layers[idx].PTLIdx = o.ptlIdx[j]
			}
		}
	}
	for i := range v.Layers {
		if v.Layers[i].PTLIdx < 0 {
			v.Layers[i].PTLIdx = 0
		}
	}
	return FallbackNone
}

func (p *vpsParser) parseRepFormats() FallbackReason {
	r, v := p.r, p.v
	num := r.ReadUE() + 1
	if num > maxRepFormats {
		return FallbackMalformedIndex
	}
	for i := 0; i < num && r.Err() == nil; i++ {
		f := RepFormat{Width: r.ReadInt(16), Height: r.ReadInt(16)}
		// chroma_and_bit_depth_vps_present_flag
		if r.ReadFlag() {
			f.ChromaFormatIDC = r.ReadInt(2)
			if f.ChromaFormatIDC == 3 {
				f.SeparateColorPlane = r.ReadFlag()
			}
			f.BitDepthLuma = r.ReadInt(4) + 8
			f.BitDepthChroma = r.ReadInt(4) + 8
		} else if i == 0 {
			return FallbackMalformedIndex
		} else {
			prev := v.RepFormats[i-1]
			f.ChromaFormatIDC = prev.ChromaFormatIDC
			f.SeparateColorPlane = prev.SeparateColorPlane
			f.BitDepthLuma = prev.BitDepthLuma
			f.BitDepthChroma = prev.BitDepthChroma
		}
		// conformance_window_vps_flag
		if r.ReadFlag() {
			f.ConformanceWindow = readWindow(r)
		}
		v.RepFormats = append(v.RepFormats, f)
	}

	idxPresent := false
	if num > 1 {
		idxPresent = r.ReadFlag()
	}
	for i := 1; i < len(v.Layers); i++ {
		idx := i
		if idxPresent {
			idx = r.ReadInt(ceilLog2(num))
		} else if idx > num-1 {
			idx = num - 1
		}
		if idx >= num {
			return FallbackMalformedIndex
		}
		v.Layers[i].RepFormatIdx = idx
	}

	r.Skip(2) // max_one_active_ref_layer_flag, vps_poc_lsb_aligned_flag
	for i := 1; i < len(v.Layers); i++ {
		if p.numDirectRef[i] == 0 {
			r.Skip(1) // poc_lsb_not_present_flag[i]
		}
	}
	return FallbackNone
}

// maxSubLayersInSet returns MaxSubLayersInLayerSetMinus1 for layer set i.
func (p *vpsParser) maxSubLayersInSet(i int) int {
	m := 0
	for _, idx := range p.layerSets[i] {
		if s := p.v.Layers[idx].MaxSubLayersMinus1; s > m {
			m = s
		}
	}
	return m
}

// parseDPBSize reads dpb_size(), keeping the reorder value of the highest
// signalled sub-layer of each output layer set.
func (p *vpsParser) parseDPBSize() FallbackReason {
	r := p.r
	for i := 1; i < len(p.ols) && r.Err() == nil; i++ {
		o := &p.ols[i]
		o.reorder = -1
		flagInfoPresent := r.ReadFlag()
		for j := 0; j <= p.maxSubLayersInSet(o.layerSet); j++ {
			present := j == 0
			if j > 0 && flagInfoPresent {
				present = r.ReadFlag()
			}
			if !present {
				continue
			}
			for k := range p.layerSets[o.layerSet] {
				if o.necessary[k] {
					r.SkipUE(1) // max_vps_dec_pic_buffering_minus1[i][k][j]
				}
			}
			o.reorder = r.ReadUE()
			r.SkipUE(1) // max_vps_latency_increase_plus1[i][j]
		}
	}
	return FallbackNone
}

func (p *vpsParser) parseDependencyTypes() FallbackReason {
	r := p.r
	typeLen := r.ReadUE() + 2
	if typeLen > maxDepTypeLen {
		return FallbackMalformedIndex
	}
	var unsupported bool
	// direct_dependency_all_layers_flag
	if r.ReadFlag() {
		unsupported = r.ReadInt(typeLen) == motionOnlyDependency
	} else {
		for i := 1; i < p.maxLayers; i++ {
			for j := 0; j < i; j++ {
				if p.direct[i][j] && r.ReadInt(typeLen) == motionOnlyDependency {
					unsupported = true
				}
			}
		}
	}
	if unsupported {
		return FallbackUnsupportedDependency
	}

	n := r.ReadUE() // vps_non_vui_extension_length
	if n > maxNonVUIExtLength {
		return FallbackMalformedIndex
	}
	r.Skip(8 * n)
	return FallbackNone
}

// parseVUI reads vps_vui() as far as the video signal information.
func (p *vpsParser) parseVUI() FallbackReason {
	r, v := p.r, p.v
	for i := range v.Layers {
		v.Layers[i].VideoSignalIdx = -1
	}
	// vps_vui_present_flag
	if !r.ReadFlag() {
		return FallbackNone
	}
	r.ByteAlign()

	crossLayerIRAPAligned := r.ReadFlag() // cross_layer_pic_type_aligned_flag
	if !crossLayerIRAPAligned {
		crossLayerIRAPAligned = r.ReadFlag()
	}
	if crossLayerIRAPAligned {
		r.Skip(1) // all_layers_idr_aligned_flag
	}

	bitRatePresent := r.ReadFlag()
	picRatePresent := r.ReadFlag()
	if bitRatePresent || picRatePresent {
		for i := range p.layerSets {
			for j := 0; j <= p.maxSubLayersInSet(i) && r.Err() == nil; j++ {
				bitRate := bitRatePresent && r.ReadFlag()
				picRate := picRatePresent && r.ReadFlag()
				if bitRate {
					r.Skip(32) // avg_bit_rate, max_bit_rate
				}
				if picRate {
					r.Skip(2 + 16) // constant_pic_rate_idc, avg_pic_rate
				}
			}
		}
	}

	idxPresent := r.ReadFlag()
	num := len(v.Layers)
	if idxPresent {
		num = r.ReadInt(4) + 1
	}
	for i := 0; i < num && r.Err() == nil; i++ {
		v.VideoSignalInfos = append(v.VideoSignalInfos, VideoSignalInfo{
			VideoFormat:             r.ReadInt(3),
			FullRange:               r.ReadFlag(),
			ColorDescriptionPresent: true,
			ColorPrimaries:          r.ReadInt(8),
			TransferCharacteristics: r.ReadInt(8),
			MatrixCoefficients:      r.ReadInt(8),
		})
	}
	for i := range v.Layers {
		idx := i
		switch {
		case idxPresent && num > 1:
			idx = r.ReadInt(4)
		case idxPresent:
			idx = 0
		}
		if idx >= num {
			return FallbackMalformedIndex
		}
		v.Layers[i].VideoSignalIdx = idx
	}
	return FallbackNone
}

// finish completes a parsed VPS with values derived from the output layer
// sets.
func (p *vpsParser) finish() {
	v := p.v
	v.Result, v.Reason = Parsed, FallbackNone
	base := v.MaxNumReorderPics[len(v.MaxNumReorderPics)-1]
	for i := range v.Layers {
		v.Layers[i].MaxNumReorderPics = -1
	}
	for _, o := range p.ols[1:] {
		if o.reorder < 0 {
			continue
		}
		for j, idx := range p.layerSets[o.layerSet] {
			if o.output[j] && v.Layers[idx].MaxNumReorderPics < 0 {
				v.Layers[idx].MaxNumReorderPics = o.reorder
			}
		}
	}
	for i := range v.Layers {
		if v.Layers[i].MaxNumReorderPics < 0 {
			v.Layers[i].MaxNumReorderPics = base
		}
	}
	v.Layers[0].RepFormatIdx = 0
}

// fallback reduces the VPS to its base layer.
func (p *vpsParser) fallback(reason FallbackReason) {
	v := p.v
	v.Result, v.Reason = Fallback, reason
	v.PTLs = v.PTLs[:1]
	v.RepFormats = nil
	v.VideoSignalInfos = nil
	v.Layers = []LayerInfo{{
		RepFormatIdx:       -1,
		VideoSignalIdx:     -1,
		MaxSubLayersMinus1: v.MaxSubLayersMinus1,
		MaxNumReorderPics:  v.MaxNumReorderPics[len(v.MaxNumReorderPics)-1],
	}}
}

// ceilLog2 returns Ceil(Log2(n)) for n > 0.
func ceilLog2(n int) int {
	return bits.Len(uint(n - 1))
}
