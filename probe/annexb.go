/*
DESCRIPTION
  annexb.go provides the handling of H.264 and H.265 NAL units for a Probe.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package probe

import (
	"github.com/ausocean/esparse/codec/codecutil"
	"github.com/ausocean/esparse/codec/h264"
	"github.com/ausocean/esparse/codec/h265"
)

// NAL unit header lengths in bytes.
const (
	h264HeaderLen = 1
	h265HeaderLen = 2
)

// firstSliceBit is set in the first byte after the NAL header of the first
// slice of a picture. For H.264 it is first_mb_in_slice coded as ue(v) 0, and
// for H.265 first_slice_segment_in_pic_flag.
const firstSliceBit = 0x80

type h264State struct {
	sps map[int]*h264.SPS
}

type h265State struct {
	vps map[int]*h265.VPS
	sps map[int]*h265.SPS
}

// handleNAL is called by the splitter with each NAL unit. Errors are counted
// and logged rather than returned, so that one bad unit does not stop the
// stream.
func (p *Probe) handleNAL(nal []byte, tag int64) error {
	p.stats.Units++
	switch p.cfg.Codec {
	case codecutil.H264:
		p.handleH264(nal, tag)
	case codecutil.H265:
		p.handleH265(nal, tag)
	}
	return nil
}

func (p *Probe) handleH264(nal []byte, tag int64) {
	hdr, err := h264.ParseNALHeader(nal)
	if err != nil {
		p.fail("could not parse NAL header", err)
		return
	}
	pts := p.pts(tag)

	switch hdr.Type {
	case h264.NALTypeSPS:
		s, err := h264.ParseSPS(nal)
		if err != nil {
			p.fail("could not parse SPS", err)
			return
		}
		p.h264.sps[s.ID] = s
		p.setReorderDepth(s.MaxNumReorderFrames)
		if s.VUI != nil {
			p.setFrameRate(s.VUI.FrameRate())
		}
		if p.changed(KindSPS, s.ID, nal) {
			p.report(KindSPS, pts, s)
		}

	case h264.NALTypePPS:
		pps, err := h264.ParsePPS(nal)
		if err != nil {
			p.fail("could not parse PPS", err)
			return
		}
		if _, ok := p.h264.sps[pps.SPSID]; !ok {
			p.cfg.Logger.Debug("PPS refers to unknown SPS", "pps", pps.ID, "sps", pps.SPSID)
		}
		if p.changed(KindPPS, pps.ID, nal) {
			p.report(KindPPS, pts, pps)
		}

	case h264.NALTypeSEI:
		p.addSEI(p.unescape(nal, h264HeaderLen), pts)

	case h264.NALTypeNonIDR, h264.NALTypePartitionA, h264.NALTypeIDR:
		if len(nal) > h264HeaderLen && nal[h264HeaderLen]&firstSliceBit != 0 {
			p.pictures++
			p.stats.Pictures++
		}
	}
}

func (p *Probe) handleH265(nal []byte, tag int64) {
	hdr, err := h265.ParseNALHeader(nal)
	if err != nil {
		p.fail("could not parse NAL header", err)
		return
	}
	pts := p.pts(tag)

	switch hdr.Type {
	case h265.NALTypeVPS:
		v, err := h265.ParseVPS(nal)
		if err != nil {
			p.fail("could not parse VPS", err)
			return
		}
		p.h265.vps[v.ID] = v
		if !p.changed(KindVPS, v.ID, nal) {
			return
		}
		if v.Result == h265.Fallback {
			p.cfg.Logger.Info("VPS reduced to base layer", "vps", v.ID, "reason", v.Reason.String())
		}
		p.report(KindVPS, pts, v)

	case h265.NALTypeSPS:
		if len(nal) <= h265HeaderLen {
			p.fail("could not parse SPS", errTruncatedNAL)
			return
		}
		vpsID := int(nal[h265HeaderLen] >> 4)
		s, err := h265.ParseSPS(nal, p.h265.vps[vpsID])
		if err != nil {
			p.fail("could not parse SPS", err)
			return
		}
		p.h265.sps[s.ID] = s
		if s.LayerID == 0 {
			p.setReorderDepth(s.MaxNumReorderPics)
			if s.VUI != nil {
				p.setFrameRate(s.VUI.FrameRate())
			}
		}
		if p.changed(KindSPS, s.LayerID<<8|s.ID, nal) {
			p.report(KindSPS, pts, s)
		}

	case h265.NALTypePPS:
		pps, err := h265.ParsePPS(nal)
		if err != nil {
			p.fail("could not parse PPS", err)
			return
		}
		if _, ok := p.h265.sps[pps.SPSID]; !ok {
			p.cfg.Logger.Debug("PPS refers to unknown SPS", "pps", pps.ID, "sps", pps.SPSID)
		}
		if p.changed(KindPPS, hdr.LayerID<<8|pps.ID, nal) {
			p.report(KindPPS, pts, pps)
		}

	case h265.NALTypePrefixSEI, h265.NALTypeSuffixSEI:
		p.addSEI(p.unescape(nal, h265HeaderLen), pts)

	default:
		if hdr.IsVCL() && hdr.LayerID == 0 && len(nal) > h265HeaderLen && nal[h265HeaderLen]&firstSliceBit != 0 {
			p.pictures++
			p.stats.Pictures++
		}
	}
}
