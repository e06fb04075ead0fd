/*
DESCRIPTION
  av1.go provides the handling of AV1 samples for a Probe.

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

	"github.com/ausocean/esparse/codec/av1"
)

type av1State struct {
	seq *av1.SequenceHeader
}

func (p *Probe) handleSample(sample []byte, tag int64) {
	pts := p.pts(tag)
	obus, err := av1.Split(sample)
	if err != nil {
		p.fail("could not split sample", err)
	}

	for _, o := range obus {
		p.stats.Units++
		switch o.Type {
		case av1.OBUTypeSequenceHeader:
			s, err := av1.ParseSequenceHeader(o.Payload)
			if err != nil {
				p.parseFailed("could not parse sequence header", err)
				continue
			}
			p.av1.seq = s
			if s.TimingInfoPresent && s.NumUnitsInDisplayTick != 0 {
				p.setFrameRate(float64(s.TimeScale) / float64(s.NumUnitsInDisplayTick))
			}
			if p.changed(KindSequenceHeader, 0, o.Payload) {
				p.report(KindSequenceHeader, pts, s)
			}

		case av1.OBUTypeFrameHeader, av1.OBUTypeFrame:
			if p.av1.seq == nil {
				p.cfg.Logger.Debug("frame before sequence header", "pts", pts)
				continue
			}
			f, err := av1.ParseFrameHeader(p.av1.seq, o.Payload)
			if err != nil {
				p.parseFailed("could not parse frame header", err)
				continue
			}
			if p.cfg.FrameHeaders {
				p.report(KindFrameHeader, pts, f)
			}

		case av1.OBUTypeMetadata:
			typ, data, err := av1.ParseMetadata(o.Payload)
			if err != nil {
				p.fail("could not parse metadata", err)
				continue
			}
			if typ == av1.MetadataTypeITUTT35 {
				p.addCaptionData(data, pts)
			}
		}
	}
	p.pictures++
	p.stats.Pictures++
}

// parseFailed counts err as an error, or as unsupported if the data uses a
// feature that is not parsed.
func (p *Probe) parseFailed(msg string, err error) {
	if errors.Is(err, av1.ErrNotImplemented) {
		p.stats.Unsupported++
		p.cfg.Logger.Debug(msg, "error", err.Error())
		return
	}
	p.fail(msg, err)
}
