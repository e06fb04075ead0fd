/*
DESCRIPTION
  decoder.go provides a Decoder that turns ATSC A/53 caption data carried in
  SEI messages into caption frames, for use as the consumer of a
  sei.ReorderingQueue.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package caption provides decoding of CEA-608 and CEA-708 closed captions
// carried in SEI messages.
package caption

import (
	"github.com/ausocean/utils/logging"
	"github.com/zsiec/ccx"

	"github.com/ausocean/esparse/codec/sei"
)

// Number of CEA-608 channels and CEA-708 services decoded. CEA-708 service n
// is reported as channel n+serviceChannelOffset.
const (
	num608Channels       = 4
	num708Services       = 6
	serviceChannelOffset = 6
)

const (
	parityMask  = 0x7f
	ctrlMin     = 0x10
	ctrlMax     = 0x1f
	channelBit  = 0x08
	fieldCount  = 2
	channelsPer = 2 // CEA-608 data channels per field.
)

// Decoder decodes caption data and calls emit with each caption frame that
// changes the displayed text. Frame PTS values are the timestamps given to
// Consume.
type Decoder struct {
	log  logging.Logger
	emit func(*ccx.CaptionFrame)

	cea608 map[int]*ccx.CEA608Decoder
	cea708 map[int]*ccx.CEA708Service

	// Per field state for selecting the data channel and dropping the
	// repeated transmission of control codes.
	dataChannel [fieldCount]int
	lastCtrl    [fieldCount][2]byte
	lastWasCtrl [fieldCount]bool

	dtvcc []byte

	frames int
}

// NewDecoder returns a new Decoder calling emit for each caption frame.
func NewDecoder(l logging.Logger, emit func(*ccx.CaptionFrame)) *Decoder {
	d := &Decoder{
		log:    l,
		emit:   emit,
		cea608: make(map[int]*ccx.CEA608Decoder, num608Channels),
		cea708: make(map[int]*ccx.CEA708Service, num708Services),
	}
	for i := 1; i <= num608Channels; i++ {
		d.cea608[i] = ccx.NewCEA608Decoder()
	}
	for i := 1; i <= num708Services; i++ {
		d.cea708[i] = ccx.NewCEA708Service()
	}
	return d
}

// Consume decodes the payload of a user_data_registered_itu_t_t35 SEI
// message with presentation timestamp ptsUs. Payloads that are not caption
// data are ignored. Consume has the signature of a sei.ReorderingQueue
// consumer.
func (d *Decoder) Consume(ptsUs int64, payload []byte) {
	cc, ok := sei.ParseCCData(payload)
	if !ok {
		d.log.Debug("ignoring non caption user data", "pts", ptsUs)
		return
	}

	for _, t := range cc {
		if !t.Valid {
			continue
		}
		switch t.Type {
		case sei.CCTypeField1, sei.CCTypeField2:
			d.decode608(ptsUs, t.Type, t.Data[0]&parityMask, t.Data[1]&parityMask)
		case sei.CCTypeDTVCCStart:
			d.drainDTVCC(ptsUs)
			d.dtvcc = d.dtvcc[:0]
			d.dtvcc = append(d.dtvcc, t.Data[0], t.Data[1])
		case sei.CCTypeDTVCCData:
			d.dtvcc = append(d.dtvcc, t.Data[0], t.Data[1])
		}
	}
}

// Frames returns the number of caption frames emitted.
func (d *Decoder) Frames() int { return d.frames }

func (d *Decoder) decode608(pts int64, field int, cc1, cc2 byte) {
	if cc1 == 0 && cc2 == 0 {
		return
	}

	if cc1 >= ctrlMin && cc1 <= ctrlMax {
		cp := [2]byte{cc1, cc2}
		if d.lastWasCtrl[field] && d.lastCtrl[field] == cp {
			d.lastWasCtrl[field] = false
			return
		}
		d.lastCtrl[field] = cp
		d.lastWasCtrl[field] = true
		d.dataChannel[field] = 0
		if cc1&channelBit != 0 {
			d.dataChannel[field] = 1
		}
	} else {
		d.lastWasCtrl[field] = false
	}

	ch := channel(field, d.dataChannel[field])
	dec := d.cea608[ch]
	text := dec.Decode(cc1, cc2)
	if text == "" {
		return
	}
	f := &ccx.CaptionFrame{PTS: pts, Text: text, Channel: ch}
	f.Regions = dec.StyledRegions()
	d.send(f)
}

// channel returns the CEA-608 channel, CC1 to CC4, for a field and data
// channel.
func channel(field, dataChannel int) int {
	return field*channelsPer + dataChannel + 1
}

// drainDTVCC decodes the buffered DTVCC packet, if complete.
func (d *Decoder) drainDTVCC(pts int64) {
	if len(d.dtvcc) < 1 {
		return
	}
	size := ccx.DTVCCPacketSize(d.dtvcc[0])
	if len(d.dtvcc) < size {
		d.log.Debug("dropping incomplete DTVCC packet", "have", len(d.dtvcc), "want", size)
		return
	}

	for _, b := range ccx.ParseDTVCCPacket(d.dtvcc[:size]) {
		svc := d.cea708[b.ServiceNum]
		if svc == nil || !svc.ProcessBlock(b.Data) {
			continue
		}
		text := svc.DisplayText()
		if text == "" {
			continue
		}
		ch := b.ServiceNum + serviceChannelOffset
		f := &ccx.CaptionFrame{PTS: pts, Text: text, Channel: ch}
		f.Regions = svc.StyledRegions()
		d.send(f)
	}
}

// Flush decodes any DTVCC packet still buffered.
func (d *Decoder) Flush(ptsUs int64) {
	d.drainDTVCC(ptsUs)
	d.dtvcc = d.dtvcc[:0]
}

func (d *Decoder) send(f *ccx.CaptionFrame) {
	d.frames++
	d.log.Debug("caption", "pts", f.PTS, "channel", f.Channel, "text", f.Text)
	d.emit(f)
}
