/*
DESCRIPTION
  probe.go provides a Probe that finds the parameter sets, sequence headers
  and SEI caption data of an elementary stream and reports them as records.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package probe provides extraction of stream metadata from H.264, H.265 and
// AV1 elementary streams.
package probe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ausocean/utils/bitrate"
	"github.com/zsiec/ccx"

	"github.com/ausocean/esparse/codec/codecutil"
	"github.com/ausocean/esparse/codec/h264"
	"github.com/ausocean/esparse/codec/h265"
	"github.com/ausocean/esparse/codec/sei"
	"github.com/ausocean/esparse/codec/sei/caption"
	"github.com/ausocean/esparse/probe/config"
)

// NoPTS may be given as the timestamp of data that has none. Timestamps are
// then derived from the number of pictures seen and the frame rate, in
// decode order.
const NoPTS = math.MinInt64

// Record kinds.
const (
	KindSPS            = "sps"
	KindPPS            = "pps"
	KindVPS            = "vps"
	KindSequenceHeader = "sequence_header"
	KindFrameHeader    = "frame_header"
	KindCaption        = "caption"
)

var (
	errNotAnnexB    = errors.New("codec is not an Annex B byte stream")
	errAnnexB       = errors.New("codec takes Annex B data, not samples")
	errTruncatedNAL = errors.New("NAL unit truncated")
)

// Record is a parameter set, header or caption found in a stream. Value
// holds a pointer to the parsed structure, for example *h264.SPS or
// *ccx.CaptionFrame.
type Record struct {
	Kind  string      `json:"kind"`
	PTS   int64       `json:"pts"`
	Value interface{} `json:"value"`
}

// Handler receives the records found by a Probe.
type Handler interface {
	Record(Record)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(Record)

// Record calls f(r).
func (f HandlerFunc) Record(r Record) { f(r) }

// Stats counts what a Probe has seen.
type Stats struct {
	Units       int // NAL units or OBUs.
	Pictures    int
	Records     int
	Errors      int // Units that could not be parsed.
	Unsupported int // Units using features that are not parsed.
}

// Probe extracts records from one elementary stream. Parse errors do not stop
// the probe; they are logged and counted. A Probe must not be used
// concurrently.
type Probe struct {
	cfg config.Config
	h   Handler

	splitter  *codecutil.NALSplitter
	unescaper codecutil.Unescaper
	rbsp      []byte

	// Timestamp derivation for data written with NoPTS.
	interval int64 // Microseconds per picture.
	pictures int64

	// Last raw bytes of each reported parameter set, by kind and ID, for
	// reporting only changes.
	seen map[string][]byte

	h264 h264State
	h265 h265State
	av1  av1State

	queue    *sei.ReorderingQueue
	captions *caption.Decoder
	lastPTS  int64

	bitrate bitrate.Calculator
	stats   Stats
}

// New returns a new Probe for a stream with the configuration c, reporting
// records to h.
func New(c config.Config, h Handler) (*Probe, error) {
	if c.Logger == nil {
		return nil, errors.New("config has no logger")
	}
	err := c.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Probe{
		cfg:  c,
		h:    h,
		seen: make(map[string][]byte),
		h264: h264State{sps: make(map[int]*h264.SPS)},
		h265: h265State{
			vps: make(map[int]*h265.VPS),
			sps: make(map[int]*h265.SPS),
		},
	}
	p.setFrameRate(float64(c.FrameRate))

	if c.Captions {
		p.captions = caption.NewDecoder(c.Logger, func(f *ccx.CaptionFrame) {
			p.report(KindCaption, f.PTS, f)
		})
		p.queue = sei.NewReorderingQueue(p.captions.Consume)
		if c.SEIReorderDepth > 0 {
			p.queue.SetMaxSize(c.SEIReorderDepth)
		}
	}

	if codecutil.IsAnnexB(c.Codec) {
		p.splitter = codecutil.NewNALSplitter(p.handleNAL)
	}
	return p, nil
}

// Config returns a copy of the probe's config.
func (p *Probe) Config() config.Config { return p.cfg }

// Stats returns the counts of what has been seen so far.
func (p *Probe) Stats() Stats { return p.stats }

// Bitrate returns the result of the most recent bitrate check.
func (p *Probe) Bitrate() int { return p.bitrate.Bitrate() }

// Write feeds a chunk of an Annex B byte stream. Chunks may split NAL units
// and start codes anywhere. NAL units take the timestamp ptsUs of the chunk
// holding their start code.
func (p *Probe) Write(chunk []byte, ptsUs int64) error {
	if p.splitter == nil {
		return fmt.Errorf("%s: %w", p.cfg.Codec, errNotAnnexB)
	}
	p.bitrate.Report(len(chunk))
	return p.splitter.Write(chunk, ptsUs)
}

// WriteSample feeds one AV1 sample, that is a temporal unit of OBUs.
func (p *Probe) WriteSample(sample []byte, ptsUs int64) error {
	if p.splitter != nil {
		return fmt.Errorf("%s: %w", p.cfg.Codec, errAnnexB)
	}
	p.bitrate.Report(len(sample))
	p.handleSample(sample, ptsUs)
	return nil
}

// Flush completes the NAL unit in progress and releases all held SEI
// messages. The probe may be written to again after Flush as the start of a
// new stream.
func (p *Probe) Flush() error {
	var err error
	if p.splitter != nil {
		err = p.splitter.Flush()
	}
	if p.queue != nil {
		p.queue.Flush()
		p.captions.Flush(p.lastPTS)
	}
	return err
}

// Writer returns an io.Writer feeding the probe with data that has no
// timestamps, for use with a codecutil.ByteLexer. For AV1 each write must be
// one sample.
func (p *Probe) Writer() io.Writer { return (*writer)(p) }

type writer Probe

func (w *writer) Write(b []byte) (int, error) {
	p := (*Probe)(w)
	var err error
	if p.splitter != nil {
		err = p.Write(b, NoPTS)
	} else {
		err = p.WriteSample(b, NoPTS)
	}
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// pts returns the timestamp to use for a unit tagged with tag.
func (p *Probe) pts(tag int64) int64 {
	if tag == NoPTS {
		return p.pictures * p.interval
	}
	return tag
}

// setFrameRate sets the rate used to derive timestamps. Rates that are not
// positive are ignored.
func (p *Probe) setFrameRate(fps float64) {
	if fps <= 0 {
		return
	}
	p.interval = int64(math.Round(1e6 / fps))
}

// setReorderDepth sets the SEI queue depth from the active sequence, unless
// configured.
func (p *Probe) setReorderDepth(n int) {
	if p.queue == nil || p.cfg.SEIReorderDepth > 0 || p.queue.MaxSize() == n {
		return
	}
	p.cfg.Logger.Debug("setting SEI reorder depth", "depth", n)
	p.queue.SetMaxSize(n)
}

// addSEI queues the caption payloads of the SEI RBSP rbsp.
func (p *Probe) addSEI(rbsp []byte, pts int64) {
	if p.queue == nil {
		return
	}
	msgs, err := sei.Messages(rbsp)
	if err != nil {
		p.fail("could not read SEI", err)
	}
	for _, m := range msgs {
		if m.Type == sei.PayloadTypeUserDataRegistered {
			p.addCaptionData(m.Payload, pts)
		}
	}
}

// addCaptionData queues an ITU-T T.35 payload if it holds caption data.
func (p *Probe) addCaptionData(payload []byte, pts int64) {
	if p.queue == nil {
		return
	}
	if _, ok := sei.ParseCCData(payload); !ok {
		return
	}
	p.queue.Add(pts, payload)
	p.lastPTS = pts
}

// unescape returns an unescaped copy of n[hdrLen:] in the probe's scratch
// buffer, valid until the next call.
func (p *Probe) unescape(n []byte, hdrLen int) []byte {
	if len(n) < hdrLen {
		return nil
	}
	p.rbsp = append(p.rbsp[:0], n[hdrLen:]...)
	return p.rbsp[:p.unescaper.Unescape(p.rbsp, len(p.rbsp))]
}

// changed reports whether raw differs from the last unit of the same kind and
// id, recording it if so.
func (p *Probe) changed(kind string, id int, raw []byte) bool {
	key := fmt.Sprintf("%s/%d", kind, id)
	if bytes.Equal(p.seen[key], raw) {
		return false
	}
	p.seen[key] = append(p.seen[key][:0], raw...)
	return true
}

func (p *Probe) report(kind string, pts int64, v interface{}) {
	p.stats.Records++
	if p.h != nil {
		p.h.Record(Record{Kind: kind, PTS: pts, Value: v})
	}
}

func (p *Probe) fail(msg string, err error) {
	p.stats.Errors++
	p.cfg.Logger.Warning(msg, "error", err.Error())
}
