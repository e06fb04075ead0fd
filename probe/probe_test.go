/*
DESCRIPTION
  probe_test.go provides testing for the Probe in probe.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package probe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/esparse/codec/av1"
	"github.com/ausocean/esparse/codec/codecutil"
	"github.com/ausocean/esparse/codec/h264"
	"github.com/ausocean/esparse/codec/h265"
	"github.com/ausocean/esparse/probe/config"
)

func newTestProbe(t *testing.T, c config.Config) (*Probe, *recorder) {
	t.Helper()
	c.Logger = (*logging.TestLogger)(t)
	rec := &recorder{}
	p, err := New(c, rec)
	if err != nil {
		t.Fatalf("could not create probe: %v", err)
	}
	return p, rec
}

// TestProbeH264Chunks checks that the same records are found however the
// stream is split into writes.
func TestProbeH264Chunks(t *testing.T) {
	sps := nal(t, h264HdrSPS, h264SPS)
	stream := annexB(
		sps,
		nal(t, h264HdrPPS, h264PPS),
		sps, // Repeated parameter sets are reported once.
		h264IDR,
		h264Slice,
		h264Second,
	)

	for size := 1; size <= len(stream); size++ {
		p, rec := newTestProbe(t, config.Config{Codec: codecutil.H264})
		for off := 0; off < len(stream); off += size {
			end := off + size
			if end > len(stream) {
				end = len(stream)
			}
			err := p.Write(stream[off:end], 0)
			if err != nil {
				t.Fatalf("did not expect error: %v for chunk size: %d", err, size)
			}
		}
		err := p.Flush()
		if err != nil {
			t.Fatalf("did not expect error from flush: %v for chunk size: %d", err, size)
		}

		want := []string{KindSPS, KindPPS}
		if !cmp.Equal(rec.kinds(), want) {
			t.Fatalf("did not get expected records for chunk size: %d.\nGot: %v\nWant: %v\n", size, rec.kinds(), want)
		}
		s := rec.records[0].Value.(*h264.SPS)
		if s.Width != 152 || s.Height != 128 {
			t.Errorf("did not get expected size for chunk size: %d.\nGot: %dx%d\nWant: 152x128\n", size, s.Width, s.Height)
		}
		wantStats := Stats{Units: 6, Pictures: 2, Records: 2}
		if p.Stats() != wantStats {
			t.Errorf("did not get expected stats for chunk size: %d.\nGot: %+v\nWant: %+v\n", size, p.Stats(), wantStats)
		}
	}
}

// TestProbeSEITimestamps checks that SEI captions written without timestamps
// are queued with timestamps derived from the picture count.
func TestProbeSEITimestamps(t *testing.T) {
	seiNAL := append(append([]byte{}, h264HdrSEI...), seiRBSP(ccPayload)...)
	stream := annexB(
		nal(t, h264HdrSPS, h264SPS),
		nal(t, h264HdrPPS, h264PPS),
		seiNAL, h264IDR,
		seiNAL, h264Slice,
		seiNAL, h264Slice,
	)

	p, rec := newTestProbe(t, config.Config{
		Codec:           codecutil.H264,
		Captions:        true,
		SEIReorderDepth: 2,
		FrameRate:       25,
	})

	lex, err := codecutil.NewByteLexer(7)
	if err != nil {
		t.Fatalf("could not create lexer: %v", err)
	}
	err = lex.Lex(context.Background(), p.Writer(), bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("did not expect error from lexer: %v", err)
	}

	// The last slice is still buffered by the splitter, but its SEI is not.
	if p.queue.Len() != 2 {
		t.Errorf("did not get expected queue length.\nGot: %d\nWant: %d\n", p.queue.Len(), 2)
	}
	if p.lastPTS != 80000 {
		t.Errorf("did not get expected timestamp.\nGot: %d\nWant: %d\n", p.lastPTS, 80000)
	}

	err = p.Flush()
	if err != nil {
		t.Fatalf("did not expect error from flush: %v", err)
	}
	if p.queue.Len() != 0 {
		t.Errorf("queue not empty after flush, len: %d", p.queue.Len())
	}
	if p.Stats().Pictures != 3 {
		t.Errorf("did not get expected picture count.\nGot: %d\nWant: %d\n", p.Stats().Pictures, 3)
	}
	for _, r := range rec.records {
		if r.Kind == KindCaption && (r.PTS < 0 || r.PTS > 80000) {
			t.Errorf("caption has unexpected timestamp: %d", r.PTS)
		}
	}
}

func TestProbeReorderDepthFromSPS(t *testing.T) {
	p, _ := newTestProbe(t, config.Config{Codec: codecutil.H264, Captions: true})
	err := p.Write(annexB(nal(t, h264HdrSPS, h264SPS), h264IDR), 0)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	// Baseline at level 3 without VUI may reorder up to MaxDpbFrames.
	const want = 16
	if p.queue.MaxSize() != want {
		t.Errorf("did not get expected reorder depth.\nGot: %d\nWant: %d\n", p.queue.MaxSize(), want)
	}
}

func TestProbeH265(t *testing.T) {
	seiNAL := append(append([]byte{}, h265HdrSEI...), seiRBSP(ccPayload)...)
	stream := annexB(
		nal(t, h265HdrVPS, h265VPS),
		nal(t, h265HdrPPS, h265PPS),
		seiNAL,
		h265IDR,
		h265Dependent,
		h265LayerOne,
		h265Trail,
	)

	p, rec := newTestProbe(t, config.Config{Codec: codecutil.H265, Captions: true})
	err := p.Write(stream, 1000)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	err = p.Flush()
	if err != nil {
		t.Fatalf("did not expect error from flush: %v", err)
	}

	want := []string{KindVPS, KindPPS}
	if !cmp.Equal(rec.kinds(), want) {
		t.Fatalf("did not get expected records.\nGot: %v\nWant: %v\n", rec.kinds(), want)
	}
	v := rec.records[0].Value.(*h265.VPS)
	if v.Result != h265.Fallback || v.Reason != h265.FallbackSingleLayer {
		t.Errorf("did not get expected VPS result.\nGot: %v, %v\nWant: %v, %v\n", v.Result, v.Reason, h265.Fallback, h265.FallbackSingleLayer)
	}
	if rec.records[0].PTS != 1000 {
		t.Errorf("did not get expected timestamp.\nGot: %d\nWant: %d\n", rec.records[0].PTS, 1000)
	}
	if p.h265.vps[0] != v {
		t.Error("VPS not kept for SPS parsing")
	}
	if p.Stats().Pictures != 2 || p.Stats().Errors != 0 {
		t.Errorf("did not get expected stats: %+v", p.Stats())
	}
}

func TestProbeAV1(t *testing.T) {
	seq, err := binToSlice(av1SequenceHeader)
	if err != nil {
		t.Fatalf("unexpected binToSlice error: %v", err)
	}
	frame, err := binToSlice(av1KeyFrame)
	if err != nil {
		t.Fatalf("unexpected binToSlice error: %v", err)
	}
	metadata := append([]byte{av1.MetadataTypeITUTT35}, ccPayload...)

	var sample []byte
	sample = append(sample, obu(av1.OBUTypeTemporalDelimiter, nil)...)
	sample = append(sample, obu(av1.OBUTypeSequenceHeader, seq)...)
	sample = append(sample, obu(av1.OBUTypeMetadata, metadata)...)
	sample = append(sample, obu(av1.OBUTypeFrame, frame)...)

	p, rec := newTestProbe(t, config.Config{Codec: codecutil.AV1, Captions: true, FrameHeaders: true})
	for _, pts := range []int64{0, 33333} {
		err := p.WriteSample(sample, pts)
		if err != nil {
			t.Fatalf("did not expect error: %v", err)
		}
	}

	want := []string{KindSequenceHeader, KindFrameHeader, KindFrameHeader}
	if !cmp.Equal(rec.kinds(), want) {
		t.Fatalf("did not get expected records.\nGot: %v\nWant: %v\n", rec.kinds(), want)
	}
	s := rec.records[0].Value.(*av1.SequenceHeader)
	if s.MaxFrameWidth != 1920 || s.MaxFrameHeight != 1080 {
		t.Errorf("did not get expected size.\nGot: %dx%d\nWant: 1920x1080\n", s.MaxFrameWidth, s.MaxFrameHeight)
	}
	f := rec.records[2].Value.(*av1.FrameHeader)
	if !f.IsDependedOn() || rec.records[2].PTS != 33333 {
		t.Errorf("did not get expected frame header: %+v at %d", f, rec.records[2].PTS)
	}

	// Captions are held in an unbounded queue until flushed.
	if p.queue.Len() != 2 {
		t.Errorf("did not get expected queue length.\nGot: %d\nWant: %d\n", p.queue.Len(), 2)
	}
	wantStats := Stats{Units: 8, Pictures: 2, Records: 3}
	if p.Stats() != wantStats {
		t.Errorf("did not get expected stats.\nGot: %+v\nWant: %+v\n", p.Stats(), wantStats)
	}
}

func TestProbeErrors(t *testing.T) {
	_, err := New(config.Config{Codec: codecutil.H264}, nil)
	if err == nil {
		t.Error("expected error for config without logger")
	}

	p, _ := newTestProbe(t, config.Config{Codec: codecutil.AV1})
	err = p.Write([]byte{0, 0, 1, 0x67}, 0)
	if !errors.Is(err, errNotAnnexB) {
		t.Errorf("did not get expected error.\nGot: %v\nWant: %v\n", err, errNotAnnexB)
	}

	p, rec := newTestProbe(t, config.Config{Codec: codecutil.H264})
	err = p.WriteSample([]byte{0x12, 0x00}, 0)
	if !errors.Is(err, errAnnexB) {
		t.Errorf("did not get expected error.\nGot: %v\nWant: %v\n", err, errAnnexB)
	}

	// A bad SPS is counted and the stream continues.
	err = p.Write(annexB([]byte{0x67, 0x42}, nal(t, h264HdrPPS, h264PPS)), 0)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	err = p.Flush()
	if err != nil {
		t.Fatalf("did not expect error from flush: %v", err)
	}
	if p.Stats().Errors != 1 {
		t.Errorf("did not get expected error count.\nGot: %d\nWant: %d\n", p.Stats().Errors, 1)
	}
	want := []string{KindPPS}
	if !cmp.Equal(rec.kinds(), want) {
		t.Errorf("did not get expected records.\nGot: %v\nWant: %v\n", rec.kinds(), want)
	}
}
