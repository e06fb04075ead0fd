/*
DESCRIPTION
  split.go provides a NALSplitter that cuts an Annex B byte stream, written in
  arbitrary pieces, into whole NAL units.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

// NALUnit is a NAL unit with its type and payload. Payload excludes the
// start code and the NAL unit header, and is still escaped.
type NALUnit struct {
	Type    int
	Payload []byte
}

// NALSplitter accumulates Annex B data and calls emit with each complete
// NAL unit, excluding its start code and any trailing zero bytes. The slice
// passed to emit is only valid for the duration of the call.
//
// Each NAL unit is emitted with the tag given to the Write call in which its
// start code was found. Tags are typically presentation timestamps.
type NALSplitter struct {
	carry   Carry
	buf     []byte
	started bool
	tag     int64
	emit    func(nal []byte, tag int64) error
}

// NewNALSplitter returns a new NALSplitter calling emit for each NAL unit.
func NewNALSplitter(emit func(nal []byte, tag int64) error) *NALSplitter {
	return &NALSplitter{emit: emit}
}

// Write splits p, which continues any data given to previous calls. Data
// before the first start code in the stream is discarded.
func (s *NALSplitter) Write(p []byte, tag int64) error {
	var off int
	for {
		b := FindBoundary(p, off, len(p), &s.carry)
		if b == len(p) {
			if s.started {
				s.buf = append(s.buf, p[off:]...)
			}
			return nil
		}

		if s.started {
			if b >= off {
				s.buf = append(s.buf, p[off:b]...)
			} else {
				// Part of the start code was written in an earlier call.
				s.buf = s.buf[:len(s.buf)-(off-b)]
			}
			err := s.flush()
			if err != nil {
				return err
			}
		}
		s.started = true
		s.tag = tag
		off = b + 3
	}
}

// Flush emits the NAL unit in progress, treating the end of the data written
// so far as the end of the stream.
func (s *NALSplitter) Flush() error {
	if !s.started {
		return nil
	}
	if s.carry.prefix {
		// A start code with nothing after it.
		s.buf = s.buf[:len(s.buf)-3]
	}
	err := s.flush()
	s.Reset()
	return err
}

// Reset discards buffered data and carry state.
func (s *NALSplitter) Reset() {
	s.carry.Clear()
	s.buf = s.buf[:0]
	s.started = false
}

func (s *NALSplitter) flush() error {
	n := len(s.buf)
	for n > 0 && s.buf[n-1] == 0 {
		n--
	}
	var err error
	if n > 0 {
		err = s.emit(s.buf[:n], s.tag)
	}
	s.buf = s.buf[:0]
	return err
}
