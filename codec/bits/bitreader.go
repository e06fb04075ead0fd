/*
DESCRIPTION
  bitreader.go provides a bit reader over a byte slice with a declared byte
  limit, including Exp-Golomb decoding as used by H.264 and H.265 syntax.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides a bit reader for reading fixed length and Exp-Golomb
// coded fields from a byte slice.
package bits

import (
	"errors"
)

// ErrOverRead is returned when a read would go beyond the reader's limit.
// Functions that wrap it for context can be checked with errors.Is.
var ErrOverRead = errors.New("read past end of data")

var (
	errBadBitCount   = errors.New("bit count must be between 0 and 32")
	errGolombTooLong = errors.New("exp-golomb code longer than 32 leading zeros")
)

// BitReader reads bits MSB first from a byte slice. Reads never go beyond
// the declared limit; a failing read leaves the position unchanged.
type BitReader struct {
	data   []byte
	limit  int // Limit in bytes.
	off    int // Current byte offset.
	bitOff int // Bit offset in the current byte, 0 being the MSB.
}

// NewBitReader returns a new BitReader reading from the whole of d.
func NewBitReader(d []byte) *BitReader {
	return &BitReader{data: d, limit: len(d)}
}

// NewBitReaderLimit returns a new BitReader that will read no further than
// limit bytes into d. A limit greater than len(d) is reduced to len(d).
func NewBitReaderLimit(d []byte, limit int) *BitReader {
	br := &BitReader{}
	br.Reset(d, limit)
	return br
}

// Reset sets the reader to read from the start of d up to limit bytes.
func (br *BitReader) Reset(d []byte, limit int) {
	if limit > len(d) || limit < 0 {
		limit = len(d)
	}
	br.data = d
	br.limit = limit
	br.off = 0
	br.bitOff = 0
}

// BitsLeft returns the number of bits that can still be read.
func (br *BitReader) BitsLeft() int {
	return (br.limit-br.off)*8 - br.bitOff
}

// CanReadBits returns true if n more bits can be read.
func (br *BitReader) CanReadBits(n int) bool {
	return n <= br.BitsLeft()
}

// Position returns the current position in bits from the start of the data.
func (br *BitReader) Position() int {
	return br.off*8 + br.bitOff
}

// BytesRead returns the number of bytes that have been fully or partially
// read.
func (br *BitReader) BytesRead() int {
	if br.bitOff != 0 {
		return br.off + 1
	}
	return br.off
}

// Off returns the offset of the next bit to be read within the current byte.
func (br *BitReader) Off() int {
	return br.bitOff
}

// ByteAligned returns true if the reader is at the start of a byte.
func (br *BitReader) ByteAligned() bool {
	return br.bitOff == 0
}

// ByteAlign moves the reader to the start of the next byte if it is not
// already aligned.
func (br *BitReader) ByteAlign() {
	if br.bitOff != 0 {
		br.off++
		br.bitOff = 0
	}
}

// ReadBit reads a single bit and returns true if it is set.
func (br *BitReader) ReadBit() (bool, error) {
	if br.off >= br.limit {
		return false, ErrOverRead
	}
	b := br.data[br.off]>>(7-uint(br.bitOff))&1 == 1
	br.advance(1)
	return b, nil
}

// ReadBits reads n bits, where 0 <= n <= 32, and returns them in the least
// significant part of a uint64.
// For example, with a source of []byte{0x8f,0xe3} (1000 1111, 1110 0011),
// consecutive reads give the following:
//  n = 4, res = 0x8 (1000)
//  n = 2, res = 0x3 (0011)
//  n = 4, res = 0xf (1111)
//  n = 6, res = 0x23 (0010 0011)
func (br *BitReader) ReadBits(n int) (uint64, error) {
	v, err := br.PeekBits(n)
	if err != nil {
		return 0, err
	}
	br.advance(n)
	return v, nil
}

// PeekBits returns the next n bits without moving the reader.
func (br *BitReader) PeekBits(n int) (uint64, error) {
	if n < 0 || n > 32 {
		return 0, errBadBitCount
	}
	if !br.CanReadBits(n) {
		return 0, ErrOverRead
	}
	var v uint64
	off, bitOff := br.off, br.bitOff
	for n > 0 {
		avail := 8 - bitOff
		take := avail
		if n < take {
			take = n
		}
		b := uint64(br.data[off]>>uint(avail-take)) & (1<<uint(take) - 1)
		v = v<<uint(take) | b
		n -= take
		bitOff += take
		if bitOff == 8 {
			off++
			bitOff = 0
		}
	}
	return v, nil
}

// SkipBits moves the reader forward n bits.
func (br *BitReader) SkipBits(n int) error {
	if n < 0 {
		return errBadBitCount
	}
	if !br.CanReadBits(n) {
		return ErrOverRead
	}
	br.advance(n)
	return nil
}

// SkipBytes moves the reader forward n bytes.
func (br *BitReader) SkipBytes(n int) error {
	return br.SkipBits(8 * n)
}

// ReadUE reads an unsigned Exp-Golomb coded integer (ue(v)) as described by
// section 9.1 of ITU-T H.264. k leading zero bits are counted up to the first
// set bit, then k bits v are read and the result is 2^k - 1 + v.
func (br *BitReader) ReadUE() (uint64, error) {
	k, err := br.leadingZeros()
	if err != nil {
		return 0, err
	}
	if !br.CanReadBits(2*k + 1) {
		return 0, ErrOverRead
	}
	br.advance(k + 1)
	v, _ := br.ReadBits(k)
	return (1<<uint(k) - 1) + v, nil
}

// ReadSE reads a signed Exp-Golomb coded integer (se(v)). The unsigned code
// u maps to (u+1)/2 when u is odd and -u/2 when u is even, as described by
// section 9.1.1 of ITU-T H.264.
func (br *BitReader) ReadSE() (int64, error) {
	u, err := br.ReadUE()
	if err != nil {
		return 0, err
	}
	if u%2 == 1 {
		return int64((u + 1) / 2), nil
	}
	return -int64(u / 2), nil
}

// CanReadExpGolomb returns true if a complete Exp-Golomb code can be read
// from the current position.
func (br *BitReader) CanReadExpGolomb() bool {
	k, err := br.leadingZeros()
	if err != nil {
		return false
	}
	return br.CanReadBits(2*k + 1)
}

// MoreRBSPData returns true if there is more data before the
// rbsp_stop_one_bit, being the last set bit within the limit, as described
// by section 7.2 of ITU-T H.264.
func (br *BitReader) MoreRBSPData() bool {
	last := br.limit - 1
	for last >= br.off && br.data[last] == 0 {
		last--
	}
	if last < br.off {
		return false
	}
	stop := last*8 + 7
	for b := br.data[last]; b&1 == 0; b >>= 1 {
		stop--
	}
	return br.Position() < stop
}

// leadingZeros counts the zero bits before the next set bit without moving
// the reader.
func (br *BitReader) leadingZeros() (int, error) {
	off, bitOff := br.off, br.bitOff
	for k := 0; ; k++ {
		if off >= br.limit {
			return 0, ErrOverRead
		}
		if k > 32 {
			return 0, errGolombTooLong
		}
		if br.data[off]>>(7-uint(bitOff))&1 == 1 {
			return k, nil
		}
		bitOff++
		if bitOff == 8 {
			off++
			bitOff = 0
		}
	}
}

func (br *BitReader) advance(n int) {
	pos := br.bitOff + n
	br.off += pos / 8
	br.bitOff = pos % 8
}
