/*
DESCRIPTION
  scanner.go provides a start code scanner for finding NAL unit boundaries in
  Annex B byte streams, including boundaries split across separate buffers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

// Carry holds the state of a partial start code prefix seen at the end of
// the previous buffer passed to FindBoundary.
type Carry struct {
	prefix   bool // Buffer ended with 0x00 0x00 0x01.
	zeroZero bool // Buffer ended with 0x00 0x00.
	zero     bool // Buffer ended with 0x00.
}

// Clear resets the carry state, as at the start of a stream.
func (c *Carry) Clear() {
	*c = Carry{}
}

// FindBoundary returns the offset of the first byte of the first
// 0x00 0x00 0x01 start code prefix in buf[start:end], or end if there is
// none. A prefix is only reported once at least one byte following it has
// been seen, so a prefix that ends a buffer is held in carry and reported by
// the next call. When the prefix began in a previous buffer the returned
// offset is start-1, start-2 or start-3.
//
// carry is cleared when a boundary is returned and updated with the trailing
// partial prefix when end is returned. Scanning a stream in pieces gives the
// same boundaries as scanning it whole.
func FindBoundary(buf []byte, start, end int, carry *Carry) int {
	n := end - start
	if n <= 0 {
		return end
	}

	switch {
	case carry.prefix:
		carry.Clear()
		return start - 3
	case n > 1 && carry.zeroZero && buf[start] == 1:
		carry.Clear()
		return start - 2
	case n > 2 && carry.zero && buf[start] == 0 && buf[start+1] == 1:
		carry.Clear()
		return start - 1
	}

	// i is the position of the third byte of a candidate prefix. A byte that
	// is neither 0x00 nor 0x01 rules out prefixes ending at i, i+1 and i+2.
	for i := start + 2; i < end-1; i += 3 {
		if buf[i]&0xfe != 0 {
			continue
		}
		if buf[i-2] == 0 && buf[i-1] == 0 && buf[i] == 1 {
			carry.Clear()
			return i - 2
		}
		i -= 2
	}

	switch n {
	case 1:
		carry.prefix = carry.zeroZero && buf[end-1] == 1
		carry.zeroZero = carry.zero && buf[end-1] == 0
	case 2:
		carry.prefix = carry.zero && buf[end-2] == 0 && buf[end-1] == 1
		carry.zeroZero = buf[end-2] == 0 && buf[end-1] == 0
	default:
		carry.prefix = buf[end-3] == 0 && buf[end-2] == 0 && buf[end-1] == 1
		carry.zeroZero = buf[end-2] == 0 && buf[end-1] == 0
	}
	carry.zero = buf[end-1] == 0
	return end
}
