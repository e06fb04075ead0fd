/*
DESCRIPTION
  unescape.go provides removal and insertion of emulation prevention bytes in
  NAL unit payloads.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

// Unescaper removes emulation prevention bytes from NAL units. It keeps a
// scratch list of escape positions that grows as needed and is reused
// between calls. An Unescaper must not be used concurrently; use one per
// stream.
type Unescaper struct {
	pos []int
}

// Unescape removes the 0x03 from every 0x00 0x00 0x03 sequence in
// buf[:limit], in place, and returns the unescaped length. Bytes in
// buf[limit:] are not touched.
func (u *Unescaper) Unescape(buf []byte, limit int) int {
	u.pos = u.pos[:0]
	for i := 0; i < limit; {
		i = nextEscape(buf, i, limit)
		if i < limit {
			u.pos = append(u.pos, i)
			i += 3
		}
	}
	if len(u.pos) == 0 {
		return limit
	}

	n := limit - len(u.pos)
	var r, w int
	for _, p := range u.pos {
		w += copy(buf[w:], buf[r:p])
		buf[w] = 0
		buf[w+1] = 0
		w += 2
		r = p + 3
	}
	copy(buf[w:n], buf[r:limit])
	return n
}

// Unescape removes emulation prevention bytes from buf[:limit] in place
// using a temporary Unescaper and returns the unescaped length.
func Unescape(buf []byte, limit int) int {
	var u Unescaper
	return u.Unescape(buf, limit)
}

// nextEscape returns the position of the next 0x00 0x00 0x03 in
// buf[off:limit], or limit if there is none.
func nextEscape(buf []byte, off, limit int) int {
	for i := off; i < limit-2; i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 3 {
			return i
		}
	}
	return limit
}

// Escape returns a copy of p with an emulation prevention byte 0x03 inserted
// after every 0x00 0x00 that is followed by a byte less than or equal to
// 0x03, so that the result contains no start code prefix.
func Escape(p []byte) []byte {
	dst := make([]byte, 0, len(p)+len(p)/64)
	var zeros int
	for _, b := range p {
		if zeros == 2 && b <= 3 {
			dst = append(dst, 3)
			zeros = 0
		}
		dst = append(dst, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return dst
}
