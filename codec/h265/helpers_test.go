/*
DESCRIPTION
  helpers_test.go provides helper functions for testing.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import (
	"errors"
	"strings"
	"testing"

	"github.com/ausocean/esparse/codec/codecutil"
)

// binToSlice is a helper function to convert a string of binary into a
// corresponding byte slice, e.g. "0100 0001 1000 1100" => {0x41,0x8c}.
// Spaces in the string are ignored. A final partial byte is padded with
// zeros.
func binToSlice(s string) ([]byte, error) {
	var (
		a     byte = 0x80
		cur   byte
		bytes []byte
	)

	for i, c := range s {
		switch c {
		case ' ':
			continue
		case '1':
			cur |= a
		case '0':
		default:
			return nil, errors.New("invalid binary string")
		}

		a >>= 1
		if a == 0 || i == (len(s)-1) {
			bytes = append(bytes, cur)
			cur = 0
			a = 0x80
		}
	}
	return bytes, nil
}

// align pads the binary string s with one bits to a byte boundary, as for
// the alignment bits of the VPS extension.
func align(s string) string {
	n := len(strings.ReplaceAll(s, " ", ""))
	if n%8 == 0 {
		return s
	}
	return s + strings.Repeat("1", 8-n%8)
}

// nalFromBits returns an escaped NAL unit with the two byte header hdr and
// an RBSP given by the binary string s.
func nalFromBits(t *testing.T, hdr [2]byte, s string) []byte {
	t.Helper()
	b, err := binToSlice(s)
	if err != nil {
		t.Fatalf("unexpected binToSlice error: %v", err)
	}
	return append(hdr[:], codecutil.Escape(b)...)
}
