/*
DESCRIPTION
  messages.go provides reading of sei_message() entries from an SEI RBSP and
  extraction of ATSC A/53 closed caption data.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sei

import (
	"bytes"
	"errors"
)

// SEI payload types used here, from Annex D of H.264 and H.265.
const (
	PayloadTypePicTiming            = 1
	PayloadTypeUserDataRegistered   = 4
	PayloadTypeUserDataUnregistered = 5
)

// ATSC A/53 identifiers carried by user_data_registered_itu_t_t35.
const (
	countryCodeUSA  = 0xb5
	providerATSC    = 0x0031
	userDataTypeCC  = 0x03
	ccDataHeaderLen = 2 // Flags with cc_count, and em_data.
	ccTripletLen    = 3
)

var atscIdentifier = []byte("GA94")

// Errors returned by Messages.
var (
	ErrTruncated = errors.New("SEI message truncated")
	errNoMessage = errors.New("SEI has no messages")
)

// Message is a single sei_message(). Payload refers to the RBSP given to
// Messages.
type Message struct {
	Type    int
	Payload []byte
}

// Messages returns the SEI messages in rbsp, which is an unescaped SEI RBSP
// without its NAL unit header. Reading stops at the rbsp_trailing_bits.
// Messages parsed before an error are returned with it.
func Messages(rbsp []byte) ([]Message, error) {
	var msgs []Message
	for off := 0; off < len(rbsp); {
		// rbsp_trailing_bits, with any cabac_zero_words.
		if rbsp[off] == 0x80 && allZero(rbsp[off+1:]) {
			break
		}

		typ, n, ok := readFFValue(rbsp[off:])
		if !ok {
			return msgs, ErrTruncated
		}
		off += n
		size, n, ok := readFFValue(rbsp[off:])
		if !ok {
			return msgs, ErrTruncated
		}
		off += n
		if size > len(rbsp)-off {
			return msgs, ErrTruncated
		}
		msgs = append(msgs, Message{Type: typ, Payload: rbsp[off : off+size]})
		off += size
	}
	if len(msgs) == 0 {
		return nil, errNoMessage
	}
	return msgs, nil
}

// readFFValue reads a payload type or size coded as a run of 0xff bytes
// followed by a final byte, returning the value and the bytes used.
func readFFValue(b []byte) (v, n int, ok bool) {
	for n < len(b) {
		c := b[n]
		n++
		v += int(c)
		if c != 0xff {
			return v, n, true
		}
	}
	return 0, n, false
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// CCTriplet is one cc_data_pkt of ATSC A/53 caption data. Types 0 and 1 carry
// CEA-608 byte pairs for fields 1 and 2; types 2 and 3 carry CEA-708 DTVCC
// packet data, with 3 marking the start of a packet.
type CCTriplet struct {
	Valid bool
	Type  int
	Data  [2]byte
}

// CC types of a CCTriplet.
const (
	CCTypeField1      = 0
	CCTypeField2      = 1
	CCTypeDTVCCData   = 2
	CCTypeDTVCCStart  = 3
	ccValidBit        = 0x04
	ccTypeMask        = 0x03
	processCCDataFlag = 0x40
	ccCountMask       = 0x1f
)

// ParseCCData returns the cc_data triplets held by the payload of a
// user_data_registered_itu_t_t35 SEI message. It returns false if the
// payload is not ATSC A/53 caption data.
func ParseCCData(payload []byte) ([]CCTriplet, bool) {
	const hdrLen = 1 + 2 + 4 + 1 // Country, provider, identifier and type code.
	if len(payload) < hdrLen+ccDataHeaderLen {
		return nil, false
	}
	if payload[0] != countryCodeUSA || int(payload[1])<<8|int(payload[2]) != providerATSC {
		return nil, false
	}
	if !bytes.Equal(payload[3:7], atscIdentifier) || payload[7] != userDataTypeCC {
		return nil, false
	}

	flags := payload[hdrLen]
	if flags&processCCDataFlag == 0 {
		return nil, true
	}
	n := int(flags & ccCountMask)
	data := payload[hdrLen+ccDataHeaderLen:]
	if len(data) < n*ccTripletLen {
		n = len(data) / ccTripletLen
	}

	cc := make([]CCTriplet, 0, n)
	for i := 0; i < n; i++ {
		t := data[i*ccTripletLen:]
		cc = append(cc, CCTriplet{
			Valid: t[0]&ccValidBit != 0,
			Type:  int(t[0] & ccTypeMask),
			Data:  [2]byte{t[1], t[2]},
		})
	}
	return cc, true
}
