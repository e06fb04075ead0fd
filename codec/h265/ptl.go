/*
DESCRIPTION
  ptl.go provides parsing of the profile_tier_level() syntax structure
  (section 7.3.3) and the RFC 6381 codecs parameter derived from it.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import (
	"fmt"
	"math/bits"
	"strings"

	bitio "github.com/ausocean/esparse/codec/bits"
)

// Number of bits taken by the general constraint flags, from
// general_progressive_source_flag to general_inbld_flag.
const constraintBits = 48

// ProfileTierLevel holds the general profile, tier and level of a
// profile_tier_level() structure. Sub-layer values are traversed but not kept.
type ProfileTierLevel struct {
	ProfileSpace       int
	Tier               int
	ProfileIDC         int
	CompatibilityFlags uint32
	ConstraintFlags    [constraintBits / 8]byte
	LevelIDC           int
}

// parsePTL parses profile_tier_level(profilePresent, maxSubLayersMinus1).
// When profilePresent is false the general profile is copied from prev, which
// may be nil.
func parsePTL(r *bitio.FieldReader, profilePresent bool, maxSubLayersMinus1 int, prev *ProfileTierLevel) ProfileTierLevel {
	var p ProfileTierLevel
	if profilePresent {
		p.ProfileSpace = r.ReadInt(2)
		p.Tier = r.ReadInt(1)
		p.ProfileIDC = r.ReadInt(5)
		p.CompatibilityFlags = uint32(r.ReadBits(32))
		for i := range p.ConstraintFlags {
			p.ConstraintFlags[i] = byte(r.ReadBits(8))
		}
	} else if prev != nil {
		p = *prev
	}
	p.LevelIDC = r.ReadInt(8)

	var profilePresents, levelPresents [8]bool
	for i := 0; i < maxSubLayersMinus1; i++ {
		profilePresents[i] = r.ReadFlag()
		levelPresents[i] = r.ReadFlag()
	}
	if maxSubLayersMinus1 > 0 {
		r.Skip(2 * (8 - maxSubLayersMinus1)) // reserved_zero_2bits
	}
	for i := 0; i < maxSubLayersMinus1; i++ {
		if profilePresents[i] {
			r.Skip(88)
		}
		if levelPresents[i] {
			r.Skip(8) // sub_layer_level_idc
		}
	}
	return p
}

// CodecString returns the RFC 6381 codecs parameter for the profile, for
// example hvc1.1.6.L93.B0.
func (p *ProfileTierLevel) CodecString() string {
	var b strings.Builder
	b.WriteString("hvc1.")
	if p.ProfileSpace > 0 {
		b.WriteByte(byte('A' + p.ProfileSpace - 1))
	}
	fmt.Fprintf(&b, "%d.%X.", p.ProfileIDC, bits.Reverse32(p.CompatibilityFlags))
	if p.Tier == 1 {
		b.WriteByte('H')
	} else {
		b.WriteByte('L')
	}
	fmt.Fprintf(&b, "%d", p.LevelIDC)

	n := len(p.ConstraintFlags)
	for n > 0 && p.ConstraintFlags[n-1] == 0 {
		n--
	}
	for _, c := range p.ConstraintFlags[:n] {
		fmt.Fprintf(&b, ".%X", c)
	}
	return b.String()
}
