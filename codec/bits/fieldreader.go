/*
DESCRIPTION
  fieldreader.go provides a FieldReader for decoding syntax elements with a
  sticky error, so that a long run of reads can be checked once.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bits

import (
	"github.com/pkg/errors"
)

// FieldReader provides methods for reading flag and integer fields from a
// BitReader with a sticky error that may be checked after a series of
// parsing read calls. Once an error has occurred, all further reads return
// zero values and do not move the reader.
type FieldReader struct {
	e  error
	br *BitReader
}

// NewFieldReader returns a new FieldReader reading from br.
func NewFieldReader(br *BitReader) *FieldReader {
	return &FieldReader{br: br}
}

// BitReader returns the underlying BitReader.
func (r *FieldReader) BitReader() *BitReader { return r.br }

// ReadBits reads n bits and returns them as a uint64.
func (r *FieldReader) ReadBits(n int) uint64 {
	if r.e != nil {
		return 0
	}
	v, err := r.br.ReadBits(n)
	r.fail(err)
	return v
}

// ReadInt reads n bits and returns them as an int.
func (r *FieldReader) ReadInt(n int) int {
	return int(r.ReadBits(n))
}

// ReadFlag reads a single bit and returns true if it is set.
func (r *FieldReader) ReadFlag() bool {
	if r.e != nil {
		return false
	}
	b, err := r.br.ReadBit()
	r.fail(err)
	return b
}

// ReadUE reads a ue(v) syntax element.
func (r *FieldReader) ReadUE() int {
	if r.e != nil {
		return 0
	}
	v, err := r.br.ReadUE()
	r.fail(err)
	return int(v)
}

// ReadSE reads a se(v) syntax element.
func (r *FieldReader) ReadSE() int {
	if r.e != nil {
		return 0
	}
	v, err := r.br.ReadSE()
	r.fail(err)
	return int(v)
}

// Skip skips n bits.
func (r *FieldReader) Skip(n int) {
	if r.e != nil {
		return
	}
	r.fail(r.br.SkipBits(n))
}

// SkipUE skips n ue(v) or se(v) syntax elements.
func (r *FieldReader) SkipUE(n int) {
	for i := 0; i < n && r.e == nil; i++ {
		r.ReadUE()
	}
}

// ByteAlign moves to the next byte boundary.
func (r *FieldReader) ByteAlign() {
	if r.e != nil {
		return
	}
	r.br.ByteAlign()
}

// Err returns the first error encountered, if any.
func (r *FieldReader) Err() error {
	return r.e
}

func (r *FieldReader) fail(err error) {
	if err != nil {
		r.e = errors.Wrapf(err, "at bit %d", r.br.Position())
	}
}
