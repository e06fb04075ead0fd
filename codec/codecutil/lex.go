/*
NAME
  lex.go

DESCRIPTION
  lex.go provides a ByteLexer for feeding a source to a writer in fixed size
  chunks.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ByteLexer is used to lex bytes using a buffer size which is configured upon construction.
type ByteLexer struct {
	bufSize int
}

// NewByteLexer returns a pointer to a ByteLexer with the given buffer size.
func NewByteLexer(s int) (*ByteLexer, error) {
	if s <= 0 {
		return nil, fmt.Errorf("invalid buffer size: %v", s)
	}
	return &ByteLexer{bufSize: s}, nil
}

// Lex reads up to l.bufSize bytes at a time from src and writes them to dst
// until src is exhausted or ctx is cancelled. Chunk boundaries carry no
// meaning, so dst must handle units that span writes. Lex returns nil once
// src returns io.EOF.
func (l *ByteLexer) Lex(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, l.bufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(buf)
		if n > 0 {
			_, werr := dst.Write(buf[:n])
			if werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read source: %w", err)
		}
	}
}
