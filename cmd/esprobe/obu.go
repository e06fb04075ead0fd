/*
DESCRIPTION
  obu.go provides reading of AV1 low overhead bitstream format files as
  temporal units.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"io"

	"github.com/ausocean/esparse/codec/av1"
	"github.com/ausocean/esparse/probe"
)

// temporalUnits splits a low overhead bitstream format stream into temporal
// units, each starting with a temporal delimiter OBU. OBUs before the first
// temporal delimiter form a unit of their own.
func temporalUnits(data []byte) ([][]byte, error) {
	obus, err := av1.Split(data)
	if err != nil {
		return nil, fmt.Errorf("could not split OBUs: %w", err)
	}

	var (
		units      [][]byte
		start, off int
	)
	for _, o := range obus {
		if o.Type == av1.OBUTypeTemporalDelimiter && off > start {
			units = append(units, data[start:off])
			start = off
		}
		off += len(o.Bytes)
	}
	if off > start {
		units = append(units, data[start:off])
	}
	return units, nil
}

// writeTemporalUnits reads all of src and writes each temporal unit to p as
// a sample.
func writeTemporalUnits(p *probe.Probe, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("could not read stream: %w", err)
	}
	units, err := temporalUnits(data)
	if err != nil {
		return err
	}
	w := p.Writer()
	for _, u := range units {
		_, err = w.Write(u)
		if err != nil {
			return err
		}
	}
	return nil
}
