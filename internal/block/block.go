// Package block turns a flat point catalog into a minimal set of contiguous
// register reads per register class, grouping points so the bus adapter
// issues one read per contiguous run instead of one per point.
package block

import (
	"fmt"
	"sort"

	"fieldcollector/internal/point"
)

// maxLenBits is the largest span (in bits) a single Coils/DiscreteInputs
// block may cover.
const maxLenBits = 2000

// maxLenRegisters is the largest span (in 16-bit registers) a single
// HoldingRegisters/InputRegisters block may cover.
const maxLenRegisters = 120

// Region is one point's placement within a Block's register span.
type Region struct {
	Def    point.Def
	Offset uint16
	Width  uint16
}

// Block is a single contiguous read request covering one or more points of
// the same register class.
type Block struct {
	RegisterType point.RegisterType
	Start        uint16
	Len          uint16
	Regions      []Region
}

// OverlapError is returned when two points of the same register class
// claim conflicting addresses; the whole plan fails, since partial
// planning around bad data would silently under-read the device.
type OverlapError struct {
	RegisterType point.RegisterType
	BlockStart   uint16
	BlockEnd     uint16
	NextStart    uint16
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("block: overlap detected: register_type=%s, block=[%d..%d), next_start=%d",
		e.RegisterType, e.BlockStart, e.BlockEnd, e.NextStart)
}

// OverflowError is returned when a point's register span runs past the
// 16-bit address space, e.g. a 2-register point at address 0xFFFF whose
// second word would fall at 0x10000. Rejected at plan time rather than
// silently wrapped.
type OverflowError struct {
	RegisterType point.RegisterType
	Def          point.Def
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("block: point %q at address %d (width %d) overflows the 16-bit address space",
		e.Def.Name, e.Def.Address, width(e.Def))
}

func maxLenFor(rt point.RegisterType) uint16 {
	if rt.IsBitClass() {
		return maxLenBits
	}
	return maxLenRegisters
}

// Plan groups defs by register type, sorts each group by address, and
// sweeps left to right merging contiguous runs into blocks. A gap between
// two points always starts a new block (gaps are never bridged). Points
// that claim overlapping addresses within the same register class fail the
// whole plan with an OverlapError naming the first offending pair.
func Plan(defs []point.Def) ([]Block, error) {
	groups := make(map[point.RegisterType][]point.Def)
	for _, d := range defs {
		groups[d.RegisterType] = append(groups[d.RegisterType], d)
	}

	var types []point.RegisterType
	for rt := range groups {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var blocks []Block
	for _, rt := range types {
		pts := groups[rt]
		sort.Slice(pts, func(i, j int) bool { return pts[i].Address < pts[j].Address })

		maxLen := maxLenFor(rt)

		i := 0
		for i < len(pts) {
			first := pts[i]
			// start/endExcl are tracked as uint32 so a span that runs past
			// the 16-bit address space (end_excl == 0x10000) is detected
			// instead of silently wrapping back to 0.
			start := uint32(first.Address)
			firstW := uint32(width(first))
			endExcl := start + firstW
			if endExcl > 0x10000 {
				return nil, &OverflowError{RegisterType: rt, Def: first}
			}

			regions := []Region{{Def: first, Offset: 0, Width: uint16(firstW)}}
			i++

			for i < len(pts) {
				next := pts[i]
				nextStart := uint32(next.Address)

				switch {
				case nextStart == endExcl:
					nextW := uint32(width(next))
					newEnd := endExcl + nextW
					if newEnd > 0x10000 {
						return nil, &OverflowError{RegisterType: rt, Def: next}
					}
					curLen := endExcl - start
					if curLen+nextW > uint32(maxLen) {
						goto closeBlock
					}
					regions = append(regions, Region{Def: next, Offset: uint16(nextStart - start), Width: uint16(nextW)})
					endExcl = newEnd
					i++
				case nextStart > endExcl:
					goto closeBlock
				default:
					return nil, &OverlapError{
						RegisterType: rt,
						BlockStart:   uint16(start),
						BlockEnd:     uint16(endExcl),
						NextStart:    uint16(nextStart),
					}
				}
			}
		closeBlock:
			blocks = append(blocks, Block{
				RegisterType: rt,
				Start:        uint16(start),
				Len:          uint16(endExcl - start),
				Regions:      regions,
			})
		}
	}

	return blocks, nil
}

func width(d point.Def) uint16 {
	if d.RegisterType.IsBitClass() {
		return 1
	}
	q := d.DataType.Quantity()
	if q == 0 {
		q = 1
	}
	return q
}
