// Package writeplan turns a batch of downlink entries into the minimal set
// of Modbus write requests needed to apply them, grounded on the original
// collector's WritePlan::build/apply_write_plan.
package writeplan

import (
	"sort"

	"github.com/sirupsen/logrus"

	"fieldcollector/internal/codec"
	"fieldcollector/internal/datacenter"
	"fieldcollector/internal/point"
)

// CoilWrite is a contiguous run of coil writes starting at Start.
type CoilWrite struct {
	Start  uint16
	Values []bool
}

// RegisterWrite is a contiguous run of holding-register writes starting at
// Start.
type RegisterWrite struct {
	Start  uint16
	Values []uint16
}

// Plan is the minimal set of write requests covering a batch of entries.
type Plan struct {
	Coils    []CoilWrite
	Holding  []RegisterWrite
}

// Build resolves each entry against the catalog (indexed by point name),
// rejects entries for read-only register classes or unknown names (logging
// a warning and skipping them), and merges same-address writes with
// last-write-wins semantics before coalescing contiguous runs.
func Build(devID string, entries []datacenter.Entry, byName map[string]point.Def) Plan {
	coils := make(map[uint16]bool)
	holding := make(map[uint16]uint16)

	for _, e := range entries {
		def, ok := byName[e.Key]
		if !ok {
			logrus.Warnf("[%s] no point definition found, dropping write: %s", devID, e.Key)
			continue
		}
		switch def.RegisterType {
		case point.Coils:
			coils[def.Address] = e.Value.Float64() != 0
		case point.HoldingRegisters:
			regs, err := codec.EncodeRegisters(def, e.Value.Float64())
			if err != nil {
				logrus.Warnf("[%s] %v, dropping write: %s", devID, err, def.Name)
				continue
			}
			for i, v := range regs {
				holding[def.Address+uint16(i)] = v
			}
		default:
			logrus.Warnf("[%s] register class %s is read-only, dropping write: %s", devID, def.RegisterType, def.Name)
		}
	}

	return Plan{
		Coils:   mergeBoolRuns(coils),
		Holding: mergeU16Runs(holding),
	}
}

func mergeBoolRuns(m map[uint16]bool) []CoilWrite {
	if len(m) == 0 {
		return nil
	}
	addrs := sortedKeys(m)
	var out []CoilWrite
	start := addrs[0]
	vals := []bool{m[start]}
	last := start
	for _, addr := range addrs[1:] {
		if addr == last+1 {
			vals = append(vals, m[addr])
			last = addr
			continue
		}
		out = append(out, CoilWrite{Start: start, Values: vals})
		start = addr
		vals = []bool{m[addr]}
		last = addr
	}
	out = append(out, CoilWrite{Start: start, Values: vals})
	return out
}

func mergeU16Runs(m map[uint16]uint16) []RegisterWrite {
	if len(m) == 0 {
		return nil
	}
	addrs := sortedKeysU16(m)
	var out []RegisterWrite
	start := addrs[0]
	vals := []uint16{m[start]}
	last := start
	for _, addr := range addrs[1:] {
		if addr == last+1 {
			vals = append(vals, m[addr])
			last = addr
			continue
		}
		out = append(out, RegisterWrite{Start: start, Values: vals})
		start = addr
		vals = []uint16{m[addr]}
		last = addr
	}
	out = append(out, RegisterWrite{Start: start, Values: vals})
	return out
}

func sortedKeys(m map[uint16]bool) []uint16 {
	out := make([]uint16, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeysU16(m map[uint16]uint16) []uint16 {
	out := make([]uint16, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
