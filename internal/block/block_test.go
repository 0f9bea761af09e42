package block

import (
	"errors"
	"testing"

	"fieldcollector/internal/point"
)

func def(rt point.RegisterType, addr uint16, dt point.DataType) point.Def {
	return point.Def{ID: 1, Name: "p", DataType: dt, RegisterType: rt, Address: addr, Scale: 1}
}

func TestPlanOverlapReturnsError(t *testing.T) {
	t.Parallel()
	a := def(point.HoldingRegisters, 10, point.U32) // [10,12)
	b := def(point.HoldingRegisters, 11, point.U16) // overlap
	_, err := Plan([]point.Def{a, b})
	var oe *OverlapError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if oe.BlockStart != 10 || oe.BlockEnd != 12 || oe.NextStart != 11 {
		t.Fatalf("unexpected overlap fields: %+v", oe)
	}
}

func TestPlanGapSplitsBlock(t *testing.T) {
	t.Parallel()
	a := def(point.InputRegisters, 0, point.U16)
	b := def(point.InputRegisters, 2, point.U16) // gap at 1
	blocks, err := Plan([]point.Def{a, b})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Start != 0 || blocks[0].Len != 1 {
		t.Fatalf("unexpected block 0: %+v", blocks[0])
	}
	if blocks[1].Start != 2 || blocks[1].Len != 1 {
		t.Fatalf("unexpected block 1: %+v", blocks[1])
	}
}

func TestPlanSplitsOnMaxLen(t *testing.T) {
	t.Parallel()
	var defs []point.Def
	for addr := uint16(0); addr <= 120; addr++ {
		defs = append(defs, def(point.HoldingRegisters, addr, point.U16))
	}
	blocks, err := Plan(defs)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Start != 0 || blocks[0].Len != 120 {
		t.Fatalf("unexpected block 0: %+v", blocks[0])
	}
	if blocks[1].Start != 120 || blocks[1].Len != 1 {
		t.Fatalf("unexpected block 1: %+v", blocks[1])
	}
}

func TestPlanRejectsAddressOverflow(t *testing.T) {
	t.Parallel()
	// A 2-register point at 0xFFFF would need its second word at 0x10000,
	// past the 16-bit address space; must be rejected, not wrapped.
	a := def(point.HoldingRegisters, 0xFFFF, point.U32)
	_, err := Plan([]point.Def{a})
	var oe *OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
}

func TestPlanAcceptsLastValidAddress(t *testing.T) {
	t.Parallel()
	// A single-register point at the very top of the address space is
	// exactly at the boundary and must be accepted.
	a := def(point.HoldingRegisters, 0xFFFF, point.U16)
	blocks, err := Plan([]point.Def{a})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Start != 0xFFFF || blocks[0].Len != 1 {
		t.Fatalf("unexpected block: %+v", blocks)
	}
}

func TestPlanCoalescesContiguous(t *testing.T) {
	t.Parallel()
	defs := []point.Def{
		def(point.HoldingRegisters, 10, point.U16),
		def(point.HoldingRegisters, 11, point.U16),
		def(point.HoldingRegisters, 12, point.U16),
	}
	blocks, err := Plan(defs)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Start != 10 || blocks[0].Len != 3 || len(blocks[0].Regions) != 3 {
		t.Fatalf("unexpected block: %+v", blocks[0])
	}
}
