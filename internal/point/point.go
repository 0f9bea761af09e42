// Package point defines the shared value and point-definition types used by
// every stage of the collector pipeline, from catalog loading through the
// codec and into the data center.
package point

import "fmt"

// RegisterType identifies a Modbus register class.
type RegisterType uint8

const (
	Coils RegisterType = iota + 1
	DiscreteInputs
	HoldingRegisters
	InputRegisters
)

func (t RegisterType) String() string {
	switch t {
	case Coils:
		return "coils"
	case DiscreteInputs:
		return "discrete_inputs"
	case HoldingRegisters:
		return "holding_registers"
	case InputRegisters:
		return "input_registers"
	default:
		return "unknown"
	}
}

// IsBitClass reports whether the register class is bit-addressed (coils,
// discrete inputs) rather than word-addressed.
func (t RegisterType) IsBitClass() bool {
	return t == Coils || t == DiscreteInputs
}

// Writable reports whether points of this register class may be written.
func (t RegisterType) Writable() bool {
	return t == Coils || t == HoldingRegisters
}

// DataType identifies the on-wire numeric representation of a point.
type DataType uint8

const (
	Bool DataType = iota + 1
	U16
	I16
	U32
	I32
	// F32 is a value kind only: the codec produces it for scaled readings
	// that are not integral. Catalog rows never use it.
	F32
)

// Quantity returns the number of 16-bit registers a value of this type
// occupies (0 for Bool, which is bit-addressed).
func (t DataType) Quantity() uint16 {
	switch t {
	case U32, I32:
		return 2
	case U16, I16:
		return 1
	default:
		return 0
	}
}

func (t DataType) String() string {
	switch t {
	case Bool:
		return "bool"
	case U16:
		return "u16"
	case I16:
		return "i16"
	case U32:
		return "u32"
	case I32:
		return "i32"
	default:
		return "unknown"
	}
}

// ByteOrder identifies how multi-register values are packed on the wire.
type ByteOrder uint8

const (
	// AB is the default big-endian order for single-register values.
	AB ByteOrder = iota + 1
	// BA swaps the two bytes of a single register.
	BA
	// ABCD is the default big-endian word order for double-register values.
	ABCD
	// CDAB swaps the high and low register words (common on devices that
	// transmit the low word first).
	CDAB
)

// ParseByteOrder maps a catalog string to a ByteOrder, defaulting to the
// canonical big-endian order when the string is empty or unrecognized.
func ParseByteOrder(s string) ByteOrder {
	switch s {
	case "BA":
		return BA
	case "CDAB":
		return CDAB
	case "ABCD":
		return ABCD
	case "AB", "":
		return AB
	default:
		return AB
	}
}

// Val is a tagged-union value produced by the codec and stored in the data
// center. Exactly one field is meaningful, selected by Kind.
type Val struct {
	Kind DataType
	B    bool
	U16  uint16
	I16  int16
	U32  uint32
	I32  int32
	F32  float32
}

// Float64 returns the value widened to float64 regardless of Kind, useful
// for display and for write-planner range checks against a float input.
func (v Val) Float64() float64 {
	switch v.Kind {
	case Bool:
		if v.B {
			return 1
		}
		return 0
	case U16:
		return float64(v.U16)
	case I16:
		return float64(v.I16)
	case U32:
		return float64(v.U32)
	case I32:
		return float64(v.I32)
	default:
		return float64(v.F32)
	}
}

func (v Val) String() string {
	switch v.Kind {
	case Bool:
		return fmt.Sprintf("%v", v.B)
	case U16:
		return fmt.Sprintf("%d", v.U16)
	case I16:
		return fmt.Sprintf("%d", v.I16)
	case U32:
		return fmt.Sprintf("%d", v.U32)
	case I32:
		return fmt.Sprintf("%d", v.I32)
	default:
		return fmt.Sprintf("%g", v.F32)
	}
}

// Def is the definition of a single monitored or controlled point, as read
// from the point catalog.
type Def struct {
	ID           uint32
	Name         string
	DataType     DataType
	Unit         string
	Remarks      string
	Address      uint16
	RegisterType RegisterType
	ByteOrder    ByteOrder
	Scale        float64
	Offset       float64
}

// SerialNumber packs the register type into the high byte of the id, giving
// a value stable enough for diagnostics/export without affecting addressing.
func (d Def) SerialNumber() uint64 {
	return uint64(d.RegisterType)<<24 | uint64(d.ID)
}

// Span returns the half-open register span [Address, Address+qty) this
// point occupies, where qty is 1 for bit/16-bit types and 2 for 32-bit
// types.
func (d Def) Span() (start, end uint16) {
	qty := d.DataType.Quantity()
	if qty == 0 {
		qty = 1
	}
	return d.Address, d.Address + qty
}
