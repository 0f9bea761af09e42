// Package codec decodes raw Modbus register bytes into typed point.Val
// values and encodes point.Val values back into register words for writes,
// applying byte-order and scale/offset rules.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"fieldcollector/internal/point"
)

// narrowEpsilon is the fractional tolerance below which a scaled floating
// point reading is considered an exact integer and narrowed to U32/I32.
const narrowEpsilon = 1e-6

// DecodeBool converts a single coil/discrete-input bit (as returned by the
// bus adapter's ReadCoils/ReadDiscreteInputs) into a Val.
func DecodeBool(bit bool) point.Val {
	return point.Val{Kind: point.Bool, B: bit}
}

// Decode converts raw big-endian register bytes for a single point into a
// scaled point.Val, applying the point's byte order and scale/offset.
//
// data must contain exactly 2 bytes for U16/I16 and 4 bytes for U32/I32.
func Decode(def point.Def, data []byte) (point.Val, error) {
	switch def.DataType {
	case point.U16:
		if len(data) < 2 {
			return point.Val{}, fmt.Errorf("codec: need 2 bytes for u16, got %d", len(data))
		}
		raw := u16WithOrder(data[:2], def.ByteOrder)
		return applyScaleU16(raw, def.Scale, def.Offset), nil
	case point.I16:
		if len(data) < 2 {
			return point.Val{}, fmt.Errorf("codec: need 2 bytes for i16, got %d", len(data))
		}
		raw := int16(u16WithOrder(data[:2], def.ByteOrder))
		return applyScaleI16(raw, def.Scale, def.Offset), nil
	case point.U32:
		if len(data) < 4 {
			return point.Val{}, fmt.Errorf("codec: need 4 bytes for u32, got %d", len(data))
		}
		raw := u32WithOrder(data[:4], def.ByteOrder)
		return applyScaleU32(raw, def.Scale, def.Offset), nil
	case point.I32:
		if len(data) < 4 {
			return point.Val{}, fmt.Errorf("codec: need 4 bytes for i32, got %d", len(data))
		}
		raw := int32(u32WithOrder(data[:4], def.ByteOrder))
		return applyScaleI32(raw, def.Scale, def.Offset), nil
	default:
		return point.Val{}, fmt.Errorf("codec: unsupported data type %s", def.DataType)
	}
}

// u16WithOrder applies the BA byte-swap when requested; AB (and any other
// order) is passed through as plain big-endian.
func u16WithOrder(b []byte, order point.ByteOrder) uint16 {
	if order == point.BA {
		return binary.BigEndian.Uint16([]byte{b[1], b[0]})
	}
	return binary.BigEndian.Uint16(b)
}

// u32WithOrder applies the CDAB word-swap when requested; ABCD (and any
// other order) is passed through as plain big-endian.
func u32WithOrder(b []byte, order point.ByteOrder) uint32 {
	if order == point.CDAB {
		return binary.BigEndian.Uint32([]byte{b[2], b[3], b[0], b[1]})
	}
	return binary.BigEndian.Uint32(b)
}

func applyScaleOffset(v float64, scale, offset float64) float64 {
	return v*scale + offset
}

// toValNumeric narrows a scaled floating-point reading to an integer Val
// when it is within narrowEpsilon of an integer, otherwise returns F32. The
// U32-vs-I32 choice is decided purely by the sign of the scaled result y,
// not by the signedness of the raw register value, mirroring the original
// decoder's to_val_numeric rule exactly (a negative scale/offset can send
// an unsigned raw reading negative, and vice versa).
func toValNumeric(y float64) point.Val {
	r := math.Round(y)
	if math.Abs(y-r) < narrowEpsilon {
		if y >= 0 {
			return point.Val{Kind: point.U32, U32: uint32(r)}
		}
		return point.Val{Kind: point.I32, I32: int32(r)}
	}
	return point.Val{Kind: point.F32, F32: float32(y)}
}

func applyScaleU16(raw uint16, scale, offset float64) point.Val {
	y := applyScaleOffset(float64(raw), scale, offset)
	return toValNumeric(y)
}

func applyScaleI16(raw int16, scale, offset float64) point.Val {
	y := applyScaleOffset(float64(raw), scale, offset)
	return toValNumeric(y)
}

func applyScaleU32(raw uint32, scale, offset float64) point.Val {
	y := applyScaleOffset(float64(raw), scale, offset)
	return toValNumeric(y)
}

func applyScaleI32(raw int32, scale, offset float64) point.Val {
	y := applyScaleOffset(float64(raw), scale, offset)
	return toValNumeric(y)
}

// EncodeRegisters converts a write value into the register words to send
// for def, honoring byte order. Used by the write planner.
func EncodeRegisters(def point.Def, v float64) ([]uint16, error) {
	raw := (v - def.Offset)
	if def.Scale == 0 {
		return nil, fmt.Errorf("codec: scale is zero for point %s", def.Name)
	}
	raw /= def.Scale

	switch def.DataType {
	case point.U16:
		u, err := toU16(raw)
		if err != nil {
			return nil, err
		}
		return []uint16{withOrder16(u, def.ByteOrder)}, nil
	case point.I16:
		i, err := toI16(raw)
		if err != nil {
			return nil, err
		}
		return []uint16{withOrder16(uint16(i), def.ByteOrder)}, nil
	case point.U32:
		u, err := toU32(raw)
		if err != nil {
			return nil, err
		}
		return encodeU32(u, def.ByteOrder), nil
	case point.I32:
		i, err := toI32(raw)
		if err != nil {
			return nil, err
		}
		return encodeU32(uint32(i), def.ByteOrder), nil
	default:
		return nil, fmt.Errorf("codec: unsupported data type %s for write", def.DataType)
	}
}

func withOrder16(u uint16, order point.ByteOrder) uint16 {
	if order == point.BA {
		return (u >> 8) | (u << 8)
	}
	return u
}

// encodeU32 returns the two register words for a 32-bit value, in the
// order the device expects (high word first for ABCD, low word first for
// CDAB).
func encodeU32(u uint32, order point.ByteOrder) []uint16 {
	hi := uint16(u >> 16)
	lo := uint16(u)
	if order == point.CDAB {
		return []uint16{lo, hi}
	}
	return []uint16{hi, lo}
}

func toU16(v float64) (uint16, error) {
	r := math.Round(v)
	if r < 0 || r > math.MaxUint16 {
		return 0, fmt.Errorf("codec: value %v out of range for u16", v)
	}
	return uint16(r), nil
}

func toI16(v float64) (int16, error) {
	r := math.Round(v)
	if r < math.MinInt16 || r > math.MaxInt16 {
		return 0, fmt.Errorf("codec: value %v out of range for i16", v)
	}
	return int16(r), nil
}

func toU32(v float64) (uint32, error) {
	r := math.Round(v)
	if r < 0 || r > math.MaxUint32 {
		return 0, fmt.Errorf("codec: value %v out of range for u32", v)
	}
	return uint32(r), nil
}

func toI32(v float64) (int32, error) {
	r := math.Round(v)
	if r < math.MinInt32 || r > math.MaxInt32 {
		return 0, fmt.Errorf("codec: value %v out of range for i32", v)
	}
	return int32(r), nil
}
