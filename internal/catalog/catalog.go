// Package catalog loads the point catalog from the tabular point sheet: an
// xlsx workbook with up to four worksheets, each a flat ten-column table
// of point definitions.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"fieldcollector/internal/point"
)

// sheetNames are the four worksheets the workbook may contain, read in
// this order: tele-signal, tele-control, tele-measure, tele-adjust.
var sheetNames = []string{"遥信", "遥控", "遥测", "遥调"}

// Row-validation error kinds (MissingField, InvalidRegisterType,
// InvalidDataType, InvalidByteOrder, IdOutOfRange) for this loader.
// buildRow wraps one of these with %w so callers can branch with
// errors.Is/errors.As instead of matching on the message; Load itself only
// logs and drops the row, since malformed rows are dropped with a warning
// rather than failing the whole workbook.
var (
	ErrMissingField        = errors.New("catalog: missing required field")
	ErrIDOutOfRange        = errors.New("catalog: id out of allowed range (0..2^24-1)")
	ErrInvalidDataType     = errors.New("catalog: invalid data type")
	ErrInvalidRegisterType = errors.New("catalog: invalid register type")
	// ErrInvalidByteOrder is logged, not returned: an unrecognized byte
	// order is treated as canonical big-endian, so it never fails the row.
	ErrInvalidByteOrder = errors.New("catalog: invalid byte order")
)

// maxID is the exclusive upper bound on a point id (ids run 0..maxID-1),
// reserving the high byte of the 32-bit id for the register-type tag in SerialNumber.
const maxID = 1 << 24

// Catalog is the immutable, indexed set of point definitions loaded from a
// workbook.
type Catalog struct {
	defs []point.Def

	once   sync.Once
	byName map[string]point.Def
}

// Load reads every present sheet in path and returns the combined point
// definitions. Malformed or duplicate-named rows are dropped with a
// warning rather than failing the whole load, matching the original
// collector's per-row error handling.
func Load(path string) (*Catalog, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer wb.Close()

	seen := make(map[string]bool)
	var defs []point.Def

	for _, sheet := range sheetNames {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			continue // sheet absent; not every workbook defines all four
		}
		for i, row := range rows {
			if i == 0 {
				continue // header row
			}
			def, err := buildRow(row)
			if err != nil {
				logrus.Warnf("catalog: failed to build row in sheet %s: %v", sheet, err)
				continue
			}
			if seen[def.Name] {
				logrus.Warnf("catalog: duplicate point name %q, keeping first definition", def.Name)
				continue
			}
			seen[def.Name] = true
			defs = append(defs, def)
		}
	}

	return &Catalog{defs: defs}, nil
}

// Defs returns every loaded point definition.
func (c *Catalog) Defs() []point.Def { return c.defs }

// ByName returns the point definition named name, if any. The name index
// is built lazily and cached since the catalog is immutable after Load.
func (c *Catalog) ByName(name string) (point.Def, bool) {
	c.once.Do(func() {
		c.byName = make(map[string]point.Def, len(c.defs))
		for _, d := range c.defs {
			c.byName[d.Name] = d
		}
	})
	d, ok := c.byName[name]
	return d, ok
}

// NameIndex returns the full name -> definition map, built lazily and
// cached like ByName.
func (c *Catalog) NameIndex() map[string]point.Def {
	c.once.Do(func() {
		c.byName = make(map[string]point.Def, len(c.defs))
		for _, d := range c.defs {
			c.byName[d.Name] = d
		}
	})
	return c.byName
}

func buildRow(row []string) (point.Def, error) {
	if len(row) != 10 {
		return point.Def{}, fmt.Errorf("row has %d columns, want 10", len(row))
	}

	id, err := strconv.ParseUint(strings.TrimSpace(row[0]), 10, 32)
	if err != nil {
		return point.Def{}, fmt.Errorf("%w: id: %v", ErrMissingField, err)
	}
	if id >= maxID {
		return point.Def{}, fmt.Errorf("%w: id %d", ErrIDOutOfRange, id)
	}

	name := strings.TrimSpace(row[1])
	if name == "" {
		return point.Def{}, fmt.Errorf("%w: point name", ErrMissingField)
	}

	dataType, err := parseDataType(row[2])
	if err != nil {
		return point.Def{}, err
	}

	unit := strings.TrimSpace(row[3])
	remarks := strings.TrimSpace(row[4])

	addr, err := strconv.ParseUint(strings.TrimSpace(row[5]), 10, 16)
	if err != nil {
		return point.Def{}, fmt.Errorf("%w: register address: %v", ErrMissingField, err)
	}

	registerType, err := parseRegisterType(row[6])
	if err != nil {
		return point.Def{}, err
	}

	byteOrder := parseByteOrderRow(name, row[7])

	scale, err := strconv.ParseFloat(strings.TrimSpace(row[8]), 64)
	if err != nil {
		return point.Def{}, fmt.Errorf("%w: scale: %v", ErrMissingField, err)
	}

	offset, err := strconv.ParseFloat(strings.TrimSpace(row[9]), 64)
	if err != nil {
		return point.Def{}, fmt.Errorf("%w: offset: %v", ErrMissingField, err)
	}

	return point.Def{
		ID:           uint32(id),
		Name:         name,
		DataType:     dataType,
		Unit:         unit,
		Remarks:      remarks,
		Address:      uint16(addr),
		RegisterType: registerType,
		ByteOrder:    byteOrder,
		Scale:        scale,
		Offset:       offset,
	}, nil
}

func parseDataType(s string) (point.DataType, error) {
	switch strings.TrimSpace(s) {
	case "bool", "Bool":
		return point.Bool, nil
	case "U16":
		return point.U16, nil
	case "I16":
		return point.I16, nil
	case "U32":
		return point.U32, nil
	case "I32":
		return point.I32, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDataType, s)
	}
}

func parseRegisterType(s string) (point.RegisterType, error) {
	switch strings.TrimSpace(s) {
	case "Coils":
		return point.Coils, nil
	case "DiscreteInputs":
		return point.DiscreteInputs, nil
	case "HoldingRegisters":
		return point.HoldingRegisters, nil
	case "InputRegisters":
		return point.InputRegisters, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRegisterType, s)
	}
}

// parseByteOrderRow resolves a catalog row's byte-order column, logging
// ErrInvalidByteOrder and falling back to canonical big-endian (AB) for any
// value outside {"", AB, BA, ABCD, CDAB} rather than failing the row.
func parseByteOrderRow(pointName, s string) point.ByteOrder {
	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "", "AB", "BA", "ABCD", "CDAB":
	default:
		logrus.Warnf("%v: point %q byte order %q, treating as canonical AB", ErrInvalidByteOrder, pointName, s)
	}
	return point.ParseByteOrder(trimmed)
}
