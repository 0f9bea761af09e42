// Package iec61850 is a reserved stub: IEC 61850 devices are recognized but
// not yet driven by this collector's core.
package iec61850

import "errors"

// ErrReserved is returned by New; IEC61850 devices are recognized by the
// device manager but never constructed.
var ErrReserved = errors.New("iec61850: protocol reserved, not implemented")

// New always fails with ErrReserved.
func New(id string) (any, error) {
	return nil, ErrReserved
}
