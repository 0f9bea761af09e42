// Package iec104 is a reserved stub: IEC 60870-5-104 devices are recognized
// but not yet driven by this collector's core.
package iec104

import "errors"

// ErrReserved is returned by New; IEC104 devices are recognized by the
// device manager but never constructed.
var ErrReserved = errors.New("iec104: protocol reserved, not implemented")

// New always fails with ErrReserved.
func New(id string) (any, error) {
	return nil, ErrReserved
}
