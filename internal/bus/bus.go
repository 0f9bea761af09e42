// Package bus adapts the block planner's read/write requests onto a real
// Modbus transport, following the newHandler/serial-port handling pattern
// of a TCP- and RTU-capable Modbus client built on goburrow/modbus.
package bus

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mb "github.com/goburrow/modbus"

	"fieldcollector/internal/config"
)

// Transport and protocol error kinds: transport errors (IpParse, Io,
// Timeout, Serial) and protocol errors (Exception, Framing), mirroring a
// ModbusDevError enum's IpParseError, IoError, Elapsed, SerialError,
// ModbusError, and ModbusException variants.
var (
	ErrIPParse = errors.New("bus: ip parse error")
	ErrIO      = errors.New("bus: io error")
	ErrTimeout = errors.New("bus: timeout")
	ErrSerial  = errors.New("bus: serial error")
	ErrFraming = errors.New("bus: framing/protocol error")
)

// ExceptionError wraps the exception code a slave returned in its response.
type ExceptionError struct {
	Code byte
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("bus: slave exception 0x%02x", e.Code)
}

// Error is the typed transport/protocol error surfaced by Adapter methods.
// Kind is one of the sentinels above or an *ExceptionError, and is reachable
// via errors.Is/errors.As through Unwrap so callers can branch on the kind
// without string-matching Error().
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err != e.Kind {
		return fmt.Sprintf("bus: %s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("bus: %s: %v", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Kind }

// framingMarkers are substrings goburrow/modbus's framing/CRC validation
// errors are known to contain (the library reports these as plain
// errors.New values, not a distinct type); matching them distinguishes a
// general protocol error from a per-function slave exception.
var framingMarkers = []string{"crc", "transaction id", "unexpected function code", "invalid"}

// classify wraps a raw error from the underlying goburrow/modbus client
// into the named Kind taxonomy: a slave exception, a timeout, a
// framing/protocol error, or (for serial transports) a serial-port error,
// falling back to a plain IO error.
func classify(op string, serial bool, err error) error {
	if err == nil {
		return nil
	}
	var modbusErr *mb.ModbusError
	if errors.As(err, &modbusErr) {
		return &Error{Op: op, Kind: &ExceptionError{Code: modbusErr.ExceptionCode}, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Op: op, Kind: ErrTimeout, Err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range framingMarkers {
		if strings.Contains(msg, marker) {
			return &Error{Op: op, Kind: ErrFraming, Err: err}
		}
	}
	if serial {
		return &Error{Op: op, Kind: ErrSerial, Err: err}
	}
	return &Error{Op: op, Kind: ErrIO, Err: err}
}

// ErrNotConnected is returned by read/write calls made before Connect.
var ErrNotConnected = errors.New("bus: not connected")

// Adapter is the minimal surface the device runner needs from a transport:
// connect, four read ops, four write ops, close. Both TCP and RTU backends
// implement it over github.com/goburrow/modbus.
type Adapter interface {
	Connect() error
	Close() error
	ReadCoils(address, quantity uint16) ([]byte, error)
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleCoil(address uint16, value bool) error
	WriteMultipleCoils(address uint16, values []bool) error
	WriteSingleRegister(address uint16, value uint16) error
	WriteMultipleRegisters(address uint16, values []uint16) error
}

type handlerWithConn interface {
	mb.ClientHandler
	Connect() error
	Close() error
}

type goburrowAdapter struct {
	handler handlerWithConn
	client  mb.Client
	serial  bool
	ip      string // non-empty for TCP; re-validated on every Connect attempt
}

func (a *goburrowAdapter) Connect() error {
	if a.ip != "" && net.ParseIP(a.ip) == nil {
		return &Error{Op: "connect", Kind: ErrIPParse, Err: fmt.Errorf("invalid ip address %q", a.ip)}
	}
	if err := a.handler.Connect(); err != nil {
		return classify("connect", a.serial, err)
	}
	a.client = mb.NewClient(a.handler)
	return nil
}

func (a *goburrowAdapter) Close() error { return a.handler.Close() }

func (a *goburrowAdapter) ReadCoils(address, quantity uint16) ([]byte, error) {
	if a.client == nil {
		return nil, ErrNotConnected
	}
	data, err := a.client.ReadCoils(address, quantity)
	if err != nil {
		return nil, classify("read_coils", a.serial, err)
	}
	return data, nil
}

func (a *goburrowAdapter) ReadDiscreteInputs(address, quantity uint16) ([]byte, error) {
	if a.client == nil {
		return nil, ErrNotConnected
	}
	data, err := a.client.ReadDiscreteInputs(address, quantity)
	if err != nil {
		return nil, classify("read_discrete_inputs", a.serial, err)
	}
	return data, nil
}

func (a *goburrowAdapter) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	if a.client == nil {
		return nil, ErrNotConnected
	}
	data, err := a.client.ReadHoldingRegisters(address, quantity)
	if err != nil {
		return nil, classify("read_holding_registers", a.serial, err)
	}
	return data, nil
}

func (a *goburrowAdapter) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	if a.client == nil {
		return nil, ErrNotConnected
	}
	data, err := a.client.ReadInputRegisters(address, quantity)
	if err != nil {
		return nil, classify("read_input_registers", a.serial, err)
	}
	return data, nil
}

func (a *goburrowAdapter) WriteSingleCoil(address uint16, value bool) error {
	if a.client == nil {
		return ErrNotConnected
	}
	v := uint16(0)
	if value {
		v = 0xFF00
	}
	if _, err := a.client.WriteSingleCoil(address, v); err != nil {
		return classify("write_single_coil", a.serial, err)
	}
	return nil
}

func (a *goburrowAdapter) WriteMultipleCoils(address uint16, values []bool) error {
	if a.client == nil {
		return ErrNotConnected
	}
	packed := packBits(values)
	if _, err := a.client.WriteMultipleCoils(address, uint16(len(values)), packed); err != nil {
		return classify("write_multiple_coils", a.serial, err)
	}
	return nil
}

func (a *goburrowAdapter) WriteSingleRegister(address uint16, value uint16) error {
	if a.client == nil {
		return ErrNotConnected
	}
	if _, err := a.client.WriteSingleRegister(address, value); err != nil {
		return classify("write_single_register", a.serial, err)
	}
	return nil
}

func (a *goburrowAdapter) WriteMultipleRegisters(address uint16, values []uint16) error {
	if a.client == nil {
		return ErrNotConnected
	}
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		buf[i*2] = byte(v >> 8)
		buf[i*2+1] = byte(v)
	}
	if _, err := a.client.WriteMultipleRegisters(address, uint16(len(values)), buf); err != nil {
		return classify("write_multiple_registers", a.serial, err)
	}
	return nil
}

func packBits(values []bool) []byte {
	out := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// NewTCP builds an Adapter talking Modbus TCP to host:port with slave
// address and timeout from cfg.
func NewTCP(cfg config.ModbusTCPConfig) Adapter {
	addr := fmt.Sprintf("%s:%d", cfg.IP, cfg.Port)
	h := mb.NewTCPClientHandler(addr)
	h.Timeout = time.Duration(cfg.Timeout) * time.Millisecond
	h.SlaveId = cfg.Slave
	return &goburrowAdapter{handler: h, ip: cfg.IP}
}

// NewRTU builds an Adapter talking Modbus RTU over a serial port described
// by cfg, filling in goburrow/serial defaults for any unset fields.
func NewRTU(cfg config.ModbusRTUConfig) Adapter {
	sc := toSerialConfig(SerialParams{
		Address:  cfg.SerialTTY,
		BaudRate: int(cfg.BaudRate),
		DataBits: int(cfg.DataBits),
		StopBits: int(cfg.StopBits),
		Parity:   cfg.Parity,
		Timeout:  time.Duration(cfg.Timeout) * time.Millisecond,
	})
	h := mb.NewRTUClientHandler(sc.Address)
	h.BaudRate = sc.BaudRate
	h.DataBits = sc.DataBits
	h.StopBits = sc.StopBits
	h.Parity = sc.Parity
	h.Timeout = sc.Timeout
	h.SlaveId = cfg.Slave
	return &goburrowAdapter{handler: h, serial: true}
}
