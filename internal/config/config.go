// Package config loads the top-level project document describing every
// device the collector should manage: BOM/whitespace-stripped JSON plus
// per-protocol field validation.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
)

// Device-configuration error kinds (MissingField, InvalidIp) for the
// project-config validation that turns a raw DeviceConfig into a
// protocol-specific config. ToModbusTCP/ToModbusRTU wrap one of these with
// %w so callers can branch with errors.Is instead of matching the message.
var (
	ErrMissingField = errors.New("config: missing required field")
	ErrInvalidIP    = errors.New("config: invalid ip address")
)

// ComType names the wire protocol a device speaks.
type ComType string

const (
	ModbusTCP ComType = "ModbusTCP"
	ModbusRTU ComType = "ModbusRTU"
	CAN       ComType = "CAN"
	IEC104    ComType = "IEC104"
	IEC61850  ComType = "IEC61850"
)

// DeviceConfig is the raw, protocol-agnostic device configuration as read
// from JSON. Not every field applies to every ComType; validation happens
// in ToModbusTCP/ToModbusRTU.
type DeviceConfig struct {
	DeviceType   string  `json:"type"`
	ComType      ComType `json:"comType"`
	RegisterFile string  `json:"registerFile"`
	Interval     *uint64 `json:"interval"`
	Timeout      *uint64 `json:"timeout"`
	IP           *string `json:"ip"`
	Port         *uint16 `json:"port"`
	Slave        *uint8  `json:"slave"`
	SerialTTY    *string `json:"serialTty"`
	BaudRate     *uint32 `json:"baudRate"`
	DataBits     *uint8  `json:"dataBits"`
	Parity       *string `json:"parity"`
	StopBits     *uint8  `json:"stopBits"`
	Interface    *string `json:"interface"`
	Desc         string  `json:"desc"`
}

// Device is one entry in Project.Devices.
type Device struct {
	ID     string       `json:"id"`
	Desc   string       `json:"desc"`
	Config DeviceConfig `json:"config"`
}

// Project is the root JSON document: product metadata plus the device map.
type Project struct {
	ProductType string            `json:"productType"`
	Project     string            `json:"project"`
	IP          string            `json:"ip"`
	Port        uint16            `json:"port"`
	Devices     map[string]Device `json:"devices"`
}

// Load reads path, strips a leading UTF-8 BOM and leading whitespace, and
// decodes the JSON project document.
func Load(path string) (*Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	raw = bytes.TrimLeft(raw, " \t\r\n")

	var p Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &p, nil
}

// ModbusTCPConfig is the validated, protocol-specific configuration for a
// ModbusTCP device.
type ModbusTCPConfig struct {
	Slave    uint8
	IP       string
	Port     uint16
	Interval uint64
	Timeout  uint64
}

// ModbusRTUConfig is the validated, protocol-specific configuration for a
// ModbusRTU device.
type ModbusRTUConfig struct {
	Slave     uint8
	SerialTTY string
	BaudRate  uint32
	DataBits  uint8
	Parity    string
	StopBits  uint8
	Interval  uint64
	Timeout   uint64
}

// ToModbusTCP validates and narrows a DeviceConfig into a ModbusTCPConfig,
// requiring slave/ip/port/interval/timeout and a parseable IP address.
func (d DeviceConfig) ToModbusTCP() (ModbusTCPConfig, error) {
	switch {
	case d.Slave == nil:
		return ModbusTCPConfig{}, fmt.Errorf("%w: slave address", ErrMissingField)
	case d.IP == nil:
		return ModbusTCPConfig{}, fmt.Errorf("%w: ip", ErrMissingField)
	case d.Port == nil:
		return ModbusTCPConfig{}, fmt.Errorf("%w: port", ErrMissingField)
	case d.Interval == nil:
		return ModbusTCPConfig{}, fmt.Errorf("%w: interval", ErrMissingField)
	case d.Timeout == nil:
		return ModbusTCPConfig{}, fmt.Errorf("%w: timeout", ErrMissingField)
	}
	if net.ParseIP(*d.IP) == nil {
		return ModbusTCPConfig{}, fmt.Errorf("%w: %s", ErrInvalidIP, *d.IP)
	}
	return ModbusTCPConfig{
		Slave:    *d.Slave,
		IP:       *d.IP,
		Port:     *d.Port,
		Interval: *d.Interval,
		Timeout:  *d.Timeout,
	}, nil
}

// ToModbusRTU validates and narrows a DeviceConfig into a ModbusRTUConfig.
func (d DeviceConfig) ToModbusRTU() (ModbusRTUConfig, error) {
	switch {
	case d.Slave == nil:
		return ModbusRTUConfig{}, fmt.Errorf("%w: slave address", ErrMissingField)
	case d.SerialTTY == nil:
		return ModbusRTUConfig{}, fmt.Errorf("%w: serial tty", ErrMissingField)
	case d.BaudRate == nil:
		return ModbusRTUConfig{}, fmt.Errorf("%w: baud rate", ErrMissingField)
	case d.DataBits == nil:
		return ModbusRTUConfig{}, fmt.Errorf("%w: data bits", ErrMissingField)
	case d.Parity == nil:
		return ModbusRTUConfig{}, fmt.Errorf("%w: parity", ErrMissingField)
	case d.StopBits == nil:
		return ModbusRTUConfig{}, fmt.Errorf("%w: stop bits", ErrMissingField)
	case d.Interval == nil:
		return ModbusRTUConfig{}, fmt.Errorf("%w: interval", ErrMissingField)
	case d.Timeout == nil:
		return ModbusRTUConfig{}, fmt.Errorf("%w: timeout", ErrMissingField)
	}
	return ModbusRTUConfig{
		Slave:     *d.Slave,
		SerialTTY: *d.SerialTTY,
		BaudRate:  *d.BaudRate,
		DataBits:  *d.DataBits,
		Parity:    *d.Parity,
		StopBits:  *d.StopBits,
		Interval:  *d.Interval,
		Timeout:   *d.Timeout,
	}, nil
}
