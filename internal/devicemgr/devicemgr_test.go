package devicemgr

import (
	"testing"

	"fieldcollector/internal/config"
	"fieldcollector/internal/datacenter"
)

func TestNewSkipsReservedProtocols(t *testing.T) {
	t.Parallel()
	proj := &config.Project{
		Devices: map[string]config.Device{
			"can-1": {ID: "can-1", Config: config.DeviceConfig{ComType: config.CAN}},
		},
	}
	m := New(proj, datacenter.New())
	if len(m.Devices()) != 0 {
		t.Fatalf("expected reserved protocol to be skipped, got %d devices", len(m.Devices()))
	}
}

func TestNewSkipsDeviceMissingRequiredFields(t *testing.T) {
	t.Parallel()
	proj := &config.Project{
		Devices: map[string]config.Device{
			"tcp-1": {ID: "tcp-1", Config: config.DeviceConfig{ComType: config.ModbusTCP}},
		},
	}
	m := New(proj, datacenter.New())
	if len(m.Devices()) != 0 {
		t.Fatalf("expected device with missing fields to be skipped, got %d devices", len(m.Devices()))
	}
}
