// Package devicemgr builds and supervises the full set of device façades
// described by a project configuration, following a DevManager-style
// fan-out: one runner per configured device, started and stopped together.
package devicemgr

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fieldcollector/internal/block"
	"fieldcollector/internal/bus"
	"fieldcollector/internal/catalog"
	"fieldcollector/internal/config"
	"fieldcollector/internal/datacenter"
	"fieldcollector/internal/dev/can"
	"fieldcollector/internal/dev/iec104"
	"fieldcollector/internal/dev/iec61850"
	"fieldcollector/internal/facade"
)

// Manager owns every constructed device façade and starts/stops them as a
// unit.
type Manager struct {
	center  *datacenter.Center
	devices []*facade.Device
}

// New builds a Manager from proj, constructing one façade per recognized
// device and skipping (with a warning) any device whose com type is
// reserved or unrecognized, or whose register file fails to load.
func New(proj *config.Project, center *datacenter.Center) *Manager {
	m := &Manager{center: center}
	for name, dev := range proj.Devices {
		d, err := m.buildDevice(name, dev)
		if err != nil {
			logrus.Errorf("devicemgr: skipping device %s: %v", name, err)
			continue
		}
		if d != nil {
			m.devices = append(m.devices, d)
		}
	}
	return m
}

func (m *Manager) buildDevice(id string, dev config.Device) (*facade.Device, error) {
	switch dev.Config.ComType {
	case config.ModbusTCP:
		return m.buildModbusDevice(id, dev, true)
	case config.ModbusRTU:
		return m.buildModbusDevice(id, dev, false)
	case config.CAN:
		_, err := can.New(id)
		return nil, err
	case config.IEC104:
		_, err := iec104.New(id)
		return nil, err
	case config.IEC61850:
		_, err := iec61850.New(id)
		return nil, err
	default:
		return nil, fmt.Errorf("unrecognized com type %q", dev.Config.ComType)
	}
}

func (m *Manager) buildModbusDevice(id string, dev config.Device, tcp bool) (*facade.Device, error) {
	var interval time.Duration
	var connect func() bus.Adapter

	if tcp {
		cfg, err := dev.Config.ToModbusTCP()
		if err != nil {
			return nil, err
		}
		interval = time.Duration(cfg.Interval) * time.Millisecond
		connect = func() bus.Adapter { return bus.NewTCP(cfg) }
	} else {
		cfg, err := dev.Config.ToModbusRTU()
		if err != nil {
			return nil, err
		}
		interval = time.Duration(cfg.Interval) * time.Millisecond
		connect = func() bus.Adapter { return bus.NewRTU(cfg) }
	}

	if dev.Config.RegisterFile == "" {
		return nil, fmt.Errorf("no register file configured")
	}
	cat, err := catalog.Load(dev.Config.RegisterFile)
	if err != nil {
		return nil, fmt.Errorf("load register file: %w", err)
	}

	blocks, err := block.Plan(cat.Defs())
	if err != nil {
		return nil, fmt.Errorf("plan blocks: %w", err)
	}

	return facade.New(id, connect, blocks, cat.NameIndex(), m.center, interval), nil
}

// AddDevice registers an already-constructed façade, e.g. one built by a
// test or by a caller bypassing config-driven discovery.
func (m *Manager) AddDevice(d *facade.Device) {
	m.devices = append(m.devices, d)
}

// StartAll initializes and starts every device, logging (but not
// returning) per-device errors so one bad device doesn't block the rest.
func (m *Manager) StartAll(ctx context.Context) {
	for _, d := range m.devices {
		if err := d.Init(); err != nil {
			logrus.Errorf("devicemgr: init %s: %v", d.ID(), err)
			continue
		}
		if err := d.Start(ctx); err != nil {
			logrus.Errorf("devicemgr: start %s: %v", d.ID(), err)
		}
	}
}

// StopAll stops every device, waiting (per device) for its own grace
// period.
func (m *Manager) StopAll() {
	for _, d := range m.devices {
		if err := d.Stop(); err != nil {
			logrus.Errorf("devicemgr: stop %s: %v", d.ID(), err)
		}
	}
}

// Devices returns every constructed façade, for diagnostics/export.
func (m *Manager) Devices() []*facade.Device { return m.devices }
