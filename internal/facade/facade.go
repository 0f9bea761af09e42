// Package facade wraps a Runner with the init/start/stop/state lifecycle
// contract every device exposes to the device manager, grounded on the
// original collector's ModbusDev (device.rs).
package facade

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fieldcollector/internal/block"
	"fieldcollector/internal/datacenter"
	"fieldcollector/internal/lifecycle"
	"fieldcollector/internal/point"
	"fieldcollector/internal/runner"
)

// downlinkCapacity is the bounded size of each device's downlink channel.
const downlinkCapacity = 16

// stopGrace is how long Stop waits for the runner goroutine to exit before
// abandoning it.
const stopGrace = 3 * time.Second

// Device wraps a single runner behind the shared lifecycle contract.
type Device struct {
	id       string
	center   *datacenter.Center
	connect  runner.Connector
	blocks   []block.Block
	byName   map[string]point.Def
	interval time.Duration
	state    *lifecycle.Cell

	mu       sync.Mutex
	downlink <-chan []datacenter.Entry
	stopCh   chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
}

// New constructs a Device in the New state. It does not start polling.
func New(id string, connect runner.Connector, blocks []block.Block, byName map[string]point.Def, center *datacenter.Center, interval time.Duration) *Device {
	return &Device{
		id:       id,
		center:   center,
		connect:  connect,
		blocks:   blocks,
		byName:   byName,
		interval: interval,
		state:    lifecycle.NewCell(id),
	}
}

// ID implements the identity half of the device-manager contract.
func (d *Device) ID() string { return d.id }

// State returns the device's current lifecycle state.
func (d *Device) State() lifecycle.State { return d.state.Load() }

// Init registers the device's downlink channel with the data center and
// moves it to Ready. It is idempotent: calling it again once past New is a
// silent no-op.
func (d *Device) Init() error {
	if !d.state.CAS(lifecycle.New, lifecycle.Initializing) {
		return nil
	}
	if err := d.attach(); err != nil {
		d.state.Store(lifecycle.Failed)
		return err
	}
	d.state.Store(lifecycle.Ready)
	return nil
}

// attach registers (or re-registers, tolerating a prior registration left
// over from an unclean stop) the device's downlink channel.
func (d *Device) attach() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, err := d.center.Attach(d.id, downlinkCapacity)
	if err != nil {
		if err == datacenter.ErrAlreadyRegistered {
			return nil
		}
		return err
	}
	d.downlink = ch
	return nil
}

// Start spawns the runner goroutine. Legal from Ready or Stopped; any
// previous runner goroutine is asked to stop first.
func (d *Device) Start(ctx context.Context) error {
	if !d.state.CAS(lifecycle.Ready, lifecycle.Starting) && !d.state.CAS(lifecycle.Stopped, lifecycle.Starting) {
		return nil
	}
	if err := d.attach(); err != nil {
		d.state.Store(lifecycle.Failed)
		return err
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})
	done := make(chan struct{})
	downlink := d.downlink
	d.cancel = cancel
	d.stopCh = stopCh
	d.done = done
	d.mu.Unlock()

	r := runner.NewRunner(d.id, d.connect, d.blocks, d.byName, d.center, d.interval, d.state)

	go func() {
		defer close(done)
		r.Run(runCtx, stopCh, downlink)
	}()

	return nil
}

// Stop signals the runner goroutine to exit and waits up to stopGrace for
// it to do so, after which it gives up waiting and cancels the runner's
// context directly.
func (d *Device) Stop() error {
	d.mu.Lock()
	stopCh := d.stopCh
	done := d.done
	cancel := d.cancel
	d.mu.Unlock()

	if stopCh != nil {
		select {
		case <-stopCh:
		default:
			close(stopCh)
		}
	}

	switch d.state.Load() {
	case lifecycle.Stopped:
		return nil
	case lifecycle.New, lifecycle.Ready:
		d.state.Store(lifecycle.Stopped)
		d.center.Detach(d.id)
		return nil
	case lifecycle.Stopping:
		// another Stop call is already in flight; fall through to wait.
	default:
		d.state.CAS(d.state.Load(), lifecycle.Stopping)
	}

	d.center.Detach(d.id)

	if done == nil {
		d.state.Store(lifecycle.Stopped)
		return nil
	}

	select {
	case <-done:
	case <-time.After(stopGrace):
		logrus.Warnf("[%s] stop timed out after %s, abandoning runner goroutine", d.id, stopGrace)
		if cancel != nil {
			cancel()
		}
	}
	d.state.Store(lifecycle.Stopped)
	return nil
}
