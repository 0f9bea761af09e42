package facade

import (
	"context"
	"testing"
	"time"

	"fieldcollector/internal/bus"
	"fieldcollector/internal/datacenter"
	"fieldcollector/internal/lifecycle"
	"fieldcollector/internal/point"
)

type blockingAdapter struct{ connectErr error }

func (a *blockingAdapter) Connect() error { return a.connectErr }
func (a *blockingAdapter) Close() error   { return nil }
func (a *blockingAdapter) ReadCoils(uint16, uint16) ([]byte, error)          { return nil, nil }
func (a *blockingAdapter) ReadDiscreteInputs(uint16, uint16) ([]byte, error) { return nil, nil }
func (a *blockingAdapter) ReadHoldingRegisters(uint16, uint16) ([]byte, error) {
	return make([]byte, 240), nil
}
func (a *blockingAdapter) ReadInputRegisters(uint16, uint16) ([]byte, error) { return nil, nil }
func (a *blockingAdapter) WriteSingleCoil(uint16, bool) error                { return nil }
func (a *blockingAdapter) WriteMultipleCoils(uint16, []bool) error           { return nil }
func (a *blockingAdapter) WriteSingleRegister(uint16, uint16) error          { return nil }
func (a *blockingAdapter) WriteMultipleRegisters(uint16, []uint16) error     { return nil }

func TestInitStartStopLifecycle(t *testing.T) {
	t.Parallel()
	center := datacenter.New()
	connect := func() bus.Adapter { return &blockingAdapter{} }
	dev := New("dev-1", connect, nil, map[string]point.Def{}, center, 10*time.Millisecond)

	if err := dev.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if dev.State() != lifecycle.Ready {
		t.Fatalf("expected Ready, got %v", dev.State())
	}
	// Init is idempotent past New.
	if err := dev.Init(); err != nil {
		t.Fatalf("second init: %v", err)
	}

	ctx := context.Background()
	if err := dev.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if err := dev.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if dev.State() != lifecycle.Stopped {
		t.Fatalf("expected Stopped, got %v", dev.State())
	}

	// Restarting after Stopped must succeed.
	if err := dev.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := dev.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestStopOnNeverStartedDeviceIsIdempotent(t *testing.T) {
	t.Parallel()
	center := datacenter.New()
	connect := func() bus.Adapter { return &blockingAdapter{} }
	dev := New("dev-2", connect, nil, map[string]point.Def{}, center, time.Second)

	if err := dev.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := dev.Stop(); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
	if dev.State() != lifecycle.Stopped {
		t.Fatalf("expected Stopped, got %v", dev.State())
	}
	if err := dev.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
