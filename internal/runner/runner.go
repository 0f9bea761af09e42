// Package runner drives a single device's read/write cycle: connect with
// backoff, poll its blocks on a ticker, ingest decoded readings into the
// data center, and apply any downlink writes that arrive while connected.
package runner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"fieldcollector/internal/block"
	"fieldcollector/internal/bus"
	"fieldcollector/internal/codec"
	"fieldcollector/internal/datacenter"
	"fieldcollector/internal/lifecycle"
	"fieldcollector/internal/point"
	"fieldcollector/internal/writeplan"
)

// CommStatusKey is the synthetic point name the runner ingests on every
// connection-state change, so a consumer can watch device health the same
// way it watches any other point.
const CommStatusKey = "COMM_STATUS"

// Connector builds a fresh, unconnected Adapter. A factory rather than a
// shared instance so each reconnect attempt starts from a clean handler.
type Connector func() bus.Adapter

// Runner polls one device's blocks and applies its downlink writes.
type Runner struct {
	DeviceID string
	Connect  Connector
	Blocks   []block.Block
	ByName   map[string]point.Def
	Center   *datacenter.Center
	Interval time.Duration
	State    *lifecycle.Cell

	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewRunner returns a Runner with the default backoff tuning.
func NewRunner(deviceID string, connect Connector, blocks []block.Block, byName map[string]point.Def, center *datacenter.Center, interval time.Duration, state *lifecycle.Cell) *Runner {
	return &Runner{
		DeviceID:  deviceID,
		Connect:   connect,
		Blocks:    blocks,
		ByName:    byName,
		Center:    center,
		Interval:  interval,
		State:     state,
		baseDelay: DefaultBaseDelay,
		maxDelay:  DefaultMaxDelay,
	}
}

// Run is the outer reconnect loop: connect, run the connected poll loop
// until it errors or stop is closed, back off, try again. Returns when ctx
// is done or stop is closed.
func (r *Runner) Run(ctx context.Context, stop <-chan struct{}, downlink <-chan []datacenter.Entry) {
	backoff := NewBackoff(r.baseDelay, r.maxDelay)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		default:
		}

		r.State.Store(lifecycle.Connecting)
		adapter := r.Connect()
		if err := adapter.Connect(); err != nil {
			logrus.Warnf("[%s] connect failed: %v", r.DeviceID, err)
			r.State.Store(lifecycle.Failed)
			r.ingestCommStatus(false)
			delay := backoff.NextDelay()
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-time.After(delay):
				continue
			}
		}

		backoff.Reset()
		r.State.Store(lifecycle.Connected)
		r.ingestCommStatus(true)

		err := r.runConnected(ctx, stop, downlink, adapter)
		_ = adapter.Close()
		if err != nil {
			logrus.Warnf("[%s] connection lost: %v", r.DeviceID, err)
			r.State.Store(lifecycle.Failed)
			r.ingestCommStatus(false)
			continue
		}
		return
	}
}

func (r *Runner) runConnected(ctx context.Context, stop <-chan struct{}, downlink <-chan []datacenter.Entry, adapter bus.Adapter) error {
	r.State.Store(lifecycle.Running)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	if err := r.pollOnce(adapter); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			return nil
		case <-ticker.C:
			if err := r.pollOnce(adapter); err != nil {
				return err
			}
		case msg, ok := <-downlink:
			if !ok {
				continue
			}
			plan := writeplan.Build(r.DeviceID, msg, r.ByName)
			if err := r.applyPlan(adapter, plan); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) pollOnce(adapter bus.Adapter) error {
	var entries []datacenter.Entry
	for _, blk := range r.Blocks {
		data, err := r.readBlock(adapter, blk)
		if err != nil {
			return err
		}
		entries = append(entries, r.decodeBlock(blk, data)...)
	}
	r.Center.Ingest(r.DeviceID, entries)
	return nil
}

func (r *Runner) readBlock(adapter bus.Adapter, blk block.Block) ([]byte, error) {
	switch blk.RegisterType {
	case point.Coils:
		return adapter.ReadCoils(blk.Start, blk.Len)
	case point.DiscreteInputs:
		return adapter.ReadDiscreteInputs(blk.Start, blk.Len)
	case point.HoldingRegisters:
		return adapter.ReadHoldingRegisters(blk.Start, blk.Len)
	case point.InputRegisters:
		return adapter.ReadInputRegisters(blk.Start, blk.Len)
	default:
		return nil, nil
	}
}

func (r *Runner) decodeBlock(blk block.Block, data []byte) []datacenter.Entry {
	var out []datacenter.Entry
	if blk.RegisterType.IsBitClass() {
		for _, region := range blk.Regions {
			idx := int(region.Offset)
			byteIdx, bit := idx/8, uint(idx%8)
			if byteIdx >= len(data) {
				continue
			}
			bitSet := data[byteIdx]&(1<<bit) != 0
			out = append(out, datacenter.Entry{Key: region.Def.Name, Value: codec.DecodeBool(bitSet)})
		}
		return out
	}
	for _, region := range blk.Regions {
		start := int(region.Offset) * 2
		end := start + int(region.Width)*2
		if end > len(data) {
			continue
		}
		v, err := codec.Decode(region.Def, data[start:end])
		if err != nil {
			logrus.Warnf("[%s] decode %s: %v", r.DeviceID, region.Def.Name, err)
			continue
		}
		out = append(out, datacenter.Entry{Key: region.Def.Name, Value: v})
	}
	return out
}

func (r *Runner) applyPlan(adapter bus.Adapter, plan writeplan.Plan) error {
	for _, w := range plan.Coils {
		if len(w.Values) == 1 {
			if err := adapter.WriteSingleCoil(w.Start, w.Values[0]); err != nil {
				return err
			}
			continue
		}
		if err := adapter.WriteMultipleCoils(w.Start, w.Values); err != nil {
			return err
		}
	}
	for _, w := range plan.Holding {
		if len(w.Values) == 1 {
			if err := adapter.WriteSingleRegister(w.Start, w.Values[0]); err != nil {
				return err
			}
			continue
		}
		if err := adapter.WriteMultipleRegisters(w.Start, w.Values); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) ingestCommStatus(up bool) {
	v := point.Val{Kind: point.Bool, B: up}
	r.Center.Ingest(r.DeviceID, []datacenter.Entry{{Key: CommStatusKey, Value: v}})
}
