// Package lifecycle implements the single-byte atomic device state machine
// shared by every device façade: load/compare-and-swap/store over one
// atomic state byte.
package lifecycle

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// State is one of the ten lifecycle states a device façade moves through
// between construction and teardown.
type State uint32

const (
	New State = iota
	Initializing
	Ready
	Starting
	Connecting
	Connected
	Running
	Stopping
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Starting:
		return "starting"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "failed"
	}
}

// Cell is an atomically-stored State with CAS transitions and a
// change-logging Store.
type Cell struct {
	id    string
	value atomic.Uint32
}

// NewCell returns a Cell in the New state, tagged with id for log lines.
func NewCell(id string) *Cell {
	return &Cell{id: id}
}

// Load returns the current state.
func (c *Cell) Load() State {
	return State(c.value.Load())
}

// CAS atomically transitions from "from" to "to", returning false (and
// leaving the state untouched) if the current state is not "from".
func (c *Cell) CAS(from, to State) bool {
	ok := c.value.CompareAndSwap(uint32(from), uint32(to))
	if ok {
		logrus.Infof("[%s] %s -> %s", c.id, from, to)
	}
	return ok
}

// Store unconditionally sets the state, logging the observed "from -> to"
// transition regardless of what the prior state was.
func (c *Cell) Store(to State) {
	from := c.Load()
	c.value.Store(uint32(to))
	logrus.Infof("[%s] %s -> %s", c.id, from, to)
}
