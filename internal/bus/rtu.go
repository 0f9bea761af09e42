package bus

import (
	"context"
	"os/exec"
	"time"

	"github.com/goburrow/serial"
)

// SerialParams is the subset of serial.Config a device config can leave
// partially unset; EnsureSerialDefaults fills in the rest, grounded on the
// teacher's internal/utils/rtu.go SerialParams/EnsureSerialDefaults.
type SerialParams struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration
}

// EnsureSerialDefaults fills unset fields of sp with the conventional
// Modbus RTU defaults (9600-8N1, 10s timeout).
func EnsureSerialDefaults(sp *SerialParams) {
	if sp.BaudRate == 0 {
		sp.BaudRate = 9600
	}
	if sp.DataBits == 0 {
		sp.DataBits = 8
	}
	if sp.StopBits == 0 {
		sp.StopBits = 1
	}
	if sp.Parity == "" {
		sp.Parity = "N"
	}
	if sp.Timeout <= 0 {
		sp.Timeout = 10 * time.Second
	}
}

// toSerialConfig defaults sp and converts it to the goburrow/serial config
// type the RTU client handler embeds.
func toSerialConfig(sp SerialParams) *serial.Config {
	EnsureSerialDefaults(&sp)
	return &serial.Config{
		Address:  sp.Address,
		BaudRate: sp.BaudRate,
		DataBits: sp.DataBits,
		StopBits: sp.StopBits,
		Parity:   sp.Parity,
		Timeout:  sp.Timeout,
	}
}

// SocatPair describes a virtual serial-port pair usable as an RTU test
// fixture.
type SocatPair struct {
	Link string
	Peer string
}

// BuildSocatPairCmd returns an unstarted socat command that creates the
// linked pseudo-tty pair described by pair, for use in RTU integration
// tests that need a real serial device on each end.
func BuildSocatPairCmd(ctx context.Context, pair SocatPair) *exec.Cmd {
	return exec.CommandContext(ctx, "socat",
		"-d", "-d",
		"pty,raw,echo=0,link="+pair.Link,
		"pty,raw,echo=0,link="+pair.Peer,
	)
}
