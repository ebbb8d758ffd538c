package sim

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Alia5/keypipe/key"
)

// Op is an interactive command.
type Op uint8

const (
	OpPress Op = iota
	OpRelease
	OpLEDs
	OpWait
	OpReset
	OpQuit
)

// Command is one parsed input line.
type Command struct {
	Op   Op
	Addr key.Addr
	LEDs uint8
	Wait time.Duration
}

// ParseCommand reads lines of the form
//
//	press <row> <col>
//	release <row> <col>
//	leds <byte>
//	wait <milliseconds>
//	reset
//	quit
//
// Commands may be abbreviated to their first letter.
func ParseCommand(line string) (Command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	switch strings.ToLower(f[0]) {
	case "press", "p":
		addr, err := parseAddr(f[1:])
		return Command{Op: OpPress, Addr: addr}, err
	case "release", "r":
		addr, err := parseAddr(f[1:])
		return Command{Op: OpRelease, Addr: addr}, err
	case "leds", "l":
		if len(f) != 2 {
			return Command{}, fmt.Errorf("usage: leds <byte>")
		}
		v, err := strconv.ParseUint(f[1], 0, 8)
		if err != nil {
			return Command{}, fmt.Errorf("invalid led byte %q", f[1])
		}
		return Command{Op: OpLEDs, LEDs: uint8(v)}, nil
	case "wait", "w":
		if len(f) != 2 {
			return Command{}, fmt.Errorf("usage: wait <milliseconds>")
		}
		ms, err := strconv.ParseUint(f[1], 10, 32)
		if err != nil {
			return Command{}, fmt.Errorf("invalid wait %q", f[1])
		}
		return Command{Op: OpWait, Wait: time.Duration(ms) * time.Millisecond}, nil
	case "reset":
		return Command{Op: OpReset}, nil
	case "quit", "q", "exit":
		return Command{Op: OpQuit}, nil
	}
	return Command{}, fmt.Errorf("unknown command %q", f[0])
}

func parseAddr(args []string) (key.Addr, error) {
	if len(args) != 2 {
		return key.InvalidAddr, fmt.Errorf("expected <row> <col>")
	}
	r, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return key.InvalidAddr, fmt.Errorf("invalid row %q", args[0])
	}
	c, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return key.InvalidAddr, fmt.Errorf("invalid col %q", args[1])
	}
	return key.At(uint8(r), uint8(c)), nil
}
