// Package sim drives the keyboard from the host: a scripted or interactive
// switch matrix on one side and a report recorder on the other.
package sim

import (
	"errors"
	"fmt"
	"os"
	"sync"

	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/keyboard"
)

const DefaultInterval = 1

// Pos is a [row, col] pair as written in scripts.
type Pos [2]uint8

func (p Pos) Addr() key.Addr { return key.At(p[0], p[1]) }

// Step changes switch states at time At (milliseconds).
type Step struct {
	At      uint32 `yaml:"at"`
	Press   []Pos  `yaml:"press,omitempty"`
	Release []Pos  `yaml:"release,omitempty"`
	// LEDs feeds a host LED output report.
	LEDs *uint8 `yaml:"leds,omitempty"`
}

// Script is a timed sequence of switch changes.
type Script struct {
	// Interval is the scan period in milliseconds.
	Interval uint32 `yaml:"interval,omitempty"`
	// Tail keeps scanning this long after the last step.
	Tail  uint32 `yaml:"tail,omitempty"`
	Steps []Step `yaml:"steps"`
}

// LoadScript reads a YAML script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("script has no steps")
	}
	for i := 1; i < len(s.Steps); i++ {
		if s.Steps[i].At < s.Steps[i-1].At {
			return nil, fmt.Errorf("step %d at %dms is before step %d", i, s.Steps[i].At, i-1)
		}
	}
	if s.Interval == 0 {
		s.Interval = DefaultInterval
	}
	return &s, nil
}

// Validate checks every position against geo.
func (s *Script) Validate(geo key.Geometry) error {
	var errs []error
	for i, st := range s.Steps {
		for _, p := range append(append([]Pos(nil), st.Press...), st.Release...) {
			if !geo.Contains(p.Addr()) {
				errs = append(errs, fmt.Errorf("step %d: %s outside %dx%d matrix", i, p.Addr(), geo.Rows, geo.Cols))
			}
		}
	}
	return errors.Join(errs...)
}

// End returns the time of the last scan cycle.
func (s *Script) End() uint32 {
	return s.Steps[len(s.Steps)-1].At + s.Tail
}

// Matrix is a switch matrix set from outside the scan loop. It is safe for
// concurrent use.
type Matrix struct {
	mu      sync.Mutex
	pressed map[key.Addr]bool
}

func NewMatrix() *Matrix {
	return &Matrix{pressed: make(map[key.Addr]bool)}
}

func (m *Matrix) Set(addr key.Addr, pressed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pressed {
		m.pressed[addr] = true
	} else {
		delete(m.pressed, addr)
	}
}

func (m *Matrix) Pressed(addr key.Addr) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pressed[addr]
}

// Clear releases every switch.
func (m *Matrix) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.pressed)
}

// Play runs kb through s, one cycle per interval from 0 to s.End(). Steps
// apply before the cycle at their time.
func Play(kb *keyboard.Keyboard, s *Script) error {
	if err := s.Validate(kb.Geometry()); err != nil {
		return err
	}
	m := NewMatrix()
	next := 0
	for now := uint32(0); ; now += s.Interval {
		for next < len(s.Steps) && s.Steps[next].At <= now {
			st := s.Steps[next]
			for _, p := range st.Press {
				m.Set(p.Addr(), true)
			}
			for _, p := range st.Release {
				m.Set(p.Addr(), false)
			}
			if st.LEDs != nil {
				if err := kb.HID().HandleOutput([]byte{*st.LEDs}); err != nil {
					return err
				}
			}
			next++
		}
		kb.Cycle(now, m)
		if now >= s.End() {
			return nil
		}
	}
}
