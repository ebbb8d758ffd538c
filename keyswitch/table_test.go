package keyswitch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/keyswitch"
)

func TestPhases(t *testing.T) {
	cases := []struct {
		state keyswitch.State
		phase keyswitch.Phase
	}{
		{0, keyswitch.SteadyOff},
		{keyswitch.Pressed, keyswitch.ToggledOn},
		{keyswitch.WasPressed, keyswitch.ToggledOff},
		{keyswitch.Pressed | keyswitch.WasPressed, keyswitch.SteadyOn},
	}
	for _, c := range cases {
		assert.Equal(t, c.phase, c.state.Phase(), c.phase.String())
	}
	assert.True(t, keyswitch.Pressed.IsPressed())
	assert.True(t, keyswitch.WasPressed.WasPressed())
	assert.True(t, keyswitch.Pressed.ToggledOn())
	assert.True(t, keyswitch.WasPressed.ToggledOff())
}

func TestEdgesFireOncePerTransition(t *testing.T) {
	samples := []bool{false, false, true, true, true, true, false, false, false, true, false}
	tbl := keyswitch.NewTable(key.Geometry{Rows: 1, Cols: 1})
	addr := key.At(0, 0)

	var on, off int
	for _, raw := range samples {
		s := tbl.Sample(addr, raw)
		if s.ToggledOn() {
			on++
		}
		if s.ToggledOff() {
			off++
		}
		assert.Equal(t, raw, s.IsPressed())
	}
	assert.Equal(t, 2, on)
	assert.Equal(t, 2, off)
}

func TestOutOfRangeIsIgnored(t *testing.T) {
	tbl := keyswitch.NewTable(key.Geometry{Rows: 2, Cols: 2})
	assert.Equal(t, keyswitch.State(0), tbl.Sample(key.At(5, 5), true))
	assert.Equal(t, keyswitch.State(0), tbl.State(key.InvalidAddr))
}

func TestEachIsRowMajor(t *testing.T) {
	tbl := keyswitch.NewTable(key.Geometry{Rows: 2, Cols: 3})
	tbl.Sample(key.At(1, 2), true)

	var seen []key.Addr
	tbl.Each(func(addr key.Addr, s keyswitch.State) {
		seen = append(seen, addr)
		if addr == key.At(1, 2) {
			assert.True(t, s.ToggledOn())
		}
	})
	assert.Equal(t, []key.Addr{
		key.At(0, 0), key.At(0, 1), key.At(0, 2),
		key.At(1, 0), key.At(1, 1), key.At(1, 2),
	}, seen)

	tbl.Reset()
	assert.Equal(t, keyswitch.SteadyOff, tbl.State(key.At(1, 2)).Phase())
}
