package key_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keypipe/key"
)

func TestReservedValuesAreDistinct(t *testing.T) {
	assert.NotEqual(t, key.NoKey, key.Transparent)
	assert.True(t, key.Transparent.IsTransparent())
	assert.True(t, key.NoKey.IsNoKey())
	assert.False(t, key.Transparent.IsReportable())
	assert.False(t, key.NoKey.IsReportable())

	for c := 0; c < 256; c++ {
		k := key.Code(uint8(c))
		assert.NotEqual(t, key.Transparent, k)
	}
}

func TestEqualityIncludesFlags(t *testing.T) {
	assert.NotEqual(t, key.Code(key.CodeA), key.Code(key.CodeA).WithMods(key.ModShift))
	assert.Equal(t, key.Code(key.CodeA).WithMods(key.ModShift), key.Code(key.CodeA).WithMods(key.ModShift))
}

func TestRawRoundTrip(t *testing.T) {
	cases := []key.Key{
		key.NoKey,
		key.Transparent,
		key.Code(key.CodeZ),
		key.Code(key.Code1).WithMods(key.ModShift | key.ModCtrl),
		key.ConsumerKey(key.ConsumerMute),
		key.SystemKey(key.SystemSleep),
		key.LayerKey(key.ShiftTo, 3),
		key.LayerKey(key.MoveTo, 31),
	}
	for _, k := range cases {
		assert.Equal(t, k, key.FromRaw(k.Raw()), k.String())
	}
	assert.Equal(t, uint16(0), key.NoKey.Raw())
}

func TestLayerTarget(t *testing.T) {
	op, layer, ok := key.LayerKey(key.LockTo, 5).LayerTarget()
	require.True(t, ok)
	assert.Equal(t, key.LockTo, op)
	assert.Equal(t, uint8(5), layer)

	_, _, ok = key.Code(key.CodeA).LayerTarget()
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want key.Key
	}{
		{"A", key.Code(key.CodeA)},
		{"lshift", key.Code(key.CodeLeftShift)},
		{"S(1)", key.Code(key.Code1).WithMods(key.ModShift)},
		{"C(A(Delete))", key.Code(key.CodeDelete).WithMods(key.ModCtrl | key.ModLAlt)},
		{"ShiftTo(1)", key.LayerKey(key.ShiftTo, 1)},
		{"LockTo(2)", key.LayerKey(key.LockTo, 2)},
		{"MoveTo(0)", key.LayerKey(key.MoveTo, 0)},
		{"___", key.Transparent},
		{"XXX", key.NoKey},
		{"Mute", key.ConsumerKey(key.ConsumerMute)},
		{"Sleep", key.SystemKey(key.SystemSleep)},
		{"0x0004", key.Code(key.CodeA)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := key.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "NotAKey", "ShiftTo(32)", "S(Mute)", "Q(A)", "0xZZ"} {
		_, err := key.Parse(in)
		assert.Error(t, err, in)
	}
}

func TestStringParsesBack(t *testing.T) {
	for _, k := range []key.Key{
		key.Code(key.CodeEnter),
		key.Code(key.Code1).WithMods(key.ModShift),
		key.LayerKey(key.ShiftTo, 2),
		key.ConsumerKey(key.ConsumerVolumeUp),
		key.Transparent,
	} {
		got, err := key.Parse(k.String())
		require.NoError(t, err, k.String())
		assert.Equal(t, k, got)
	}
}

func TestAddrOrderAndGeometry(t *testing.T) {
	assert.Equal(t, -1, key.At(0, 5).Compare(key.At(1, 0)))
	assert.Equal(t, 1, key.At(1, 2).Compare(key.At(1, 1)))
	assert.Equal(t, 0, key.At(2, 2).Compare(key.At(2, 2)))
	assert.False(t, key.InvalidAddr.IsValid())

	g := key.Geometry{Rows: 4, Cols: 16}
	assert.Equal(t, 64, g.Size())
	assert.True(t, g.Contains(key.At(3, 15)))
	assert.False(t, g.Contains(key.At(4, 0)))
	assert.False(t, g.Contains(key.InvalidAddr))
	for i := 0; i < g.Size(); i++ {
		assert.Equal(t, i, g.Index(g.AddrAt(i)))
	}
	assert.Equal(t, key.InvalidAddr, g.AddrAt(64))
}
