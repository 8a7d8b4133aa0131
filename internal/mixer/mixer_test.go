package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_Counts(t *testing.T) {
	tests := []struct {
		typ    Type
		strips int
		buses  int
	}{
		{TypeStandard, 3, 2},
		{TypeBanana, 5, 5},
		{TypePotato, 8, 8},
		{TypeUnknown, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			strips, buses := tt.typ.Counts()
			assert.Equal(t, tt.strips, strips)
			assert.Equal(t, tt.buses, buses)
		})
	}
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeBanana, ParseType(" Banana "))
	assert.Equal(t, TypePotato, ParseType("3"))
	assert.Equal(t, TypeStandard, ParseType("voicemeeter"))
	assert.Equal(t, TypeUnknown, ParseType("toaster"))
}

func TestParams_SetAndRead(t *testing.T) {
	p := NewParams(0, "Mic")

	require.NoError(t, p.Set("Mute", true))
	require.NoError(t, p.Set("Gain", float32(-12)))
	require.NoError(t, p.Set(GainLayer(1), -3.5))
	require.NoError(t, p.Set("label", "Guitar"))

	assert.True(t, p.Mute())
	assert.True(t, p.Bool("MUTE"))
	assert.False(t, p.Bool("unknown"))
	assert.Equal(t, -12.0, p.Gain())
	v, ok := p.Float("gainlayer[1]")
	assert.True(t, ok)
	assert.Equal(t, -3.5, v)
	assert.Equal(t, "Guitar", p.Name)

	assert.Error(t, p.Set("gain", "loud"))
	assert.Error(t, p.Set("gain", []byte{1}))
}

func TestSnapshot_Clone(t *testing.T) {
	s := &Snapshot{Strips: []Params{NewParams(0, "a")}, Buses: []Params{NewParams(0, "b")}}
	s.Strips[0].Bools["a1"] = true

	c := s.Clone()
	c.Strips[0].Bools["a1"] = false
	assert.True(t, s.Strips[0].Bool("a1"))
}
