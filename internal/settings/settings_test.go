package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/mixd/internal/db"
)

func TestFromMap(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]string
		expected Settings
	}{
		{
			name:     "empty_uses_defaults",
			raw:      map[string]string{},
			expected: Settings{MaxDB: 12, MinDB: -60},
		},
		{
			name:     "unparsable_numbers_fall_back",
			raw:      map[string]string{KeyMaxDB: "loud", KeyMinDB: ""},
			expected: Settings{MaxDB: 12, MinDB: -60},
		},
		{
			name:     "custom_range",
			raw:      map[string]string{KeyMaxDB: " 6 ", KeyMinDB: "-40"},
			expected: Settings{MaxDB: 6, MinDB: -40},
		},
		{
			name:     "inverted_range_falls_back",
			raw:      map[string]string{KeyMaxDB: "-70", KeyMinDB: "-60"},
			expected: Settings{MaxDB: 12, MinDB: -60},
		},
		{
			name: "grammars_and_limiter",
			raw: map[string]string{
				KeyBusToggles:        "Strip0:A1",
				KeyCustomStripAssign: "A1,!B1",
				KeyCustomStripMute:   "mute",
				KeyCustomStripRun:    "solo",
				KeyLimiter:           "true",
			},
			expected: Settings{
				MaxDB:             12,
				MinDB:             -60,
				BusToggles:        "Strip0:A1",
				CustomStripAssign: "A1,!B1",
				CustomStripMute:   "mute",
				CustomStripRun:    "solo",
				Limiter:           true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromMap(tt.raw))
		})
	}
}

func TestGainConversion(t *testing.T) {
	s := Defaults()

	assert.InDelta(t, -60.0, s.ToGain(0), 1e-9)
	assert.InDelta(t, 12.0, s.ToGain(1), 1e-9)
	assert.InDelta(t, 0.0, s.ToGain(60.0/72.0), 1e-9)
	assert.InDelta(t, 0.5, s.ToVolume(s.ToGain(0.5)), 1e-9)
	assert.InDelta(t, 1.0, s.ToVolume(12), 1e-9)
}

func TestStore(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	defer database.Close()

	store := NewStore(database.DB)

	_, ok, err := store.Get(KeyMaxDB)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(KeyMaxDB, "6"))
	require.NoError(t, store.Set(KeyMaxDB, "10"))
	require.NoError(t, store.Set(KeyBusToggles, "Strip1:A1"))
	assert.Error(t, store.Set("nope", "1"))

	v, ok, err := store.Get(KeyMaxDB)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10", v)

	s, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10.0, s.MaxDB)
	assert.Equal(t, -60.0, s.MinDB)
	assert.Equal(t, "Strip1:A1", s.BusToggles)

	require.NoError(t, store.Seed(map[string]string{KeyMaxDB: "1", KeyMinDB: "-30"}))
	all, err := store.All()
	require.NoError(t, err)
	assert.Equal(t, "10", all[KeyMaxDB])
	assert.Equal(t, "-30", all[KeyMinDB])

	require.NoError(t, store.Delete(KeyMaxDB))
	s, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.0, s.MaxDB)
}

func TestKeys(t *testing.T) {
	assert.True(t, IsKnownKey(KeyBusToggles))
	assert.False(t, IsKnownKey("bustoggles"))
	assert.Len(t, Keys(), 7)
}
