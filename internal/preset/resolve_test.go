package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceUUID_RoundTrip(t *testing.T) {
	p := mustParseYAML(t, ledPresetYAML)

	for pair := p.Services.Oldest(); pair != nil; pair = pair.Next() {
		uuid, ok := p.ServiceUUID(pair.Key)
		assert.True(t, ok)
		name, ok := p.ServiceName(uuid)
		assert.True(t, ok)
		assert.Equal(t, pair.Key, name)
	}

	_, ok := p.ServiceUUID("lamps")
	assert.False(t, ok)
	_, ok = p.ServiceName("19b10000-e8f2-537e-4f6c-d104768a121")
	assert.False(t, ok)
}

func TestServiceName_MatchesSIGBaseForm(t *testing.T) {
	p := mustParseYAML(t, ledPresetYAML)

	name, ok := p.ServiceName("0000180f-0000-1000-8000-00805f9b34fb")
	assert.True(t, ok)
	assert.Equal(t, "battery", name)

	name, ok = p.ServiceName("19B10000E8F2537E4F6CD104768A1214")
	assert.True(t, ok)
	assert.Equal(t, "leds", name)
}

func TestCharacteristicUUID_NameOrUUIDFallback(t *testing.T) {
	// GOAL: Verify the service reference may be either a declared name or a UUID
	//
	// TEST SCENARIO: every declared characteristic resolves identically through both paths

	p := mustParseYAML(t, ledPresetYAML)

	for svc := p.Services.Oldest(); svc != nil; svc = svc.Next() {
		for char := svc.Value.Characteristics.Oldest(); char != nil; char = char.Next() {
			byName, okName := p.CharacteristicUUID(svc.Key, char.Key)
			byUUID, okUUID := p.CharacteristicUUID(svc.Value.UUID, char.Key)
			assert.True(t, okName)
			assert.True(t, okUUID)
			assert.Equal(t, byName, byUUID)
			assert.Equal(t, char.Value.UUID, byName)
		}
	}

	_, ok := p.CharacteristicUUID("leds", "colour")
	assert.False(t, ok)
	_, ok = p.CharacteristicUUID("lamps", "mode")
	assert.False(t, ok)
}

func TestCharacteristicName(t *testing.T) {
	p := mustParseYAML(t, ledPresetYAML)

	name, ok := p.CharacteristicName("19b10000-e8f2-537e-4f6c-d104768a1214", "19b10002-e8f2-537e-4f6c-d104768a1214")
	assert.True(t, ok)
	assert.Equal(t, "brightness", name)

	name, ok = p.CharacteristicName("180f", "00002a19-0000-1000-8000-00805f9b34fb")
	assert.True(t, ok)
	assert.Equal(t, "level", name)

	_, ok = p.CharacteristicName("180a", "2a19")
	assert.False(t, ok)
	_, ok = p.CharacteristicName("180f", "2a1a")
	assert.False(t, ok)
}

func TestResolve_PassesThroughUnknown(t *testing.T) {
	p := mustParseYAML(t, ledPresetYAML)

	assert.Equal(t, "180f", p.ResolveService("battery"))
	assert.Equal(t, "180a", p.ResolveService("180a"))
	assert.Equal(t, "2a19", p.ResolveCharacteristic("battery", "level"))
	assert.Equal(t, "2a19", p.ResolveCharacteristic("180f", "level"))
	assert.Equal(t, "2a29", p.ResolveCharacteristic("180a", "2a29"))
}

func TestResolve_NilPreset(t *testing.T) {
	var p *Preset

	_, ok := p.ServiceUUID("leds")
	assert.False(t, ok)
	_, ok = p.ServiceName("180f")
	assert.False(t, ok)
	_, ok = p.CharacteristicUUID("leds", "mode")
	assert.False(t, ok)
	_, ok = p.CharacteristicName("180f", "2a19")
	assert.False(t, ok)
	assert.Equal(t, "leds", p.ResolveService("leds"))
	assert.Equal(t, "mode", p.ResolveCharacteristic("leds", "mode"))
	assert.False(t, p.ShouldAutoconnect())
}
