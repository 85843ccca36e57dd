package config

import "testing"

type toneConfig struct {
	FrequencyHZ float64 `mapstructure:"frequency_hz"`
	Channels    int     `mapstructure:"channels"`
}

func TestDecode_WeaklyTypedInput(t *testing.T) {
	raw := map[string]any{
		"frequency_hz": "440", // string in, float64 out: WeaklyTypedInput
		"channels":     2,
	}
	var cfg toneConfig
	if err := Decode(raw, &cfg); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.FrequencyHZ != 440 {
		t.Fatalf("FrequencyHZ = %v, want 440", cfg.FrequencyHZ)
	}
	if cfg.Channels != 2 {
		t.Fatalf("Channels = %v, want 2", cfg.Channels)
	}
}

func TestChecksum_StableForEqualValues(t *testing.T) {
	a := toneConfig{FrequencyHZ: 440, Channels: 2}
	b := toneConfig{FrequencyHZ: 440, Channels: 2}

	ca, err := Checksum(a)
	if err != nil {
		t.Fatalf("Checksum(a) error = %v", err)
	}
	cb, err := Checksum(b)
	if err != nil {
		t.Fatalf("Checksum(b) error = %v", err)
	}
	if ca != cb {
		t.Fatalf("Checksum(a)=%d != Checksum(b)=%d for equal configs", ca, cb)
	}
}

func TestChecksum_DiffersForDifferentValues(t *testing.T) {
	a := toneConfig{FrequencyHZ: 440, Channels: 2}
	b := toneConfig{FrequencyHZ: 880, Channels: 2}

	ca, _ := Checksum(a)
	cb, _ := Checksum(b)
	if ca == cb {
		t.Fatal("Checksum collided for different configs")
	}
}
