package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"auto driver", func(c *Config) { c.Audio.Driver = "auto" }, ""},
		{"unknown driver", func(c *Config) { c.Audio.Driver = "alsa" }, "'driver'"},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "'sample_rate'"},
		{"zero duration", func(c *Config) { c.Audio.Duration = 0 }, "'duration'"},
		{"duration too short for one sample", func(c *Config) { c.Audio.Duration = time.Microsecond }, "holds no samples"},
		{"clip overflows header size fields", func(c *Config) {
			c.Audio.SampleRate = 48000
			c.Audio.Duration = 12*time.Hour + 30*time.Minute
		}, "byte clip limit"},
		{"long clip within header size fields", func(c *Config) {
			c.Audio.SampleRate = 44100
			c.Audio.Duration = 6 * time.Hour
		}, ""},
		{"zero chunk", func(c *Config) { c.Audio.ChunkSamples = 0 }, "'chunk_samples'"},
		{"zero gain", func(c *Config) { c.Audio.Gain = 0 }, "'gain'"},
		{"negative buffer limit", func(c *Config) { c.Audio.BufferLimit = -1 }, "'buffer_limit'"},
		{"negative failure ceiling", func(c *Config) { c.Audio.MaxChunkFailures = -1 }, "'max_chunk_failures'"},
		{"too many bars", func(c *Config) { c.Display.Bars = MaxBars + 1 }, "'bars'"},
		{"no bars", func(c *Config) { c.Display.Bars = 0 }, "'bars'"},
		{"zero blink", func(c *Config) { c.Display.BlinkInterval = 0 }, "'blink_interval'"},
		{"zero bar update", func(c *Config) { c.Display.BarUpdateInterval = 0 }, "'bar_update_interval'"},
		{"zero wifi timeout", func(c *Config) { c.Wifi.ConnectionTimeout = 0 }, "'connection_timeout'"},
		{"zero backoff", func(c *Config) { c.Wifi.ReconnectInterval = 0 }, "'reconnect_interval'"},
		{"zero blink rate", func(c *Config) { c.Wifi.BlinkRate = 0 }, "'blink_rate'"},
		{"probe without port", func(c *Config) {
			c.Wifi.SSID = "kitchen"
			c.Wifi.ProbeAddress = "example.com"
		}, "'probe_address'"},
		{"zero tick", func(c *Config) { c.Loop.TickInterval = 0 }, "'tick_interval'"},
		{"negative inactivity", func(c *Config) { c.Loop.InactivityTimeout = -time.Second }, "'inactivity_timeout'"},
		{"inactivity disabled", func(c *Config) { c.Loop.InactivityTimeout = 0 }, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := Validate(cfg)
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", test.wantErr, err)
			}
		})
	}
}

func TestLoadWithProfile_InvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing configs", "active_config: default\n", "configs section is required"},
		{"invalid value", "configs:\n  default:\n    audio:\n      chunk_samples: -5\n", "'chunk_samples'"},
		{"unknown driver", "configs:\n  default:\n    audio:\n      driver: jack\n", "'driver'"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			configFile := createTempConfig(t, test.content)
			_, err := LoadWithProfile(configFile, "")
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", test.wantErr, err)
			}
		})
	}
}
