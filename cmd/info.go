package cmd

import (
	"fmt"

	"github.com/safebite/handheld/internal/wav"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show resolved configuration and clip layout",
	Long:  `Display the resolved configuration with inheritance indicators and the in-memory clip layout. Shows which values are inherited from default vs profile-specific.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := cfg.Audio
		h := wav.NewPCM16Mono(a.SampleRate, a.TotalSamples())

		// Display clip layout
		fmt.Printf("=== CLIP LAYOUT ===\n")
		fmt.Printf("samples: %d\n", h.Samples())
		fmt.Printf("header_bytes: %d\n", wav.HeaderSize)
		fmt.Printf("payload_bytes: %d\n", h.DataSize)
		fmt.Printf("buffer_bytes: %d\n", a.BufferSize())
		fmt.Printf("byte_rate: %d\n", h.ByteRate())
		if a.BufferLimit > 0 && a.BufferSize() > a.BufferLimit {
			fmt.Printf("warning: buffer exceeds buffer_limit (%d bytes), recording will fail\n", a.BufferLimit)
		}

		// Display resolved configuration with inheritance indicators
		fmt.Printf("\n=== RESOLVED CONFIGURATION ===\n")
		if cfg.Inheritance != nil && cfg.Inheritance.Profile != "" {
			fmt.Printf("profile: %s\n", cfg.Inheritance.Profile)
		}

		fmt.Printf("\n[Audio]\n")
		printField("driver", a.Driver, "audio.driver")
		printField("device", a.Device, "audio.device")
		printField("sample_rate", a.SampleRate, "audio.sample_rate")
		printField("duration", a.Duration, "audio.duration")
		printField("chunk_samples", a.ChunkSamples, "audio.chunk_samples")
		printField("gain", a.Gain, "audio.gain")
		printField("buffer_limit", a.BufferLimit, "audio.buffer_limit")
		printField("max_chunk_failures", a.MaxChunkFailures, "audio.max_chunk_failures")

		d := cfg.Display
		fmt.Printf("\n[Display]\n")
		printField("blink_interval", d.BlinkInterval, "display.blink_interval")
		printField("bar_update_interval", d.BarUpdateInterval, "display.bar_update_interval")
		printField("bars", d.Bars, "display.bars")

		w := cfg.Wifi
		fmt.Printf("\n[Wifi]\n")
		printField("ssid", w.SSID, "wifi.ssid")
		if w.Password != "" {
			printField("password", "********", "wifi.password")
		}
		printField("probe_address", w.ProbeAddress, "wifi.probe_address")
		printField("connection_timeout", w.ConnectionTimeout, "wifi.connection_timeout")
		printField("reconnect_interval", w.ReconnectInterval, "wifi.reconnect_interval")
		printField("blink_rate", w.BlinkRate, "wifi.blink_rate")

		l := cfg.Loop
		fmt.Printf("\n[Loop]\n")
		printField("tick_interval", l.TickInterval, "loop.tick_interval")
		printField("inactivity_timeout", l.InactivityTimeout, "loop.inactivity_timeout")

		fmt.Printf("\n[Log]\n")
		printField("file", cfg.Log.File, "log.file")

		return nil
	},
}

func printField(name string, value interface{}, key string) {
	fmt.Printf("%s: %v %s\n", name, value, getInheritanceIndicator(cfg.Inheritance.Source(key)))
}

// getInheritanceIndicator returns a formatted indicator for inheritance status
func getInheritanceIndicator(status string) string {
	switch status {
	case "inherited":
		return "[inherited]"
	case "profile-specific":
		return "[profile-specific]"
	case "environment":
		return "[environment]"
	default:
		return "[default]"
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
