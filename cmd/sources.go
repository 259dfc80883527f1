package cmd

import (
	"fmt"
	"runtime"

	"github.com/safebite/handheld/internal/audio"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available capture devices",
	Long:  `List the capture devices the malgo driver can open, and the sampling backends built into this binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("🎤 Capture Devices (%s)\n", runtime.GOOS)
		fmt.Printf("═══════════════════════════════════════\n\n")

		fmt.Printf("📋 BACKENDS:\n")
		for _, b := range audio.GetAvailableBackends() {
			marker := " "
			if string(b) == cfg.Audio.Driver {
				marker = "*"
			}
			fmt.Printf(" %s %s\n", marker, b)
		}

		sources, err := audio.ListCaptureDevices()
		if err != nil {
			return fmt.Errorf("failed to list capture devices: %w", err)
		}

		fmt.Printf("\n📋 MALGO DEVICES (%d found):\n", len(sources))
		for i, source := range sources {
			fmt.Printf("  %d. %s\n", i+1, source)
		}

		fmt.Printf("\n💡 Usage:\n")
		fmt.Printf("  • Set audio.driver: malgo and audio.device to a name fragment\n")
		fmt.Printf("  • Example: device: \"USB\" picks the first device whose name contains USB\n\n")

		return nil
	},
}
