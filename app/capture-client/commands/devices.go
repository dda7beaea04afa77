package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/yoockh/voicerelay/internal/capture/mic"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		devs, err := mic.Devices()
		if err != nil {
			return err
		}
		if len(devs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no input devices found")
			return nil
		}

		mark := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2ecc71"))
		for _, d := range devs {
			line := fmt.Sprintf("%3d  %-40s %d ch", d.Index, d.Name, d.Channels)
			if d.Default {
				line = mark.Render(line + "  (default)")
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}
