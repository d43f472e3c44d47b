package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/ritmo-radar/pkg/audio/decode"
)

// formatsCmd lists the audio formats the decoder registry handles
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported audio input formats",
	Run: func(cmd *cobra.Command, args []string) {
		for _, format := range decode.DefaultRegistry().Formats() {
			fmt.Println(format)
		}
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
