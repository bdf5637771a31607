package commands

import (
	"fmt"
	"punchsync/internal/indicator"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Checks whether the receiver is reachable.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deliverer, err := cfg.newDeliverer(tel, dump)
		if err != nil {
			return err
		}

		err = deliverer.Heartbeat(cmd.Context())
		if err != nil {
			fmt.Println(indicator.FormatStatus(indicator.DeliveryFailed))
			return fmt.Errorf("receiver at %s is not reachable: %w", cfg.Receiver.BaseUrl, err)
		}
		fmt.Println(indicator.FormatStatus(indicator.Status{
			Text:  fmt.Sprintf("Receiver alive at %s", cfg.Receiver.BaseUrl),
			Color: indicator.Green,
		}))
		return nil
	},
}
