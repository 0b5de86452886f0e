package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gregLibert/emvtap/internal/config"
	"github.com/gregLibert/emvtap/pkg/libnfc"
	"github.com/gregLibert/emvtap/pkg/pcsc"
)

func readersCmd() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "readers",
		Short: "List PC/SC readers or libnfc devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("backend") {
				backend = cfg.Transport.Backend
			}

			var (
				names []string
				err   error
			)
			switch backend {
			case config.BackendPCSC:
				names, err = pcsc.ListReaders()
			case config.BackendLibNFC:
				names, err = libnfc.ListDevices()
			default:
				return fmt.Errorf("unknown backend %q", backend)
			}
			if err != nil {
				return err
			}

			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no reader found")
				return nil
			}
			for i, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i, name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "pcsc or libnfc")
	return cmd
}
