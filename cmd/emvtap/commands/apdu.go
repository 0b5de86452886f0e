package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gregLibert/emvtap/pkg/iso7816"
	"github.com/gregLibert/emvtap/pkg/reader"
	"github.com/gregLibert/emvtap/pkg/tlv"
)

func apduCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apdu <hex>...",
		Short: "Send raw APDUs to the tapped card and print every exchange",
		Long: "Send raw short-length APDUs, one per argument, to the card on the configured reader.\n" +
			"61XX and 6CXX are followed up automatically. Responses are printed unmasked.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmds, err := parseCommands(args)
			if err != nil {
				return err
			}

			t, err := openTransport(cfg.Transport, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := t.Close(); err != nil {
					logger.Warn("failed to close transport", "err", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if err := t.Start(ctx); err != nil {
				return err
			}
			logger.Info("waiting for card", "backend", cfg.Transport.Backend, "timeout", cfg.Transport.TagTimeout)
			if err := t.RequestTechnology(ctx, reader.IsoDep); err != nil {
				return err
			}
			defer func() {
				if err := t.CancelTechnologyRequest(); err != nil {
					logger.Warn("failed to release card", "err", err)
				}
			}()

			client := iso7816.NewClient(t)
			out := cmd.OutOrStdout()
			failed := 0
			for _, c := range cmds {
				trace, err := client.Send(ctx, c)
				fmt.Fprint(out, trace.Describe())
				if err != nil {
					return err
				}
				if !trace.IsSuccess() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d commands did not end with 9000", failed, len(cmds))
			}
			return nil
		},
	}
}

func parseCommands(args []string) ([]*iso7816.CommandAPDU, error) {
	cmds := make([]*iso7816.CommandAPDU, 0, len(args))
	for _, a := range args {
		raw, err := tlv.DecodeHex(strings.ReplaceAll(a, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("APDU %q: %w", a, err)
		}
		c, err := iso7816.ParseCommandAPDU(raw)
		if err != nil {
			return nil, fmt.Errorf("APDU %q: %w", a, err)
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}
