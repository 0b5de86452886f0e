package commands

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/gregLibert/emvtap/pkg/reader"
)

func readCmd() *cobra.Command {
	var (
		backend     string
		readerName  string
		readerIndex int
		connString  string
		timeout     time.Duration
		nested      bool
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Wait for a contactless card and print its data as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc := cfg.Transport
			flags := cmd.Flags()
			if flags.Changed("backend") {
				tc.Backend = backend
			}
			if flags.Changed("reader") {
				tc.ReaderName = readerName
			}
			if flags.Changed("reader-index") {
				tc.ReaderIndex = readerIndex
			}
			if flags.Changed("connstring") {
				tc.ConnString = connString
			}
			if flags.Changed("timeout") {
				tc.TagTimeout = timeout
			}

			mode, err := reader.ParseTLVMode(cfg.Read.TLVMode)
			if err != nil {
				return err
			}
			if nested {
				mode = reader.NestedTLV
			}

			t, err := openTransport(tc, logger)
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

			r := reader.New(t, reader.Options{Logger: logger, TLV: mode})
			logger.Info("waiting for card", "backend", tc.Backend, "timeout", tc.TagTimeout, "tlv", mode)

			card, err := r.Read(ctx)
			if err != nil {
				var rerr *reader.Error
				if errors.As(err, &rerr) && rerr.Kind.Retryable() {
					logger.Info("no card detected, tap the card and try again")
				}
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(card)
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "pcsc or libnfc")
	cmd.Flags().StringVar(&readerName, "reader", "", "PC/SC reader name")
	cmd.Flags().IntVar(&readerIndex, "reader-index", 0, "PC/SC reader index")
	cmd.Flags().StringVar(&connString, "connstring", "", "libnfc connection string")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "how long to wait for a card")
	cmd.Flags().BoolVar(&nested, "nested", false, "decode nested TLV templates")
	return cmd
}
