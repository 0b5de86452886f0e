package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gregLibert/emvtap/internal/config"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "emvtap",
		Short:        "Read contactless EMV payment cards",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.Log.Level = logLevel
			}
			if logFormat != "" {
				loaded.Log.Format = logFormat
			}

			l, err := loaded.Log.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg, logger = loaded, l
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "emvtap.yaml", "YAML config file (defaults apply when missing)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "text or json (overrides config)")

	root.AddCommand(readCmd(), readersCmd(), apduCmd(), decodeCmd(), classifyCmd())
	return root
}
