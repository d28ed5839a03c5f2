package main

import (
	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootOptions carries persistent flags and the configuration loaded from them
type rootOptions struct {
	configPath string
	cfg        *config.GlobalConfig
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Exposed API surface and sensitive file reconnaissance",
		Long: `openapi probes a domain for open API endpoints and exposed sensitive files,
crawls it for further endpoints and runs a benign SQL injection check on
parameterized URLs it finds.`,
		Example: `  openapi serve
  openapi serve --listen :8080
  openapi scan example.com
  openapi scan --file domains.txt --config config.yaml`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadGlobalConfig(opts.configPath, zerolog.Nop())
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML/JSON config file (default: $"+config.ConfigPathEnv+", ./config.yaml)")

	cmd.AddCommand(newServeCmd(opts), newScanCmd(opts))
	return cmd
}
