package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"punchsync/internal/components/telemetry"
	"punchsync/lib/configutil"
	"punchsync/lib/restyutil"
	libtelemetry "punchsync/lib/telemetry"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string
)

// set up by the root command before any subcommand runs
var (
	cfg       Config
	tel       telemetry.API = telemetry.SlogAPI{}
	dump      restyutil.InstrumentOutput
	logCloser io.Closer
	providers libtelemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "punchsync",
	Short: "punchsync relays the punch state of an attendance page to a local receiver.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = configutil.ReadWithDefaults(configPath, defaultConfig())
		if err != nil {
			return err
		}

		logCloser = libtelemetry.InitSlog(verbose, cfg.LogFile)
		if verbose {
			slog.DebugContext(cmd.Context(), "verbose logging enabled")
		}

		var configured bool
		providers, configured, err = libtelemetry.SetupFromEnv(cmd.Context(), "punchsync")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		if configured {
			libtelemetry.InstrumentPerfStats(cmd.Context())
		}

		if dumpHttp != "" {
			output, err := restyutil.NewFilesystemOutput(dumpHttp)
			if err != nil {
				return err
			}
			dump = output
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := providers.Shutdown(ctx)
		if logCloser != nil {
			logCloser.Close()
		}
		return err
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "The config file, config.local.json5 next to it overrides it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every http exchange into this directory (needs --verbose).")
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
