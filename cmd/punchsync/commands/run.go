package commands

import (
	"fmt"
	"net"
	"os"
	"punchsync/internal/indicator"
	"punchsync/internal/receiver"
	"punchsync/internal/sessionstore"
	"punchsync/internal/tracker"
	"punchsync/lib/osutil"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var withReceiver bool

func init() {
	runCmd.Flags().BoolVar(&withReceiver, "with-receiver", false, "Also serve the reference receiver on receiver.listen.")
	rootCmd.AddCommand(runCmd)
}

func newIndicator() *indicator.Indicator {
	var renderers []indicator.Renderer
	if !cfg.Indicator.DisableTerminal {
		renderers = append(renderers, indicator.NewTerminalRenderer(os.Stdout))
	}
	if cfg.Indicator.SnapshotPath != "" {
		renderers = append(renderers, indicator.NewSnapshotRenderer(cfg.Indicator.SnapshotPath))
	}
	return indicator.New(tel, renderers...)
}

var runCmd = &cobra.Command{
	Use:   "run [--with-receiver]",
	Short: "Watches the attendance page and reports every change to the receiver.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := osutil.SignalContext(cmd.Context())
		defer cancel()

		interval, err := cfg.interval()
		if err != nil {
			return err
		}

		source, err := cfg.newSource(dump)
		if err != nil {
			return err
		}
		defer source.Close()

		deliverer, err := cfg.newDeliverer(tel, dump)
		if err != nil {
			return err
		}

		store, err := sessionstore.Open(ctx, cfg.State.Database, nil)
		if err != nil {
			return fmt.Errorf("open state database: %w", err)
		}
		defer store.Close()

		session, err := tracker.NewSession(tracker.Options{
			Source:     source,
			Extractor:  cfg.newExtractor(tel),
			Deliverer:  deliverer,
			Gate:       tracker.NewGate(cfg.Tracker.NullConfirmations),
			Indicator:  newIndicator(),
			Tel:        tel,
			Flags:      store,
			SessionKey: sessionstore.SessionID(cfg.pageUrl(), cfg.Page.Cookie),
			SessionTTL: cfg.sessionTTL(),
			Notice:     os.Stdout,
		})
		if err != nil {
			return err
		}

		group, ctx := errgroup.WithContext(ctx)
		if withReceiver {
			listener, err := net.Listen("tcp", cfg.Receiver.Listen)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Receiver.Listen, err)
			}
			handler := receiver.New(tel, nil, receiver.Hooks{OnReport: logReport}).Handler()
			group.Go(func() error {
				return osutil.ServeHTTP(ctx, listener, handler)
			})
		}
		group.Go(func() error {
			session.Run(ctx, interval)
			return nil
		})
		return group.Wait()
	},
}
