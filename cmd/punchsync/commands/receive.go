package commands

import (
	"fmt"
	"log/slog"
	"net"
	"punchsync/internal/receiver"
	"punchsync/lib/osutil"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(receiveCmd)
}

func logReport(report receiver.Report, previous receiver.Phase, changed bool) {
	workTime, known := report.WorkTime(report.ReceivedAt)
	if known {
		slog.Debug("work time", "phase", report.Phase.String(), "work_time", workTime.Round(time.Second).String())
	}
	if !changed {
		slog.Debug("sync received", "phase", report.Phase.String(), "punch_in", report.PunchIn)
		return
	}
	slog.Info(
		"phase changed",
		"from", previous.String(),
		"to", report.Phase.String(),
		"punch_in", report.PunchIn,
		"punch_out", report.PunchOut,
		"worked", report.Worked,
		"date", report.Date,
	)
}

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Serves the reference receiver, it logs what the tracker reports.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := osutil.SignalContext(cmd.Context())
		defer cancel()

		listener, err := net.Listen("tcp", cfg.Receiver.Listen)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Receiver.Listen, err)
		}
		slog.Info("receiver listening", "addr", listener.Addr().String())

		r := receiver.New(tel, nil, receiver.Hooks{
			OnReport: logReport,
			OnStart:  func() { slog.Info("start requested") },
			OnStop:   func() { slog.Info("stop requested") },
		})
		return osutil.ServeHTTP(ctx, listener, r.Handler())
	},
}
