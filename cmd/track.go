package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangsam/stimstrain/core"
	"github.com/huangsam/stimstrain/core/tracker"
	"github.com/huangsam/stimstrain/internal/bridge"
	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// shutdownTimeout bounds the final flush after host input ends.
const shutdownTimeout = 10 * time.Second

// trackCmd runs the activity runtime over host events on stdin.
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record browsing activity from host events on stdin.",
	Long: `Run the activity runtime. Host events are read from stdin as one JSON object
per line, for example:

  {"type":"tab_activated","tabId":7}
  {"type":"tab_updated","tabId":7,"url":"https://www.reddit.com/"}
  {"type":"content","tabId":7,"kind":"scroll_batch","count":4,"distance":1800}

Focused time is accrued every --accrue-interval and the live minute is persisted
every --flush-interval. The runtime flushes and stops when stdin closes or on SIGINT.

Examples:
  native-host | stimstrain track
  stimstrain track --debug --summary < events.jsonl`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runTrack(rootCtx); err != nil {
			contract.LogFatal("Cannot run tracker", err)
		}
	},
}

func runTrack(parent context.Context) error {
	log, err := contract.NewLogger(cfg.Tracker.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mirror := bridge.NewHostMirror()
	rt := tracker.New(cfg.Tracker, storeManager.GetLedgerStore(), mirror,
		tracker.WithLogger(log),
		tracker.WithLocation(cfg.Loc()),
	)
	if err := rt.Start(ctx); err != nil {
		_ = rt.Close(context.WithoutCancel(ctx))
		return err
	}
	log.Debug("reading host events from stdin", zap.String("store", string(cfg.StoreBackend)))

	runErr := bridge.New(mirror, rt, log).Run(ctx, os.Stdin)
	if runErr != nil && ctx.Err() == nil {
		log.Error("host input failed", zap.Error(runErr))
	}

	// The parent context may already be cancelled by a signal
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if viper.GetBool("summary") {
		reportCfg := cfg.CloneWithDate(cfg.Today())
		if err := core.ExecuteReport(core.WithFlusher(closeCtx, rt), reportCfg, storeManager); err != nil {
			contract.LogWarn("Cannot print summary", err)
		}
	}

	if err := rt.Close(closeCtx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	return runErr
}
