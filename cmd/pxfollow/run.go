package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pxfollow/pkg/config"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/metrics"
	"pxfollow/pkg/pixiv"
	"pxfollow/pkg/progress"
	"pxfollow/pkg/ratelimit"
	"pxfollow/pkg/storage"
	"pxfollow/pkg/ui"
	"pxfollow/pkg/ui/tui"
)

// reportedError is an error the command already showed to the user
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// runEnv is what the api and ui commands share
type runEnv struct {
	cfg      *config.Config
	log      logger.Logger
	target   pixiv.Visibility
	metrics  *metrics.Recorder
	notifier *ui.Notifier
	// clock paces requests and polls; nil means the wall clock
	clock ratelimit.Clock
}

// newRunEnv loads the configuration with the command's flags on top
func newRunEnv(cmd *cobra.Command, flags map[string]interface{}) (*runEnv, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = notifications
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	target, err := pixiv.ParseVisibility(cfg.Run.Direction)
	if err != nil {
		return nil, err
	}

	log := logger.GetLogger().WithField("version", version)
	return &runEnv{
		cfg:      cfg,
		log:      log,
		target:   target,
		metrics:  metrics.New(),
		notifier: ui.NewNotifier(cfg.Notifications),
	}, nil
}

func (e *runEnv) newReport(strategy storage.Strategy) *storage.Report {
	return &storage.Report{
		Strategy:  strategy,
		Direction: e.target.String(),
		StartedAt: time.Now(),
	}
}

// finish writes the report and metrics, notifies, and returns runErr
// marked as already shown
func (e *runEnv) finish(report *storage.Report, runErr error, success string) error {
	report.Finish(time.Now(), runErr)
	if report.Strategy == storage.StrategyUI {
		e.metrics.ObserveRun(report.FinishedAt.Sub(report.StartedAt))
	}

	if dir := e.cfg.Output.ReportDirectory; dir != "" {
		path, err := saveReport(dir, report)
		if err != nil {
			e.log.WithError(err).Warn("Failed to save run report")
		} else {
			e.log.WithField("path", path).Info("Run report saved")
			ui.PrintInfo("Report", path)
		}
	}

	if err := e.metrics.WriteTextfile(e.cfg.Output.MetricsFile); err != nil {
		e.log.WithError(err).Warn("Failed to write metrics")
	}

	if runErr != nil {
		e.notifier.Failure("pxfollow failed", runErr)
		return reportedError{runErr}
	}
	e.notifier.Success("pxfollow finished", success)
	return nil
}

// logEvents copies progress events into the debug log, so a log file holds
// the same run history as the screen
func (e *runEnv) logEvents() progress.Reporter {
	return progress.Func(func(ev progress.Event) {
		fields := map[string]interface{}{"phase": string(ev.Phase)}
		if ev.Total > 0 {
			fields["current"] = ev.Current
			fields["total"] = ev.Total
		}
		if ev.IsError {
			fields["failed"] = true
		}
		e.log.DebugWithFields(ev.Message, fields)
	})
}

func saveReport(dir string, report *storage.Report) (string, error) {
	store, err := storage.NewManager(dir)
	if err != nil {
		return "", err
	}
	return store.SaveReport(report)
}

// runWithTUI runs work while the full screen view shows its progress. The
// view stays up after work returns until the user quits; quitting early
// cancels work.
func runWithTUI(ctx context.Context, title string, work func(context.Context, progress.Reporter) (string, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := tui.NewTUI(title, cancel)
	done := make(chan error, 1)
	go func() {
		result, err := work(ctx, view)
		view.Finish(result, err)
		done <- err
	}()

	viewErr := view.Start()
	cancel()
	workErr := <-done
	if workErr != nil {
		return workErr
	}
	return viewErr
}

func newTerminalReporter() *ui.TerminalReporter {
	return ui.NewTerminalReporter(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}

func isReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
