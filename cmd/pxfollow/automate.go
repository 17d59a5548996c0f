package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pxfollow/pkg/automation"
	"pxfollow/pkg/browser"
	"pxfollow/pkg/pixiv"
	"pxfollow/pkg/progress"
	"pxfollow/pkg/storage"
	"pxfollow/pkg/ui"
)

var (
	uiDirection   string
	uiDebuggerURL string
	uiHeadless    bool
	uiTotal       int
	uiUserID      string
	uiTUI         bool
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Switch follows by driving the following page in Chrome",
	Long: `Switch follows by clicking through the following page of a Chrome tab.

Start Chrome with --remote-debugging-port=9222, log in to Pixiv, and pass
the DevTools URL with --debugger-url. Without it a new Chrome is launched,
using browser.user_data_dir from the config so an existing login is reused.

With --user-id the tab is pointed at your following page, filtered to the
follows that still need a change. Otherwise the tab must already show it.

The follow count is read from the page unless --total is given. When it
cannot be found the run continues until the list stops changing.`,
	Example: `  # Attach to a running Chrome
  pxfollow ui --debugger-url http://127.0.0.1:9222 --user-id 12345678

  # Make follows public again, stopping after 50 changes
  pxfollow ui --direction public --total 50`,
	Args: cobra.NoArgs,
	RunE: runUICommand,
}

func init() {
	rootCmd.AddCommand(uiCmd)

	uiCmd.Flags().StringVarP(&uiDirection, "direction", "d", "", "target visibility: private or public (default from config)")
	uiCmd.Flags().StringVar(&uiDebuggerURL, "debugger-url", "", "DevTools URL of a running Chrome")
	uiCmd.Flags().BoolVar(&uiHeadless, "headless", false, "run a launched Chrome without a window")
	uiCmd.Flags().IntVar(&uiTotal, "total", automation.UnknownTotal, "number of follows to change (default: read from the page)")
	uiCmd.Flags().StringVar(&uiUserID, "user-id", "", "open the following page of this user first")
	uiCmd.Flags().BoolVar(&uiTUI, "tui", false, "show progress in a full screen view")
}

func runUICommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := map[string]interface{}{
		"direction":    uiDirection,
		"debugger-url": uiDebuggerURL,
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = uiHeadless
	}
	env, err := newRunEnv(cmd, flags)
	if err != nil {
		return err
	}
	if uiTotal < automation.UnknownTotal {
		return fmt.Errorf("--total must be zero or more")
	}

	session, err := browser.Connect(ctx, env.cfg.Browser, env.log)
	if err != nil {
		return err
	}
	defer session.Close()

	if uiUserID != "" {
		if err := session.Navigate(ctx, followingPageURL(env, uiUserID)); err != nil {
			return err
		}
	}

	report := env.newReport(storage.StrategyUI)
	report.UserID = uiUserID

	var result *automation.Result
	work := func(ctx context.Context, r progress.Reporter) (string, error) {
		var err error
		result, err = env.automate(ctx, session.Page(), uiTotal, progress.Multi(r, env.logEvents()))
		return automationLine(result, env), err
	}

	if uiTUI {
		err = runWithTUI(ctx, "click follows to "+env.target.String(), work)
	} else {
		ui.PrintInfo("Direction", env.target.String())
		_, err = work(ctx, newTerminalReporter())
	}

	report.Automation = storage.NewAutomationReport(result)
	return env.finish(report, err, automationLine(result, env))
}

// automate runs the state machine against page
func (e *runEnv) automate(ctx context.Context, page automation.Page, total int, reporter progress.Reporter) (*automation.Result, error) {
	machine := automation.NewMachine(page, e.clock, automation.Options{
		PollInterval: e.cfg.Automation.PollInterval,
		MaxPolls:     e.cfg.Automation.MaxPolls,
		Total:        total,
	}, e.log)
	machine.SetReporter(reporter)
	machine.SetMetrics(e.metrics)
	return machine.Run(ctx)
}

// followingPageURL lists only the follows still in the other visibility
func followingPageURL(e *runEnv, userID string) string {
	return pixiv.FollowingPageURL(e.cfg.Pixiv.BaseURL, e.cfg.Pixiv.Language, userID) +
		"?rest=" + e.target.Opposite().Rest()
}

func automationLine(result *automation.Result, e *runEnv) string {
	if result == nil {
		return ""
	}
	return fmt.Sprintf("%d follows switched to %s", result.Edited, e.target)
}
