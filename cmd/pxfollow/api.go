package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pxfollow/pkg/auth"
	"pxfollow/pkg/checkpoint"
	"pxfollow/pkg/config"
	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/follows"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/pixiv"
	"pxfollow/pkg/progress"
	"pxfollow/pkg/retry"
	"pxfollow/pkg/storage"
	"pxfollow/pkg/ui"
)

var (
	apiDirection string
	apiResume    bool
	apiAccount   string
	apiTUI       bool
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Switch follows through Pixiv's AJAX API",
	Long: `Switch every follow of the logged-in user through Pixiv's AJAX API.

The session cookie comes from, in order:
  - the stored account named by --account
  - PXFOLLOW_SESSION_COOKIE or pixiv.session_cookie in the config file
  - the most recently stored account ('pxfollow auth login')

Only follows still in the other visibility are listed, so running the
command again after a partial failure retries just the ones that were left.
With --resume, accounts the run journal records as switched are skipped
without a request.`,
	Example: `  # Make every follow private
  pxfollow api

  # Make every follow public again, with the full screen view
  pxfollow api --direction public --tui

  # Continue an interrupted run
  pxfollow api --resume`,
	Args: cobra.NoArgs,
	RunE: runAPICommand,
}

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVarP(&apiDirection, "direction", "d", "", "target visibility: private or public (default from config)")
	apiCmd.Flags().BoolVar(&apiResume, "resume", false, "skip follows the run journal records as switched")
	apiCmd.Flags().StringVarP(&apiAccount, "account", "a", "", "use a specific stored account")
	apiCmd.Flags().BoolVar(&apiTUI, "tui", false, "show progress in a full screen view")
}

func runAPICommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := newRunEnv(cmd, map[string]interface{}{"direction": apiDirection})
	if err != nil {
		return err
	}

	account, err := resolveAccount(newCredentialManager(env.log), env.cfg, apiAccount)
	if err != nil {
		return err
	}
	if !apiTUI {
		ui.PrintInfo("Account", account.Name)
		ui.PrintInfo("Direction", env.target.String())
	}

	report := env.newReport(storage.StrategyAPI)
	var summary *follows.RunSummary
	work := func(ctx context.Context, r progress.Reporter) (string, error) {
		var err error
		summary, err = env.apiRun(ctx, account, apiResume, progress.Multi(r, env.logEvents()), report)
		return summaryLine(summary, env.target), err
	}

	if apiTUI {
		err = runWithTUI(ctx, "switch follows to "+env.target.String(), work)
	} else {
		terminal := newTerminalReporter()
		_, err = work(ctx, terminal)
		terminal.Complete(summary)
	}

	report.Summary = summary
	return env.finish(report, err, summaryLine(summary, env.target))
}

// apiRun bootstraps the session and runs the pipeline
func (e *runEnv) apiRun(ctx context.Context, account *auth.Account, resume bool, reporter progress.Reporter, report *storage.Report) (*follows.RunSummary, error) {
	pixivCfg := e.cfg.Pixiv
	pixivCfg.SessionCookie = account.SessionCookie
	if account.UserAgent != "" {
		pixivCfg.UserAgent = account.UserAgent
	}

	client := pixiv.NewClient(pixivCfg, e.log)
	client.SetRetry(retry.FromConfig(e.cfg.Retry, e.log))

	reporter.Report(progress.Event{Message: "Reading session from pixiv...", Phase: progress.PhaseSession})
	session, err := client.FetchSession(ctx)
	if err != nil {
		reporter.Report(progress.Event{
			Message: "Could not read the pixiv session: " + err.Error(),
			IsError: true,
			Phase:   progress.PhaseSession,
		})
		return nil, err
	}
	report.UserID = session.UserID

	pipeline := follows.NewPipeline(client, follows.PipelineConfig{
		PageSize:      e.cfg.Pacing.PageSize,
		PageDelay:     e.cfg.Pacing.PageDelay,
		MutationDelay: e.cfg.Pacing.MutationDelay,
		Dedupe:        e.cfg.Run.Dedupe,
		Resume:        resume,
		Clock:         e.clock,
	}, e.log)
	pipeline.SetReporter(reporter)
	pipeline.SetMetrics(e.metrics)
	if e.cfg.Output.Journal {
		pipeline.SetJournal(checkpoint.Opener(e.cfg.Output.JournalDirectory, e.log))
	}

	return pipeline.Run(ctx, session, e.target)
}

// resolveAccount picks the session cookie to run with
func resolveAccount(manager *auth.Manager, cfg *config.Config, name string) (*auth.Account, error) {
	if name != "" {
		account, err := manager.Retrieve(name)
		if err != nil {
			return nil, fmt.Errorf("account %q not found, see 'pxfollow auth list': %w", name, err)
		}
		return account, nil
	}

	if cfg.Pixiv.SessionCookie != "" {
		return &auth.Account{Name: "config", SessionCookie: cfg.Pixiv.SessionCookie}, nil
	}

	account, err := manager.RetrieveDefault()
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypePrecondition, err,
			"no pixiv session cookie, run 'pxfollow auth login' or set PXFOLLOW_SESSION_COOKIE")
	}
	return account, nil
}

// newCredentialManager falls back to the environment alone when the
// persistent stores cannot be opened
func newCredentialManager(log logger.Logger) *auth.Manager {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("Credential stores unavailable, using environment only")
		return auth.NewManagerWithStores(auth.NewEnvironmentStore())
	}
	return manager
}

func summaryLine(summary *follows.RunSummary, target pixiv.Visibility) string {
	if summary == nil {
		return ""
	}
	return fmt.Sprintf("%d of %d follows switched to %s", summary.Succeeded, summary.Attempted, target)
}
