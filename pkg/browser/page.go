package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"pxfollow/pkg/automation"
	"pxfollow/pkg/config"
	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/logger"
)

// Session is a connection to one Chrome tab
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	evalTimeout time.Duration
	logger      logger.Logger
}

// Connect attaches to cfg.DebuggerURL when set and launches Chrome otherwise
func Connect(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.DebuggerURL != "" {
		log.WithField("debugger_url", cfg.DebuggerURL).Info("Attaching to running Chrome")
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.DebuggerURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
		)
		if cfg.UserDataDir != "" {
			opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
		}
		log.WithFields(map[string]interface{}{
			"headless":      cfg.Headless,
			"user_data_dir": cfg.UserDataDir,
		}).Info("Launching Chrome")
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	// an empty Run starts the browser and opens the tab
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, errs.Wrap(errs.ErrorTypePrecondition, err, "failed to start browser session")
	}

	evalTimeout := cfg.EvalTimeout
	if evalTimeout <= 0 {
		evalTimeout = 5 * time.Second
	}

	return &Session{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		evalTimeout: evalTimeout,
		logger:      log,
	}, nil
}

// Close closes the tab, and the browser when it was launched by Connect
func (s *Session) Close() {
	s.cancel()
}

// Navigate loads url and waits for the body to be ready
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.runContext(ctx, 30*time.Second)
	defer cancel()

	s.logger.WithField("url", url).Debug("Navigating")
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, err, fmt.Sprintf("failed to open %s", url))
	}
	return nil
}

// Page returns the automation view of the tab
func (s *Session) Page() *Page {
	return &Page{session: s}
}

// runContext derives a tab context bounded by timeout that also ends with ctx
func (s *Session) runContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) eval(ctx context.Context, script string, out interface{}) error {
	runCtx, cancel := s.runContext(ctx, s.evalTimeout)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Evaluate(script, out))
}

// Page reads and clicks the following page of a Session
type Page struct {
	session *Session
}

var (
	_ automation.Page    = (*Page)(nil)
	_ automation.Counter = (*Page)(nil)
)

func (p *Page) LeadingEntityName(ctx context.Context) (string, bool) {
	var res struct {
		Name  string `json:"name"`
		Found bool   `json:"found"`
	}
	if err := p.session.eval(ctx, leadingEntityScript, &res); err != nil {
		p.session.logger.WithError(err).Debug("Leading entity lookup failed")
		return "", false
	}
	return res.Name, res.Found
}

func (p *Page) ToggleState(ctx context.Context) automation.ControlState {
	var view toggleView
	if err := p.session.eval(ctx, toggleStateScript, &view); err != nil {
		p.session.logger.WithError(err).Debug("Toggle lookup failed")
		return automation.Absent
	}
	return view.state()
}

func (p *Page) MenuPresent(ctx context.Context) bool {
	var present bool
	if err := p.session.eval(ctx, menuPresentScript, &present); err != nil {
		return false
	}
	return present
}

func (p *Page) OpenMenu(ctx context.Context) bool {
	var clicked bool
	if err := p.session.eval(ctx, openMenuScript, &clicked); err != nil {
		p.session.logger.WithError(err).Debug("Opening follow menu failed")
		return false
	}
	return clicked
}

func (p *Page) ClickToggle(ctx context.Context) error {
	var clicked bool
	if err := p.session.eval(ctx, clickToggleScript, &clicked); err != nil {
		return fmt.Errorf("failed to click visibility toggle: %w", err)
	}
	if !clicked {
		return fmt.Errorf("visibility toggle is no longer clickable")
	}
	return nil
}

// FollowCount reads the number shown next to the following heading
func (p *Page) FollowCount(ctx context.Context) (int, bool) {
	var n int
	if err := p.session.eval(ctx, followCountScript, &n); err != nil {
		p.session.logger.WithError(err).Debug("Follow count lookup failed")
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	return n, true
}
