package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fake "pxfollow/internal/testutil"
	"pxfollow/pkg/auth"
	"pxfollow/pkg/automation"
	"pxfollow/pkg/config"
	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/metrics"
	"pxfollow/pkg/pixiv"
	"pxfollow/pkg/progress"
	"pxfollow/pkg/ratelimit"
	"pxfollow/pkg/storage"
	"pxfollow/pkg/ui"
)

const testCookie = "42_AbCdEfGhIjKlMnOpQrSt"

func newTestEnv(t *testing.T, baseURL string) *runEnv {
	t.Helper()
	prev := ui.SetOutput(io.Discard)
	t.Cleanup(func() { ui.SetOutput(prev) })

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Pixiv.BaseURL = baseURL
	cfg.Output.ReportDirectory = filepath.Join(dir, "reports")
	cfg.Output.JournalDirectory = filepath.Join(dir, "journal")
	cfg.Output.MetricsFile = filepath.Join(dir, "pxfollow.prom")
	cfg.Notifications.Enabled = false

	return &runEnv{
		cfg:      cfg,
		log:      logger.NewNopLogger(),
		target:   pixiv.Private,
		metrics:  metrics.New(),
		notifier: ui.NewNotifierWithSender(cfg.Notifications, nil),
		clock:    ratelimit.NewFakeClock(time.Unix(0, 0)),
	}
}

func TestAPIRunSwitchesEveryFollow(t *testing.T) {
	mock := fake.NewMockPixiv("42", "tok")
	defer mock.Close()
	mock.RequireCookie(testCookie)
	mock.AddPublicFollows(1, 3)

	env := newTestEnv(t, mock.URL())
	report := env.newReport(storage.StrategyAPI)
	rec := &progress.Recorder{}

	summary, err := env.apiRun(context.Background(), &auth.Account{Name: "main", SessionCookie: testCookie}, false, rec, report)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 3, mock.CountRestricted())
	assert.Equal(t, "42", report.UserID)
	assert.True(t, rec.Contains("Successfully updated 3 out of 3 users to private."))

	report.Summary = summary
	require.NoError(t, env.finish(report, nil, summaryLine(summary, env.target)))

	store, err := storage.NewManager(env.cfg.Output.ReportDirectory)
	require.NoError(t, err)
	reports, err := store.ListReports()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	saved, err := store.LoadReport(reports[0])
	require.NoError(t, err)
	assert.Equal(t, storage.StrategyAPI, saved.Strategy)
	assert.Equal(t, "private", saved.Direction)
	assert.Equal(t, 3, saved.Summary.Succeeded)

	data, err := os.ReadFile(env.cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pxfollow_mutations_total{outcome="success"} 3`)
}

func TestAPIRunWithWrongCookieIsPrecondition(t *testing.T) {
	mock := fake.NewMockPixiv("42", "tok")
	defer mock.Close()
	mock.RequireCookie(testCookie)
	mock.AddPublicFollows(1, 3)

	env := newTestEnv(t, mock.URL())
	rec := &progress.Recorder{}

	_, err := env.apiRun(context.Background(), &auth.Account{Name: "old", SessionCookie: "42_expired"}, false, rec, env.newReport(storage.StrategyAPI))
	require.Error(t, err)

	assert.True(t, errs.HasType(err, errs.ErrorTypePrecondition))
	assert.Zero(t, mock.MutationCalls())
	assert.Len(t, rec.Errors(), 1)
}

func TestFinishMarksErrorsReported(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1")
	env.cfg.Output.ReportDirectory = ""
	runErr := errs.New(errs.ErrorTypeListFetch, "page at offset 100")

	err := env.finish(env.newReport(storage.StrategyAPI), runErr, "")
	require.Error(t, err)
	assert.True(t, isReported(err))
	assert.ErrorIs(t, err, runErr)
}

// listPage is a following page whose first row disappears when clicked
type listPage struct {
	names  []string
	clicks int
}

func (p *listPage) LeadingEntityName(ctx context.Context) (string, bool) {
	if len(p.names) == 0 {
		return "", false
	}
	return p.names[0], true
}

func (p *listPage) ToggleState(ctx context.Context) automation.ControlState {
	if len(p.names) == 0 {
		return automation.Absent
	}
	return automation.Enabled
}

func (p *listPage) MenuPresent(ctx context.Context) bool { return len(p.names) > 0 }
func (p *listPage) OpenMenu(ctx context.Context) bool    { return len(p.names) > 0 }

func (p *listPage) ClickToggle(ctx context.Context) error {
	p.clicks++
	p.names = p.names[1:]
	return nil
}

func TestAutomateStopsAtTotal(t *testing.T) {
	env := newTestEnv(t, "https://www.pixiv.net")
	page := &listPage{names: []string{"alice", "bob", "carol", "dave"}}
	rec := &progress.Recorder{}

	result, err := env.automate(context.Background(), page, 3, rec)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Edited)
	assert.Equal(t, 3, page.clicks)
	assert.True(t, rec.Contains("Script finished."))
	assert.Equal(t, "3 follows switched to private", automationLine(result, env))
}

func TestAutomateUnknownTotalEndsWhenListEmpties(t *testing.T) {
	env := newTestEnv(t, "https://www.pixiv.net")
	env.cfg.Automation.MaxPolls = 5
	page := &listPage{names: []string{"alice", "bob"}}

	result, err := env.automate(context.Background(), page, automation.UnknownTotal, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Edited)
	assert.True(t, result.Exhausted)
}

func TestFollowingPageURLFiltersSourceVisibility(t *testing.T) {
	env := newTestEnv(t, "https://www.pixiv.net")

	assert.Equal(t, "https://www.pixiv.net/en/users/42/following?rest=show", followingPageURL(env, "42"))

	env.target = pixiv.Public
	assert.Equal(t, "https://www.pixiv.net/en/users/42/following?rest=hide", followingPageURL(env, "42"))
}

type memoryStore struct {
	accounts map[string]*auth.Account
}

func (m *memoryStore) Store(a *auth.Account) error { m.accounts[a.Name] = a; return nil }
func (m *memoryStore) Retrieve(name string) (*auth.Account, error) {
	if a, ok := m.accounts[name]; ok {
		return a, nil
	}
	return nil, auth.ErrCredentialsNotFound
}
func (m *memoryStore) List() ([]*auth.Account, error) {
	var out []*auth.Account
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}
func (m *memoryStore) Delete(name string) error { delete(m.accounts, name); return nil }
func (m *memoryStore) Exists(name string) bool  { _, ok := m.accounts[name]; return ok }

func TestResolveAccount(t *testing.T) {
	stored := &auth.Account{Name: "main", SessionCookie: testCookie, LastModified: time.Now()}
	manager := auth.NewManagerWithStores(&memoryStore{accounts: map[string]*auth.Account{"main": stored}})

	t.Run("named account", func(t *testing.T) {
		account, err := resolveAccount(manager, config.DefaultConfig(), "main")
		require.NoError(t, err)
		assert.Equal(t, testCookie, account.SessionCookie)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := resolveAccount(manager, config.DefaultConfig(), "other")
		assert.ErrorIs(t, err, auth.ErrCredentialsNotFound)
	})

	t.Run("cookie from config wins over stored default", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Pixiv.SessionCookie = "7_fromconfig"
		account, err := resolveAccount(manager, cfg, "")
		require.NoError(t, err)
		assert.Equal(t, "config", account.Name)
		assert.Equal(t, "7_fromconfig", account.SessionCookie)
	})

	t.Run("stored default", func(t *testing.T) {
		account, err := resolveAccount(manager, config.DefaultConfig(), "")
		require.NoError(t, err)
		assert.Equal(t, "main", account.Name)
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		empty := auth.NewManagerWithStores(&memoryStore{accounts: map[string]*auth.Account{}})
		_, err := resolveAccount(empty, config.DefaultConfig(), "")
		require.Error(t, err)
		assert.True(t, errs.HasType(err, errs.ErrorTypePrecondition))
	})
}

func TestWriteMaskedConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pixiv.SessionCookie = testCookie

	var buf bytes.Buffer
	require.NoError(t, writeMaskedConfig(&buf, cfg))

	assert.NotContains(t, buf.String(), testCookie)
	assert.Contains(t, buf.String(), "session_cookie: 42_A...QrSt")
	assert.Contains(t, buf.String(), "mutation_delay: 250ms")
	assert.Equal(t, testCookie, cfg.Pixiv.SessionCookie)
}

func TestPrintAccountsMasksCookies(t *testing.T) {
	var buf bytes.Buffer
	printAccounts(&buf, []*auth.Account{{Name: "main", SessionCookie: testCookie, UserID: "42"}})

	out := buf.String()
	assert.Contains(t, out, "1. main")
	assert.Contains(t, out, "User ID: 42")
	assert.False(t, strings.Contains(out, testCookie))

	buf.Reset()
	printAccounts(&buf, nil)
	assert.Contains(t, buf.String(), "pxfollow auth login")
}

func TestLogEventsMirrorsProgress(t *testing.T) {
	env := newTestEnv(t, "https://www.pixiv.net")
	log := logger.NewTestLogger()
	env.log = log
	rec := &progress.Recorder{}

	r := progress.Multi(rec, env.logEvents())
	r.Report(progress.Event{Message: "[2/5] Processing user: bob", Phase: progress.PhaseMutate, Current: 2, Total: 5})
	r.Report(progress.Event{Message: "Failed to update user bob: Rate limited", IsError: true, Phase: progress.PhaseMutate})

	assert.Len(t, rec.Events(), 2)

	msgs := log.GetMessagesByLevel("debug")
	require.Len(t, msgs, 2)
	assert.Equal(t, "[2/5] Processing user: bob", msgs[0].Message)
	assert.Equal(t, "mutate", msgs[0].Fields["phase"])
	assert.Equal(t, 5, msgs[0].Fields["total"])
	assert.Equal(t, true, msgs[1].Fields["failed"])
}
