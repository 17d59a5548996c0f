package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pxfollow/pkg/config"
	"pxfollow/pkg/follows"
	"pxfollow/pkg/progress"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(prev)
		SetQuietMode(false)
	})
	return &buf
}

func TestQuietModeKeepsErrors(t *testing.T) {
	buf := captureOutput(t)
	SetQuietMode(true)

	PrintSuccess("done")
	PrintInfo("Account", "alice")
	PrintError("failed to load config", errors.New("bad yaml"))

	assert.NotContains(t, buf.String(), "done")
	assert.NotContains(t, buf.String(), "alice")
	assert.Contains(t, buf.String(), "failed to load config: bad yaml")
}

func TestTerminalReporterPlain(t *testing.T) {
	captureOutput(t)
	var buf bytes.Buffer
	r := NewTerminalReporter(&buf, false)

	r.Report(progress.Event{Message: "Found 2 follows.", Phase: progress.PhaseEnumerate})
	r.Report(progress.Event{Message: "[1/2] Processing user: alice", Phase: progress.PhaseMutate, Current: 1, Total: 2})
	r.Report(progress.Event{Message: "Failed to update user bob: Rate limited", IsError: true, Phase: progress.PhaseMutate})

	out := buf.String()
	assert.Contains(t, out, "[enumerate] Found 2 follows.\n")
	assert.Contains(t, out, "[mutate] [1/2] Processing user: alice\n")
	assert.Contains(t, out, "✗ Failed to update user bob: Rate limited\n")
	assert.NotContains(t, out, "\033[")
	assert.Equal(t, 1, r.Errors())
}

func TestTerminalReporterLiveRedrawsOneLine(t *testing.T) {
	captureOutput(t)
	var buf bytes.Buffer
	r := NewTerminalReporter(&buf, true)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.startTime = start
	r.now = func() time.Time { return start.Add(10 * time.Second) }

	r.Report(progress.Event{Message: "[1/4] Processing user: alice", Phase: progress.PhaseMutate, Current: 1, Total: 4})
	r.Report(progress.Event{Message: "[2/4] Processing user: bob", Phase: progress.PhaseMutate, Current: 2, Total: 4})

	out := buf.String()
	assert.NotContains(t, out, "\n")
	assert.Contains(t, out, "2/4")
	assert.Contains(t, out, "10s left")

	r.Report(progress.Event{Message: "Successfully updated 2 out of 4 users to private.", Phase: progress.PhaseSummary})
	assert.Contains(t, buf.String(), "\n"+Dim("[summary]"))
}

func TestTerminalReporterQuietDropsProgress(t *testing.T) {
	captureOutput(t)
	SetQuietMode(true)
	var buf bytes.Buffer
	r := NewTerminalReporter(&buf, false)

	r.Report(progress.Event{Message: "Found 2 follows.", Phase: progress.PhaseEnumerate})
	assert.Empty(t, buf.String())

	r.Report(progress.Event{Message: "Could not find follow count.", IsError: true, Phase: progress.PhaseAutomation})
	assert.Contains(t, buf.String(), "Could not find follow count.")
}

func TestTerminalReporterComplete(t *testing.T) {
	captureOutput(t)
	var buf bytes.Buffer
	r := NewTerminalReporter(&buf, false)

	r.Complete(&follows.RunSummary{
		Attempted:  3,
		Succeeded:  2,
		Duplicates: 1,
		Outcomes: []follows.Outcome{
			{Entity: follows.Entity{ID: "1", DisplayName: "alice"}, Kind: follows.Success},
			{Entity: follows.Entity{ID: "2", DisplayName: "bob"}, Kind: follows.ApiRejected, Reason: "Rate limited"},
			{Entity: follows.Entity{ID: "3", DisplayName: "carol"}, Kind: follows.Success},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Switched 2 of 3 follows")
	assert.Contains(t, out, "1 duplicates dropped")
	assert.Contains(t, out, "1 changes failed")
	assert.Contains(t, out, "bob (2): Rate limited")
	assert.NotContains(t, out, "alice")
	assert.NotContains(t, out, "\033[")
}

func TestTerminalReporterLiveColorsErrors(t *testing.T) {
	captureOutput(t)
	var buf bytes.Buffer
	r := NewTerminalReporter(&buf, true)

	r.Report(progress.Event{Message: "Could not read the pixiv session", IsError: true, Phase: progress.PhaseSession})

	assert.Equal(t, Red("✗")+" "+Red("Could not read the pixiv session")+"\n", buf.String())
}

func TestBar(t *testing.T) {
	assert.Equal(t, "━━━━━━━━━━──────────", bar(5, 10))
	assert.Equal(t, "━━━━━━━━━━━━━━━━━━━━", bar(12, 10))
	assert.Equal(t, "────────────────────", bar(3, 0))
}

type recordingSender struct {
	sent []string
	err  error
}

func (s *recordingSender) Send(title, message string) error {
	s.sent = append(s.sent, title+"|"+message)
	return s.err
}

func TestNotifierHonorsPreferences(t *testing.T) {
	captureOutput(t)

	tests := []struct {
		name string
		cfg  config.NotificationConfig
		want []string
	}{
		{
			name: "all enabled",
			cfg:  config.NotificationConfig{Enabled: true, OnComplete: true, OnError: true},
			want: []string{"pxfollow|3 follows switched", "pxfollow failed|boom"},
		},
		{
			name: "disabled",
			cfg:  config.NotificationConfig{Enabled: false, OnComplete: true, OnError: true},
		},
		{
			name: "errors only",
			cfg:  config.NotificationConfig{Enabled: true, OnError: true},
			want: []string{"pxfollow failed|boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{err: errors.New("no notification daemon")}
			n := NewNotifierWithSender(tt.cfg, sender)

			n.Success("pxfollow", "3 follows switched")
			n.Failure("pxfollow failed", errors.New("boom"))

			require.Len(t, sender.sent, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i], sender.sent[i])
			}
		})
	}
}

func TestNotifierWithoutSenderPrints(t *testing.T) {
	buf := captureOutput(t)
	n := NewNotifierWithSender(config.NotificationConfig{Enabled: true, OnComplete: true}, nil)

	n.Success("pxfollow", "done")
	assert.Contains(t, buf.String(), "done")
}

func TestXMLEscape(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt; &quot;d&quot;", xmlEscape(`a & b <c> "d"`))
}
