// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package cliui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/filesync"
	"github.com/vmware/remote-deploy/pkg/plan"
	"github.com/vmware/remote-deploy/pkg/task"
)

func TestSelectModel(t *testing.T) {
	t.Run("enter picks the highlighted option", func(t *testing.T) {
		m := newSelectModel("Pick:", []string{"web", "api", "db"})
		m.Update(tea.KeyMsg{Type: tea.KeyDown})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd)
		require.Equal(t, 1, m.index)
		require.Equal(t, "api", m.choice)
		require.Equal(t, picked, m.state)
		require.Contains(t, m.View(), "api")
	})

	t.Run("digit picks directly", func(t *testing.T) {
		m := newSelectModel("Pick:", []string{"web", "api", "db"})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
		require.NotNil(t, cmd)
		require.Equal(t, 2, m.index)
		require.Equal(t, "db", m.choice)
		require.Equal(t, 0, m.list.Index())
	})

	t.Run("out of range digit is ignored", func(t *testing.T) {
		m := newSelectModel("Pick:", []string{"web", "api"})
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("7")})
		require.Equal(t, browsing, m.state)
		require.Equal(t, -1, m.index)
	})

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyEscape},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyRunes, Runes: []rune("q")},
	} {
		t.Run("quit with "+key.String(), func(t *testing.T) {
			m := newSelectModel("Pick:", []string{"web"})
			m.Update(key)
			require.Equal(t, cancelled, m.state)
			require.Equal(t, -1, m.index)
			require.Contains(t, m.View(), "cancelled")
		})
	}
}

func TestSelectNoOptions(t *testing.T) {
	_, _, err := Select("Pick:", nil)
	require.Error(t, err)
}

func TestPasswordModel(t *testing.T) {
	m := newPasswordModel("Password for deploy@web:22")
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s3cret")})
	require.NotContains(t, m.View(), "s3cret")
	require.Contains(t, m.View(), "Password for deploy@web:22")

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.submitted)
	require.Equal(t, "s3cret", m.input.Value())

	m = newPasswordModel("pw")
	m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	require.True(t, m.quitting)
}

func testServer() *config.Server {
	return &config.Server{
		Name:     "web",
		Host:     "10.0.0.1",
		Port:     22,
		Username: "deploy",
		Auth:     config.Auth{Type: config.AuthSSHKey, KeyPath: "~/.ssh/id_ed25519"},
		Upload: map[string][]config.UploadRule{
			"site": {{LocalPath: "./dist", RemotePath: "/srv/app", Mode: config.ModeSync, DeleteExtra: true}},
		},
		Commands: map[string][]string{
			"reload":  {"sudo systemctl reload nginx"},
			"restart": {"cd /opt/app && ./restart.sh"},
		},
	}
}

func TestSelector(t *testing.T) {
	var titles []string
	var answer int
	s := &Selector{choose: func(title string, options []string) (int, string, error) {
		titles = append(titles, title)
		return answer, options[answer], nil
	}}
	server := testServer()

	got, err := s.SelectServer([]*config.Server{server})
	require.NoError(t, err)
	require.Same(t, server, got)

	group, err := s.SelectCommandGroup(server)
	require.NoError(t, err)
	require.Equal(t, "reload", group)

	// the last entry skips the stage
	answer = 1
	upload, err := s.SelectUploadType(server)
	require.NoError(t, err)
	require.Empty(t, upload)

	// nothing to choose from, no prompt
	n := len(titles)
	upload, err = s.SelectUploadType(&config.Server{Name: "bare"})
	require.NoError(t, err)
	require.Empty(t, upload)
	require.Len(t, titles, n)
}

func TestSelectorCancelled(t *testing.T) {
	s := &Selector{choose: func(string, []string) (int, string, error) {
		return -1, "", ErrCancelled
	}}
	_, err := s.SelectServer([]*config.Server{testServer()})
	require.ErrorIs(t, err, ErrCancelled)
	_, err = s.SelectCommandGroup(testServer())
	require.ErrorIs(t, err, ErrCancelled)
}

func TestReporterRun(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)
	server := testServer()

	r.Stage(plan.SelectingServer, nil)
	r.Stage(plan.Uploading, server)
	r.FileUploaded("dist/index.html", "/srv/app/index.html")
	r.FileDeleted("/srv/app/old.css")
	r.DeleteFailed(&filesync.DeleteError{Path: "/srv/app/locked", Output: "Operation not permitted"})
	r.Stage(plan.ExecutingCommands, server)
	r.CommandOutcome(task.Outcome{Command: "true", Succeeded: true, Exit: task.SucceededNoOutput})
	r.CommandOutcome(task.Outcome{Command: "./restart.sh", Output: "line1\nline2\n", Exit: task.Failed})

	out := buf.String()
	require.NotContains(t, out, "Selecting")
	require.Contains(t, out, "==> Uploading (web)")
	require.Contains(t, out, "uploaded /srv/app/index.html")
	require.Contains(t, out, "deleted /srv/app/old.css")
	require.Contains(t, out, "failed to delete /srv/app/locked: Operation not permitted")
	require.Contains(t, out, "ok true")
	require.Contains(t, out, "failed ./restart.sh\n    line1\n    line2\n")
}

func TestReporterFailedCommandWithoutOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.CommandOutcome(task.Outcome{Command: "./deploy.sh", Exit: task.Failed})
	r.CommandOutcome(task.Outcome{Command: "./check.sh", Output: " \n", Exit: task.Failed})
	require.Equal(t, "  failed ./deploy.sh\n  failed ./check.sh\n", buf.String())
}

func TestReporterProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)
	r.ShowProgress = true
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.progress.now = func() time.Time { return clock }

	r.FileProgress("dist/app.js", "/srv/app/app.js", 0, 4096)
	clock = clock.Add(time.Second)
	r.FileProgress("dist/app.js", "/srv/app/app.js", 2048, 4096)
	clock = clock.Add(10 * time.Millisecond)
	r.FileProgress("dist/app.js", "/srv/app/app.js", 3000, 4096)
	clock = clock.Add(time.Second)
	r.FileProgress("dist/app.js", "/srv/app/app.js", 4096, 4096)
	r.FileUploaded("dist/app.js", "/srv/app/app.js")

	out := buf.String()
	require.Contains(t, out, "app.js")
	require.Contains(t, out, "0 B/4.0 KiB -- ETA --")
	require.Contains(t, out, "2.0 KiB/4.0 KiB 2.0 KiB/s ETA 1s")
	require.Contains(t, out, "50%")
	// redraws are throttled except for the last chunk
	require.NotContains(t, out, "2.9 KiB/4.0 KiB")
	require.Contains(t, out, "4.0 KiB/4.0 KiB")
	require.Contains(t, out, "100%")
	require.True(t, strings.HasSuffix(out, clearLine+"  uploaded /srv/app/app.js\n"))
}

func TestReporterProgressInterrupted(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)
	r.ShowProgress = true

	r.FileProgress("dist/app.js", "/srv/app/app.js", 10, 4096)
	r.Summary(plan.Result{Outcome: plan.Failed, Server: "web", Err: errors.New("connection lost")})

	out := buf.String()
	require.Contains(t, out, "10 B/4.0 KiB -- ETA --\n")
	require.Contains(t, out, "Deployment to web failed: connection lost")
}

func TestReporterProgressDisabled(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)
	require.False(t, r.ShowProgress)

	r.FileProgress("a", "/srv/a", 1, 2)
	r.FileUploaded("a", "/srv/a")
	require.Equal(t, "  uploaded /srv/a\n", buf.String())
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KiB",
		1536:            "1.5 KiB",
		5 * 1024 * 1024: "5.0 MiB",
		3 << 30:         "3.0 GiB",
	}
	for n, want := range tests {
		require.Equal(t, want, humanBytes(n))
	}
}

func TestReporterSummary(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf).Summary(plan.Result{
		Outcome:         plan.Failed,
		Server:          "web",
		UploadAttempted: true,
		Err:             errors.New("upload 'site' failed"),
	})

	out := buf.String()
	require.Contains(t, out, "Local commands")
	require.Contains(t, out, "skipped")
	require.Contains(t, out, "failed")
	require.Contains(t, out, "Deployment to web failed: upload 'site' failed")
}

func TestReporterPlan(t *testing.T) {
	var buf bytes.Buffer
	server := testServer()
	NewReporter(&buf).Plan(&plan.Plan{
		Server:        server,
		UploadType:    "site",
		Rules:         server.Upload["site"],
		LocalCommands: &config.LocalCommands{Commands: []string{"npm run build"}},
	})

	out := buf.String()
	require.Contains(t, out, "Dry run: web (deploy@10.0.0.1:22)")
	require.Contains(t, out, "1. npm run build")
	require.Contains(t, out, "/srv/app")
	require.Contains(t, out, "sync")
	require.Contains(t, out, "yes")
	require.Contains(t, out, "Commands: skipped")
}

func TestServerTable(t *testing.T) {
	out := ServerTable([]*config.Server{testServer()})
	require.Contains(t, out, "Name")
	require.Contains(t, out, "deploy@10.0.0.1:22")
	require.Contains(t, out, "ssh_key")
	require.Contains(t, out, "reload, restart")
}
