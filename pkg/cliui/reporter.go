// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package cliui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/filesync"
	"github.com/vmware/remote-deploy/pkg/plan"
	"github.com/vmware/remote-deploy/pkg/task"
)

var (
	stageStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	outputIndent = "    "
)

var _ plan.Reporter = (*Reporter)(nil)

// Reporter prints deployment progress for a terminal.
type Reporter struct {
	out io.Writer
	// ShowProgress draws a byte progress bar while a file uploads. It is on
	// when out is a terminal.
	ShowProgress bool

	progress *progressLine
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{
		out:          out,
		ShowProgress: isTerminal(out),
		progress:     newProgressLine(),
	}
}

func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// breakProgress ends a progress line left behind by a failed upload.
func (r *Reporter) breakProgress() {
	if r.progress.current != nil && r.ShowProgress {
		r.printf("\n")
	}
	r.progress.current = nil
}

func (r *Reporter) Stage(state plan.State, server *config.Server) {
	r.breakProgress()
	switch state {
	case plan.RunningLocalCommands, plan.Connecting, plan.Uploading, plan.ExecutingCommands:
		r.printf("%s\n", stageStyle.Render(fmt.Sprintf("==> %s (%s)", capitalize(state.String()), server.Name)))
	}
}

func (r *Reporter) FileProgress(_, remotePath string, written, total int64) {
	if !r.ShowProgress {
		return
	}
	if line := r.progress.render(remotePath, written, total); line != "" {
		r.printf("%s%s", clearLine, line)
	}
}

func (r *Reporter) FileUploaded(_, remotePath string) {
	if r.progress.done(remotePath) && r.ShowProgress {
		r.printf("%s", clearLine)
	}
	r.printf("  %s %s\n", okStyle.Render("uploaded"), remotePath)
}

func (r *Reporter) FileDeleted(remotePath string) {
	r.printf("  %s %s\n", warnStyle.Render("deleted"), remotePath)
}

func (r *Reporter) DeleteFailed(err *filesync.DeleteError) {
	r.printf("  %s %v\n", warnStyle.Render("warning:"), err)
}

func (r *Reporter) CommandOutcome(o task.Outcome) {
	mark := okStyle.Render("ok")
	if !o.Succeeded {
		mark = failStyle.Render("failed")
	}
	r.printf("  %s %s\n", mark, o.Command)
	if strings.TrimSpace(o.Output) != "" {
		r.printf("%s\n", indent(o.Output))
	}
}

// Plan prints what a run would do without doing it.
func (r *Reporter) Plan(p *plan.Plan) {
	s := p.Server
	r.printf("%s\n", stageStyle.Render(fmt.Sprintf("Dry run: %s (%s@%s)", s.Name, s.Username, s.Address())))

	if p.UploadType == "" {
		r.printf("\nUpload: %s\n", dimStyle.Render("skipped"))
	} else {
		if p.LocalCommands != nil {
			dir := p.LocalCommands.WorkingDir
			if dir == "" {
				dir = "."
			}
			r.printf("\nLocal commands (in %s):\n", dir)
			for i, c := range p.LocalCommands.Commands {
				r.printf("  %d. %s\n", i+1, c)
			}
		}

		rows := make([][]string, 0, len(p.Rules))
		for _, rule := range p.Rules {
			deleteExtra := "no"
			if rule.Mode == config.ModeSync && rule.DeleteExtra {
				deleteExtra = "yes"
			}
			rows = append(rows, []string{rule.LocalPath, rule.RemotePath, string(rule.Mode), deleteExtra})
		}
		r.printf("\nUpload '%s':\n%s\n", p.UploadType, renderTable([]string{"Local", "Remote", "Mode", "Delete extra"}, rows))
	}

	if p.CommandGroup == "" {
		r.printf("\nCommands: %s\n", dimStyle.Render("skipped"))
		return
	}
	r.printf("\nCommands '%s':\n", p.CommandGroup)
	for i, c := range p.Commands {
		r.printf("  %d. %s\n", i+1, c)
	}
}

func (r *Reporter) Summary(res plan.Result) {
	r.breakProgress()
	rows := [][]string{
		{"Local commands", stageStatus(res.LocalCommandsAttempted, res.LocalCommandsSucceeded)},
		{"Upload", stageStatus(res.UploadAttempted, res.UploadSucceeded)},
		{"Commands", stageStatus(res.CommandsAttempted, res.CommandsSucceeded)},
	}
	r.printf("\n%s\n", renderTable([]string{"Stage", "Status"}, rows))

	if len(res.Uploaded) > 0 || len(res.Deleted) > 0 {
		r.printf("%d file(s) uploaded, %d deleted\n", len(res.Uploaded), len(res.Deleted))
	}
	if res.Outcome == plan.Success {
		r.printf("%s\n", okStyle.Render(fmt.Sprintf("Deployment to %s succeeded", res.Server)))
		return
	}
	r.printf("%s\n", failStyle.Render(fmt.Sprintf("Deployment to %s failed: %v", res.Server, res.Err)))
}

// ServerTable renders the servers of a config.
func ServerTable(servers []*config.Server) string {
	rows := make([][]string, 0, len(servers))
	for _, s := range servers {
		rows = append(rows, []string{
			s.Name,
			s.Username + "@" + s.Address(),
			string(s.Auth.Type),
			strings.Join(s.UploadGroups(), ", "),
			strings.Join(s.CommandGroups(), ", "),
		})
	}
	return renderTable([]string{"Name", "Address", "Auth", "Upload", "Commands"}, rows)
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func stageStatus(attempted, succeeded bool) string {
	switch {
	case !attempted:
		return "skipped"
	case succeeded:
		return "ok"
	default:
		return "failed"
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = outputIndent + l
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
