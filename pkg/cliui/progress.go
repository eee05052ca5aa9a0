// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package cliui

import (
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"
)

const (
	progressBarWidth = 30
	redrawInterval   = 100 * time.Millisecond
	// clears the current terminal line
	clearLine = "\r\x1b[2K"
)

// transfer tracks the file currently being uploaded.
type transfer struct {
	remotePath string
	started    time.Time
	lastDraw   time.Time
}

type progressLine struct {
	bar     progress.Model
	now     func() time.Time
	current *transfer
}

func newProgressLine() *progressLine {
	return &progressLine{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressBarWidth)),
		now: time.Now,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// render returns the line for the given progress, or "" when nothing should be
// redrawn yet. The final update of a file is always drawn.
func (p *progressLine) render(remotePath string, written, total int64) string {
	now := p.now()
	if p.current == nil || p.current.remotePath != remotePath {
		p.current = &transfer{remotePath: remotePath, started: now}
	} else if written < total && now.Sub(p.current.lastDraw) < redrawInterval {
		return ""
	}
	p.current.lastDraw = now

	percent := 1.0
	if total > 0 {
		percent = float64(written) / float64(total)
	}

	rate := "--"
	eta := "--"
	if elapsed := now.Sub(p.current.started).Seconds(); elapsed > 0 && written > 0 {
		speed := float64(written) / elapsed
		rate = humanBytes(int64(speed)) + "/s"
		remaining := time.Duration(float64(total-written) / speed * float64(time.Second))
		eta = remaining.Round(time.Second).String()
	}

	return fmt.Sprintf("  %s %s %s/%s %s ETA %s",
		path.Base(remotePath), p.bar.ViewAs(percent), humanBytes(written), humanBytes(total), rate, eta)
}

// done forgets the current transfer and reports whether a line was drawn
// for it.
func (p *progressLine) done(remotePath string) bool {
	drawn := p.current != nil && p.current.remotePath == remotePath
	p.current = nil
	return drawn
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
