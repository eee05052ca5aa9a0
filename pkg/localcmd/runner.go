// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

// Package localcmd runs build steps on the operator machine before an upload.
package localcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/vmware/remote-deploy/pkg/config"
)

// CommandError is returned for a local command that exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("local command '%s' exited with code %d", e.Command, e.ExitCode)
}

// Runner executes commands through "sh -c" so pipes and redirects work.
type Runner struct {
	// Output receives the combined output of every command as it runs.
	Output io.Writer
}

// Run executes group in order. With stop_on_error (the default) the first
// failure is returned; otherwise failures are logged and the run goes on.
func (r *Runner) Run(ctx context.Context, group string, lc config.LocalCommands) error {
	if len(lc.Commands) == 0 {
		log.Printf("local command group '%s' is empty, skipping", group)
		return nil
	}

	dir := config.ExpandPath(lc.WorkingDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("working directory %s does not exist", dir)
	}

	log.Printf("running %d local commands for '%s' in %s", len(lc.Commands), group, dir)
	for i, command := range lc.Commands {
		log.Printf("[%d/%d] %s", i+1, len(lc.Commands), command)
		if err := r.run(ctx, dir, command); err != nil {
			if lc.StopsOnError() {
				return fmt.Errorf("local command group '%s': %w", group, err)
			}
			log.Printf("warning: %v, continuing", err)
		}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, dir, command string) error {
	var buf bytes.Buffer
	out := io.Writer(&buf)
	if r.Output != nil {
		out = io.MultiWriter(&buf, r.Output)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Command: command, ExitCode: exitErr.ExitCode(), Output: strings.TrimSpace(buf.String())}
	}
	return fmt.Errorf("local command '%s' could not run: %w", command, err)
}
