// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package task

import (
	"fmt"
	"strings"

	"github.com/vmware/remote-deploy/pkg/remote"
)

// CommandError is returned for a remote command that did not succeed.
type CommandError struct {
	Command string
	Output  string
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("command '%s' failed", e.Command)
	}
	return fmt.Sprintf("command '%s' failed: %s", e.Command, out)
}

// CommandTask runs a single shell command. There is no retry: a failure is
// reported as is.
type CommandTask struct {
	Description string
	Command     string
}

func (t *CommandTask) Name() string {
	if t.Description != "" {
		return t.Description
	}
	return "CommandTask"
}

// Run returns the command output. On failure the output is returned as well,
// alongside a *CommandError carrying it.
func (t *CommandTask) Run(session remote.Session) (string, error) {
	res := session.Exec(t.Command)
	if !res.Succeeded {
		return res.Output, &CommandError{Command: t.Command, Output: res.Output}
	}
	return res.Output, nil
}
