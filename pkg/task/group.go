// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package task

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/vmware/remote-deploy/pkg/remote"
)

// ExitIndicator classifies a finished command.
type ExitIndicator int

const (
	SucceededWithOutput ExitIndicator = iota
	SucceededNoOutput
	Failed
)

func (e ExitIndicator) String() string {
	switch e {
	case SucceededWithOutput:
		return "succeeded"
	case SucceededNoOutput:
		return "succeeded (no output)"
	default:
		return "failed"
	}
}

// Outcome is the result of one command of a group.
type Outcome struct {
	Command   string
	Succeeded bool
	Output    string
	Exit      ExitIndicator
}

func newOutcome(command, output string, err error) Outcome {
	o := Outcome{Command: command, Output: output, Succeeded: err == nil}
	switch {
	case err != nil:
		o.Exit = Failed
	case strings.TrimSpace(output) == "":
		o.Exit = SucceededNoOutput
	default:
		o.Exit = SucceededWithOutput
	}
	return o
}

// RunGroup executes commands one by one over session and stops at the first
// failure. Each outcome is passed to observe, when set, as soon as the
// command returns. Commands do not share a shell: a "cd" only affects the
// entry it is part of.
func RunGroup(session remote.Session, groupName string, commands []string, observe func(Outcome)) ([]Outcome, error) {
	if len(commands) == 0 {
		log.Printf("command group '%s' is empty, nothing to run", groupName)
		return nil, nil
	}

	log.Printf("running command group '%s' (%d commands)", groupName, len(commands))
	outcomes := make([]Outcome, 0, len(commands))
	for i, command := range commands {
		t := &CommandTask{Description: fmt.Sprintf("[%d/%d] %s", i+1, len(commands), command), Command: command}
		log.Printf("%s", t.Name())

		out, err := t.Run(session)
		outcome := newOutcome(command, out, err)
		outcomes = append(outcomes, outcome)
		if observe != nil {
			observe(outcome)
		}

		if err != nil {
			var cmdErr *CommandError
			if errors.As(err, &cmdErr) {
				log.Printf("command '%s' failed, output:\n%s", cmdErr.Command, strings.TrimSpace(cmdErr.Output))
			}
			return outcomes, fmt.Errorf("command group '%s': %w", groupName, err)
		}
	}

	log.Printf("command group '%s' completed", groupName)
	return outcomes, nil
}
