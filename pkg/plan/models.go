// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/filesync"
	"github.com/vmware/remote-deploy/pkg/remote"
	"github.com/vmware/remote-deploy/pkg/task"
)

var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrServerNotFound     = errors.New("server not found")
	ErrNothingSelected    = errors.New("neither an upload type nor a command group was selected")
)

// ConnectionError wraps any failure to obtain a session: credential lookup,
// authentication or network.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// State is a step of a deployment run.
type State int

const (
	SelectingServer State = iota
	SelectingUploadType
	SelectingCommandGroup
	RunningLocalCommands
	Connecting
	Uploading
	ExecutingCommands
	Summarizing
	Done
)

var stateNames = [...]string{
	SelectingServer:       "selecting server",
	SelectingUploadType:   "selecting upload type",
	SelectingCommandGroup: "selecting command group",
	RunningLocalCommands:  "running local commands",
	Connecting:            "connecting",
	Uploading:             "uploading",
	ExecutingCommands:     "executing commands",
	Summarizing:           "summarizing",
	Done:                  "done",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the terminal status of a run.
type Outcome int

const (
	Success Outcome = iota
	Failed
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "cancelled"
	}
}

// Options carry choices made up front, typically from flags. Empty fields
// are resolved through the Selector.
type Options struct {
	Server       string
	UploadType   string
	CommandGroup string
	DryRun       bool
}

// Plan is the resolved work of a run. An empty UploadType or CommandGroup
// means that stage is skipped.
type Plan struct {
	Server        *config.Server
	UploadType    string
	Rules         []config.UploadRule
	LocalCommands *config.LocalCommands
	CommandGroup  string
	Commands      []string
}

// Result describes a finished run. State is where the run stopped; Done when
// it went all the way through.
type Result struct {
	State   State
	Outcome Outcome
	Server  string

	LocalCommandsAttempted bool
	LocalCommandsSucceeded bool
	UploadAttempted        bool
	UploadSucceeded        bool
	CommandsAttempted      bool
	CommandsSucceeded      bool

	Uploaded []string
	Deleted  []string
	Commands []task.Outcome

	Err error
}

// Selector resolves choices the operator did not pass up front. The upload
// type and command group methods return "" to skip the stage.
type Selector interface {
	SelectServer(servers []*config.Server) (*config.Server, error)
	SelectUploadType(server *config.Server) (string, error)
	SelectCommandGroup(server *config.Server) (string, error)
}

// Reporter renders progress. It never influences the run.
type Reporter interface {
	filesync.Observer
	Stage(state State, server *config.Server)
	Plan(p *Plan)
	CommandOutcome(o task.Outcome)
	Summary(res Result)
}

// CredentialResolver turns a server record into a dialable target.
type CredentialResolver interface {
	Resolve(ctx context.Context, server *config.Server) (remote.Target, error)
}

// LocalRunner runs the build commands attached to an upload group.
type LocalRunner interface {
	Run(ctx context.Context, group string, lc config.LocalCommands) error
}

type nopReporter struct{}

func (nopReporter) FileProgress(string, string, int64, int64) {}
func (nopReporter) FileUploaded(string, string)               {}
func (nopReporter) FileDeleted(string)                        {}
func (nopReporter) DeleteFailed(*filesync.DeleteError)        {}
func (nopReporter) Stage(State, *config.Server)               {}
func (nopReporter) Plan(*Plan)                                {}
func (nopReporter) CommandOutcome(task.Outcome)               {}
func (nopReporter) Summary(Result)                            {}
