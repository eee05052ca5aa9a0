// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package plan

import (
	"context"
	"fmt"
	"log"

	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/filesync"
	"github.com/vmware/remote-deploy/pkg/remote"
	"github.com/vmware/remote-deploy/pkg/task"
)

// Deployer drives one deployment against one server.
type Deployer struct {
	Config      *config.Config
	Selector    Selector
	Credentials CredentialResolver
	Dialer      remote.Dialer
	Local       LocalRunner
	Reporter    Reporter
}

type run struct {
	*Deployer
	ctx    context.Context
	result Result
}

// Deploy runs selection, local commands, connect, upload and remote commands
// in that order. The returned error equals Result.Err. Once a session is
// open it is closed exactly once, whatever happens after.
func (d *Deployer) Deploy(ctx context.Context, opts Options) (Result, error) {
	deployer := *d
	if deployer.Reporter == nil {
		deployer.Reporter = nopReporter{}
	}
	r := &run{Deployer: &deployer, ctx: ctx}
	err := r.execute(opts)
	r.result.Err = err
	switch {
	case err == nil:
		r.result.Outcome = Success
	case r.result.Outcome != Cancelled:
		r.result.Outcome = Failed
	}
	return r.result, err
}

func (r *run) enter(state State, server *config.Server) {
	r.result.State = state
	r.Reporter.Stage(state, server)
}

func (r *run) cancel(err error) error {
	r.result.Outcome = Cancelled
	return err
}

func (r *run) execute(opts Options) error {
	p, err := r.selectPlan(opts)
	if err != nil {
		return err
	}
	if err := r.ctx.Err(); err != nil {
		return r.cancel(fmt.Errorf("%w: %w", ErrSelectionCancelled, err))
	}

	if opts.DryRun {
		r.Reporter.Plan(p)
		r.result.State = Done
		return nil
	}

	if p.LocalCommands != nil {
		r.enter(RunningLocalCommands, p.Server)
		r.result.LocalCommandsAttempted = true
		if err := r.Local.Run(r.ctx, p.UploadType, *p.LocalCommands); err != nil {
			return err
		}
		r.result.LocalCommandsSucceeded = true
	}

	r.enter(Connecting, p.Server)
	session, err := r.connect(p.Server)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("warning: closing session to %s: %v", p.Server.Name, err)
		}
	}()

	stageErr := r.stages(session, p)

	r.enter(Summarizing, p.Server)
	r.Reporter.Summary(r.summary(stageErr))
	if stageErr != nil {
		return stageErr
	}
	r.result.State = Done
	return nil
}

// summary is the result as it will be returned, for the reporter.
func (r *run) summary(err error) Result {
	res := r.result
	res.Err = err
	res.Outcome = Success
	if err != nil {
		res.Outcome = Failed
	}
	return res
}

func (r *run) connect(server *config.Server) (remote.Session, error) {
	target, err := r.Credentials.Resolve(r.ctx, server)
	if err != nil {
		return nil, &ConnectionError{Server: server.Name, Err: err}
	}

	log.Printf("connecting to %s (%s@%s)", server.Name, server.Username, server.Address())
	session, err := r.Dialer.Dial(target)
	if err != nil {
		return nil, &ConnectionError{Server: server.Name, Err: err}
	}
	return session, nil
}

func (r *run) stages(session remote.Session, p *Plan) error {
	if p.UploadType != "" {
		r.enter(Uploading, p.Server)
		r.result.UploadAttempted = true
		report, err := filesync.NewEngine(session, r.Reporter).UploadAll(p.Rules)
		if report != nil {
			r.result.Uploaded = report.Uploaded
			r.result.Deleted = report.Deleted
		}
		if err != nil {
			return fmt.Errorf("upload '%s' failed: %w", p.UploadType, err)
		}
		r.result.UploadSucceeded = true
	}

	if p.CommandGroup != "" {
		r.enter(ExecutingCommands, p.Server)
		r.result.CommandsAttempted = true
		outcomes, err := task.RunGroup(session, p.CommandGroup, p.Commands, r.Reporter.CommandOutcome)
		r.result.Commands = outcomes
		if err != nil {
			return err
		}
		r.result.CommandsSucceeded = true
	}
	return nil
}
