// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package plan

import (
	"fmt"
	"log"

	"github.com/vmware/remote-deploy/pkg/config"
)

// selectPlan resolves server, upload type and command group. Names that do
// not exist on the server skip their stage with a warning.
func (r *run) selectPlan(opts Options) (*Plan, error) {
	r.enter(SelectingServer, nil)
	server, err := r.selectServer(opts.Server)
	if err != nil {
		return nil, r.cancel(err)
	}
	r.result.Server = server.Name
	p := &Plan{Server: server}

	r.enter(SelectingUploadType, server)
	uploadType := r.choose(opts.UploadType, server, r.selectUploadType)
	if rules, ok := server.Upload[uploadType]; ok {
		p.UploadType = uploadType
		p.Rules = rules
		if lc, ok := server.LocalCommands[uploadType]; ok && len(lc.Commands) > 0 {
			p.LocalCommands = &lc
		}
	} else if uploadType != "" {
		log.Printf("warning: upload type '%s' is not defined for %s, skipping upload", uploadType, server.Name)
	}

	r.enter(SelectingCommandGroup, server)
	group := r.choose(opts.CommandGroup, server, r.selectCommandGroup)
	if commands, ok := server.Commands[group]; ok {
		p.CommandGroup = group
		p.Commands = commands
	} else if group != "" {
		log.Printf("warning: command group '%s' is not defined for %s, skipping commands", group, server.Name)
	}

	if p.UploadType == "" && p.CommandGroup == "" {
		return nil, r.cancel(ErrNothingSelected)
	}
	return p, nil
}

func (r *run) selectServer(name string) (*config.Server, error) {
	if name != "" {
		server := r.Config.ServerByName(name)
		if server == nil {
			return nil, fmt.Errorf("%w: %s", ErrServerNotFound, name)
		}
		return server, nil
	}
	if r.Selector == nil {
		return nil, fmt.Errorf("%w: no server given", ErrSelectionCancelled)
	}

	server, err := r.Selector.SelectServer(r.Config.Servers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSelectionCancelled, err)
	}
	if server == nil {
		return nil, ErrSelectionCancelled
	}
	return server, nil
}

// choose returns the preset name, or asks when there is a selector. No
// selector, or a cancelled question, means the stage is skipped.
func (r *run) choose(preset string, server *config.Server, ask func(*config.Server) (string, error)) string {
	if preset != "" {
		return preset
	}
	if r.Selector == nil {
		return ""
	}
	name, err := ask(server)
	if err != nil {
		log.Printf("warning: %s for %s: %v, skipping", r.result.State, server.Name, err)
		return ""
	}
	return name
}

func (r *run) selectUploadType(server *config.Server) (string, error) {
	return r.Selector.SelectUploadType(server)
}

func (r *run) selectCommandGroup(server *config.Server) (string, error) {
	return r.Selector.SelectCommandGroup(server)
}
