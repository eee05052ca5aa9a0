// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package cliui

import (
	"fmt"

	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/plan"
)

// Selector asks the operator through bubbletea menus. Groups may always be
// skipped; a server may not.
type Selector struct {
	// choose is Select, replaced in tests.
	choose func(title string, options []string) (int, string, error)
}

func NewSelector() *Selector {
	return &Selector{choose: Select}
}

func (s *Selector) SelectServer(servers []*config.Server) (*config.Server, error) {
	options := make([]string, len(servers))
	for i, srv := range servers {
		options[i] = fmt.Sprintf("%s (%s@%s)", srv.Name, srv.Username, srv.Address())
	}

	idx, _, err := s.choose("Select the target server:", options)
	if err != nil {
		return nil, err
	}
	return servers[idx], nil
}

func (s *Selector) SelectUploadType(server *config.Server) (string, error) {
	return s.optional("Select what to upload:", server.UploadGroups(), "skip upload")
}

func (s *Selector) SelectCommandGroup(server *config.Server) (string, error) {
	return s.optional("Select the commands to run:", server.CommandGroups(), "skip commands")
}

func (s *Selector) optional(title string, groups []string, skipLabel string) (string, error) {
	if len(groups) == 0 {
		return "", nil
	}

	idx, _, err := s.choose(title, append(append([]string{}, groups...), skipLabel))
	if err != nil {
		return "", err
	}
	if idx == len(groups) {
		return "", nil
	}
	return groups[idx], nil
}

var _ plan.Selector = (*Selector)(nil)
