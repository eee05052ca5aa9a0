// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmware/remote-deploy/pkg/cliui"
	"github.com/vmware/remote-deploy/pkg/config"
)

// NewCommandValidate checks the config file and lists the servers in it.
func NewCommandValidate() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and list its servers",
		Args:  cobra.NoArgs,
		RunE:  validateCommandFunc,
	}
}

func validateCommandFunc(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cliui.ServerTable(cfg.Servers))
	fmt.Fprintf(out, "%s is valid (%d server(s))\n", configFile, len(cfg.Servers))
	return nil
}
