// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package commands

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/vmware/remote-deploy/pkg/cliui"
	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/credentials"
	"github.com/vmware/remote-deploy/pkg/remote"
)

const allServers = "all"

var (
	execServer string
	userCmd    string
)

// NewCommandExecute executes an ad-hoc command against server(s).
// Runs the command against a single server if one is selected,
// or against every server in the config when "all" is selected.
func NewCommandExecute() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute a command against server(s)",
		Args:  cobra.NoArgs,
		RunE:  executeCommandFunc,
	}
	cmd.Flags().StringVarP(&execServer, "server", "s", "", `server name, or "all"`)
	cmd.Flags().StringVarP(&userCmd, "command", "e", "", "command to execute against target server(s)")
	_ = cmd.MarkFlagRequired("command")
	return cmd
}

func executeCommandFunc(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	targets, err := execTargets(cfg)
	if err != nil {
		return err
	}

	dialer, err := newDialer()
	if err != nil {
		return fmt.Errorf("failed to configure host key verification: %w", err)
	}
	resolver := newResolver(cfg)

	var failed []string
	for _, server := range targets {
		res, err := executeUserCommand(cmd, resolver, dialer, server, userCmd)
		if err != nil {
			log.Printf("Error executing command %q on server (%s: %s): %v\n", userCmd, server.Name, server.Host, err)
			failed = append(failed, server.Name)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", server.Name, res.Output)
		if !res.Succeeded {
			failed = append(failed, server.Name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("command %q failed on: %v", userCmd, failed)
	}
	return nil
}

func execTargets(cfg *config.Config) ([]*config.Server, error) {
	switch execServer {
	case allServers:
		return cfg.Servers, nil
	case "":
	default:
		server := cfg.ServerByName(execServer)
		if server == nil {
			return nil, fmt.Errorf("server %q not found in %s", execServer, configFile)
		}
		return []*config.Server{server}, nil
	}

	if nonInteractive {
		return nil, errors.New("--server is required in non-interactive mode")
	}

	options := make([]string, len(cfg.Servers)+1)
	for i, s := range cfg.Servers {
		options[i] = fmt.Sprintf("%s (%s)", s.Name, s.Address())
	}
	options[len(cfg.Servers)] = allServers

	idx, _, err := cliui.Select("Select the server to execute the command against:", options)
	if err != nil {
		return nil, fmt.Errorf("no server selected: %w", err)
	}
	if idx == len(cfg.Servers) {
		return cfg.Servers, nil
	}
	return []*config.Server{cfg.Servers[idx]}, nil
}

func executeUserCommand(cmd *cobra.Command, resolver *credentials.Resolver, dialer remote.Dialer, server *config.Server, command string) (remote.Result, error) {
	printLog("Connecting to server (%s: %s)\n", server.Name, server.Address())

	target, err := resolver.Resolve(cmd.Context(), server)
	if err != nil {
		return remote.Result{}, err
	}
	session, err := dialer.Dial(target)
	if err != nil {
		return remote.Result{}, err
	}
	defer session.Close()

	printLog("Executing command %q on server (%s: %s)\n", command, server.Name, server.Address())
	return session.Exec(command), nil
}
