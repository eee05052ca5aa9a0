// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package commands

import (
	"log"
	"os"

	"github.com/vmware/remote-deploy/pkg/cliui"
	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/credentials"
	"github.com/vmware/remote-deploy/pkg/ssh"
)

func printLog(format string, v ...any) {
	if verbose {
		log.Printf(format, v...)
	}
}

// newDialer builds the ssh dialer shared by every command, verifying host
// keys against known_hosts.
func newDialer() (*ssh.Dialer, error) {
	prompt := &ssh.HostKeyPrompt{
		KnownHostsPath: knownHosts,
		In:             os.Stdin,
		Out:            os.Stderr,
		NonInteractive: nonInteractive,
	}
	callback, err := prompt.Callback()
	if err != nil {
		return nil, err
	}
	printLog("Using known_hosts file %s\n", prompt.KnownHostsPath)
	return &ssh.Dialer{Timeout: connectTimeout, HostKeyCallback: callback}, nil
}

// newResolver returns the credential chain; the password prompt is left out
// in non-interactive mode.
func newResolver(cfg *config.Config) *credentials.Resolver {
	if nonInteractive {
		return credentials.NewResolver(cfg.Vault, nil)
	}
	return credentials.NewResolver(cfg.Vault, cliui.Password)
}
