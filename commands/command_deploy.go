// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vmware/remote-deploy/pkg/cliui"
	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/localcmd"
	"github.com/vmware/remote-deploy/pkg/plan"
)

var deployOpts plan.Options

// NewCommandDeploy runs one deployment: pick a server, an upload type and a
// command group, then upload and execute. Anything not passed as a flag is
// asked for interactively.
func NewCommandDeploy() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload files to a server and run a command group",
		Args:  cobra.NoArgs,
		RunE:  deployCommandFunc,
	}
	cmd.Flags().StringVarP(&deployOpts.Server, "server", "s", "", "name of the server to deploy to")
	cmd.Flags().StringVarP(&deployOpts.UploadType, "upload", "u", "", "upload type to apply")
	cmd.Flags().StringVarP(&deployOpts.CommandGroup, "group", "g", "", "command group to execute")
	cmd.Flags().BoolVarP(&deployOpts.DryRun, "dry-run", "d", false, "show the plan without connecting")

	// REMOTE_DEPLOY_SERVER, REMOTE_DEPLOY_UPLOAD, REMOTE_DEPLOY_GROUP, REMOTE_DEPLOY_DRY_RUN
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})
	return cmd
}

func deployOptions() plan.Options {
	return plan.Options{
		Server:       viper.GetString("server"),
		UploadType:   viper.GetString("upload"),
		CommandGroup: viper.GetString("group"),
		DryRun:       viper.GetBool("dry-run"),
	}
}

func deployCommandFunc(cmd *cobra.Command, args []string) error {
	opts := deployOptions()
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	printLog("Loaded %d server(s) from %s\n", len(cfg.Servers), configFile)

	deployer := &plan.Deployer{
		Config:      cfg,
		Credentials: newResolver(cfg),
		Local:       &localcmd.Runner{Output: cmd.OutOrStdout()},
		Reporter:    cliui.NewReporter(cmd.OutOrStdout()),
	}
	if !nonInteractive {
		deployer.Selector = cliui.NewSelector()
	}
	if !opts.DryRun {
		dialer, err := newDialer()
		if err != nil {
			return fmt.Errorf("failed to configure host key verification: %w", err)
		}
		deployer.Dialer = dialer
	}

	res, err := deployer.Deploy(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if res.Outcome != plan.Success {
		return fmt.Errorf("deployment %s", res.Outcome)
	}
	return nil
}
