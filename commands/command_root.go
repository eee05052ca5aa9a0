// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/ssh"
)

const (
	cliName        = "remote-deploy"
	cliDescription = "A tool to upload files and run commands on remote servers described in a YAML config"

	envPrefix = "REMOTE_DEPLOY"
)

var (
	configFile     string
	verbose        bool
	knownHosts     string
	nonInteractive bool
	connectTimeout time.Duration

	rootCmd = &cobra.Command{
		Use:          cliName,
		Short:        cliDescription,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigFilename, "path to the deployment config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&knownHosts, "known-hosts", "", "path to known_hosts file (default ~/.ssh/known_hosts)")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "never prompt; unknown host keys and missing selections are errors")
	rootCmd.PersistentFlags().DurationVar(&connectTimeout, "connect-timeout", ssh.DefaultTimeout, "ssh connection timeout")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// flags win over REMOTE_DEPLOY_* variables, which win over defaults
	cobra.OnInitialize(func() {
		configFile = viper.GetString("config")
		verbose = viper.GetBool("verbose")
		knownHosts = viper.GetString("known-hosts")
		nonInteractive = viper.GetBool("non-interactive")
		if d := viper.GetDuration("connect-timeout"); d > 0 {
			connectTimeout = d
		}
	})

	rootCmd.AddCommand(
		NewCommandVersion(),
		NewCommandDeploy(),
		NewCommandValidate(),
		NewCommandExecute(),
	)
}

func RootCmd() *cobra.Command {
	return rootCmd
}
