// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vmware/remote-deploy/commands"
)

const (
	exitError = 1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := commands.RootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if rootCmd.SilenceErrors {
			log.Printf("Error: %v\n", err)
		}
		stop()
		os.Exit(exitError)
	}
}
