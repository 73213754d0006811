// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command jpodbgr-host is the IDE-side counterpart to a jpodbgr-target
// process: each subcommand dials the target's link, issues one wire
// command, prints whatever reply it gets, and exits — except console,
// which stays attached for an interactive session.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kevinboenisch/jpodbgr/client"
	"github.com/kevinboenisch/jpodbgr/transport"
)

var socketPath string

func main() {
	root := &cobra.Command{
		Use:   "jpodbgr-host",
		Short: "Issue debugger commands to a running jpodbgr-target",
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", "/tmp/jpodbgr.sock", "path to the target's Unix domain socket")

	root.AddCommand(
		startCmd(),
		pauseCmd(),
		continueCmd(),
		stepIntoCmd(),
		stepOverCmd(),
		stepOutCmd(),
		terminateCmd(),
		breakCmd(),
		excBreakCmd(),
		stackCmd(),
		varsCmd(),
		exceptionCmd(),
		consoleCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withClient dials the target, runs fn against the resulting client,
// and closes the connection before returning — the shape every
// one-shot subcommand uses.
func withClient(fn func(c *client.Client) error) error {
	t, err := transport.Dial(socketPath)
	if err != nil {
		return fmt.Errorf("dial %s: %w", socketPath, err)
	}
	if closer, ok := t.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	return fn(client.New(t))
}
