// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/kevinboenisch/jpodbgr/client"
	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/transport"
	"github.com/kevinboenisch/jpodbgr/wire"
)

func consoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive session: stays connected and prints STOPPED/MODLOAD/DONE events as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole()
		},
	}
}

func runConsole() error {
	t, err := transport.Dial(socketPath)
	if err != nil {
		return fmt.Errorf("dial %s: %w", socketPath, err)
	}
	if closer, ok := t.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	c := client.New(t)

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = home + "/.jpodbgr_history"
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "(jpodbgr) ",
		HistoryFile: historyFile,
	})
	if err != nil {
		return fmt.Errorf("console: %w", err)
	}
	defer rl.Close()

	stop := make(chan struct{})
	go watchEvents(c, stop)
	defer close(stop)

	fmt.Println("jpodbgr interactive console. Type 'help' for commands, 'quit' to exit.")
	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := dispatchLine(c, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

// watchEvents prints unsolicited event frames (STOPPED, MODLOAD,
// DONE) as they arrive between commands, so the operator sees a
// breakpoint hit without having to poll for it.
func watchEvents(c *client.Client, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		f, err := c.WaitEvent(200 * time.Millisecond)
		if err == wire.ErrTimeout {
			continue
		}
		if err != nil {
			return
		}
		switch {
		case f.HasTag(wire.TagStopped):
			reason, _ := f.ReadString(0, len(f.Payload))
			fmt.Printf("\n*** stopped: %s\n(jpodbgr) ", reason)
		case f.HasTag(wire.TagModuleLoaded):
			name, next, _ := f.ReadZString(0)
			file, _, _ := f.ReadZString(next)
			fmt.Printf("\n*** module loaded: %s (%s)\n(jpodbgr) ", name, file)
		case f.HasTag(wire.TagDone):
			code, _ := f.ReadUint32(0)
			fmt.Printf("\n*** target done, exit code %d\n(jpodbgr) ", code)
		}
	}
}

func dispatchLine(c *client.Client, line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "help":
		printHelp()
		return nil
	case "start":
		return c.Start()
	case "pause":
		return c.Pause()
	case "continue", "c":
		return c.Continue()
	case "step-into", "si":
		return c.StepInto()
	case "step-over", "so":
		return c.StepOver()
	case "step-out", "sout":
		return c.StepOut()
	case "terminate":
		return c.Terminate()
	case "break":
		if len(args) < 2 {
			return fmt.Errorf("usage: break <file> <line> [<line> ...]")
		}
		lines := make([]uint32, 0, len(args)-1)
		for _, a := range args[1:] {
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("bad line %q: %w", a, err)
			}
			lines = append(lines, uint32(n))
		}
		return c.SetBreakpoints(args[0], lines)
	case "stack":
		frames, _, err := c.Stack(0)
		if err != nil {
			return err
		}
		for _, f := range frames {
			fmt.Printf("#%-3d %-24s %s:%d\n", f.Index, f.Block, f.File, f.Line)
		}
		return nil
	case "locals":
		return printVars(c, "locals")
	case "globals":
		return printVars(c, "globals")
	case "exception":
		tb, err := c.Exception()
		if err != nil {
			return err
		}
		fmt.Println(tb)
		return nil
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

func printVars(c *client.Client, scope string) error {
	sk, err := parseScope(scope)
	if err != nil {
		return err
	}
	vars, _, _, err := c.Variables(sk, parseKindMaskAll(), 0, 0)
	if err != nil {
		return err
	}
	for _, v := range vars {
		fmt.Printf("%-20s = %-24s (%s)\n", v.Name, v.Value, v.Type)
	}
	return nil
}

func parseKindMaskAll() (mask interp.Kind) {
	m, _ := parseKindMask("normal,special,function,class,module")
	return m
}

func printHelp() {
	fmt.Println(`commands:
  start                       arm the debugger
  pause                       stop at the next line
  continue, c                 resume
  step-into, si                step into the next call
  step-over, so                step over the next call
  step-out, sout                step out of the current frame
  break <file> <line...>      replace a file's breakpoints
  stack                       print the call stack
  locals / globals            print variables
  exception                   print the current traceback
  terminate                   ask the target to exit
  quit, exit                  leave the console`)
}
