// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kevinboenisch/jpodbgr/client"
	"github.com/kevinboenisch/jpodbgr/interp"
)

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Arm the debugger and begin stopping at breakpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error { return c.Start() })
		},
	}
}

func pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Stop at the next line executed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error { return c.Pause() })
		},
	}
}

func continueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "continue",
		Short: "Resume free-running execution",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error { return c.Continue() })
		},
	}
}

func stepIntoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step-into",
		Short: "Resume, stopping at the next line at any depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error { return c.StepInto() })
		},
	}
}

func stepOverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step-over",
		Short: "Resume, stopping at the next line at the same depth or shallower",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error { return c.StepOver() })
		},
	}
}

func stepOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step-out",
		Short: "Resume, stopping when the current frame returns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error { return c.StepOut() })
		},
	}
}

func terminateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate",
		Short: "Request that the target process exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error { return c.Terminate() })
		},
	}
}

func breakCmd() *cobra.Command {
	var lines []int
	cmd := &cobra.Command{
		Use:   "break <file> --line N [--line N ...]",
		Short: "Replace every breakpoint set in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ls := make([]uint32, len(lines))
			for i, l := range lines {
				ls[i] = uint32(l)
			}
			return withClient(func(c *client.Client) error { return c.SetBreakpoints(args[0], ls) })
		},
	}
	cmd.Flags().IntSliceVar(&lines, "line", nil, "line number to break at (repeatable)")
	return cmd
}

func excBreakCmd() *cobra.Command {
	var enabled bool
	cmd := &cobra.Command{
		Use:   "set-exception-break",
		Short: "Toggle stopping on uncaught exceptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error { return c.SetExceptionBreak(enabled) })
		},
	}
	cmd.Flags().BoolVar(&enabled, "enabled", true, "stop on uncaught exceptions")
	return cmd
}

func stackCmd() *cobra.Command {
	var start int
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Print the current call stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				idx := start
				for {
					frames, done, err := c.Stack(idx)
					if err != nil {
						return err
					}
					for _, f := range frames {
						fmt.Printf("#%-3d %-24s %s:%d\n", f.Index, f.Block, f.File, f.Line)
					}
					if done || len(frames) == 0 {
						return nil
					}
					idx = frames[len(frames)-1].Index + 1
				}
			})
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "first frame index to print")
	return cmd
}

func varsCmd() *cobra.Command {
	var scope, kinds string
	var depthOrAddr uint32
	cmd := &cobra.Command{
		Use:   "vars",
		Short: "Print variables from a scope (locals, stack, globals, object, modules-builtin, modules-extensible, modules-frozen)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sk, err := parseScope(scope)
			if err != nil {
				return err
			}
			mask, err := parseKindMask(kinds)
			if err != nil {
				return err
			}
			return withClient(func(c *client.Client) error {
				start := uint32(0)
				for {
					vars, done, contains, err := c.Variables(sk, mask, depthOrAddr, start)
					if err != nil {
						return err
					}
					for _, v := range vars {
						fmt.Printf("%-20s = %-24s (%s) [handle=%d]\n", v.Name, v.Value, v.Type, v.Handle)
					}
					if done || len(vars) == 0 {
						if contains != 0 && len(vars) == 0 {
							fmt.Println("(no entries match --kinds)")
						}
						return nil
					}
					start += uint32(len(vars))
				}
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "locals", "variable scope to enumerate")
	cmd.Flags().StringVar(&kinds, "kinds", "normal,special,function,class,module", "comma-separated kinds to include")
	cmd.Flags().Uint32Var(&depthOrAddr, "depth-or-addr", 0, "frame depth or object drill-down handle")
	return cmd
}

func exceptionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exception",
		Short: "Print the traceback of the current uncaught exception",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				tb, err := c.Exception()
				if err != nil {
					return err
				}
				fmt.Println(tb)
				return nil
			})
		},
	}
}

func parseScope(s string) (interp.ScopeKind, error) {
	switch s {
	case "locals":
		return interp.ScopeFrameLocals, nil
	case "stack":
		return interp.ScopeFrameStack, nil
	case "globals":
		return interp.ScopeGlobals, nil
	case "object":
		return interp.ScopeObject, nil
	case "modules-builtin":
		return interp.ScopeModulesBuiltin, nil
	case "modules-extensible":
		return interp.ScopeModulesExtensible, nil
	case "modules-frozen":
		return interp.ScopeModulesFrozen, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", s)
	}
}

func parseKindMask(s string) (interp.Kind, error) {
	var mask interp.Kind
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "normal":
			mask |= interp.KindNormal
		case "special":
			mask |= interp.KindSpecial
		case "function":
			mask |= interp.KindFunction
		case "class":
			mask |= interp.KindClass
		case "module":
			mask |= interp.KindModule
		default:
			return 0, fmt.Errorf("unknown kind %q", part)
		}
	}
	return mask, nil
}
