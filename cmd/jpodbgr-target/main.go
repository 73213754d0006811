// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command jpodbgr-target simulates the on-device interpreter process:
// it opens a Unix domain socket, waits for a jpodbgr-host to connect,
// embeds a debugger.Debugger over that link, and drives a small
// scripted program through it so the link can be exercised end to
// end without a real embedded interpreter.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/kevinboenisch/jpodbgr/debugger"
	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/internal/target"
	"github.com/kevinboenisch/jpodbgr/transport"
)

func main() {
	socketPath := flag.String("socket", "/tmp/jpodbgr.sock", "path to create the link's Unix domain socket at")
	verbose := flag.Bool("v", false, "log every dispatched command")
	flag.Parse()

	logger := log.New(os.Stderr, "jpodbgr-target: ", log.LstdFlags)

	l, err := transport.Listen(*socketPath)
	if err != nil {
		logger.Fatal(err)
	}
	defer l.Close()
	logger.Printf("listening on %s, waiting for a host to connect", *socketPath)

	link, err := transport.Accept(l)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Print("host connected")

	syms := target.NewSymtab("main.py")
	script := target.DemoScript()
	registry := target.NewRegistry()
	modules := interp.Modules{
		Builtin: target.NewModuleRegistry(map[string]target.Value{
			"sys":      target.Module(map[string]target.Value{"version": target.Str("3.4.0")}),
			"builtins": target.Module(map[string]target.Value{"True": target.Int(1)}),
		}),
		Extensible: target.NewModuleRegistry(map[string]target.Value{
			"main": target.Module(map[string]target.Value{"__name__": target.Str("main")}),
		}),
		Frozen: target.NewFrozenRegistry(),
	}

	d := debugger.New(debugger.DefaultConfig(), link, syms, syms, registry, modules, logger)
	d.SetVerbose(*verbose)
	d.Start()
	defer d.Stop()

	script.Run(d)
}
