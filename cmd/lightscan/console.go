// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func newScanConsoleCmd() *cobra.Command {
	var pid uint32
	var name string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Attach to a process and open an interactive scan/reflection console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(pid, name)
		},
	}
	cmd.Flags().Uint32Var(&pid, "pid", 0, "target process id")
	cmd.Flags().StringVar(&name, "name", "", "target process name (used to resolve pid if --pid is 0)")
	return cmd
}

func runConsole(pid uint32, name string) error {
	if pid == 0 && name == "" {
		return fmt.Errorf("console: one of --pid or --name is required")
	}
	s, err := attach(pid, name)
	if err != nil {
		return err
	}
	defer s.close()

	rl, err := readline.New(consolePrompt(pid, name))
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println(`attached. type "help" for commands, "exit" to quit.`)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		out, err := s.dispatch(line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		if out != "" {
			fmt.Print(out)
			if !strings.HasSuffix(out, "\n") {
				fmt.Println()
			}
		}
	}
}

func consolePrompt(pid uint32, name string) string {
	if pid != 0 {
		return fmt.Sprintf("lightscan(%s)> ", strconv.FormatUint(uint64(pid), 10))
	}
	return fmt.Sprintf("lightscan(%s)> ", name)
}
