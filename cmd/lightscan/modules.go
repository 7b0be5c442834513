// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModulesCmd() *cobra.Command {
	var pid uint32
	var name string
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List a process's loaded modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attach(pid, name)
			if err != nil {
				return err
			}
			defer s.close()
			out, err := s.cmdModules()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&pid, "pid", 0, "target process id")
	cmd.Flags().StringVar(&name, "name", "", "target process name (used to resolve pid if --pid is 0)")
	return cmd
}
