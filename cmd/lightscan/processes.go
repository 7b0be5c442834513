// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mizuamedesu/lightscan/internal/winproc"
)

func newProcessesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "processes",
		Short: "List running processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := winproc.ListProcesses()
			if err != nil {
				return err
			}
			t := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(t, "pid\tname\n")
			for _, p := range procs {
				fmt.Fprintf(t, "%d\t%s\n", p.PID, p.Name)
			}
			return t.Flush()
		},
	}
}
