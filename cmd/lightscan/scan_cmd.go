// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "First-scan/next-scan candidate address discovery",
	}
	cmd.AddCommand(newScanFirstCmd())
	cmd.AddCommand(newScanNextCmd())
	cmd.AddCommand(newScanResetCmd())
	cmd.AddCommand(newScanReadCmd())
	cmd.AddCommand(newScanWriteCmd())
	cmd.AddCommand(newScanConsoleCmd())
	return cmd
}

// attachFlags adds the --pid/--name pair every scan/engine subcommand
// needs to open its target.
func attachFlags(cmd *cobra.Command, pid *uint32, name *string) {
	cmd.Flags().Uint32Var(pid, "pid", 0, "target process id")
	cmd.Flags().StringVar(name, "name", "", "target process name (used to resolve pid if --pid is 0)")
}

func newScanFirstCmd() *cobra.Command {
	var pid uint32
	var name, typ, pred, value string
	var readable, writable, executable bool
	var align int64
	cmd := &cobra.Command{
		Use:   "first",
		Short: "Sweep process memory for an initial candidate set",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attach(pid, name)
			if err != nil {
				return err
			}
			defer s.close()

			scanArgs := []string{typ, pred}
			if value != "" {
				scanArgs = append(scanArgs, value)
			}
			if readable {
				scanArgs = append(scanArgs, "--readable")
			}
			if writable {
				scanArgs = append(scanArgs, "--writable")
			}
			if executable {
				scanArgs = append(scanArgs, "--executable")
			}
			if align > 0 {
				scanArgs = append(scanArgs, "--align", fmt.Sprint(align))
			}
			out, err := s.scanFirst(scanArgs)
			if err != nil {
				return err
			}
			if err := saveScanState(pid, s.sc.Results()); err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	attachFlags(cmd, &pid, &name)
	cmd.Flags().StringVar(&typ, "type", "", "value type: i8|i16|i32|i64|u8|u16|u32|u64|f32|f64|bytes:N (required)")
	cmd.Flags().StringVar(&pred, "pred", "exact", "predicate: exact|gt|lt|between|unknown")
	cmd.Flags().StringVar(&value, "value", "", "reference value (required unless --pred unknown)")
	cmd.Flags().BoolVar(&readable, "readable", true, "restrict to readable regions")
	cmd.Flags().BoolVar(&writable, "writable", false, "restrict to writable regions")
	cmd.Flags().BoolVar(&executable, "executable", false, "restrict to executable regions")
	cmd.Flags().Int64Var(&align, "align", 0, "alignment override (defaults to the type's natural alignment)")
	cmd.MarkFlagRequired("type")
	return cmd
}

func newScanNextCmd() *cobra.Command {
	var pid uint32
	var name, pred, value string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Re-filter the saved candidate set against a fresh read",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attach(pid, name)
			if err != nil {
				return err
			}
			defer s.close()

			saved, err := loadScanState(pid)
			if err != nil {
				return err
			}
			s.sc.LoadResults(saved)
			s.lastType = saved.Type

			scanArgs := []string{pred}
			if value != "" {
				scanArgs = append(scanArgs, value)
			}
			out, err := s.scanNext(scanArgs)
			if err != nil {
				return err
			}
			if err := saveScanState(pid, s.sc.Results()); err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	attachFlags(cmd, &pid, &name)
	cmd.Flags().StringVar(&pred, "pred", "exact", "predicate: exact|gt|lt|between|increased|decreased|changed|unchanged")
	cmd.Flags().StringVar(&value, "value", "", "reference value (required for value predicates)")
	return cmd
}

func newScanResetCmd() *cobra.Command {
	var pid uint32
	var name string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the saved candidate set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearScanState(pid)
		},
	}
	attachFlags(cmd, &pid, &name)
	return cmd
}

func newScanReadCmd() *cobra.Command {
	var pid uint32
	var name, typ, addr string
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a single value directly from process memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attach(pid, name)
			if err != nil {
				return err
			}
			defer s.close()
			out, err := s.scanRead([]string{addr, typ})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	attachFlags(cmd, &pid, &name)
	cmd.Flags().StringVar(&addr, "addr", "", "address, decimal or 0x-prefixed hex (required)")
	cmd.Flags().StringVar(&typ, "type", "", "value type (required)")
	cmd.MarkFlagRequired("addr")
	cmd.MarkFlagRequired("type")
	return cmd
}

func newScanWriteCmd() *cobra.Command {
	var pid uint32
	var name, typ, addr, value string
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a single value directly to process memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attach(pid, name)
			if err != nil {
				return err
			}
			defer s.close()
			out, err := s.scanWrite([]string{addr, typ, value})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	attachFlags(cmd, &pid, &name)
	cmd.Flags().StringVar(&addr, "addr", "", "address, decimal or 0x-prefixed hex (required)")
	cmd.Flags().StringVar(&typ, "type", "", "value type (required)")
	cmd.Flags().StringVar(&value, "value", "", "value to write (required)")
	cmd.MarkFlagRequired("addr")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("value")
	return cmd
}
