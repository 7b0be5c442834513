// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEngineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Reflect over a game engine's live object graph",
	}
	cmd.AddCommand(newEngineClassesCmd())
	cmd.AddCommand(newEngineMethodsCmd())
	cmd.AddCommand(newEngineFieldsCmd())
	cmd.AddCommand(newEngineInstancesCmd())
	cmd.AddCommand(newEngineInvokeCmd())
	return cmd
}

// engineFlags adds the --pid/--name/--backend triple every engine
// subcommand needs to attach and initialize a backend before doing
// anything else.
func engineFlags(cmd *cobra.Command, pid *uint32, name, backend *string) {
	cmd.Flags().Uint32Var(pid, "pid", 0, "target process id")
	cmd.Flags().StringVar(name, "name", "", "target process name (used to resolve pid if --pid is 0)")
	cmd.Flags().StringVar(backend, "backend", "unreal", "engine backend: unreal|unity-mono|unity-il2cpp|native")
}

// attachEngine attaches to the target and initializes the requested
// backend, returning a ready-to-use session.
func attachEngine(pid uint32, name, backend string) (*session, error) {
	s, err := attach(pid, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.engineInit([]string{backend}); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func newEngineClassesCmd() *cobra.Command {
	var pid uint32
	var name, backend, class string
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Enumerate classes, or look one up by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attachEngine(pid, name, backend)
			if err != nil {
				return err
			}
			defer s.close()
			var classArgs []string
			if class != "" {
				classArgs = []string{class}
			}
			out, err := s.engineClasses(classArgs)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	engineFlags(cmd, &pid, &name, &backend)
	cmd.Flags().StringVar(&class, "class", "", "class name to look up (omit to list every class)")
	return cmd
}

func newEngineMethodsCmd() *cobra.Command {
	var pid uint32
	var name, backend, class string
	cmd := &cobra.Command{
		Use:   "methods",
		Short: "List a class's methods",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attachEngine(pid, name, backend)
			if err != nil {
				return err
			}
			defer s.close()
			out, err := s.engineMethods([]string{class})
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	engineFlags(cmd, &pid, &name, &backend)
	cmd.Flags().StringVar(&class, "class", "", "class handle, decimal or 0x-prefixed hex (required)")
	cmd.MarkFlagRequired("class")
	return cmd
}

func newEngineFieldsCmd() *cobra.Command {
	var pid uint32
	var name, backend, class string
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List a class's fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attachEngine(pid, name, backend)
			if err != nil {
				return err
			}
			defer s.close()
			out, err := s.engineFields([]string{class})
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	engineFlags(cmd, &pid, &name, &backend)
	cmd.Flags().StringVar(&class, "class", "", "class handle, decimal or 0x-prefixed hex (required)")
	cmd.MarkFlagRequired("class")
	return cmd
}

func newEngineInstancesCmd() *cobra.Command {
	var pid uint32
	var name, backend, class string
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List live instances of a class",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attachEngine(pid, name, backend)
			if err != nil {
				return err
			}
			defer s.close()
			out, err := s.engineInstances([]string{class})
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	engineFlags(cmd, &pid, &name, &backend)
	cmd.Flags().StringVar(&class, "class", "", "class handle, decimal or 0x-prefixed hex (required)")
	cmd.MarkFlagRequired("class")
	return cmd
}

func newEngineInvokeCmd() *cobra.Command {
	var pid uint32
	var name, backend, instance, method string
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Call a method on a live instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := attachEngine(pid, name, backend)
			if err != nil {
				return err
			}
			defer s.close()
			out, err := s.engineInvoke([]string{instance, method})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	engineFlags(cmd, &pid, &name, &backend)
	cmd.Flags().StringVar(&instance, "instance", "", "instance handle, decimal or 0x-prefixed hex (required)")
	cmd.Flags().StringVar(&method, "method", "", "method handle, decimal or 0x-prefixed hex (required)")
	cmd.MarkFlagRequired("instance")
	cmd.MarkFlagRequired("method")
	return cmd
}
