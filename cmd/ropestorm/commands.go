package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/ropestorm/internal/bridge"
	"github.com/dshills/ropestorm/internal/command"
	"github.com/dshills/ropestorm/internal/config"
	"github.com/dshills/ropestorm/internal/engine/local"
	"github.com/dshills/ropestorm/internal/host/memhost"
	"github.com/dshills/ropestorm/internal/occurrence"
	"github.com/dshills/ropestorm/internal/script"
)

func (a *app) keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every command with its key, scope and terminal bytes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := bridge.New(memhost.New(a.log), local.New(local.WithLogger(a.log)), config.NewStore(a.opts), a.log)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COMMAND\tKEY\tSCOPE\tBYTES")
			for _, e := range b.Commands() {
				if !e.Bound() {
					fmt.Fprintf(w, "%s\t-\t-\t-\n", e.Name)
					continue
				}
				raw, err := e.Keys.Bytes()
				bytes := fmt.Sprintf("%q", raw)
				if err != nil {
					bytes = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Keys, e.Scope, bytes)
			}
			return w.Flush()
		},
	}
}

func (a *app) callCmd() *cobra.Command {
	var (
		f         sessionFlags
		prefix    int
		universal bool
		write     bool
	)
	cmd := &cobra.Command{
		Use:   "call COMMAND",
		Short: "Run one command at a position in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openSession(ctx, &f)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			if _, err := s.visit(f.file, f.offset); err != nil {
				return err
			}
			p := command.NoPrefix()
			switch {
			case universal:
				p = command.Universal(1)
			case cmd.Flags().Changed("prefix"):
				p = command.Numeric(prefix)
			}
			if err := s.bridge.Invoke(ctx, command.PublicName(args[0]), p); err != nil {
				return err
			}
			if write {
				for _, b := range s.host.Buffers() {
					if b.FileName() == "" || !b.Modified() {
						continue
					}
					if err := b.Save(); err != nil {
						return err
					}
				}
			}
			out := cmd.OutOrStdout()
			s.printMessages(out)
			s.printListings(out)
			return nil
		},
	}
	f.register(cmd, true)
	cmd.Flags().IntVar(&prefix, "prefix", 1, "numeric prefix argument")
	cmd.Flags().BoolVar(&universal, "universal", false, "pass a universal (C-u) prefix")
	cmd.Flags().BoolVar(&write, "write", false, "save modified buffers afterwards")
	return cmd
}

func (a *app) completeCmd() *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Print the completion start offset and ranked proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.openSession(ctx, &f)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			buf, err := s.visit(f.file, f.offset)
			if err != nil {
				return err
			}
			start, names, err := s.bridge.Complete(ctx, buf.FileName(), f.offset)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, start)
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func (a *app) occurrencesCmd() *cobra.Command {
	var (
		f      sessionFlags
		unsure bool
	)
	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "Print the occurrences of the name at a position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.openSession(ctx, &f)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			if _, err := s.visit(f.file, f.offset); err != nil {
				return err
			}
			p := command.NoPrefix()
			if unsure {
				p = command.Numeric(0)
			}
			if err := s.bridge.Invoke(ctx, "rope-find-occurrences", p); err != nil {
				return err
			}
			s.printMessages(cmd.ErrOrStderr())
			if listing := s.host.Buffer(occurrence.BufferName); listing != nil {
				fmt.Fprint(cmd.OutOrStdout(), listing.Text())
			}
			return nil
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&unsure, "unsure", false, "include matches the engine cannot confirm")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "run SCRIPT.lua",
		Short: "Run a Lua script against the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openSession(ctx, &f)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			state := script.NewState(s.bridge, script.WithLogger(a.log))
			defer state.Close()
			err = state.RunFile(ctx, args[0])
			out := cmd.OutOrStdout()
			s.printMessages(out)
			s.printListings(out)
			return err
		},
	}
	f.register(cmd, false)
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the options file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default options file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", a.configPath)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.Save(a.configPath, config.Default()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", a.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := toml.Marshal(a.opts)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
