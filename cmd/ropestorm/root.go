package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/ropestorm/internal/bridge"
	"github.com/dshills/ropestorm/internal/config"
	"github.com/dshills/ropestorm/internal/engine/local"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/host/memhost"
	"github.com/dshills/ropestorm/internal/project"
)

// app holds the state shared by every subcommand.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath string
	logLevel   string

	opts config.Options
	log  *slog.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "ropestorm",
		Short: "Drive the refactoring bridge from the command line",
		Long: `ropestorm runs the bridge's commands headlessly against a project:
list key bindings, call commands, complete, find occurrences and run Lua
scripts.`,
		Version:           fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath(), "options file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the options file")

	root.AddCommand(
		a.keysCmd(),
		a.callCmd(),
		a.completeCmd(),
		a.occurrencesCmd(),
		a.runCmd(),
		a.configCmd(),
	)
	return root
}

// setup loads the options and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	opts, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		opts.LogLevel = a.logLevel
	}
	level, err := config.ParseLogLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	a.opts = opts
	a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// sessionFlags are the flags of commands that run against a project.
type sessionFlags struct {
	root    string
	file    string
	offset  int
	answers []string
}

func (f *sessionFlags) register(cmd *cobra.Command, withFile bool) {
	cmd.Flags().StringVar(&f.root, "root", ".", "project root folder")
	cmd.Flags().StringArrayVar(&f.answers, "answer", nil, "scripted answer for the next prompt (repeatable)")
	if withFile {
		cmd.Flags().StringVar(&f.file, "file", "", "file to visit, relative to the root")
		cmd.Flags().IntVar(&f.offset, "offset", 0, "byte offset of point in the file")
		_ = cmd.MarkFlagRequired("file")
	}
}

// session is an opened project in an in-memory host.
type session struct {
	bridge *bridge.Bridge
	host   *memhost.Host
	root   string
}

func (a *app) openSession(ctx context.Context, f *sessionFlags) (*session, error) {
	hostOpts := []memhost.Option{memhost.WithAnswers(f.answers...)}
	if in, ok := a.stdin.(*os.File); ok && memhost.Interactive(in) {
		hostOpts = append(hostOpts, memhost.WithConsole(memhost.NewConsole(in, a.stderr)))
	}
	h := memhost.New(a.log, hostOpts...)

	b, err := bridge.New(h, local.New(local.WithLogger(a.log)), config.NewStore(a.opts), a.log,
		bridge.WithProjectOptions(project.WithoutWatcher()))
	if err != nil {
		return nil, err
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	p, err := b.Open(ctx, f.root)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.root, err)
	}
	return &session{bridge: b, host: h, root: p.Root()}, nil
}

// visit visits file and moves point to offset.
func (s *session) visit(file string, offset int) (host.Buffer, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(s.root, filepath.FromSlash(file))
	}
	buf, err := s.host.FindFile(file)
	if err != nil {
		return nil, err
	}
	buf.SetPoint(offset)
	return buf, nil
}

func (s *session) close(ctx context.Context) error {
	return s.host.Shutdown(ctx)
}

// printListings writes every generated buffer the command left behind.
func (s *session) printListings(w io.Writer) {
	for _, b := range s.host.Buffers() {
		if b.FileName() != "" || !strings.HasPrefix(b.Name(), "*rope-") {
			continue
		}
		fmt.Fprintf(w, "--- %s ---\n%s", b.Name(), b.Text())
		if t := b.Text(); t != "" && !strings.HasSuffix(t, "\n") {
			fmt.Fprintln(w)
		}
	}
}

func (s *session) printMessages(w io.Writer) {
	for _, m := range s.host.Messages() {
		fmt.Fprintln(w, m)
	}
}
