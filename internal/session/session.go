// Package session wires internal/parser, internal/expand, internal/interp,
// internal/builtin, internal/vfs, internal/network, internal/pyworker, and
// internal/logging into the single exec() entry point of spec.md §6,
// grounded on the teacher's own top-level wiring in cli/internal/cli
// (flags and runtime collaborators assembled once, reused per invocation).
package session

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/bashkit/bashkit/internal/builtin"
	"github.com/bashkit/bashkit/internal/config"
	"github.com/bashkit/bashkit/internal/env"
	"github.com/bashkit/bashkit/internal/interp"
	"github.com/bashkit/bashkit/internal/logging"
	"github.com/bashkit/bashkit/internal/network"
	"github.com/bashkit/bashkit/internal/parser"
	"github.com/bashkit/bashkit/internal/pyworker"
	"github.com/bashkit/bashkit/internal/vfs"
)

// BuildVersion is the running binary's version, compared against a
// script's "#bashkit:min-version" pragma (if present).
var BuildVersion = "v0.0.0"

// Session is the facade a host process opens per tenant/run, bundling an
// env.Session, a vfs.FS, and the wired interpreter/builtin registry behind
// spec.md §6's exec() API. The name deliberately differs from
// internal/env.Session, which is the mutable execution-state struct this
// facade owns one of.
type Session struct {
	Env       *env.Session
	FS        *vfs.FS
	Interp    *interp.Interp
	Builtins  *builtin.Registry
	Logger    *slog.Logger
	Network   *network.Client
	PyWorker  *pyworker.Worker
	ParserOpt parser.Options
}

// Option configures a Session at Open time, mirroring the builder-options
// surface of spec.md §6.
type Option func(*openState)

type openState struct {
	cfg      config.Config
	fs       *vfs.FS
	builtins map[string]interp.Builtin
}

// WithConfig applies a fully built Config (e.g. loaded via
// internal/config.LoadYAML).
func WithConfig(cfg config.Config) Option {
	return func(s *openState) { s.cfg = cfg }
}

// WithFileSystem supplies a prepopulated VFS instead of an empty one.
func WithFileSystem(fs *vfs.FS) Option {
	return func(s *openState) { s.fs = fs }
}

// WithBuiltin registers or overrides a single builtin by name.
func WithBuiltin(name string, fn interp.Builtin) Option {
	return func(s *openState) {
		if s.builtins == nil {
			s.builtins = map[string]interp.Builtin{}
		}
		s.builtins[name] = fn
	}
}

// Open builds a Session ready for Exec, applying opts over config.Default.
func Open(opts ...Option) (*Session, error) {
	state := &openState{cfg: config.Default()}
	for _, opt := range opts {
		opt(state)
	}
	if err := config.Validate(state.cfg); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	logger := logging.New(state.cfg.Log)

	fs := state.fs
	if fs == nil {
		fs = vfs.New(vfs.DefaultLimits())
	}

	es := env.NewSession(1)
	es.Cwd = state.cfg.Cwd
	if es.Cwd == "" {
		es.Cwd = "/"
	}
	es.Limits = state.cfg.Limits
	for k, v := range state.cfg.Env {
		es.Set(k, v)
		es.Export(k)
	}
	es.Set("PWD", es.Cwd)
	es.Export("PWD")

	registry := builtin.Default()
	for name, fn := range state.builtins {
		registry.Register(name, fn)
	}

	it := interp.New(es, fs, registry)

	s := &Session{
		Env:      es,
		FS:       fs,
		Interp:   it,
		Builtins: registry,
		Logger:   logger,
	}

	if state.cfg.Network != nil {
		s.Network = network.New(
			network.NewAllowlist(state.cfg.Network.AllowedHosts),
			state.cfg.Network.RatePerSec,
			state.cfg.Network.Burst,
		)
	}
	if state.cfg.Python != nil {
		s.PyWorker = pyworker.New(state.cfg.Python.Interpreter, "")
	}

	return s, nil
}

// ExecResult is the outcome of one Exec call (spec.md §6).
type ExecResult struct {
	Stdout     string
	Stderr     string
	ExitStatus int
	Error      error // set only for a parse error or a ResourceExceeded/panic kind
}

const minVersionPragmaPrefix = "#bashkit:min-version"

// checkVersionPragma rejects scripts whose first line asks for a bashkit
// newer than BuildVersion, using x/mod/semver for the comparison (the
// teacher's own core/types/validation.go leans on the same package for its
// "semver" format validator).
func checkVersionPragma(src string) error {
	firstLine, _, _ := strings.Cut(src, "\n")
	firstLine = strings.TrimSpace(firstLine)
	if !strings.HasPrefix(firstLine, minVersionPragmaPrefix) {
		return nil
	}
	want := strings.TrimSpace(strings.TrimPrefix(firstLine, minVersionPragmaPrefix))
	want = strings.TrimPrefix(want, ":")
	want = strings.TrimSpace(want)
	if want == "" {
		return nil
	}
	if !strings.HasPrefix(want, "v") {
		want = "v" + want
	}
	if !semver.IsValid(want) {
		return fmt.Errorf("malformed min-version pragma: %q", want)
	}
	have := BuildVersion
	if !strings.HasPrefix(have, "v") {
		have = "v" + have
	}
	if semver.Compare(have, want) < 0 {
		return fmt.Errorf("script requires bashkit %s, running %s", want, BuildVersion)
	}
	return nil
}

// Exec parses and runs src against this Session's interpreter, correlating
// the run with a fresh logging ID.
func (s *Session) Exec(src string, stdin io.Reader) ExecResult {
	corrID := logging.NewCorrelationID()
	log := s.Logger.With("correlation_id", corrID)

	if err := checkVersionPragma(src); err != nil {
		log.Warn("version pragma rejected script", "error", err)
		return ExecResult{ExitStatus: 1, Error: err}
	}

	if err := s.Env.Limits.ChargeInput(len(src)); err != nil {
		log.Warn("script rejected before lex", "error", err)
		return ExecResult{ExitStatus: 1, Error: err}
	}

	opts := s.ParserOpt
	if opts.MaxFuel == 0 {
		opts = parser.DefaultOptions()
	}
	prog, err := parser.Parse(src, opts)
	if err != nil {
		log.Warn("parse failed", "error", err)
		return ExecResult{ExitStatus: 2, Error: err}
	}

	if stdin == nil {
		stdin = strings.NewReader("")
	}
	s.Env.Limits.StartClock()
	var stdout, stderr bytes.Buffer
	status := s.Interp.Run(prog, stdin, &stdout, &stderr)

	log.Debug("exec complete", "exit_status", status)

	return ExecResult{
		Stdout:     stdout.String(),
		Stderr:     logging.Redact(stderr.String()),
		ExitStatus: status,
	}
}
