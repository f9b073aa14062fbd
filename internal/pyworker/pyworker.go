// Package pyworker implements the sandboxed Python worker collaborator of
// spec.md §6: run(code, stdin, limits) -> {stdout, stderr, exit} over a
// framed IPC channel. Frames are length-prefixed CBOR payloads, grounded on
// the teacher's deterministic CBOR encoding in core/planfmt/canonical.go
// (fxamacker/cbor/v2's CanonicalEncOptions, here used for wire framing
// rather than content hashing).
package pyworker

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const maxFrameBytes = 16 << 20 // 16 MB/line cap of spec.md §6

// Limits bounds one run() call.
type Limits struct {
	WallTimeout time.Duration
	MaxOutput   int64
}

// Result is the outcome of a run() call.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// request is the wire shape sent to the worker process.
type request struct {
	Code  string `cbor:"code"`
	Stdin string `cbor:"stdin"`
}

// response is the wire shape read back from the worker process.
type response struct {
	Stdout   string `cbor:"stdout"`
	Stderr   string `cbor:"stderr"`
	ExitCode int    `cbor:"exit_code"`
}

// Worker launches and speaks to a single external Python process per run,
// clearing its environment before each spawn (spec.md §6: "clears its own
// environment, runs in a separate OS process").
type Worker struct {
	Interpreter string // e.g. "python3"
	ScriptPath  string // the worker-side driver script
}

// New returns a Worker that launches Interpreter ScriptPath per call.
func New(interpreter, scriptPath string) *Worker {
	return &Worker{Interpreter: interpreter, ScriptPath: scriptPath}
}

// Run executes code against stdin, bounded by limits.WallTimeout plus a
// 5s grace period the parent enforces beyond the child's own deadline.
func (w *Worker) Run(ctx context.Context, code, stdin string, limits Limits) (Result, error) {
	wall := limits.WallTimeout
	if wall <= 0 {
		wall = 10 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, wall+5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, w.Interpreter, w.ScriptPath)
	cmd.Env = nil // clear inherited environment

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return Result{}, fmt.Errorf("pyworker: stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("pyworker: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("pyworker: start: %w", err)
	}

	if err := writeFrame(stdinPipe, request{Code: code, Stdin: stdin}); err != nil {
		cmd.Process.Kill()
		return Result{}, fmt.Errorf("pyworker: write request: %w", err)
	}
	stdinPipe.Close()

	var resp response
	readErr := readFrame(stdoutPipe, &resp)
	waitErr := cmd.Wait()

	if readErr != nil {
		return Result{}, fmt.Errorf("pyworker: read response: %w", readErr)
	}
	if waitErr != nil && resp.ExitCode == 0 {
		resp.ExitCode = 1
	}

	return Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}, nil
}

// writeFrame encodes v as canonical CBOR prefixed with a 4-byte big-endian
// length, matching the framing the worker-side driver expects to read.
func writeFrame(w io.Writer, v any) error {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return err
	}
	payload, err := encMode.Marshal(v)
	if err != nil {
		return err
	}
	if len(payload) > maxFrameBytes {
		return fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// readFrame reads one length-prefixed CBOR frame and decodes it into v.
func readFrame(r io.Reader, v any) error {
	br := bufio.NewReader(r)
	var length [4]byte
	if _, err := io.ReadFull(br, length[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(length[:])
	if n > maxFrameBytes {
		return fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(br, payload); err != nil {
		return err
	}
	return cbor.Unmarshal(payload, v)
}
