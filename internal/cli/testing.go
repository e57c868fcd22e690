package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// CLI provides a clean interface for running CLI commands in tests.
// It manages a temp directory, a package database and environment
// variables.
//
// All runs in a process share the engine's global state, so tests using
// CLI must not call t.Parallel.
type CLI struct {
	t      *testing.T
	Dir    string
	DBPath string
	RCFile string
	Env    map[string]string
}

// NewCLI creates a new test CLI with a temp directory. Its rpmrc points
// macrofiles at an empty file so host configuration is never read.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	dir := t.TempDir()
	c := &CLI{
		t:      t,
		Dir:    dir,
		DBPath: filepath.Join(dir, "rpmdb"),
		RCFile: filepath.Join(dir, "rpmrc"),
		Env: map[string]string{
			"HOME":            dir,
			"XDG_CONFIG_HOME": filepath.Join(dir, ".config"),
		},
	}

	c.WriteFile("macros", "")
	c.WriteFile("rpmrc", "macrofiles: "+filepath.Join(dir, "macros")+"\n")

	return c
}

func (r *CLI) args(args []string) []string {
	return append([]string{"rpmq", "--cwd", r.Dir, "--rcfile", r.RCFile, "--dbpath", r.DBPath}, args...)
}

// Run executes the CLI with the given args and returns stdout, stderr, and exit code.
// Args should not include "rpmq", "--cwd", "--rcfile" or "--dbpath" - those are added automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	code := Run(nil, &outBuf, &errBuf, r.args(args), r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// RunRaw executes the CLI with only "rpmq" and "--cwd" prepended.
func (r *CLI) RunRaw(args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	code := Run(nil, &outBuf, &errBuf, append([]string{"rpmq", "--cwd", r.Dir}, args...), r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// RunWithInput executes the CLI with stdin and returns stdout, stderr, and exit code.
// stdin must be a string or io.Reader; panics otherwise.
func (r *CLI) RunWithInput(stdin any, args ...string) (string, string, int) {
	var inReader io.Reader

	switch v := stdin.(type) {
	case string:
		inReader = strings.NewReader(v)
	case io.Reader:
		inReader = v
	default:
		panic(fmt.Sprintf("stdin must be string or io.Reader, got %T", stdin))
	}

	var outBuf, errBuf bytes.Buffer

	code := Run(inReader, &outBuf, &errBuf, r.args(args), r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns non-zero.
// Returns trimmed stdout on success.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the CLI and fails the test if the command succeeds.
// Also fails if stdout is not empty. Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	if stdout != "" {
		r.t.Fatalf("command %v failed but stdout should be empty\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// WriteDB replaces the package database with specs.
func (r *CLI) WriteDB(specs ...librpm.PackageSpec) {
	r.t.Helper()

	err := librpm.CreateDatabase(r.DBPath, specs)
	if err != nil {
		r.t.Fatalf("failed to write package database: %v", err)
	}
}

// WriteFile writes content to a file relative to Dir.
func (r *CLI) WriteFile(rel, content string) {
	r.t.Helper()

	path := filepath.Join(r.Dir, rel)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		r.t.Fatalf("failed to create dir for %s: %v", rel, err)
	}

	err = os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		r.t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// syncBuffer is a bytes.Buffer safe for a command writing in one goroutine
// while the test reads in another.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// Background is a command running in its own goroutine.
type Background struct {
	t      *testing.T
	stdout syncBuffer
	stderr syncBuffer
	sigCh  chan os.Signal
	done   chan int
}

// Start runs the CLI in the background, for commands that block such as
// watch.
func (r *CLI) Start(args ...string) *Background {
	b := &Background{
		t:     r.t,
		sigCh: make(chan os.Signal, 1),
		done:  make(chan int, 1),
	}

	go func() {
		b.done <- Run(nil, &b.stdout, &b.stderr, r.args(args), r.Env, b.sigCh)
	}()

	return b
}

// WaitForOutput blocks until stdout contains substr, failing the test after
// timeout.
func (b *Background) WaitForOutput(substr string, timeout time.Duration) {
	b.t.Helper()

	deadline := time.Now().Add(timeout)
	for !strings.Contains(b.stdout.String(), substr) {
		if time.Now().After(deadline) {
			b.t.Fatalf("timed out waiting for %q\nstdout:\n%s\nstderr:\n%s", substr, b.stdout.String(), b.stderr.String())
		}

		time.Sleep(10 * time.Millisecond)
	}
}

// Interrupt delivers an interrupt like Ctrl-C.
func (b *Background) Interrupt() {
	b.sigCh <- os.Interrupt
}

// Wait waits for the command to exit and returns stdout, stderr, and exit code.
func (b *Background) Wait(timeout time.Duration) (string, string, int) {
	b.t.Helper()

	select {
	case code := <-b.done:
		return b.stdout.String(), b.stderr.String(), code
	case <-time.After(timeout):
		b.t.Fatalf("command did not exit within %v\nstdout:\n%s", timeout, b.stdout.String())

		return "", "", 0
	}
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
