// Package simulator invokes the external XMI-MSIM binary.
package simulator

import (
	"bytes"
	"context"
	"os/exec"
	"slices"
	"sync"
)

// CommandExecutor runs one prepared command.
// This abstraction lets tests replace the simulator binary.
type CommandExecutor interface {
	// Run executes the command and returns stdout and stderr separately.
	Run() (stdout, stderr []byte, err error)
}

// CommandBuilder prepares commands bound to a context.
type CommandBuilder interface {
	BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor
}

// RealCommandExecutor wraps exec.Cmd.
type RealCommandExecutor struct {
	cmd *exec.Cmd
}

// Run executes the command.
func (r *RealCommandExecutor) Run() ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	r.cmd.Stdout = &stdout
	r.cmd.Stderr = &stderr
	err := r.cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// RealCommandBuilder implements CommandBuilder using exec.CommandContext.
type RealCommandBuilder struct{}

// BuildCommand creates an executor that is killed when ctx is done.
func (RealCommandBuilder) BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor {
	return &RealCommandExecutor{cmd: exec.CommandContext(ctx, name, args...)}
}

// MockCommandExecutor implements CommandExecutor for testing.
type MockCommandExecutor struct {
	Stdout []byte
	Stderr []byte
	Err    error

	// OnRun runs before the canned result is returned, e.g. to write the
	// artifacts a real simulation would leave behind.
	OnRun func(args []string) error

	args      []string
	RunCalled bool
}

// Run returns the configured output.
func (m *MockCommandExecutor) Run() ([]byte, []byte, error) {
	m.RunCalled = true
	if m.OnRun != nil {
		if err := m.OnRun(m.args); err != nil {
			return m.Stdout, m.Stderr, err
		}
	}
	return m.Stdout, m.Stderr, m.Err
}

// MockBuiltCommand records one built command.
type MockBuiltCommand struct {
	Name string
	Args []string
}

// MockCommandBuilder records built commands and hands out mock executors.
// It is safe for concurrent use.
type MockCommandBuilder struct {
	mu       sync.Mutex
	Commands []MockBuiltCommand

	// Executor is copied for every command when set; otherwise each command
	// gets a fresh MockCommandExecutor that succeeds silently.
	Executor *MockCommandExecutor

	// ExecutorFactory overrides Executor and builds one executor per command.
	ExecutorFactory func(name string, args []string) *MockCommandExecutor
}

// BuildCommand records the command and returns its executor.
func (b *MockCommandBuilder) BuildCommand(_ context.Context, name string, args ...string) CommandExecutor {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Commands = append(b.Commands, MockBuiltCommand{Name: name, Args: args})
	var executor *MockCommandExecutor
	switch {
	case b.ExecutorFactory != nil:
		executor = b.ExecutorFactory(name, args)
	case b.Executor != nil:
		executor = &MockCommandExecutor{
			Stdout: b.Executor.Stdout,
			Stderr: b.Executor.Stderr,
			Err:    b.Executor.Err,
			OnRun:  b.Executor.OnRun,
		}
	default:
		executor = &MockCommandExecutor{}
	}
	executor.args = slices.Clone(args)
	return executor
}

// Calls returns how many commands were built.
func (b *MockCommandBuilder) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Commands)
}

// LastCommand returns the most recently built command, or nil if none.
func (b *MockCommandBuilder) LastCommand() *MockBuiltCommand {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Commands) == 0 {
		return nil
	}
	c := b.Commands[len(b.Commands)-1]
	return &c
}
