package commandmanager

import (
	"context"
	"errors"
	"time"
)

// ErrCommandNotFound is wrapped by Run when the executable does not exist
// on the target host.
var ErrCommandNotFound = errors.New("command not found")

// CommandConfig describes one command invocation.
type CommandConfig struct {
	Command string
	Args    []string
	Sudo    bool
	Env     []string
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// CommandManager provides methods to execute commands, both locally and remotely.
type CommandManager interface {
	// RunLocal executes a command on the local system.
	RunLocal(ctx context.Context, config CommandConfig) (CommandResult, error)

	// RunRemote executes a command on a remote system via SSH.
	RunRemote(ctx context.Context, config CommandConfig) (CommandResult, error)

	// Run picks local or remote execution based on the target hostname.
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)
}

// Credentials carries the authentication material for a host.
type Credentials struct {
	User          string
	Password      string
	KeyPassphrase string
	SudoPassword  string
}
