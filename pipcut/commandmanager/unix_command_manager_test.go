package commandmanager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/steelcutops/pipcut/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type MockSSHClient struct {
	dialError error
}

func (m *MockSSHClient) Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	return nil, m.dialError
}

func TestRunLocal(t *testing.T) {
	manager := UnixCommandManager{
		Hostname: "localhost",
		Logger:   logger.Discard(),
	}

	result, err := manager.RunLocal(context.Background(), CommandConfig{
		Command: "echo",
		Args:    []string{"hello"},
	})

	require.NoError(t, err)
	assert.Equal(t, "hello\n", result.STDOUT)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "echo", result.Command)
}

func TestRunLocalEnv(t *testing.T) {
	manager := UnixCommandManager{Hostname: "localhost", Logger: logger.Discard()}

	result, err := manager.RunLocal(context.Background(), CommandConfig{
		Command: "printenv",
		Args:    []string{"PIPCUT_TEST_VALUE"},
		Env:     []string{"PIPCUT_TEST_VALUE=42"},
	})

	require.NoError(t, err)
	assert.Equal(t, "42\n", result.STDOUT)
}

func TestRunLocalNotFound(t *testing.T) {
	manager := UnixCommandManager{Hostname: "localhost", Logger: logger.Discard()}

	_, err := manager.RunLocal(context.Background(), CommandConfig{
		Command: "pipcut-command-that-does-not-exist",
	})
	assert.ErrorIs(t, err, ErrCommandNotFound)

	_, err = manager.RunLocal(context.Background(), CommandConfig{
		Command: "/nonexistent/bin/pip",
		Args:    []string{"freeze"},
	})
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

// fakeSudo puts a sudo on PATH that answers like sudo does for a missing
// executable.
func fakeSudo(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	script := "#!/bin/sh\nshift\ncat >/dev/null\necho \"sudo: $1: command not found\" >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sudo"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRunLocalSudoNotFound(t *testing.T) {
	fakeSudo(t)
	manager := UnixCommandManager{Hostname: "localhost", Logger: logger.Discard()}

	result, err := manager.RunLocal(context.Background(), CommandConfig{
		Command: "/nonexistent/bin/pip",
		Args:    []string{"install", "-q", "flask"},
		Sudo:    true,
	})

	assert.ErrorIs(t, err, ErrCommandNotFound)
	assert.Equal(t, 1, result.ExitCode)
}

func TestRunLocalIgnoresSudoMessagesWithoutSudo(t *testing.T) {
	manager := UnixCommandManager{Hostname: "localhost", Logger: logger.Discard()}

	result, err := manager.RunLocal(context.Background(), CommandConfig{
		Command: "echo",
		Args:    []string{"incorrect password"},
	})

	require.NoError(t, err)
	assert.Equal(t, "incorrect password\n", result.STDOUT)
}

func TestRunLocalExitCode(t *testing.T) {
	manager := UnixCommandManager{Hostname: "localhost", Logger: logger.Discard()}

	result, err := manager.RunLocal(context.Background(), CommandConfig{
		Command: "sh",
		Args:    []string{"-c", "echo oops >&2; exit 3"},
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCommandNotFound)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", result.STDERR)
}

func TestIsLocal(t *testing.T) {
	manager := UnixCommandManager{
		Hostname: "localhost",
	}
	assert.True(t, manager.isLocal())

	manager.Hostname = "127.0.0.1"
	assert.True(t, manager.isLocal())

	manager.Hostname = "example.com"
	assert.False(t, manager.isLocal())
}

func TestRunRemoteDialError(t *testing.T) {
	manager := UnixCommandManager{
		Hostname:  "remote",
		SSHClient: &MockSSHClient{dialError: errors.New("mock dial error")},
		Logger:    logger.Discard(),
		Credentials: Credentials{
			User:     "user",
			Password: "password",
		},
	}

	_, err := manager.RunRemote(context.Background(), CommandConfig{Command: "ls"})

	require.Error(t, err)
	assert.Equal(t, "mock dial error", err.Error())
}

func TestRunRemoteWithoutClient(t *testing.T) {
	manager := UnixCommandManager{Hostname: "remote", Logger: logger.Discard()}

	_, err := manager.Run(context.Background(), CommandConfig{Command: "ls"})
	assert.EqualError(t, err, "SSHClient is not initialized")
}

func TestRemoteCommandLine(t *testing.T) {
	line := remoteCommandLine(CommandConfig{
		Command: "/usr/bin/pip",
		Args:    []string{"install", "-q", "-e", "git+https://example.com/repo.git@1.2.3#egg=pkg"},
	})
	assert.Equal(t, "/usr/bin/pip install -q -e 'git+https://example.com/repo.git@1.2.3#egg=pkg'", line)

	line = remoteCommandLine(CommandConfig{
		Command: "printenv",
		Args:    []string{"VIRTUAL_ENV"},
		Env:     []string{"LANG=C.UTF-8"},
	})
	assert.Equal(t, "env LANG=C.UTF-8 printenv VIRTUAL_ENV", line)
}

func TestRemoteRunError(t *testing.T) {
	runErr := errors.New("Process exited with status 1")

	tests := []struct {
		name     string
		config   CommandConfig
		result   CommandResult
		runErr   error
		notFound bool
	}{
		{
			name:   "success",
			config: CommandConfig{Command: "/usr/bin/pip"},
		},
		{
			name:     "shell could not find the command",
			config:   CommandConfig{Command: "/usr/bin/pip"},
			result:   CommandResult{ExitCode: 127, STDERR: "sh: 1: /usr/bin/pip: not found"},
			runErr:   runErr,
			notFound: true,
		},
		{
			name:   "ordinary failure",
			config: CommandConfig{Command: "/usr/bin/pip"},
			result: CommandResult{ExitCode: 1, STDERR: "ERROR: No matching distribution found for nope"},
			runErr: runErr,
		},
		{
			name:     "sudo could not find the command",
			config:   CommandConfig{Command: "/usr/bin/pip", Sudo: true},
			result:   CommandResult{ExitCode: 1, STDERR: "sudo: /usr/bin/pip: command not found\n"},
			runErr:   runErr,
			notFound: true,
		},
		{
			name:   "sudo message without sudo",
			config: CommandConfig{Command: "/usr/bin/pip"},
			result: CommandResult{ExitCode: 1, STDERR: "sudo: /usr/bin/pip: command not found\n"},
			runErr: runErr,
		},
		{
			name:   "sudo with another failure",
			config: CommandConfig{Command: "/usr/bin/pip", Sudo: true},
			result: CommandResult{ExitCode: 1, STDERR: "ERROR: No matching distribution found for nope"},
			runErr: runErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := remoteRunError(tt.config, tt.result, tt.runErr)
			switch {
			case tt.runErr == nil:
				assert.NoError(t, err)
			case tt.notFound:
				assert.ErrorIs(t, err, ErrCommandNotFound)
			default:
				assert.Equal(t, tt.runErr, err)
			}
		})
	}
}

func TestGetRemoteExitCode(t *testing.T) {
	assert.Equal(t, 0, getRemoteExitCode(nil))
	assert.Equal(t, 0, getRemoteExitCode(errors.New("connection reset")))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "flask==2.0.1", shellQuote("flask==2.0.1"))
	assert.Equal(t, "'a b'", shellQuote("a b"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestCheckSudo(t *testing.T) {
	assert.NoError(t, checkSudo(CommandResult{STDOUT: "ok"}))
	assert.EqualError(t, checkSudo(CommandResult{STDERR: "Sorry, incorrect password attempt"}), "sudo: incorrect password provided")
	assert.EqualError(t, checkSudo(CommandResult{STDERR: "bob is not in the sudoers file."}), "sudo: user is not in the sudoers file")
}
