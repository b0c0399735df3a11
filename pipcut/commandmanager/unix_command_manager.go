package commandmanager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/steelcutops/pipcut/logger"
	"golang.org/x/crypto/ssh"
)

// exit status used by POSIX shells when the command is not on PATH
const shellNotFoundExitCode = 127

const defaultDialTimeout = 15 * time.Minute

type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error)
}

// RealSSHClient dials with golang.org/x/crypto/ssh.
type RealSSHClient struct{}

func (RealSSHClient) Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	cfg := *config
	cfg.Timeout = timeout
	return ssh.Dial(network, addr, &cfg)
}

type UnixCommandManager struct {
	Hostname  string
	Port      int
	SSHClient SSHDialer
	Logger    logger.Logger
	Credentials
}

func (u *UnixCommandManager) log() logger.Logger {
	if u.Logger == nil {
		u.Logger = logger.New()
	}
	return u.Logger
}

func (u *UnixCommandManager) RunLocal(ctx context.Context, config CommandConfig) (CommandResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	if config.Sudo {
		cmdArgs := append([]string{"-S", config.Command}, config.Args...)
		cmd = exec.CommandContext(ctx, "sudo", cmdArgs...)
		cmd.Stdin = strings.NewReader(u.SudoPassword + "\n")
	}
	if len(config.Env) > 0 {
		cmd.Env = append(cmd.Environ(), config.Env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	u.log().Debug("Executing local command", "command", config.Command, "args", config.Args)
	err := cmd.Run()

	result := CommandResult{
		Command:   config.Command,
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}

	if err != nil && (isNotFound(err) || sudoNotFound(config, result)) {
		return result, commandNotFound(config)
	}

	if config.Sudo {
		if sudoErr := checkSudo(result); sudoErr != nil {
			return result, sudoErr
		}
	}

	return result, err
}

func (u *UnixCommandManager) getSSHConfig() (*ssh.ClientConfig, error) {
	var authMethod ssh.AuthMethod

	if u.Password != "" {
		u.log().Debug("Using password authentication", "hostname", u.Hostname)
		authMethod = ssh.Password(u.Password)
	} else {
		u.log().Debug("Using public key authentication", "hostname", u.Hostname)
		var keyManager SSHKeyManager
		if u.KeyPassphrase != "" {
			keyManager = FileSSHKeyManager{}
		} else {
			keyManager = AgentSSHKeyManager{}
		}

		keys, err := keyManager.ReadPrivateKeys(u.KeyPassphrase)
		if err != nil {
			return nil, err
		}

		authMethod = ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			return keys, nil
		})
	}

	return &ssh.ClientConfig{
		User:            u.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func (u *UnixCommandManager) RunRemote(ctx context.Context, config CommandConfig) (CommandResult, error) {
	u.log().Debug("Executing remote command", "hostname", u.Hostname, "command", config.Command)

	if u.SSHClient == nil {
		return CommandResult{}, errors.New("SSHClient is not initialized")
	}

	sshConfig, err := u.getSSHConfig()
	if err != nil {
		return CommandResult{}, err
	}

	dialTimeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
	}

	port := u.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(u.Hostname, fmt.Sprint(port))

	client, err := u.SSHClient.Dial("tcp", addr, sshConfig, dialTimeout)
	if err != nil {
		return CommandResult{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return CommandResult{}, err
	}
	defer session.Close()

	cmdStr := remoteCommandLine(config)
	if config.Sudo {
		cmdStr = "sudo -S " + cmdStr
		session.Stdin = strings.NewReader(u.SudoPassword + "\n")
	}

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmdStr)
	}()

	select {
	case runErr := <-done:
		result := CommandResult{
			Command:   cmdStr,
			STDOUT:    stdout.String(),
			STDERR:    stderr.String(),
			Duration:  time.Since(start),
			Timestamp: start,
		}

		result.ExitCode = getRemoteExitCode(runErr)

		if config.Sudo {
			if sudoErr := checkSudo(result); sudoErr != nil {
				return result, sudoErr
			}
		}

		if err := remoteRunError(config, result, runErr); err != nil {
			if !errors.Is(err, ErrCommandNotFound) {
				u.log().Error("Failed to execute command over SSH", "command", cmdStr, "error", err, "stderr", result.STDERR)
			}
			return result, err
		}

		return result, nil

	case <-ctx.Done():
		u.log().Error("Command over SSH timed out", "command", cmdStr)
		return CommandResult{}, ctx.Err()
	}
}

func (u *UnixCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if u.isLocal() {
		return u.RunLocal(ctx, config)
	}

	return u.RunRemote(ctx, config)
}

func (u *UnixCommandManager) isLocal() bool {
	return u.Hostname == "" || u.Hostname == "localhost" || u.Hostname == "127.0.0.1"
}

func checkSudo(result CommandResult) error {
	out := result.STDOUT + result.STDERR
	if strings.Contains(out, "incorrect password") {
		return errors.New("sudo: incorrect password provided")
	}
	if strings.Contains(out, "is not in the sudoers file") {
		return errors.New("sudo: user is not in the sudoers file")
	}
	return nil
}

// remoteRunError maps a failed remote run to ErrCommandNotFound when the
// shell or sudo could not find the executable.
func remoteRunError(config CommandConfig, result CommandResult, runErr error) error {
	if runErr == nil {
		return nil
	}
	if result.ExitCode == shellNotFoundExitCode || sudoNotFound(config, result) {
		return commandNotFound(config)
	}
	return runErr
}

// sudoNotFound reports sudo's own "command not found", which exits 1.
func sudoNotFound(config CommandConfig, result CommandResult) bool {
	return config.Sudo && result.ExitCode == 1 && strings.Contains(result.STDERR, ": command not found")
}

func commandNotFound(config CommandConfig) error {
	return fmt.Errorf("%s: %w", config.Command, ErrCommandNotFound)
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func getRemoteExitCode(err error) int {
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	return 0
}

func getExitCode(err error) int {
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return exitError.ExitCode()
	}
	return 0
}

// remoteCommandLine renders config as a single shell command line, quoting
// every word for a POSIX shell.
func remoteCommandLine(config CommandConfig) string {
	words := make([]string, 0, len(config.Env)+len(config.Args)+2)
	if len(config.Env) > 0 {
		words = append(words, "env")
		for _, kv := range config.Env {
			words = append(words, shellQuote(kv))
		}
	}
	words = append(words, shellQuote(config.Command))
	for _, arg := range config.Args {
		words = append(words, shellQuote(arg))
	}
	return strings.Join(words, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:@,+", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
