package host

import (
	"github.com/steelcutops/pipcut/logger"
	"github.com/steelcutops/pipcut/pipcut/commandmanager"
	"github.com/steelcutops/pipcut/pipcut/packagemanager"
)

type HostOption func(*Host)

// WithUser returns a HostOption that sets the user for a Host.
func WithUser(user string) HostOption {
	return func(host *Host) {
		host.User = user
	}
}

// WithPassword returns a HostOption that sets the password for a Host.
func WithPassword(password string) HostOption {
	return func(host *Host) {
		host.Password = password
	}
}

// WithKeyPassphrase returns a HostOption that sets the key passphrase for a Host.
func WithKeyPassphrase(keyPassphrase string) HostOption {
	return func(host *Host) {
		host.KeyPassphrase = keyPassphrase
	}
}

// WithSudoPassword returns a HostOption that sets the sudo password for a Host.
func WithSudoPassword(password string) HostOption {
	return func(host *Host) {
		host.SudoPassword = password
	}
}

func WithPort(port int) HostOption {
	return func(host *Host) {
		host.Port = port
	}
}

func WithSSHClient(client commandmanager.SSHDialer) HostOption {
	return func(host *Host) {
		host.SSHClient = client
	}
}

// WithCommandManager replaces the command layer, mostly for tests.
func WithCommandManager(manager commandmanager.CommandManager) HostOption {
	return func(host *Host) {
		host.CommandManager = manager
	}
}

func WithLogger(l logger.Logger) HostOption {
	return func(host *Host) {
		host.Logger = l
	}
}

func WithPip(settings PipSettings) HostOption {
	return func(host *Host) {
		host.pip = settings
	}
}

// WithIndex sets where the latest release of a package is looked up.
func WithIndex(index packagemanager.LatestResolver) HostOption {
	return func(host *Host) {
		host.index = index
	}
}

// WithLock serializes pip mutations through locker.
func WithLock(locker packagemanager.Locker) HostOption {
	return func(host *Host) {
		host.lock = locker
	}
}
