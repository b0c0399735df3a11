package host

import (
	"errors"

	"github.com/steelcutops/pipcut/logger"
	"github.com/steelcutops/pipcut/pipcut/commandmanager"
	"github.com/steelcutops/pipcut/pipcut/environmentmanager"
	"github.com/steelcutops/pipcut/pipcut/packagemanager"
)

// Host bundles the managers that act on one machine. Every manager shares
// the same CommandManager, so local and SSH targets behave alike.
type Host struct {
	Hostname string
	Port     int
	commandmanager.Credentials

	SSHClient      commandmanager.SSHDialer
	Logger         logger.Logger
	CommandManager commandmanager.CommandManager
	Environment    environmentmanager.EnvironmentManager
	PackageManager *packagemanager.PipPackageManager

	pip   PipSettings
	index packagemanager.LatestResolver
	lock  packagemanager.Locker
}

// PipSettings controls how pip is found and invoked on a host.
type PipSettings struct {
	// Command is an explicit pip path; discovery is skipped when set.
	Command    string
	Candidates []string
	Sudo       bool
}

func NewHost(hostname string, options ...HostOption) (*Host, error) {
	if hostname == "" {
		return nil, errors.New("hostname is required")
	}

	h := &Host{Hostname: hostname}
	for _, option := range options {
		option(h)
	}

	if h.Logger == nil {
		h.Logger = logger.New()
	}
	hostLogger := h.Logger.With("host", hostname)

	if h.SSHClient == nil {
		h.SSHClient = commandmanager.RealSSHClient{}
	}

	if h.CommandManager == nil {
		h.CommandManager = &commandmanager.UnixCommandManager{
			Hostname:    hostname,
			Port:        h.Port,
			SSHClient:   h.SSHClient,
			Logger:      hostLogger,
			Credentials: h.Credentials,
		}
	}

	h.Environment = &environmentmanager.UnixEnvironmentManager{CommandManager: h.CommandManager}

	locator := packagemanager.NewCommandLocator(h.CommandManager, h.Environment, h.pip.Candidates...)
	locator.Path = h.pip.Command

	h.PackageManager = packagemanager.NewPipPackageManager(h.CommandManager, locator, h.index)
	h.PackageManager.Sudo = h.pip.Sudo
	h.PackageManager.Lock = h.lock
	h.PackageManager.Logger = hostLogger

	return h, nil
}
