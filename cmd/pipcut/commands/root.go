package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/steelcutops/pipcut/logger"
	"github.com/steelcutops/pipcut/pipcut/config"
	"github.com/steelcutops/pipcut/pipcut/host"
	"github.com/steelcutops/pipcut/pipcut/hostgroup"
	"github.com/steelcutops/pipcut/pipcut/packagemanager"
	"github.com/steelcutops/pipcut/pipcut/pypi"
	"golang.org/x/term"
)

// examples:
// pipcut list --host web1 --host web2 --user deploy --password
// pipcut install flask --ensure 2.0.1 --config ./pipcut.ini
// PIPCUT_HOST=web1,web2 pipcut apply -c ./pipcut.ini -o yaml

const envPrefix = "PIPCUT"

const (
	flagConfig       = "config"
	flagHost         = "host"
	flagUser         = "user"
	flagPassword     = "password"
	flagKeyPass      = "keypass"
	flagSudoPassword = "sudo-password"
	flagConcurrency  = "concurrency"
	flagIndexURL     = "index-url"
	flagDebug        = "debug"
	flagOutput       = "output"
)

type app struct {
	v            *viper.Viper
	readPassword func(prompt string) (string, error)
	// appended after the options derived from flags and config
	hostOptions []host.HostOption

	log   logger.Logger
	cfg   *config.Config
	index *pypi.Client
	group *hostgroup.HostGroup
}

func newApp() *app {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &app{v: v, readPassword: promptPassword}
}

// NewRootCmd builds the pipcut command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pipcut",
		Short:         "Manage pip packages on local and remote hosts",
		Long:          "pipcut - list, query, install and converge Python packages through pip, locally or over SSH",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.v.BindPFlags(cmd.Flags())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP(flagConfig, "c", "", "Path to INI file with pip, index, host and package settings")
	flags.StringSlice(flagHost, nil, "Hostname to manage, repeatable (default from config, else localhost)")
	flags.StringP(flagUser, "u", "", "Username to use for SSH connection")
	flags.Bool(flagPassword, false, "Prompt for the SSH password")
	flags.Bool(flagKeyPass, false, "Prompt for the passphrase of SSH keys")
	flags.Bool(flagSudoPassword, false, "Prompt for the sudo password")
	flags.Int(flagConcurrency, 10, "Maximum number of hosts processed at once")
	flags.String(flagIndexURL, "", "XML-RPC endpoint of the package index")
	flags.Bool(flagDebug, false, "Enable debug log level")
	flags.StringP(flagOutput, "o", "text", "Output format (text|json|yaml)")

	// keep the order of commands as added
	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(
		a.listCmd(),
		a.queryCmd(),
		a.latestCmd(),
		a.installCmd(),
		a.uninstallCmd(),
		a.updateCmd(),
		a.applyCmd(),
	)

	return rootCmd
}

// Execute executes the root command.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errorx.IllegalArgument.New("context is required")
	}

	return NewRootCmd().ExecuteContext(ctx)
}

// prepare loads configuration, builds the index client and, when withHosts
// is set, the host group. Flags and PIPCUT_* variables override the file.
func (a *app) prepare(cmd *cobra.Command, withHosts bool) error {
	if _, err := outputFormat(a.v.GetString(flagOutput)); err != nil {
		return err
	}

	a.log = logger.NewWithOptions(cmd.ErrOrStderr(), a.v.GetBool(flagDebug))

	cfg := config.Default()
	if path := a.v.GetString(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if url := a.v.GetString(flagIndexURL); url != "" {
		cfg.Index.URL = url
	}
	a.cfg = cfg

	a.index = pypi.NewClient(
		pypi.WithEndpoint(cfg.Index.URL),
		pypi.WithRetryPolicy(cfg.RetryPolicy()),
		pypi.WithLogger(a.log.With("endpoint", cfg.Index.URL)),
	)

	if !withHosts {
		return nil
	}

	options, err := a.buildHostOptions()
	if err != nil {
		return err
	}

	a.group = hostgroup.NewHostGroup()
	for _, hostname := range a.hostnames() {
		a.log.Debug("Adding host", "host", hostname)
		h, err := host.NewHost(hostname, options...)
		if err != nil {
			return errorx.IllegalArgument.Wrap(err, "failed to create host %q", hostname)
		}
		a.group.AddHost(h)
	}

	return nil
}

func (a *app) buildHostOptions() ([]host.HostOption, error) {
	options := []host.HostOption{
		host.WithLogger(a.log),
		host.WithIndex(a.index),
		host.WithPip(host.PipSettings{
			Command:    a.cfg.Pip.Command,
			Candidates: a.cfg.Pip.Candidates,
			Sudo:       a.cfg.Pip.Sudo,
		}),
	}

	if user := a.v.GetString(flagUser); user != "" {
		options = append(options, host.WithUser(user))
	}

	prompts := []struct {
		flag   string
		prompt string
		option func(string) host.HostOption
	}{
		{flagPassword, "Enter the password: ", host.WithPassword},
		{flagKeyPass, "Enter the key passphrase: ", host.WithKeyPassphrase},
		{flagSudoPassword, "Enter the sudo password: ", host.WithSudoPassword},
	}
	for _, p := range prompts {
		if !a.v.GetBool(p.flag) {
			continue
		}
		secret, err := a.readPassword(p.prompt)
		if err != nil {
			return nil, errorx.IllegalState.Wrap(err, "failed to read %s", p.flag)
		}
		if secret != "" {
			options = append(options, p.option(secret))
		}
	}

	if a.cfg.Pip.LockFile != "" {
		lock := packagemanager.NewFileLock(a.cfg.Pip.LockFile)
		lock.Logger = a.log
		options = append(options, host.WithLock(lock))
	}

	return append(options, a.hostOptions...), nil
}

// hostnames picks the target hosts: flags or PIPCUT_HOST first, then the
// [hosts] section, then localhost.
func (a *app) hostnames() []string {
	if hosts := splitList(a.v.GetStringSlice(flagHost)); len(hosts) > 0 {
		return hosts
	}
	if hosts := a.cfg.Hosts(); len(hosts) > 0 {
		return hosts
	}
	return []string{"localhost"}
}

func (a *app) concurrency() int {
	return a.v.GetInt(flagConcurrency)
}

// splitList flattens comma separated entries and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return string(secret), err
}
