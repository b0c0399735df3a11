package commands

import (
	"context"
	"fmt"
	"io"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"github.com/steelcutops/pipcut/pipcut/host"
	"github.com/steelcutops/pipcut/pipcut/packagemanager"
)

// eachHost runs action on every host and renders the collected reports.
// The host failures are returned after the output is written.
func (a *app) eachHost(cmd *cobra.Command, action func(context.Context, *host.Host) HostReport) error {
	if err := a.prepare(cmd, true); err != nil {
		return err
	}

	collected := &reports{}
	err := a.group.ForEach(cmd.Context(), a.concurrency(), func(ctx context.Context, h *host.Host) error {
		report := action(ctx, h)
		report.Host = h.Hostname
		collected.add(report)
		if report.Error != "" {
			return fmt.Errorf("%s", report.Error)
		}
		return nil
	})

	list := collected.sorted()
	if rerr := render(cmd.OutOrStdout(), a.v.GetString(flagOutput), list, func(w io.Writer) {
		writeReports(w, list)
	}); rerr != nil {
		return rerr
	}

	return err
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the pip packages installed on each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.eachHost(cmd, func(ctx context.Context, h *host.Host) HostReport {
				packages, err := h.PackageManager.ListPackages(ctx)
				if err != nil {
					return HostReport{Error: err.Error()}
				}
				return HostReport{Packages: packages}
			})
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <package>",
		Short: "Show the installed version of a package on each host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.eachHost(cmd, func(ctx context.Context, h *host.Host) HostReport {
				record, err := h.PackageManager.Query(ctx, args[0])
				if err != nil {
					return HostReport{Error: err.Error()}
				}
				if record == nil {
					return HostReport{}
				}
				return HostReport{Packages: []packagemanager.PackageRecord{*record}}
			})
		},
	}
}

type latestReport struct {
	Package string `json:"package" yaml:"package"`
	Latest  string `json:"latest" yaml:"latest"`
}

func (a *app) latestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest <package>",
		Short: "Look up the newest release of a package on the package index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.prepare(cmd, false); err != nil {
				return err
			}

			latest, err := a.index.Latest(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			report := latestReport{Package: args[0], Latest: latest}
			return render(cmd.OutOrStdout(), a.v.GetString(flagOutput), report, func(w io.Writer) {
				fmt.Fprintln(w, latest)
			})
		},
	}
}

// mutationCmd builds install, uninstall and update, which differ only in
// the pip operation and the ensure default.
func (a *app) mutationCmd(use, short string, defaultEnsure packagemanager.Ensure, change packagemanager.Change,
	op func(packagemanager.PackageManager, context.Context, packagemanager.ResourceSpec) error) *cobra.Command {
	var (
		flagEnsure string
		flagSource string
	)

	cmd := &cobra.Command{
		Use:   use + " <package>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := packagemanager.ResourceSpec{
				Name:   args[0],
				Ensure: packagemanager.Ensure(flagEnsure),
				Source: flagSource,
			}

			return a.eachHost(cmd, func(ctx context.Context, h *host.Host) HostReport {
				if err := op(h.PackageManager, ctx, spec); err != nil {
					return HostReport{Error: err.Error()}
				}
				return HostReport{Changes: []PackageChange{{Package: spec.Name, Change: change}}}
			})
		},
	}

	if defaultEnsure != packagemanager.EnsureAbsent {
		cmd.Flags().StringVar(&flagEnsure, "ensure", string(defaultEnsure), "installed, latest or an exact version")
		cmd.Flags().StringVar(&flagSource, "source", "", "VCS URL to install from in editable mode")
	} else {
		flagEnsure = string(defaultEnsure)
	}

	return cmd
}

func (a *app) installCmd() *cobra.Command {
	return a.mutationCmd("install", "Install a package on each host",
		packagemanager.EnsureInstalled, packagemanager.ChangeInstalled, packagemanager.PackageManager.Install)
}

func (a *app) uninstallCmd() *cobra.Command {
	return a.mutationCmd("uninstall", "Uninstall a package from each host",
		packagemanager.EnsureAbsent, packagemanager.ChangeRemoved, packagemanager.PackageManager.Uninstall)
}

func (a *app) updateCmd() *cobra.Command {
	return a.mutationCmd("update", "Upgrade a package on each host",
		packagemanager.EnsureLatest, packagemanager.ChangeUpdated, packagemanager.PackageManager.Update)
}

func (a *app) applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Converge every [package] section of the config file on each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.eachHost(cmd, func(ctx context.Context, h *host.Host) HostReport {
				report := HostReport{}
				if len(a.cfg.Packages) == 0 {
					report.Error = errorx.IllegalArgument.New("no [package] sections configured").Error()
					return report
				}

				var failures *multierror.Error
				for _, spec := range a.cfg.Packages {
					change, err := h.PackageManager.EnsurePackage(ctx, spec)
					entry := PackageChange{Package: spec.Name, Change: change}
					if err != nil {
						entry.Error = err.Error()
						failures = multierror.Append(failures, fmt.Errorf("%s: %w", spec.Name, err))
					}
					report.Changes = append(report.Changes, entry)
				}

				if err := failures.ErrorOrNil(); err != nil {
					report.Error = err.Error()
				}
				return report
			})
		},
	}
}
