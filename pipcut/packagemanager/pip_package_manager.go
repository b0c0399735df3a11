package packagemanager

import (
	"context"
	"errors"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/joomcode/errorx"
	"github.com/steelcutops/pipcut/logger"
	cm "github.com/steelcutops/pipcut/pipcut/commandmanager"
)

// PipPackageManager manages Python packages on one host through pip.
type PipPackageManager struct {
	CommandManager cm.CommandManager
	Locator        *CommandLocator
	Index          LatestResolver
	// Lock, when set, is held around install and uninstall.
	Lock   Locker
	Sudo   bool
	Logger logger.Logger
}

func NewPipPackageManager(commandManager cm.CommandManager, locator *CommandLocator, index LatestResolver) *PipPackageManager {
	if locator == nil {
		locator = NewCommandLocator(commandManager, nil)
	}
	return &PipPackageManager{
		CommandManager: commandManager,
		Locator:        locator,
		Index:          index,
	}
}

func (ppm *PipPackageManager) log() logger.Logger {
	if ppm.Logger == nil {
		ppm.Logger = logger.New()
	}
	return ppm.Logger
}

func (ppm *PipPackageManager) Features() []Feature {
	return []Feature{FeatureInstallable, FeatureUninstallable, FeatureUpgradeable, FeatureVersionable}
}

// ListPackages returns every package pip freeze reports, or an empty slice
// when pip is not available.
func (ppm *PipPackageManager) ListPackages(ctx context.Context) ([]PackageRecord, error) {
	output, err := ppm.freeze(ctx)
	if err != nil {
		if errorx.IsOfType(err, CommandUnresolvedError) {
			ppm.log().Debug("pip is not available, reporting no packages", "error", err)
			return []PackageRecord{}, nil
		}
		return nil, err
	}

	return ParseFreeze(output), nil
}

// Query returns the installed package whose name matches name ignoring
// case, or nil when it is not installed or pip is not available.
func (ppm *PipPackageManager) Query(ctx context.Context, name string) (*PackageRecord, error) {
	output, err := ppm.freeze(ctx)
	if err != nil {
		if errorx.IsOfType(err, CommandUnresolvedError) {
			ppm.log().Debug("pip is not available, package treated as absent", "package", name, "error", err)
			return nil, nil
		}
		return nil, err
	}

	for _, record := range ParseFreeze(output) {
		if strings.EqualFold(record.Name, name) {
			r := record
			return &r, nil
		}
	}

	return nil, nil
}

// Latest asks the package index for the newest release of name.
func (ppm *PipPackageManager) Latest(ctx context.Context, name string) (string, error) {
	if ppm.Index == nil {
		return "", errorx.IllegalState.New("no package index configured")
	}
	return ppm.Index.Latest(ctx, name)
}

// InstallArgs builds the pip arguments that bring spec to its ensure state.
func InstallArgs(spec ResourceSpec) []string {
	args := []string{"install", "-q"}

	if spec.Source != "" {
		args = append(args, "-e")
		if spec.Ensure.IsVersion() {
			return append(args, spec.Source+"@"+string(spec.Ensure)+"#egg="+spec.Name)
		}
		return append(args, spec.Source+"#egg="+spec.Name)
	}

	switch {
	case spec.Ensure.IsVersion():
		args = append(args, spec.Name+"=="+string(spec.Ensure))
	case spec.Ensure == EnsureLatest:
		args = append(args, "--upgrade", spec.Name)
	default:
		args = append(args, spec.Name)
	}

	return args
}

func UninstallArgs(name string) []string {
	return []string{"uninstall", "-y", "-q", name}
}

func (ppm *PipPackageManager) Install(ctx context.Context, spec ResourceSpec) error {
	if err := validate(spec); err != nil {
		return err
	}

	ppm.log().Info("Installing package", "package", spec.Name, "ensure", string(spec.Ensure), "source", spec.Source)
	return ppm.mutate(ctx, InstallArgs(spec))
}

func (ppm *PipPackageManager) Uninstall(ctx context.Context, spec ResourceSpec) error {
	if err := validate(spec); err != nil {
		return err
	}

	ppm.log().Info("Uninstalling package", "package", spec.Name)
	return ppm.mutate(ctx, UninstallArgs(spec.Name))
}

// Update reinstalls; pip has no separate upgrade verb.
func (ppm *PipPackageManager) Update(ctx context.Context, spec ResourceSpec) error {
	return ppm.Install(ctx, spec)
}

// EnsurePackage brings the package to spec.Ensure and reports what it did.
// No pip mutation runs when the package is already in the desired state.
func (ppm *PipPackageManager) EnsurePackage(ctx context.Context, spec ResourceSpec) (Change, error) {
	if err := validate(spec); err != nil {
		return ChangeNone, err
	}

	current, err := ppm.Query(ctx, spec.Name)
	if err != nil {
		return ChangeNone, err
	}

	change := ChangeNone
	switch {
	case spec.Ensure == EnsureAbsent:
		if current == nil {
			return ChangeNone, nil
		}
		change, err = ChangeRemoved, ppm.Uninstall(ctx, spec)

	case current == nil:
		change, err = ChangeInstalled, ppm.Install(ctx, spec)

	case spec.Ensure.IsVersion():
		if sameVersion(current.Version, string(spec.Ensure)) {
			return ChangeNone, nil
		}
		change, err = ChangeUpdated, ppm.Update(ctx, spec)

	case spec.Ensure == EnsureLatest:
		latest, lerr := ppm.Latest(ctx, spec.Name)
		if lerr != nil {
			return ChangeNone, lerr
		}
		if !olderThan(current.Version, latest) {
			return ChangeNone, nil
		}
		ppm.log().Debug("Package is behind the index", "package", spec.Name, "installed", current.Version, "latest", latest)
		change, err = ChangeUpdated, ppm.Update(ctx, spec)
	}

	if err != nil {
		return ChangeNone, err
	}
	return change, nil
}

func validate(spec ResourceSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return NewInvalidResourceError(spec.Name, "package name is required")
	}
	if strings.ContainsAny(spec.Name, "=<>! ") {
		return NewInvalidResourceError(spec.Name, "package name must not carry a version specifier")
	}
	return nil
}

func (ppm *PipPackageManager) freeze(ctx context.Context) (string, error) {
	result, err := ppm.run(ctx, []string{"freeze"}, false)
	if err != nil {
		return "", err
	}
	return result.STDOUT, nil
}

func (ppm *PipPackageManager) mutate(ctx context.Context, args []string) error {
	if ppm.Lock != nil {
		release, err := ppm.Lock.Acquire(ctx)
		if err != nil {
			return err
		}
		defer release()
	}

	_, err := ppm.run(ctx, args, ppm.Sudo)
	if err == nil || !errorx.IsOfType(err, CommandUnresolvedError) {
		return err
	}

	ppm.log().Warn("pip command unresolved, resolving again", "error", err)
	ppm.Locator.Reset()
	_, err = ppm.run(ctx, args, ppm.Sudo)
	return err
}

// run resolves pip and executes it once. A pip that cannot be found, either
// by the locator or because the remembered path vanished, yields a
// CommandUnresolvedError; every other failure is returned as is.
func (ppm *PipPackageManager) run(ctx context.Context, args []string, sudo bool) (cm.CommandResult, error) {
	pip, err := ppm.Locator.Resolve(ctx)
	if err != nil {
		return cm.CommandResult{}, err
	}

	result, err := ppm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: pip,
		Args:    args,
		Sudo:    sudo,
	})
	if err != nil {
		if errors.Is(err, cm.ErrCommandNotFound) {
			ppm.Locator.Reset()
			return result, NewCommandUnresolvedError(err, pip)
		}
		ppm.log().Error("pip failed", "command", pip, "args", args, "exitCode", result.ExitCode, "stderr", strings.TrimSpace(result.STDERR))
		return result, err
	}

	return result, nil
}

func sameVersion(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Equal(vb)
	}
	return a == b
}

// olderThan reports whether installed should be upgraded to latest. Versions
// semver cannot parse are compared for equality only.
func olderThan(installed, latest string) bool {
	vi, errI := semver.NewVersion(installed)
	vl, errL := semver.NewVersion(latest)
	if errI == nil && errL == nil {
		return vi.LessThan(vl)
	}
	return installed != latest
}
