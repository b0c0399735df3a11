package packagemanager

import "context"

// ProviderName tags every record produced by this package.
const ProviderName = "pip"

// Ensure is the desired state of a package: one of the keywords below or
// an explicit version string.
type Ensure string

const (
	EnsureInstalled Ensure = "installed"
	EnsurePresent   Ensure = "present"
	EnsureLatest    Ensure = "latest"
	EnsureAbsent    Ensure = "absent"
)

// IsVersion reports whether e pins an explicit version.
func (e Ensure) IsVersion() bool {
	switch e {
	case "", EnsureInstalled, EnsurePresent, EnsureLatest, EnsureAbsent:
		return false
	}
	return true
}

// PackageRecord is one installed package as reported by pip freeze.
type PackageRecord struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
	Provider string `json:"provider" yaml:"provider"`
}

// ResourceSpec is the desired state of one package. Source, when set, is a
// VCS URL installed in editable mode.
type ResourceSpec struct {
	Name   string
	Ensure Ensure
	Source string
}

// Change is the action EnsurePackage took.
type Change string

const (
	ChangeNone      Change = "none"
	ChangeInstalled Change = "installed"
	ChangeUpdated   Change = "updated"
	ChangeRemoved   Change = "removed"
)

type Feature string

const (
	FeatureInstallable   Feature = "installable"
	FeatureUninstallable Feature = "uninstallable"
	FeatureUpgradeable   Feature = "upgradeable"
	FeatureVersionable   Feature = "versionable"
)

type PackageManager interface {
	ListPackages(ctx context.Context) ([]PackageRecord, error)
	Query(ctx context.Context, name string) (*PackageRecord, error)
	Latest(ctx context.Context, name string) (string, error)
	Install(ctx context.Context, spec ResourceSpec) error
	Uninstall(ctx context.Context, spec ResourceSpec) error
	Update(ctx context.Context, spec ResourceSpec) error
	Features() []Feature

	// Idempotent package management
	EnsurePackage(ctx context.Context, spec ResourceSpec) (Change, error)
}

// LatestResolver looks up the newest published version of a package.
type LatestResolver interface {
	Latest(ctx context.Context, name string) (string, error)
}
