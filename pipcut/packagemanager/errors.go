package packagemanager

import "github.com/joomcode/errorx"

var (
	ErrorsNamespace        = errorx.NewNamespace("pip")
	CommandUnresolvedError = ErrorsNamespace.NewType("command_unresolved")
	InvalidResourceError   = ErrorsNamespace.NewType("invalid_resource")
	LockError              = ErrorsNamespace.NewType("lock_error")

	commandProperty  = errorx.RegisterPrintableProperty("command")
	packageProperty  = errorx.RegisterPrintableProperty("package")
	lockPathProperty = errorx.RegisterPrintableProperty("lock_path")
)

const (
	commandUnresolvedErrorMsg = "could not find `%s` command"
	invalidResourceErrorMsg   = "invalid package resource: %s"
	lockErrorMsg              = "failed to acquire pip lock '%s'"
)

func NewCommandUnresolvedError(cause error, command string) *errorx.Error {
	err := CommandUnresolvedError.New(commandUnresolvedErrorMsg, command).
		WithProperty(commandProperty, command)

	if cause != nil {
		err = err.WithUnderlyingErrors(cause)
	}

	return err
}

func NewInvalidResourceError(pkg, reason string) *errorx.Error {
	return InvalidResourceError.New(invalidResourceErrorMsg, reason).
		WithProperty(packageProperty, pkg)
}

func NewLockError(cause error, lockPath string) *errorx.Error {
	err := LockError.New(lockErrorMsg, lockPath).
		WithProperty(lockPathProperty, lockPath)

	if cause != nil {
		err = err.WithUnderlyingErrors(cause)
	}

	return err
}
