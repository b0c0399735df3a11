package pypi

import "github.com/joomcode/errorx"

var (
	ErrorsNamespace = errorx.NewNamespace("pypi")
	RPCError        = ErrorsNamespace.NewType("rpc_error")
	NoReleasesError = ErrorsNamespace.NewType("no_releases")

	packageProperty  = errorx.RegisterPrintableProperty("package")
	endpointProperty = errorx.RegisterPrintableProperty("endpoint")
	attemptsProperty = errorx.RegisterPrintableProperty("attempts")
)

const (
	rpcErrorMsg        = "package_releases call for '%s' failed"
	noReleasesErrorMsg = "index returned no releases for '%s'"
)

func NewRPCError(cause error, pkg, endpoint string, attempts int) *errorx.Error {
	err := RPCError.New(rpcErrorMsg, pkg).
		WithProperty(packageProperty, pkg).
		WithProperty(endpointProperty, endpoint).
		WithProperty(attemptsProperty, attempts)

	if cause != nil {
		err = err.WithUnderlyingErrors(cause)
	}

	return err
}

func NewNoReleasesError(pkg, endpoint string) *errorx.Error {
	return NoReleasesError.New(noReleasesErrorMsg, pkg).
		WithProperty(packageProperty, pkg).
		WithProperty(endpointProperty, endpoint)
}
