package config

import "github.com/joomcode/errorx"

var (
	ErrorsNamespace = errorx.NewNamespace("config")
	LoadError       = ErrorsNamespace.NewType("load_error")
	InvalidError    = ErrorsNamespace.NewType("invalid")

	pathProperty = errorx.RegisterPrintableProperty("path")
	keyProperty  = errorx.RegisterPrintableProperty("key")
)

func NewLoadError(cause error, path string) *errorx.Error {
	return LoadError.New("failed to load configuration from '%s'", path).
		WithProperty(pathProperty, path).
		WithUnderlyingErrors(cause)
}

func NewInvalidError(cause error, path, key string) *errorx.Error {
	err := InvalidError.New("invalid value for '%s' in '%s'", key, path).
		WithProperty(pathProperty, path).
		WithProperty(keyProperty, key)

	if cause != nil {
		err = err.WithUnderlyingErrors(cause)
	}

	return err
}
