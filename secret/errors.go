package secret

import "errors"

var (
	// ErrSecretNotFound indicates a provider has no value for a reference.
	ErrSecretNotFound = errors.New("secret: not found")

	// ErrEmptySecret indicates a strict resolver received an empty value.
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrUnknownProvider indicates a reference names an unregistered provider.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrMissingEnv indicates ${VAR} named a variable that is not set.
	ErrMissingEnv = errors.New("secret: missing environment variables")
)
