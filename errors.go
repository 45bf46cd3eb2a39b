package kintoneclient

import (
	"errors"
	"fmt"
)

var (
	// ErrAppNotFound is matched by every *ConfigurationError.
	ErrAppNotFound = errors.New("app not found in registry")
	// ErrNoCredentials is matched by every *AuthenticationError.
	ErrNoCredentials = errors.New("no session credential or API token available")
)

// ConfigurationError is returned when an operation names an app that is not
// part of the client's AppRegistry. No request is sent.
type ConfigurationError struct {
	App string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("app %q: %s", e.App, ErrAppNotFound)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrAppNotFound
}

// AuthenticationError is returned when neither a session credential nor an
// API token for the target app is configured. No request is sent.
type AuthenticationError struct {
	App string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("app %q: %s", e.App, ErrNoCredentials)
}

func (e *AuthenticationError) Unwrap() error {
	return ErrNoCredentials
}
