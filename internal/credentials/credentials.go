// Package credentials loads messenger account credentials from the
// process environment. Kept separate from internal/cfg so credentials
// can never accidentally round-trip through a YAML config file or a
// command-line flag (both of which a config layer typically allows
// for non-secret settings).
package credentials

import (
	"fmt"
	"os"

	"github.com/davlia-projects/messenger-fs/internal/messenger"
)

const (
	usernameEnvVar = "MESSENGER_USERNAME"
	passwordEnvVar = "MESSENGER_PASSWORD"
)

// FromEnvironment reads MESSENGER_USERNAME and MESSENGER_PASSWORD,
// returning an error naming whichever is missing.
func FromEnvironment() (messenger.Credentials, error) {
	username := os.Getenv(usernameEnvVar)
	if username == "" {
		return messenger.Credentials{}, fmt.Errorf("credentials: %s is not set", usernameEnvVar)
	}

	password := os.Getenv(passwordEnvVar)
	if password == "" {
		return messenger.Credentials{}, fmt.Errorf("credentials: %s is not set", passwordEnvVar)
	}

	return messenger.Credentials{Username: username, Password: password}, nil
}
