package hostname

import (
	"fmt"
	"net/url"
	"os"
)

// Location mirrors the location part of a runtime environment.
// An empty Hostname means the field is absent.
type Location struct {
	Hostname string
}

// Environment is the runtime reference a Resolver reads its hostname from.
// Both the Environment and its Location may be nil.
type Environment struct {
	Location *Location
}

// NewEnvironment returns an environment reporting the given hostname.
func NewEnvironment(host string) *Environment {
	return &Environment{Location: &Location{Hostname: host}}
}

// EnvironmentFromURL builds an environment from an origin URL such as
// "https://api.example.com:8443/app". Only the hostname is kept.
func EnvironmentFromURL(raw string) (*Environment, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing origin: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("origin %q: %w", raw, ErrNoHostname)
	}
	return NewEnvironment(u.Hostname()), nil
}

// EnvironmentFromOS builds an environment from the machine hostname.
// The location is left empty when the hostname cannot be determined.
func EnvironmentFromOS() *Environment {
	host, err := os.Hostname()
	if err != nil {
		return &Environment{Location: &Location{}}
	}
	return NewEnvironment(host)
}

// HostName returns the hostname exposed by env. The second result is false
// when env, its location or the hostname field is absent.
func HostName(env *Environment) (string, bool) {
	if env == nil || env.Location == nil || env.Location.Hostname == "" {
		return "", false
	}
	return env.Location.Hostname, true
}
