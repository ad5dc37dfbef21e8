package hostname

import (
	"fmt"
	"log/slog"
)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used to report route misses.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver maps logical route keys to fully qualified URLs.
// It is safe for concurrent use; its tables are never modified after construction.
type Resolver struct {
	table   Table
	host    string
	hasHost bool
	logger  *slog.Logger
}

// NewResolver creates a Resolver for the given table and environment.
// The hostname is read from env once, at construction.
func NewResolver(table Table, env *Environment, opts ...ResolverOption) *Resolver {
	host, ok := HostName(env)
	r := &Resolver{
		table:   table.clone(),
		host:    host,
		hasHost: ok,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Host returns the environment hostname captured at construction.
func (r *Resolver) Host() (string, bool) {
	return r.host, r.hasHost
}

// Online reports whether the online route set is active.
func (r *Resolver) Online() bool {
	return r.table.Online
}

// URL resolves key to a URL. Online routes are prefixed with the base URL of
// the environment hostname; anything else falls back to the local table.
// Missing entries contribute an empty string.
func (r *Resolver) URL(key string) string {
	if suffix, ok := r.onlineRoute(key); ok {
		base, found := r.table.Hostnames[r.host]
		if !found {
			r.logger.Debug("no base url for hostname", "host", r.host, "route", key)
		}
		return base + suffix
	}

	suffix, found := r.table.Local.Routes[key]
	if !found {
		r.logger.Debug("route not found in any table", "route", key)
	}
	return r.table.Local.Base + suffix
}

// LookupURL is the strict form of URL. It fails when the key is unknown to
// both tables or when the online base URL for the hostname is missing.
func (r *Resolver) LookupURL(key string) (string, error) {
	if suffix, ok := r.onlineRoute(key); ok {
		base, found := r.table.Hostnames[r.host]
		if !found {
			return "", fmt.Errorf("route %q: hostname %q: %w", key, r.host, ErrUnknownHost)
		}
		return base + suffix, nil
	}

	suffix, found := r.table.Local.Routes[key]
	if !found {
		return "", fmt.Errorf("route %q: %w", key, ErrUnknownRoute)
	}
	return r.table.Local.Base + suffix, nil
}

func (r *Resolver) onlineRoute(key string) (string, bool) {
	if !r.table.Online {
		return "", false
	}
	suffix, ok := r.table.Routes[key]
	return suffix, ok
}
