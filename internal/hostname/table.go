package hostname

import (
	"fmt"
	"maps"
)

// LocalTable holds the offline base URL and its route suffixes.
type LocalTable struct {
	Base   string            `json:"base"`
	Routes map[string]string `json:"routes"`
}

// Table is the static hostname and route configuration.
type Table struct {
	// Online selects the online route set. When false every key resolves
	// against the local table.
	Online bool `json:"online"`

	// Hostnames maps an environment hostname to its base URL.
	Hostnames map[string]string `json:"hostnames"`

	// Routes maps an online route key to its path suffix.
	Routes map[string]string `json:"routes"`

	Local LocalTable `json:"local"`
}

// clone returns a deep copy so a Resolver never shares maps with its caller.
func (t Table) clone() Table {
	return Table{
		Online:    t.Online,
		Hostnames: maps.Clone(t.Hostnames),
		Routes:    maps.Clone(t.Routes),
		Local: LocalTable{
			Base:   t.Local.Base,
			Routes: maps.Clone(t.Local.Routes),
		},
	}
}

// AuthEntry describes the OAuth endpoint of one hostname.
type AuthEntry struct {
	OAuthURL string `json:"oauth_url" validate:"required,url"`
}

// AuthTable maps a hostname to its OAuth endpoint.
type AuthTable map[string]AuthEntry

// OAuthURL returns the OAuth endpoint configured for host.
func (a AuthTable) OAuthURL(host string) (string, error) {
	entry, ok := a[host]
	if !ok || entry.OAuthURL == "" {
		return "", fmt.Errorf("no oauth url for %q: %w", host, ErrUnknownHost)
	}
	return entry.OAuthURL, nil
}
