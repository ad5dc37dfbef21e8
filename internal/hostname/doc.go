// Package hostname resolves environment-specific API addresses.
//
// A Resolver combines three inputs, all supplied explicitly at construction:
//   - Table: base URLs per environment hostname plus online and offline route suffixes
//   - Environment: the runtime reference exposing the current hostname
//   - Online flag (part of Table): selects which route set is consulted first
//
// URLs are built by plain concatenation of base and suffix. Nothing is
// normalized, so a trailing slash on the base and a leading slash on the
// suffix produce a double slash:
//
//	tbl := hostname.Table{
//		Online:    true,
//		Hostnames: map[string]string{"api.example.com": "https://api.example.com/"},
//		Routes:    map[string]string{"users": "/users"},
//	}
//	r := hostname.NewResolver(tbl, hostname.NewEnvironment("api.example.com"))
//	r.URL("users") // "https://api.example.com//users"
//
// AuthTable maps a hostname to the OAuth endpoint used for JWT exchange.
package hostname
