package hostname

import (
	"errors"
	"testing"
)

func testTable() Table {
	return Table{
		Online:    true,
		Hostnames: map[string]string{"api.example.com": "https://api.example.com/"},
		Routes:    map[string]string{"users": "/users"},
		Local: LocalTable{
			Base:   "http://localhost:3000/",
			Routes: map[string]string{"users": "users.json", "config": "config.json"},
		},
	}
}

func TestHostName(t *testing.T) {
	tests := []struct {
		name   string
		env    *Environment
		want   string
		wantOK bool
	}{
		{name: "hostname present", env: NewEnvironment("TEST"), want: "TEST", wantOK: true},
		{name: "no hostname", env: &Environment{Location: &Location{}}},
		{name: "no location", env: &Environment{}},
		{name: "no environment", env: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HostName(tt.env)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("HostName() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolverURL(t *testing.T) {
	tests := []struct {
		name  string
		table func() Table
		env   *Environment
		key   string
		want  string
	}{
		{
			name:  "online route concatenated without normalization",
			table: testTable,
			env:   NewEnvironment("api.example.com"),
			key:   "users",
			want:  "https://api.example.com//users",
		},
		{
			name:  "key only in local table falls back",
			table: testTable,
			env:   NewEnvironment("api.example.com"),
			key:   "config",
			want:  "http://localhost:3000/config.json",
		},
		{
			name: "offline mode ignores online routes",
			table: func() Table {
				tbl := testTable()
				tbl.Online = false
				return tbl
			},
			env:  NewEnvironment("api.example.com"),
			key:  "users",
			want: "http://localhost:3000/users.json",
		},
		{
			name:  "unknown key yields bare local base",
			table: testTable,
			env:   NewEnvironment("api.example.com"),
			key:   "missing",
			want:  "http://localhost:3000/",
		},
		{
			name:  "unknown hostname yields bare suffix",
			table: testTable,
			env:   NewEnvironment("other.example.com"),
			key:   "users",
			want:  "/users",
		},
		{
			name:  "no environment yields bare suffix",
			table: testTable,
			env:   nil,
			key:   "users",
			want:  "/users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.table(), tt.env)
			if got := r.URL(tt.key); got != tt.want {
				t.Errorf("URL(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestResolverLookupURL(t *testing.T) {
	r := NewResolver(testTable(), NewEnvironment("api.example.com"))

	got, err := r.LookupURL("users")
	if err != nil {
		t.Fatalf("LookupURL(users) error = %v", err)
	}
	if got != "https://api.example.com//users" {
		t.Errorf("LookupURL(users) = %q", got)
	}

	if _, err := r.LookupURL("missing"); !errors.Is(err, ErrUnknownRoute) {
		t.Errorf("LookupURL(missing) error = %v, want ErrUnknownRoute", err)
	}

	unknownHost := NewResolver(testTable(), NewEnvironment("other.example.com"))
	if _, err := unknownHost.LookupURL("users"); !errors.Is(err, ErrUnknownHost) {
		t.Errorf("LookupURL(users) on unknown host error = %v, want ErrUnknownHost", err)
	}
}

func TestResolverCopiesTable(t *testing.T) {
	tbl := testTable()
	r := NewResolver(tbl, NewEnvironment("api.example.com"))

	tbl.Routes["users"] = "/changed"
	tbl.Hostnames["api.example.com"] = "https://changed/"

	if got := r.URL("users"); got != "https://api.example.com//users" {
		t.Errorf("URL(users) after caller mutation = %q", got)
	}
}

func TestEnvironmentFromURL(t *testing.T) {
	env, err := EnvironmentFromURL("https://api.example.com:8443/app")
	if err != nil {
		t.Fatalf("EnvironmentFromURL() error = %v", err)
	}
	if host, _ := HostName(env); host != "api.example.com" {
		t.Errorf("hostname = %q, want api.example.com", host)
	}

	if _, err := EnvironmentFromURL("/relative/path"); !errors.Is(err, ErrNoHostname) {
		t.Errorf("EnvironmentFromURL(relative) error = %v, want ErrNoHostname", err)
	}
}

func TestAuthTableOAuthURL(t *testing.T) {
	auth := AuthTable{"api.example.com": {OAuthURL: "https://auth.example.com/oauth/token"}}

	got, err := auth.OAuthURL("api.example.com")
	if err != nil || got != "https://auth.example.com/oauth/token" {
		t.Errorf("OAuthURL() = (%q, %v)", got, err)
	}

	if _, err := auth.OAuthURL("nope"); !errors.Is(err, ErrUnknownHost) {
		t.Errorf("OAuthURL(nope) error = %v, want ErrUnknownHost", err)
	}
}
