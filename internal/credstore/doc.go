// Package credstore keeps the client credentials exchanged for a JWT.
//
// Credentials are a token identifier plus an access token. Three backends are
// provided, with different deployment tradeoffs:
//   - File: JSON document on the local filesystem, 0600 permissions, atomic writes
//   - Env: read-only, two environment variables (requires external secret management)
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, Secret Service)
//
// The exchanged JWT itself is never stored; it lives in memory only.
package credstore
