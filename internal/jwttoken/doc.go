// Package jwttoken exchanges client credentials for a bearer JWT and caches
// it for the lifetime of the process.
//
// A Service starts Unauthenticated. The only transition is to Authenticated,
// made by Set, which Retrieve calls after a successful exchange. There is no
// expiry handling and no way back to Unauthenticated.
//
// # Exchange
//
// Retrieve issues a single POST to the configured OAuth URL with the header
//
//	Authorization: Bearer <tokenID>, Bearer <accessToken>
//
// and an empty JSON object as body. The response must carry an access_token
// field. Failures are returned to the caller and leave the Service
// Unauthenticated; nothing is retried.
//
// # Waiting for the token
//
// Poll runs a callback as soon as a token is cached, re-checking on a fixed
// interval (100ms by default) until then. Wait is the blocking form, bounded by
// its context:
//
//	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
//	defer cancel()
//	jwt, err := svc.Wait(ctx)
//
// Service also implements oauth2.TokenSource so the cached JWT can back an
// oauth2.Transport.
package jwttoken
